package services

import (
	"context"
	"errors"
	"time"

	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/cortexa-ai/apiserver/internal/store"
	"github.com/cortexa-ai/apiserver/internal/txretry"
	"github.com/cortexa-ai/apiserver/types"
	"github.com/rs/zerolog"
)

// fastRetry keeps the default attempt count without the production backoff.
var fastRetry = txretry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}

func newTestRetry() *txretry.Runner {
	return txretry.NewRunner(fastRetry, store.IsContention, zerolog.Nop())
}

func contentionErr() error {
	return &store.Error{Kind: store.KindContention, Err: errors.New("deadlock detected")}
}

func conflictErr() error {
	return &store.Error{Kind: store.KindConflict, Err: errors.New("duplicate key value violates unique constraint")}
}

// memDB is an in-memory stand-in for the Postgres store.
type memDB struct {
	users       map[int64]types.User
	nextUser    int64
	assessments []types.Assessment
	nextRecord  int64
}

func newMemDB() *memDB {
	return &memDB{users: map[int64]types.User{}}
}

func (d *memDB) storage() store.Storage {
	return store.Storage{Users: &memUsers{d}, Assessments: &memAssessments{d}}
}

func (d *memDB) snapshot() memDB {
	snap := memDB{
		users:       make(map[int64]types.User, len(d.users)),
		nextUser:    d.nextUser,
		assessments: append([]types.Assessment(nil), d.assessments...),
		nextRecord:  d.nextRecord,
	}
	for id, u := range d.users {
		snap.users[id] = u
	}
	return snap
}

func (d *memDB) restore(snap memDB) {
	*d = snap
}

func (d *memDB) addUser(u types.User) types.User {
	d.nextUser++
	u.ID = d.nextUser
	d.users[u.ID] = u
	return u
}

type memUsers struct {
	db *memDB
}

func (m *memUsers) GetByID(_ context.Context, id int64) (types.User, error) {
	u, ok := m.db.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return u, nil
}

func (m *memUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, u := range m.db.users {
		if u.Email == email {
			return u, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memUsers) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := m.GetByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

func (m *memUsers) Create(_ context.Context, user types.User) (types.User, error) {
	for _, u := range m.db.users {
		if u.Email == user.Email {
			return types.User{}, conflictErr()
		}
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	return m.db.addUser(user), nil
}

func (m *memUsers) SetVerificationCode(_ context.Context, userID int64, code string, expiry time.Time) error {
	u, ok := m.db.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.VerificationCode = &code
	u.VerificationCodeExpiry = &expiry
	u.UpdatedAt = time.Now()
	m.db.users[userID] = u
	return nil
}

func (m *memUsers) MarkEmailVerified(_ context.Context, userID int64) error {
	u, ok := m.db.users[userID]
	if !ok {
		return store.ErrNotFound
	}
	u.EmailVerified = true
	u.VerificationCode = nil
	u.VerificationCodeExpiry = nil
	u.UpdatedAt = time.Now()
	m.db.users[userID] = u
	return nil
}

type memAssessments struct {
	db *memDB
}

func (m *memAssessments) Create(_ context.Context, a types.Assessment) (types.Assessment, error) {
	m.db.nextRecord++
	a.ID = m.db.nextRecord
	a.CreatedAt = time.Now()
	m.db.assessments = append(m.db.assessments, a)
	return a, nil
}

func (m *memAssessments) ListByUserID(_ context.Context, userID int64) ([]types.Assessment, error) {
	var out []types.Assessment
	for i := len(m.db.assessments) - 1; i >= 0; i-- {
		a := m.db.assessments[i]
		if a.UserID != nil && *a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}

// memTx runs units of work against the memDB, restoring a snapshot on
// failure so rollback semantics match the real transactor. wrap, when set,
// decorates the transaction-scoped storage for fault injection.
type memTx struct {
	db   *memDB
	wrap func(store.Storage) store.Storage
}

func (t *memTx) WithinTx(_ context.Context, fn func(store.Storage) error) error {
	snap := t.db.snapshot()
	st := t.db.storage()
	if t.wrap != nil {
		st = t.wrap(st)
	}
	if err := fn(st); err != nil {
		t.db.restore(snap)
		return err
	}
	return nil
}

// flakyAssessments fails the first `failures` Create calls with contention.
type flakyAssessments struct {
	store.AssessmentStore
	failures int
	calls    int
}

func (f *flakyAssessments) Create(ctx context.Context, a types.Assessment) (types.Assessment, error) {
	f.calls++
	if f.calls <= f.failures {
		return types.Assessment{}, contentionErr()
	}
	return f.AssessmentStore.Create(ctx, a)
}

// erroringUsers overrides Create with a fixed error.
type erroringUsers struct {
	store.UserStore
	createErr error
}

func (e *erroringUsers) Create(ctx context.Context, u types.User) (types.User, error) {
	if e.createErr != nil {
		return types.User{}, e.createErr
	}
	return e.UserStore.Create(ctx, u)
}

type fakePredictor struct {
	label string
	err   error
	calls int
}

func (p *fakePredictor) PredictRisk(context.Context, types.Measurements) (string, error) {
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	return p.label, nil
}

type recordingSender struct {
	sent    []mailer.Message
	sendErr error
}

func (r *recordingSender) Send(_ context.Context, msg mailer.Message) error {
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, msg)
	return nil
}
