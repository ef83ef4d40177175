package store

import (
	"context"
	"database/sql"
	"time"
)

// txTimeout bounds one transaction attempt, mirroring the engine-side
// statement timeout so a lock wait cannot stall a request indefinitely.
const txTimeout = 20 * time.Second

// DBTX is satisfied by both *sql.DB and *sql.Tx, letting the repositories
// run against the pool or inside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Postgres provides Storage backed by a Postgres pool and implements
// Transactor for transactional units of work.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Storage returns repositories bound to the shared pool.
func (p *Postgres) Storage() Storage {
	return storageFor(p.db)
}

// WithinTx begins a READ COMMITTED transaction with a bounded deadline and
// runs fn against repositories bound to it. fn returning nil commits; any
// error rolls back, so no partial writes survive a failed attempt.
func (p *Postgres) WithinTx(ctx context.Context, fn func(Storage) error) error {
	ctx, cancel := context.WithTimeout(ctx, txTimeout)
	defer cancel()

	tx, err := p.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return classify(err)
	}

	if err := fn(storageFor(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return classify(err)
	}
	return nil
}

func storageFor(db DBTX) Storage {
	return Storage{
		Users:       NewUserRepository(db),
		Assessments: NewAssessmentRepository(db),
	}
}
