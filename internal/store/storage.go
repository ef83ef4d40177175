package store

import (
	"context"
	"time"

	"github.com/cortexa-ai/apiserver/types"
)

// UserStore defines persistence operations for users.
type UserStore interface {
	GetByID(ctx context.Context, id int64) (types.User, error)
	GetByEmail(ctx context.Context, email string) (types.User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Create(ctx context.Context, user types.User) (types.User, error)

	// SetVerificationCode installs a new pending code and expiry,
	// overwriting any previous pending code.
	SetVerificationCode(ctx context.Context, userID int64, code string, expiry time.Time) error

	// MarkEmailVerified flips email_verified and clears the pending code
	// and expiry in a single write.
	MarkEmailVerified(ctx context.Context, userID int64) error
}

// AssessmentStore defines persistence operations for assessments.
type AssessmentStore interface {
	Create(ctx context.Context, assessment types.Assessment) (types.Assessment, error)

	// ListByUserID returns the user's assessments, most recent first.
	ListByUserID(ctx context.Context, userID int64) ([]types.Assessment, error)
}

// Storage aggregates the repositories behind one handle. The same shape is
// used both for the shared pool and for a transaction-scoped view.
type Storage struct {
	Users       UserStore
	Assessments AssessmentStore
}

// Transactor runs a unit of work inside one isolated transaction. The
// Storage passed to fn is bound to that transaction; a fresh transaction is
// begun per call, committed when fn returns nil and rolled back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(Storage) error) error
}
