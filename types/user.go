package types

import "time"

// User represents an account in the system.
// It contains identity, profile, and email-verification state.
type User struct {
	// ID is the unique identifier of the user.
	ID int64 `json:"id" db:"id"`

	// Email is the user's unique login identity, immutable after creation.
	Email string `json:"email" db:"email"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// FirstName is the user's given name.
	FirstName string `json:"firstName" db:"first_name"`

	// LastName is the user's family name.
	LastName string `json:"lastName" db:"last_name"`

	// Age is the user's age in years.
	Age int `json:"age" db:"age"`

	// Gender is the user's self-reported gender.
	Gender string `json:"gender" db:"gender"`

	// BloodGroup is the user's blood group.
	BloodGroup string `json:"bloodGroup" db:"blood_group"`

	// EmailVerified reports whether the user has confirmed their email
	// address with a verification code.
	EmailVerified bool `json:"emailVerified" db:"email_verified"`

	// VerificationCode is the pending 6-digit email verification code.
	// VerificationCode and VerificationCodeExpiry are always both nil
	// or both set: a pending code always carries its expiry, and
	// successful verification clears them together.
	VerificationCode *string `json:"-" db:"verification_code"`

	// VerificationCodeExpiry is the instant after which the pending code
	// is no longer accepted.
	VerificationCodeExpiry *time.Time `json:"-" db:"verification_code_expiry"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// FullName returns the user's display name.
func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}
