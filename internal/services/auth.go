package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/cortexa-ai/apiserver/internal/store"
	"github.com/cortexa-ai/apiserver/internal/txretry"
	"github.com/cortexa-ai/apiserver/types"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

const verificationCodeTTL = 24 * time.Hour

// Identical for unknown email and wrong password so the response never
// reveals which one failed.
const invalidCredentialsMessage = "Invalid email or password"

// SignupRequest carries the fields needed to create an account.
type SignupRequest struct {
	Email      string
	Password   string
	FirstName  string
	LastName   string
	Age        int
	Gender     string
	BloodGroup string
}

// AuthResult is the caller-facing outcome of signup and login. Business
// rejections come back as Success=false with a reason, never as errors.
type AuthResult struct {
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	UserID     int64  `json:"userId,omitempty"`
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"firstName,omitempty"`
	LastName   string `json:"lastName,omitempty"`
	Age        int    `json:"age,omitempty"`
	Gender     string `json:"gender,omitempty"`
	BloodGroup string `json:"bloodGroup,omitempty"`
	Token      string `json:"token,omitempty"`
}

// VerificationResult is the caller-facing outcome of the verification
// lifecycle operations.
type VerificationResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// AuthService handles registration, login, and the email-verification
// lifecycle.
//
// mail delivers inline and its failures surface to the caller; notify may
// be queue-backed and its failures are swallowed. Resend uses mail because
// the email is the whole point of the operation, while signup's
// verification email is best-effort.
type AuthService struct {
	tx      store.Transactor
	storage store.Storage
	retry   *txretry.Runner
	mail    mailer.Sender
	notify  mailer.Sender
	log     zerolog.Logger
}

func NewAuthService(
	tx store.Transactor,
	storage store.Storage,
	retry *txretry.Runner,
	mail mailer.Sender,
	notify mailer.Sender,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		tx:      tx,
		storage: storage,
		retry:   retry,
		mail:    mail,
		notify:  notify,
		log:     log,
	}
}

// Signup registers a new account with a pending verification code. The
// unit of work runs in one transaction per attempt with contention retried;
// every failure mode maps to a structured outcome, never a raw error.
func (s *AuthService) Signup(ctx context.Context, req SignupRequest) AuthResult {
	var result AuthResult
	err := s.retry.Run(ctx, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(st store.Storage) error {
			r, err := s.performSignup(ctx, st, req)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err == nil {
		return result
	}

	var busy *txretry.BusyError
	switch {
	case errors.As(err, &busy):
		return AuthResult{Message: "Database is temporarily busy. Please try again in a moment."}
	case errors.Is(err, txretry.ErrInterrupted):
		return AuthResult{Message: "Signup interrupted. Please try again."}
	case store.IsConflict(err):
		// Lost a race with a concurrent signup for the same email.
		return AuthResult{Message: "Email already registered"}
	default:
		s.log.Error().Err(err).Str("email", req.Email).Msg("signup failed")
		return AuthResult{Message: "Signup failed: " + err.Error()}
	}
}

func (s *AuthService) performSignup(ctx context.Context, st store.Storage, req SignupRequest) (AuthResult, error) {
	exists, err := st.Users.ExistsByEmail(ctx, req.Email)
	if err != nil {
		return AuthResult{}, err
	}
	if exists {
		return AuthResult{Message: "Email already registered"}, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return AuthResult{}, fmt.Errorf("hash password: %w", err)
	}

	code, err := generateVerificationCode()
	if err != nil {
		return AuthResult{}, fmt.Errorf("generate verification code: %w", err)
	}
	expiry := time.Now().Add(verificationCodeTTL)

	user, err := st.Users.Create(ctx, types.User{
		Email:                  req.Email,
		PasswordHash:           string(hash),
		FirstName:              req.FirstName,
		LastName:               req.LastName,
		Age:                    req.Age,
		Gender:                 req.Gender,
		BloodGroup:             req.BloodGroup,
		EmailVerified:          false,
		VerificationCode:       &code,
		VerificationCodeExpiry: &expiry,
	})
	if err != nil {
		return AuthResult{}, err
	}

	msg := mailer.VerificationMessage(user.Email, user.FirstName, code)
	if err := s.notify.Send(ctx, msg); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to send verification email")
	}

	return profileResult(user), nil
}

// Login verifies credentials. A single read and a hash compare; no retry
// wrapper needed.
func (s *AuthService) Login(ctx context.Context, email, password string) AuthResult {
	user, err := s.storage.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return AuthResult{Message: invalidCredentialsMessage}
		}
		s.log.Error().Err(err).Msg("login lookup failed")
		return AuthResult{Message: "Login failed. Please try again."}
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return AuthResult{Message: invalidCredentialsMessage}
	}

	return profileResult(user)
}

// VerifyEmail validates a pending code. On match the account becomes
// VERIFIED and the code and expiry are cleared in the same write, so a
// code can never be accepted twice.
func (s *AuthService) VerifyEmail(ctx context.Context, email, code string) VerificationResult {
	user, err := s.storage.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerificationResult{Message: "User not found"}
		}
		s.log.Error().Err(err).Msg("verification lookup failed")
		return VerificationResult{Message: "Verification failed. Please try again."}
	}

	if user.EmailVerified {
		return VerificationResult{Message: "Email already verified"}
	}
	if user.VerificationCode == nil || *user.VerificationCode != code {
		return VerificationResult{Message: "Invalid verification code"}
	}
	if user.VerificationCodeExpiry == nil || user.VerificationCodeExpiry.Before(time.Now()) {
		return VerificationResult{Message: "Verification code has expired. Please request a new one."}
	}

	if err := s.storage.Users.MarkEmailVerified(ctx, user.ID); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to mark email verified")
		return VerificationResult{Message: "Verification failed. Please try again."}
	}

	return VerificationResult{Success: true, Message: "Email verified successfully"}
}

// ResendVerification issues a fresh code, invalidating any previous one,
// and sends it. Unlike the signup path, a send failure here is surfaced:
// the email is the entire purpose of the operation.
func (s *AuthService) ResendVerification(ctx context.Context, email string) VerificationResult {
	user, err := s.storage.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return VerificationResult{Message: "User not found"}
		}
		s.log.Error().Err(err).Msg("resend lookup failed")
		return VerificationResult{Message: "Resend failed. Please try again."}
	}

	if user.EmailVerified {
		return VerificationResult{Message: "Email already verified"}
	}

	code, err := generateVerificationCode()
	if err != nil {
		s.log.Error().Err(err).Msg("failed to generate verification code")
		return VerificationResult{Message: "Resend failed. Please try again."}
	}

	if err := s.storage.Users.SetVerificationCode(ctx, user.ID, code, time.Now().Add(verificationCodeTTL)); err != nil {
		s.log.Error().Err(err).Int64("user_id", user.ID).Msg("failed to store verification code")
		return VerificationResult{Message: "Resend failed. Please try again."}
	}

	msg := mailer.ResendVerificationMessage(user.Email, user.FirstName, code)
	if err := s.mail.Send(ctx, msg); err != nil {
		return VerificationResult{Message: "Failed to send verification email: " + err.Error()}
	}

	return VerificationResult{Success: true, Message: "Verification code sent to your email"}
}

// generateVerificationCode returns a 6-digit numeric code from a
// cryptographically secure source, zero-padded.
func generateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n), nil
}

func profileResult(user types.User) AuthResult {
	return AuthResult{
		Success:    true,
		UserID:     user.ID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		LastName:   user.LastName,
		Age:        user.Age,
		Gender:     user.Gender,
		BloodGroup: user.BloodGroup,
	}
}
