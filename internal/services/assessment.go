package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cortexa-ai/apiserver/internal/mailer"
	"github.com/cortexa-ai/apiserver/internal/store"
	"github.com/cortexa-ai/apiserver/internal/txretry"
	"github.com/cortexa-ai/apiserver/types"
	"github.com/rs/zerolog"
)

// Predictor is the external risk-prediction collaborator.
type Predictor interface {
	PredictRisk(ctx context.Context, m types.Measurements) (string, error)
}

// SubmitAssessmentRequest carries the validated measurements and the
// optional account to link the record to.
type SubmitAssessmentRequest struct {
	types.Measurements
	UserID *int64
}

// AssessmentResult is the caller-facing outcome of a submission.
type AssessmentResult struct {
	RiskLevel      string `json:"riskLevel"`
	Recommendation string `json:"recommendation"`
}

// HistoryEntry summarizes one past assessment for the history listing.
type HistoryEntry struct {
	ID             int64     `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	PatientName    string    `json:"patientName"`
	Age            int       `json:"age"`
	RiskLevel      string    `json:"riskLevel"`
	Recommendation string    `json:"recommendation"`
}

// AssessmentService runs the submission pipeline and serves history.
type AssessmentService struct {
	tx        store.Transactor
	storage   store.Storage
	retry     *txretry.Runner
	predictor Predictor
	notify    mailer.Sender
	log       zerolog.Logger
}

func NewAssessmentService(
	tx store.Transactor,
	storage store.Storage,
	retry *txretry.Runner,
	predictor Predictor,
	notify mailer.Sender,
	log zerolog.Logger,
) *AssessmentService {
	return &AssessmentService{
		tx:        tx,
		storage:   storage,
		retry:     retry,
		predictor: predictor,
		notify:    notify,
		log:       log,
	}
}

// Process runs one submission. Each call persists exactly one record on
// success and none on failure: every attempt runs in its own transaction,
// and only storage contention is retried. Prediction failures are never
// retried; the prediction collaborator is not known to be idempotent.
func (s *AssessmentService) Process(ctx context.Context, req SubmitAssessmentRequest) (AssessmentResult, error) {
	var result AssessmentResult
	err := s.retry.Run(ctx, func(ctx context.Context) error {
		return s.tx.WithinTx(ctx, func(st store.Storage) error {
			r, err := s.performAssessment(ctx, st, req)
			if err != nil {
				return err
			}
			result = r
			return nil
		})
	})
	if err != nil {
		return AssessmentResult{}, err
	}
	return result, nil
}

func (s *AssessmentService) performAssessment(ctx context.Context, st store.Storage, req SubmitAssessmentRequest) (AssessmentResult, error) {
	label, err := s.predictor.PredictRisk(ctx, req.Measurements)
	if err != nil {
		return AssessmentResult{}, fmt.Errorf("risk prediction failed: %w", err)
	}

	riskLevel := displayRiskLevel(label)
	recommendation := recommendationFor(label)

	// The account link is weak: a stale or missing userId leaves the
	// record anonymous rather than failing the submission.
	var owner *types.User
	userID := req.UserID
	if userID != nil {
		user, err := st.Users.GetByID(ctx, *userID)
		switch {
		case err == nil:
			owner = &user
		case errors.Is(err, store.ErrNotFound):
			userID = nil
		default:
			return AssessmentResult{}, err
		}
	}

	if _, err := st.Assessments.Create(ctx, types.Assessment{
		UserID:       userID,
		Measurements: req.Measurements,
		RiskLabel:    label,
	}); err != nil {
		return AssessmentResult{}, err
	}

	if owner != nil && owner.EmailVerified {
		msg := mailer.AssessmentResultsMessage(
			owner.Email, owner.FirstName, owner.LastName,
			riskLevel, recommendation, req.Measurements,
		)
		if err := s.notify.Send(ctx, msg); err != nil {
			s.log.Error().Err(err).Int64("user_id", owner.ID).Msg("failed to send assessment results email")
		}
	}

	return AssessmentResult{RiskLevel: riskLevel, Recommendation: recommendation}, nil
}

// History returns the user's past assessments, most recent first.
func (s *AssessmentService) History(ctx context.Context, userID int64) ([]HistoryEntry, error) {
	assessments, err := s.storage.Assessments.ListByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	patientName := "Unknown"
	user, err := s.storage.Users.GetByID(ctx, userID)
	switch {
	case err == nil:
		patientName = user.FullName()
	case !errors.Is(err, store.ErrNotFound):
		return nil, err
	}

	entries := make([]HistoryEntry, 0, len(assessments))
	for _, a := range assessments {
		entries = append(entries, HistoryEntry{
			ID:             a.ID,
			Timestamp:      a.CreatedAt,
			PatientName:    patientName,
			Age:            a.Age,
			RiskLevel:      displayRiskLevel(a.RiskLabel),
			Recommendation: recommendationFor(a.RiskLabel),
		})
	}
	return entries, nil
}
