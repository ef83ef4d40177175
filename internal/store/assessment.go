package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/cortexa-ai/apiserver/types"
)

// AssessmentRepository handles persistence for assessments.
type AssessmentRepository struct {
	db DBTX
}

func NewAssessmentRepository(db DBTX) *AssessmentRepository {
	return &AssessmentRepository{db: db}
}

func (r *AssessmentRepository) Create(ctx context.Context, assessment types.Assessment) (types.Assessment, error) {
	assessment.CreatedAt = time.Now()

	const query = `
		INSERT INTO assessments (
			user_id, age, reaction_time_ms, memory_score, speech_pause_ms,
			word_repetition_rate, task_error_rate, sleep_hours, risk_label,
			created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`
	if err := r.db.QueryRowContext(
		ctx,
		query,
		nullableID(assessment.UserID),
		assessment.Age,
		assessment.ReactionTimeMS,
		assessment.MemoryScore,
		assessment.SpeechPauseMS,
		assessment.WordRepetitionRate,
		assessment.TaskErrorRate,
		assessment.SleepHours,
		assessment.RiskLabel,
		assessment.CreatedAt,
	).Scan(&assessment.ID); err != nil {
		return types.Assessment{}, classify(err)
	}
	return assessment, nil
}

func (r *AssessmentRepository) ListByUserID(ctx context.Context, userID int64) ([]types.Assessment, error) {
	const query = `
		SELECT id, user_id, age, reaction_time_ms, memory_score, speech_pause_ms,
		       word_repetition_rate, task_error_rate, sleep_hours, risk_label,
		       created_at
		FROM assessments
		WHERE user_id = $1
		ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var assessments []types.Assessment
	for rows.Next() {
		var assessment types.Assessment
		var owner sql.NullInt64
		if err := rows.Scan(
			&assessment.ID,
			&owner,
			&assessment.Age,
			&assessment.ReactionTimeMS,
			&assessment.MemoryScore,
			&assessment.SpeechPauseMS,
			&assessment.WordRepetitionRate,
			&assessment.TaskErrorRate,
			&assessment.SleepHours,
			&assessment.RiskLabel,
			&assessment.CreatedAt,
		); err != nil {
			return nil, classify(err)
		}
		if owner.Valid {
			id := owner.Int64
			assessment.UserID = &id
		}
		assessments = append(assessments, assessment)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err)
	}
	return assessments, nil
}

func nullableID(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
