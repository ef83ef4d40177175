package types

import "time"

// Measurements holds the seven behavioral-test inputs of one assessment.
// Field ranges are validated at the API edge; everything below that layer
// trusts the values are within contract.
type Measurements struct {
	// Age is the subject's age in years (0-120).
	Age int `json:"age" db:"age"`

	// ReactionTimeMS is the measured reaction time in milliseconds.
	ReactionTimeMS float64 `json:"reaction_time_ms" db:"reaction_time_ms"`

	// MemoryScore is the memory test score (0-100).
	MemoryScore float64 `json:"memory_score" db:"memory_score"`

	// SpeechPauseMS is the average speech pause duration in milliseconds.
	SpeechPauseMS float64 `json:"speech_pause_ms" db:"speech_pause_ms"`

	// WordRepetitionRate is the fraction of repeated words (0-1).
	WordRepetitionRate float64 `json:"word_repetition_rate" db:"word_repetition_rate"`

	// TaskErrorRate is the fraction of task errors (0-1).
	TaskErrorRate float64 `json:"task_error_rate" db:"task_error_rate"`

	// SleepHours is the average nightly sleep in hours (0-24).
	SleepHours float64 `json:"sleep_hours" db:"sleep_hours"`
}

// Assessment represents one completed risk assessment.
// A record is created exactly once per successful submission and is
// immutable thereafter.
type Assessment struct {
	// ID is the unique identifier of the assessment.
	ID int64 `json:"id" db:"id"`

	// UserID links the assessment to the account that submitted it.
	// It is nil for anonymous submissions. The relation is weak: the
	// record survives deletion of the account.
	UserID *int64 `json:"user_id,omitempty" db:"user_id"`

	// Measurements are the seven inputs the prediction was made from.
	Measurements

	// RiskLabel is the raw label returned by the prediction service,
	// expected to be one of "low", "medium", or "high".
	RiskLabel string `json:"risk_label" db:"risk_label"`

	// CreatedAt is the timestamp when the assessment was recorded.
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
