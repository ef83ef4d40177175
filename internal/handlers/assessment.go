package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/cortexa-ai/apiserver/internal/services"
	"github.com/cortexa-ai/apiserver/internal/txretry"
	"github.com/cortexa-ai/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// AssessmentHandler provides HTTP handlers for assessments.
type AssessmentHandler struct {
	assessmentService *services.AssessmentService
}

func NewAssessmentHandler(assessmentService *services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{assessmentService: assessmentService}
}

// AssessmentRouter registers assessment routes on the given router.
func AssessmentRouter(
	r chi.Router,
	assessmentService *services.AssessmentService,
	authMiddleware func(http.Handler) http.Handler,
) {
	handler := NewAssessmentHandler(assessmentService)

	r.Post("/", handler.Submit)
	r.With(authMiddleware).Get("/history/{userID}", handler.History)
}

// AssessmentRequest carries the seven measurements plus the optional
// account to link the record to. Ranges are the documented input contract;
// everything below this layer trusts them.
type AssessmentRequest struct {
	Age                int     `json:"age" validate:"gte=0,lte=120"`
	ReactionTimeMS     float64 `json:"reaction_time_ms" validate:"gt=0"`
	MemoryScore        float64 `json:"memory_score" validate:"gte=0,lte=100"`
	SpeechPauseMS      float64 `json:"speech_pause_ms" validate:"gt=0"`
	WordRepetitionRate float64 `json:"word_repetition_rate" validate:"gte=0,lte=1"`
	TaskErrorRate      float64 `json:"task_error_rate" validate:"gte=0,lte=1"`
	SleepHours         float64 `json:"sleep_hours" validate:"gte=0,lte=24"`
	UserID             *int64  `json:"userId"`
}

// Submit runs the assessment pipeline and returns the risk level and
// recommendation.
func (h *AssessmentHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req AssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeValidationErrors(w, err)
		return
	}

	result, err := h.assessmentService.Process(r.Context(), services.SubmitAssessmentRequest{
		Measurements: types.Measurements{
			Age:                req.Age,
			ReactionTimeMS:     req.ReactionTimeMS,
			MemoryScore:        req.MemoryScore,
			SpeechPauseMS:      req.SpeechPauseMS,
			WordRepetitionRate: req.WordRepetitionRate,
			TaskErrorRate:      req.TaskErrorRate,
			SleepHours:         req.SleepHours,
		},
		UserID: req.UserID,
	})
	if err != nil {
		var busy *txretry.BusyError
		switch {
		case errors.As(err, &busy):
			writeError(w, http.StatusServiceUnavailable, "Database is temporarily busy. Please try again in a moment.")
		case errors.Is(err, txretry.ErrInterrupted):
			writeError(w, http.StatusServiceUnavailable, "Assessment processing interrupted. Please try again.")
		default:
			writeError(w, http.StatusInternalServerError, "An error occurred while processing the assessment: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// History returns the authenticated user's past assessments, newest first.
func (h *AssessmentHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || userID < 1 {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	subject, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if subject != userID {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	history, err := h.assessmentService.History(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "An error occurred while fetching assessment history")
		return
	}

	writeJSON(w, http.StatusOK, history)
}
