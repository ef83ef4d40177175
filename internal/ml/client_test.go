package ml

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/cortexa-ai/apiserver/types"
	"github.com/stretchr/testify/require"
)

var sampleMeasurements = types.Measurements{
	Age:                71,
	ReactionTimeMS:     352.4,
	MemoryScore:        61.0,
	SpeechPauseMS:      810.2,
	WordRepetitionRate: 0.18,
	TaskErrorRate:      0.12,
	SleepHours:         6.5,
}

func TestPredictRisk_PostsMeasurementsAndReadsLabel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/predict", r.URL.Path)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var got types.Measurements
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.Equal(t, sampleMeasurements, got)

		_ = json.NewEncoder(w).Encode(map[string]string{"risk_level": "medium"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	label, err := client.PredictRisk(context.Background(), sampleMeasurements)
	require.NoError(t, err)
	require.Equal(t, "medium", label)
}

func TestPredictRisk_TrimsTrailingSlash(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]string{"risk_level": "low"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", time.Second)
	label, err := client.PredictRisk(context.Background(), sampleMeasurements)
	require.NoError(t, err)
	require.Equal(t, "low", label)
}

func TestPredictRisk_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.PredictRisk(context.Background(), sampleMeasurements)
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
	require.Contains(t, err.Error(), "model not loaded")
}

func TestPredictRisk_UnreachableService(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.PredictRisk(context.Background(), sampleMeasurements)
	require.Error(t, err)
	require.Contains(t, err.Error(), "failed to communicate with ML service")
}

func TestPredictRisk_EmptyLabelRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{"risk_level": "  "})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.PredictRisk(context.Background(), sampleMeasurements)
	require.Error(t, err)
}

func TestPredictRisk_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Drain the body so the server notices the client disconnect;
		// otherwise r.Context() is never cancelled and Close deadlocks.
		_, _ = io.Copy(io.Discard, r.Body)
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	client := NewClient(srv.URL, time.Second)
	_, err := client.PredictRisk(ctx, sampleMeasurements)
	require.Error(t, err)
}
