package mailer

import (
	"context"
	"testing"

	"github.com/cortexa-ai/apiserver/config"
	"github.com/cortexa-ai/apiserver/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewSender_NoopWhenUnconfigured(t *testing.T) {
	sender := NewSender(config.SMTPConfig{}, zerolog.Nop())
	require.IsType(t, &NoopSender{}, sender)

	// A noop sender must never fail a request.
	require.NoError(t, sender.Send(context.Background(), Message{To: "a@b.com"}))
}

func TestNewSender_SMTPWhenConfigured(t *testing.T) {
	sender := NewSender(config.SMTPConfig{
		Host:     "smtp.example.com",
		Port:     587,
		Username: "mailer@example.com",
		Password: "secret",
	}, zerolog.Nop())
	require.IsType(t, &SMTPSender{}, sender)
}

func TestVerificationMessage(t *testing.T) {
	msg := VerificationMessage("ada@example.com", "Ada", "482910")

	require.Equal(t, "ada@example.com", msg.To)
	require.Equal(t, "Verify Your Email Address - Cortexa AI", msg.Subject)
	require.Contains(t, msg.Body, "482910")
	require.Contains(t, msg.Body, "Hello Ada")
	require.Contains(t, msg.Body, "expire in 24 hours")
	require.Contains(t, msg.Body, "Team Cortexa")
}

func TestResendVerificationMessage(t *testing.T) {
	msg := ResendVerificationMessage("ada@example.com", "Ada", "003141")

	require.Equal(t, "Your New Verification Code - Cortexa AI", msg.Subject)
	require.Contains(t, msg.Body, "003141")
	require.Contains(t, msg.Body, "You requested a new verification code")
}

func TestAssessmentResultsMessage(t *testing.T) {
	msg := AssessmentResultsMessage(
		"ada@example.com", "Ada", "Lovelace",
		"Medium",
		"Consider more frequent cognitive assessments and consult with a healthcare professional for further evaluation.",
		types.Measurements{
			Age:                71,
			ReactionTimeMS:     352.4,
			MemoryScore:        61.0,
			SpeechPauseMS:      810.2,
			WordRepetitionRate: 0.18,
			TaskErrorRate:      0.12,
			SleepHours:         6.5,
		},
	)

	require.Equal(t, "Your Assessment Results - Cortexa AI", msg.Subject)
	require.Contains(t, msg.Body, "Hello Ada Lovelace")
	require.Contains(t, msg.Body, "Medium")
	require.Contains(t, msg.Body, "352.40")
	require.Contains(t, msg.Body, "not a medical diagnosis")
	require.Contains(t, msg.Body, "Consider more frequent cognitive assessments")
}

func TestCodeMessages_EscapeHTML(t *testing.T) {
	msg := VerificationMessage("x@example.com", "<script>alert(1)</script>", "000000")
	require.NotContains(t, msg.Body, "<script>")
}
