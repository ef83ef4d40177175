package mailer

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/cortexa-ai/apiserver/types"
)

const (
	subjectVerification       = "Verify Your Email Address - Cortexa AI"
	subjectResendVerification = "Your New Verification Code - Cortexa AI"
	subjectAssessmentResults  = "Your Assessment Results - Cortexa AI"
)

var codeTemplate = template.Must(template.New("code").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>{{.Heading}}</h2>
  <p>Hello {{.FirstName}},</p>
  <p>{{.Intro}}</p>
  <div style="background: #667eea; border-radius: 12px; padding: 30px; text-align: center; margin: 30px 0;">
    <div style="color: #fff; font-size: 14px; text-transform: uppercase;">Your Verification Code</div>
    <div style="color: #fff; font-size: 42px; font-weight: 700; letter-spacing: 8px; font-family: monospace;">{{.Code}}</div>
  </div>
  <p>This code will expire in 24 hours.</p>
  <p style="color: #856404;">If you did not request this, please ignore this email. Never share your verification code with anyone.</p>
  <p>Best regards,<br>Team Cortexa</p>
</body>
</html>`))

var resultsTemplate = template.Must(template.New("results").Parse(`<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #333;">
  <h2>Assessment Results</h2>
  <p>Hello {{.FirstName}} {{.LastName}},</p>
  <p>Thank you for completing your cognitive risk assessment with Cortexa AI. Below are your detailed results.</p>
  <div style="background: #f8f9fa; border-radius: 12px; padding: 25px; margin: 25px 0;">
    <div style="font-weight: 600;">Risk Level</div>
    <div style="font-size: 24px; font-weight: 700;">{{.RiskLevel}}</div>
    <table style="width: 100%; margin: 20px 0;">
      <tr><td>Age</td><td>{{.Age}} years</td></tr>
      <tr><td>Reaction Time</td><td>{{printf "%.2f" .ReactionTimeMS}} ms</td></tr>
      <tr><td>Memory Score</td><td>{{printf "%.2f" .MemoryScore}}</td></tr>
      <tr><td>Speech Pause</td><td>{{printf "%.2f" .SpeechPauseMS}} ms</td></tr>
      <tr><td>Word Repetition Rate</td><td>{{printf "%.2f" .WordRepetitionRate}}</td></tr>
      <tr><td>Task Error Rate</td><td>{{printf "%.2f" .TaskErrorRate}}</td></tr>
      <tr><td>Sleep Hours</td><td>{{printf "%.2f" .SleepHours}} hours</td></tr>
    </table>
  </div>
  <div style="background: #e7f3ff; padding: 20px; margin: 25px 0;">
    <div style="font-weight: 600; color: #1976D2;">Recommendation</div>
    <div>{{.Recommendation}}</div>
  </div>
  <p style="color: #856404;">This assessment is a screening tool and not a medical diagnosis. Please consult with a healthcare professional for a comprehensive evaluation.</p>
  <p>Best regards,<br>Team Cortexa</p>
</body>
</html>`))

type codeEmailData struct {
	Heading   string
	Intro     string
	FirstName string
	Code      string
}

type resultsEmailData struct {
	FirstName      string
	LastName       string
	RiskLevel      string
	Recommendation string
	types.Measurements
}

// VerificationMessage builds the email sent right after signup.
func VerificationMessage(to, firstName, code string) Message {
	return renderCodeMessage(to, subjectVerification, codeEmailData{
		Heading:   "Email Verification",
		Intro:     "Thank you for registering with Cortexa AI! To complete your registration, please verify your email address by entering the verification code below.",
		FirstName: firstName,
		Code:      code,
	})
}

// ResendVerificationMessage builds the email sent when a fresh code is
// requested for an unverified account.
func ResendVerificationMessage(to, firstName, code string) Message {
	return renderCodeMessage(to, subjectResendVerification, codeEmailData{
		Heading:   "New Verification Code",
		Intro:     "You requested a new verification code. Please use the code below to verify your email address.",
		FirstName: firstName,
		Code:      code,
	})
}

// AssessmentResultsMessage builds the results email for a verified account.
func AssessmentResultsMessage(to, firstName, lastName, riskLevel, recommendation string, m types.Measurements) Message {
	var body bytes.Buffer
	if err := resultsTemplate.Execute(&body, resultsEmailData{
		FirstName:      firstName,
		LastName:       lastName,
		RiskLevel:      riskLevel,
		Recommendation: recommendation,
		Measurements:   m,
	}); err != nil {
		// Templates are parsed at init, so execution can only fail on a
		// bad data type. Fall back to a plain body rather than dropping
		// the notification.
		return Message{To: to, Subject: subjectAssessmentResults, Body: fmt.Sprintf("Risk level: %s. %s", riskLevel, recommendation)}
	}
	return Message{To: to, Subject: subjectAssessmentResults, Body: body.String()}
}

func renderCodeMessage(to, subject string, data codeEmailData) Message {
	var body bytes.Buffer
	if err := codeTemplate.Execute(&body, data); err != nil {
		return Message{To: to, Subject: subject, Body: fmt.Sprintf("Your verification code is %s. It expires in 24 hours.", data.Code)}
	}
	return Message{To: to, Subject: subject, Body: body.String()}
}
