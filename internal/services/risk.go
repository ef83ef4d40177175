package services

import "strings"

// Risk label vocabulary expected from the prediction service.
const (
	riskLow    = "low"
	riskMedium = "medium"
	riskHigh   = "high"
)

// displayRiskLevel normalizes a raw label for display: "medium" -> "Medium".
func displayRiskLevel(label string) string {
	if label == "" {
		return label
	}
	return strings.ToUpper(label[:1]) + strings.ToLower(label[1:])
}

// recommendationFor maps a risk label to its recommendation. Total over all
// inputs: unrecognized labels get the generic fallback.
func recommendationFor(label string) string {
	switch strings.ToLower(label) {
	case riskLow:
		return "Maintain cognitive health monitoring. Continue regular check-ups and healthy lifestyle practices."
	case riskMedium:
		return "Consider more frequent cognitive assessments and consult with a healthcare professional for further evaluation."
	case riskHigh:
		return "Please consult with a healthcare professional for a comprehensive evaluation and appropriate care planning."
	default:
		return "Continue monitoring your cognitive health."
	}
}
