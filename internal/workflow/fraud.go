package workflow

import "strings"

// FraudScore applies the rule-based scoring used by the analyze_fraud stage.
// Base score 10, urgency wording +20, collision wording +15, capped at 100.
func FraudScore(message string) int {
	score := 10
	m := strings.ToLower(message)
	if strings.Contains(m, "urgente") {
		score += 20
	}
	if strings.Contains(m, "batida") {
		score += 15
	}
	if score > 100 {
		score = 100
	}
	return score
}
