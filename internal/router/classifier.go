package router

import "strings"

type Intent string

const (
	IntentSinistro Intent = "SINISTRO"
	IntentVendas   Intent = "VENDAS"
	IntentNeutro   Intent = "NEUTRO"
)

var (
	sinistroKeywords = []string{"sinistro", "batida", "roubo", "acidente"}
	vendasKeywords   = []string{"comprar", "cotação", "cotacao", "renovar", "reativar", "simulação", "simulacao"}
)

// ClassifyIntent maps free text to an intent category with keyword rules.
// Pure function; case-insensitive substring match.
func ClassifyIntent(message string) Intent {
	m := strings.ToLower(message)
	for _, k := range sinistroKeywords {
		if strings.Contains(m, k) {
			return IntentSinistro
		}
	}
	for _, k := range vendasKeywords {
		if strings.Contains(m, k) {
			return IntentVendas
		}
	}
	return IntentNeutro
}
