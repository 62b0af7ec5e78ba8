// Package pricing suggests a listing price from a job title and buying stage.
// Pure and deterministic: same inputs always produce the same output.
package pricing

import (
	"math"
	"strings"
)

type rule struct {
	keywords []string
	base     float64
}

// Ordered most-senior-first; the first matching rule wins.
var seniorityRules = []rule{
	{[]string{"ceo", "chief", "founder"}, 1200},
	{[]string{"cto", "cio", "cfo", "coo"}, 1000},
	{[]string{"svp"}, 800},
	{[]string{"vp"}, 600},
	{[]string{"director"}, 400},
	{[]string{"head of", "lead"}, 350},
	{[]string{"manager"}, 250},
}

const defaultBase = 200

// Stage multipliers; unknown or empty stages multiply by 1.
var stageMultipliers = map[string]float64{
	"rfp":       1.5,
	"budgeting": 1.2,
	"learning":  1.0,
}

// SuggestPrice returns the suggested price in whole dollars for a given job
// title and buying stage, rounded to the nearest integer.
func SuggestPrice(jobTitle, buyingStage string) int {
	title := strings.ToLower(jobTitle)
	tokens := strings.FieldsFunc(title, func(r rune) bool {
		return r < 'a' || r > 'z'
	})

	base := float64(defaultBase)
	for _, r := range seniorityRules {
		if matches(title, tokens, r.keywords) {
			base = r.base
			break
		}
	}

	mult := 1.0
	if m, ok := stageMultipliers[strings.ToLower(buyingStage)]; ok {
		mult = m
	}

	return int(math.Round(base * mult))
}

// Multi-word keywords match as substrings; single words match whole tokens
// only, so "director" does not hit "cto" and "coordinator" does not hit "coo".
func matches(title string, tokens, keywords []string) bool {
	for _, kw := range keywords {
		if strings.ContainsRune(kw, ' ') {
			if strings.Contains(title, kw) {
				return true
			}
			continue
		}
		for _, tok := range tokens {
			if tok == kw {
				return true
			}
		}
	}
	return false
}
