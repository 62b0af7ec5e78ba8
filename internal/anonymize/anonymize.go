// Package anonymize maps real companies and user ids to display labels so a
// Hunter can browse and filter without learning a Signal's identity before
// acceptance. This is presentation-layer obfuscation, NOT a security
// boundary: anyone holding the original values can re-derive the labels.
package anonymize

import "strings"

type categoryRule struct {
	keywords []string
	label    string
}

// Ordered; the first matching rule wins.
var categoryRules = []categoryRule{
	{[]string{"bank", "capital", "finance"}, "Global Fintech Bank"},
	{[]string{"tech", "software"}, "Enterprise Tech Company"},
	{[]string{"health", "pharma", "medical"}, "Healthcare Leader"},
	{[]string{"retail", "commerce"}, "Major Retailer"},
	{[]string{"media", "entertainment"}, "Media & Entertainment Corp"},
	{[]string{"labs", "startup"}, "Innovative Tech Startup"},
}

// Fallback labels for unmatched names, selected deterministically by the
// company string's first byte mod 5.
var genericCategories = [5]string{
	"Fortune 500 Company",
	"Leading Enterprise",
	"Industry Pioneer",
	"Global Corporation",
	"Established Firm",
}

// Company maps a company name to a coarse category label. Deterministic.
func Company(name string) string {
	lower := strings.ToLower(name)
	for _, r := range categoryRules {
		for _, kw := range r.keywords {
			if strings.Contains(lower, kw) {
				return r.label
			}
		}
	}

	if name == "" {
		return genericCategories[0]
	}
	return genericCategories[int(name[0])%5]
}

// AnonymousID derives a stable pseudonym from a user id: "EXC-" plus the
// first four characters of the id, uppercased. Stable across calls so labels
// stay consistent, and not reversible without the original id.
func AnonymousID(userID string) string {
	prefix := userID
	if len(prefix) > 4 {
		prefix = prefix[:4]
	}
	return "EXC-" + strings.ToUpper(prefix)
}
