package collection

import (
	"strings"

	"ai-collection/server/internal/models"
)

// Criteria is the active gallery filter; empty fields match anything
type Criteria struct {
	Search   string `json:"search"`
	Platform string `json:"platform"`
}

// Matches reports whether r passes the filter. The search term is matched
// case-insensitively against prompt, tags and model; platform is exact.
func (c Criteria) Matches(r models.Record) bool {
	if c.Platform != "" && string(r.Platform) != c.Platform {
		return false
	}
	if c.Search == "" {
		return true
	}
	term := strings.ToLower(c.Search)
	return strings.Contains(strings.ToLower(r.Prompt), term) ||
		strings.Contains(strings.ToLower(r.Tags), term) ||
		strings.Contains(strings.ToLower(r.Model), term)
}

// Apply returns the records matching c, preserving order
func (c Criteria) Apply(records []models.Record) []models.Record {
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if c.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}
