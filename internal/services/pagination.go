package services

import "strings"

const (
	defaultLimit = 100
	maxLimit     = 1000
)

// normalizePage clamps skip/limit to the accepted window.
func normalizePage(skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return skip, limit
}

var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// containsPattern is a LIKE pattern matching s literally as a substring.
// Pair it with an ESCAPE '!' clause.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
