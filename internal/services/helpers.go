package services

import (
	"context"
	"strings"
)

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func normaliseIDs(values []string) []string {
	if len(values) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(values))
	var out []string
	for _, value := range values {
		value = strings.TrimSpace(value)
		if value == "" {
			continue
		}
		if _, exists := seen[value]; exists {
			continue
		}
		seen[value] = struct{}{}
		out = append(out, value)
	}
	return out
}

// likeEscape is used instead of a backslash so the clause reads the same on
// MySQL, where backslash is also a string literal escape.
const likeEscape = "!"

var likeEscaper = strings.NewReplacer(likeEscape, likeEscape+likeEscape, "%", likeEscape+"%", "_", likeEscape+"_")

// containsPattern builds a case-insensitive LIKE pattern matching term
// literally anywhere. Pair it with containsClause.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
}

// containsClause ORs a LOWER(column) LIKE test over columns, one placeholder each.
func containsClause(columns ...string) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = "LOWER(" + column + ") LIKE ? ESCAPE '" + likeEscape + "'"
	}
	return strings.Join(parts, " OR ")
}

func trimPtr(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	return &trimmed
}

func optionalID(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func clampPage(limit, offset, fallback, ceiling int) (int, int) {
	if limit <= 0 || limit > ceiling {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
