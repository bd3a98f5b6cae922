package salesforceapi

import (
	"strconv"
	"strings"
)

// ConvertSQLToSOQL rewrites Data Cloud SQL into SOQL for the legacy query
// API fallback. The only construct translated is the row-limit prefix:
//
//	SELECT TOP <n> <cols> FROM <rest>  ->  SELECT <cols> FROM <rest> LIMIT <n>
//
// recognized case-insensitively. Everything else passes through unchanged:
// the function is pure and total, and it never touches literal values
// embedded in the query.
func ConvertSQLToSOQL(query string) string {
	const prefix = "SELECT TOP "

	trimmed := strings.TrimSpace(query)
	if len(trimmed) < len(prefix) || !strings.EqualFold(trimmed[:len(prefix)], prefix) {
		return query
	}

	// Extra whitespace may separate TOP from the number; rest must start at
	// the limit token so the slice below stays aligned.
	rest := strings.TrimSpace(trimmed[len(prefix):])
	fields := strings.Fields(rest)
	if len(fields) < 2 {
		return query
	}

	limit := fields[0]
	if _, err := strconv.Atoi(limit); err != nil {
		return query
	}

	afterLimit := strings.TrimSpace(rest[len(limit):])
	fromIdx := indexFold(afterLimit, " FROM ")
	if fromIdx < 0 {
		return query
	}

	cols := strings.TrimSpace(afterLimit[:fromIdx])
	from := strings.TrimSpace(afterLimit[fromIdx+len(" FROM "):])
	if cols == "" || from == "" {
		return query
	}

	return "SELECT " + cols + " FROM " + from + " LIMIT " + limit
}

// indexFold returns the index of the first case-insensitive occurrence of
// sub in s, or -1.
func indexFold(s, sub string) int {
	return strings.Index(strings.ToUpper(s), strings.ToUpper(sub))
}
