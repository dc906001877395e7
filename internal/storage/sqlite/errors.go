package sqlite

import "strings"

// isUniqueConstraintError reports whether err came from violating a
// UNIQUE index or PRIMARY KEY, as opposed to any other SQLite
// failure. The ncruces driver, like mattn's, surfaces this as a
// substring on the error rather than a typed sentinel, so callers
// that need to distinguish "duplicate row" from "database locked"
// from "constraint violated for some other reason" match on text.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "primary key constraint")
}

func isCheckConstraintError(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "check constraint")
}
