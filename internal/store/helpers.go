// ABOUTME: SQL helper functions for query construction.
// ABOUTME: Utilities for escaping and handling SQL patterns safely.

package store

import "strings"

// escapeSQLLike escapes the LIKE wildcards % and _ and the escape character
// itself. Queries using it must declare ESCAPE '\'.
func escapeSQLLike(pattern string) string {
	pattern = strings.ReplaceAll(pattern, "\\", "\\\\")
	pattern = strings.ReplaceAll(pattern, "%", "\\%")
	pattern = strings.ReplaceAll(pattern, "_", "\\_")
	return pattern
}
