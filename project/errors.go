package project

import (
	"strings"
)

// FormatErrorForUser converts technical errors to user-friendly messages.
// This should only be called at the handler level; lower layers keep the
// wrapped originals.
func FormatErrorForUser(err error) string {
	if err == nil {
		return ""
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "unique constraint") && strings.Contains(errStr, "name"):
		return "a project with this name already exists"
	case strings.Contains(errStr, "unique constraint"):
		return "this entry already exists"
	case strings.Contains(errStr, "already exists"):
		return "a project with this name already exists"
	case strings.Contains(errStr, "record not found") || strings.Contains(errStr, "not found"):
		return "project not found"
	case strings.Contains(errStr, "connection"):
		return "database connection failed"
	case strings.Contains(errStr, "timeout"):
		return "operation timed out"
	case strings.Contains(errStr, "no such container"):
		return "the project container is not running"
	case strings.Contains(errStr, "permission denied"):
		return "permission denied"
	default:
		return "an unexpected error occurred"
	}
}
