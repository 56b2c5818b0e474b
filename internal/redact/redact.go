// Package redact scrubs sensitive information from strings before they are
// logged or surfaced in error responses: connection strings, credentials,
// tokens and filesystem paths that may ride along inside wrapped errors.
package redact

import "regexp"

// Redaction placeholders
const (
	CredentialPlaceholder = "[REDACTED_CREDENTIAL]"
	KeyPlaceholder        = "[REDACTED_KEY]"
	PathPlaceholder       = "[REDACTED_PATH]"
)

var (
	// Database connection strings carrying credentials
	dbConnRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql)://[^@\s]+@`)

	// Password fragments in key=value or key: value form
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`)

	// API keys, secrets and bearer tokens
	secretRegex = regexp.MustCompile(`(?i)(api[_-]?key|secret|token|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)

	// Three-part base64url JWT tokens
	jwtRegex = regexp.MustCompile(`eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`)

	// Absolute filesystem paths (printer output dirs, device nodes)
	pathRegex = regexp.MustCompile(`(/[\w.-]+){2,}`)
)

// String removes sensitive information from the given string.
func String(s string) string {
	if s == "" {
		return s
	}

	s = dbConnRegex.ReplaceAllString(s, "$1://"+CredentialPlaceholder+"@")
	s = passwordRegex.ReplaceAllString(s, "$1$2"+CredentialPlaceholder)
	s = secretRegex.ReplaceAllString(s, "$1$2"+KeyPlaceholder)
	s = jwtRegex.ReplaceAllString(s, KeyPlaceholder)
	s = pathRegex.ReplaceAllString(s, PathPlaceholder)

	return s
}

// Error returns the redacted message of the given error, or an empty string
// for a nil error. Safe to call on wrapped errors of any depth since it
// operates on the rendered message.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
