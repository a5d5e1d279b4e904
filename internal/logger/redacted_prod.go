//go:build prod

package logger

// Redacted redacts sensitive data in production logs.
func Redacted(any) string {
	return "[REDACTED]"
}
