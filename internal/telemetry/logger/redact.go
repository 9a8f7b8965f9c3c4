package logger

import (
	"log/slog"
	"strings"
)

// Key fragments whose string values are always redacted.
var sensitiveKeyPatterns = []string{
	"password",
	"secret",
	"token",
	"cookie",
	"bearer",
	"authorization",
	"credential",
}

// Keys holding a Steam Guard code. Matched exactly: "error_code" and the
// like carry nothing secret.
var codeKeys = map[string]struct{}{
	"code":             {},
	"guard_code":       {},
	"two_factor_code":  {},
	"steam_guard_code": {},
}

const redactedValue = "***REDACTED***"

func redactSensitive(a slog.Attr) slog.Attr {
	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		out := make([]slog.Attr, len(attrs))
		for i, attr := range attrs {
			out[i] = redactSensitive(attr)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	}

	if a.Value.Kind() != slog.KindString || a.Value.String() == "" {
		return a
	}
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, redactedValue)
	}
	return a
}

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	k := strings.ToLower(key)
	if _, ok := codeKeys[k]; ok {
		return true
	}
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(k, pattern) {
			return true
		}
	}
	return false
}

// Mask keeps the first two characters of value for correlation.
func Mask(value string) string {
	if len(value) <= 4 {
		return "***"
	}
	return value[:2] + "***"
}
