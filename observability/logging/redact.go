package logging

import (
	"log/slog"
	"strings"
)

// RedactedValue replaces credentials in log output.
const RedactedValue = "[REDACTED]"

// sensitiveMarkers flag attribute keys that carry credentials. Matching is by
// substring on the lower-cased key, so jwt_secret and Authorization both hit.
var sensitiveMarkers = []string{
	"secret",
	"passphrase",
	"password",
	"authorization",
	"bearer",
	"private_key",
	"token",
}

// IsSensitive reports whether key names a credential.
func IsSensitive(key string) bool {
	normalized := strings.ToLower(strings.TrimSpace(key))
	if normalized == "" {
		return false
	}
	for _, marker := range sensitiveMarkers {
		if strings.Contains(normalized, marker) {
			return true
		}
	}
	return false
}

// MaskValue returns RedactedValue for non-empty values. Empty values stay
// empty so an unset secret is still visible as unset.
func MaskValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return value
	}
	return RedactedValue
}

// MaskField returns key with its value masked.
func MaskField(key, value string) slog.Attr {
	return slog.String(key, MaskValue(value))
}

// redactAttr masks string attributes whose key is sensitive. It runs inside
// the handler so a credential logged by mistake never reaches the sink.
func redactAttr(attr slog.Attr) slog.Attr {
	if !IsSensitive(attr.Key) || attr.Value.Kind() != slog.KindString {
		return attr
	}
	return slog.String(attr.Key, MaskValue(attr.Value.String()))
}
