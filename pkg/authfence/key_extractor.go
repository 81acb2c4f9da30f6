package authfence

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

const (
	// UnknownOrigin stands in for the network origin when no X-Forwarded-For is sent.
	UnknownOrigin = "ip:unknown"

	// MaxFingerprintLength caps the fingerprint, in characters, to bound memory per key.
	MaxFingerprintLength = 256

	// FingerprintSeparator joins the fingerprint header values.
	FingerprintSeparator = "|"
)

// fingerprintHeaders are read in this order.
var fingerprintHeaders = []string{
	"User-Agent",
	"Accept",
	"Accept-Language",
	"Accept-Encoding",
}

// Origin returns the first X-Forwarded-For hop, trimmed, or UnknownOrigin.
//
// The value is whatever the client or the nearest proxy sent. Unless a trusted
// reverse proxy overwrites X-Forwarded-For, a client can pick its own origin
// and so its own bucket.
func Origin(h http.Header) string {
	xff := h.Get("X-Forwarded-For")
	if xff == "" {
		return UnknownOrigin
	}
	first, _, _ := strings.Cut(xff, ",")
	first = strings.TrimSpace(first)
	if first == "" {
		return UnknownOrigin
	}
	return first
}

// Fingerprint summarises the client headers into a weak identifying string.
// Missing headers are skipped, so a request without any of them has an empty
// fingerprint. Positions are not preserved: {User-Agent: x} and {Accept: x}
// produce the same fingerprint.
func Fingerprint(h http.Header) string {
	parts := make([]string, 0, len(fingerprintHeaders))
	for _, name := range fingerprintHeaders {
		if v := h.Get(name); v != "" {
			parts = append(parts, v)
		}
	}
	return truncate(strings.Join(parts, FingerprintSeparator), MaxFingerprintLength)
}

// DeriveKey builds the composite key "{purpose}:{origin}:{fingerprint}".
// It is a pure function of its inputs.
func DeriveKey(purpose string, h http.Header) string {
	return purpose + ":" + Origin(h) + ":" + Fingerprint(h)
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	n := 0
	for i := range s {
		if n == max {
			return s[:i]
		}
		n++
	}
	return s
}

// KeyExtractor builds the rate limit key for a request and purpose.
type KeyExtractor func(purpose string, r *http.Request) (string, error)

// ExtractFingerprint returns the default KeyExtractor, which uses DeriveKey.
func ExtractFingerprint() KeyExtractor {
	return func(purpose string, r *http.Request) (string, error) {
		return DeriveKey(purpose, r.Header), nil
	}
}

// ExtractOrigin returns a KeyExtractor keyed on purpose and network origin only.
// Clients behind the same address share one window.
func ExtractOrigin() KeyExtractor {
	return func(purpose string, r *http.Request) (string, error) {
		return purpose + ":" + Origin(r.Header), nil
	}
}

// ExtractHeader returns a KeyExtractor that uses a specific HTTP header.
// Example: ExtractHeader("X-API-Key") will use the X-API-Key header value.
func ExtractHeader(headerName string) KeyExtractor {
	return func(purpose string, r *http.Request) (string, error) {
		value := r.Header.Get(headerName)
		if value == "" {
			return "", fmt.Errorf("%w: header %s not found or empty", ErrKeyExtractionFailed, headerName)
		}
		return fmt.Sprintf("%s:header:%s:%s", purpose, headerName, value), nil
	}
}

// ParseKeyExtractorConfig creates a KeyExtractor from a configuration string.
// Supported formats:
// - "fingerprint" (or "") -> ExtractFingerprint()
// - "origin" -> ExtractOrigin()
// - "header:X-API-Key" -> ExtractHeader("X-API-Key")
func ParseKeyExtractorConfig(config string) (KeyExtractor, error) {
	kind, arg, hasArg := strings.Cut(config, ":")

	switch kind {
	case "", "fingerprint":
		return ExtractFingerprint(), nil

	case "origin":
		return ExtractOrigin(), nil

	case "header":
		if !hasArg || arg == "" {
			return nil, fmt.Errorf("%w: header extractor requires format 'header:HeaderName'", ErrInvalidConfig)
		}
		return ExtractHeader(arg), nil

	default:
		return nil, fmt.Errorf("%w: unknown key extractor type: %s", ErrInvalidConfig, kind)
	}
}
