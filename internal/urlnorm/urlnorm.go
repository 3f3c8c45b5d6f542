// Package urlnorm canonicalizes result URLs and derives the keys and domains
// the rest of the pipeline indexes by.
package urlnorm

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

// Canonicalize normalizes raw so that equivalent links compare equal.
// The scheme defaults to http, the host is lowercased, an empty path becomes
// "/", the query is kept and the fragment is dropped.
func Canonicalize(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	if parsed.Scheme == "" && parsed.Host == "" && parsed.Opaque == "" {
		// "example.com/a" parses as a bare path.
		if reparsed, reErr := url.Parse("http://" + strings.TrimPrefix(trimmed, "//")); reErr == nil {
			parsed = reparsed
		}
	}
	if parsed.Scheme == "" {
		parsed.Scheme = "http"
	}
	parsed.Scheme = strings.ToLower(parsed.Scheme)
	parsed.Host = strings.ToLower(parsed.Host)
	if parsed.Path == "" && parsed.RawPath == "" && parsed.Opaque == "" {
		parsed.Path = "/"
	}
	parsed.Fragment = ""
	parsed.RawFragment = ""
	return parsed.String()
}

// Domain returns the lowercased host of raw, port included.
func Domain(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(parsed.Host))
}

// CacheKey is the hex SHA-256 of the canonical form of raw.
func CacheKey(raw string) string {
	sum := sha256.Sum256([]byte(Canonicalize(raw)))
	return hex.EncodeToString(sum[:])
}

// DecodeRedirect unwraps DuckDuckGo "/l/?uddg=" links to their destination.
// Other links are returned unchanged.
func DecodeRedirect(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/l/") && !strings.Contains(trimmed, "duckduckgo.com/l/") {
		return trimmed
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return trimmed
	}
	target := parsed.Query().Get("uddg")
	if target == "" {
		return trimmed
	}
	return target
}

// IsHTTP reports whether raw is an absolute http(s) link.
func IsHTTP(raw string) bool {
	lower := strings.ToLower(strings.TrimSpace(raw))
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
