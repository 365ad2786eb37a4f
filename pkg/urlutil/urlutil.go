// Package urlutil provides small URL helpers shared by the metadata and
// relay paths.
package urlutil

import (
	"net/url"
	"strings"
)

// IsHTTP reports whether raw is an absolute http or https URL. The relay
// endpoint refuses anything else so the gateway cannot be pointed at
// file or internal schemes.
func IsHTTP(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}

// NormalizeAbsolute upgrades protocol-relative URLs ("//host/path") to
// https. Extraction engines return these for some CDNs and clients choke
// on them. Everything else passes through unchanged.
func NormalizeAbsolute(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// SchemeHost extracts scheme://host from a URL, for log lines that
// should not carry full query strings.
func SchemeHost(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return parsed.Scheme + "://" + parsed.Host
}
