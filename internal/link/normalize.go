package link

import (
	"net/url"
	"strings"
)

// OnionSuffix is the top-level domain of Tor hidden services.
const OnionSuffix = ".onion"

// Normalize resolves raw against base (when base is non-empty), strips the
// fragment and one trailing slash unless the path is "/". The second return
// value is false when either URL cannot be parsed.
func Normalize(raw, base string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}

	if base != "" {
		b, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		u = b.ResolveReference(u)
	}

	u.Fragment = ""
	u.RawFragment = ""
	u.Host = strings.ToLower(u.Host)

	if u.Path != "/" && strings.HasSuffix(u.Path, "/") {
		u.Path = strings.TrimSuffix(u.Path, "/")
		u.RawPath = strings.TrimSuffix(u.RawPath, "/")
	}

	return u.String(), true
}

// ExtractDomain returns the lowercased hostname of raw, without port.
// It returns false when raw does not parse or has no host.
func ExtractDomain(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	return host, true
}

// IsOnionURL reports whether raw points at a .onion host.
func IsOnionURL(raw string) bool {
	host, ok := ExtractDomain(raw)
	return ok && strings.HasSuffix(host, OnionSuffix)
}

// IsFollowableScheme reports whether a reference can be fetched over HTTP.
// javascript:, mailto:, tel: and data: references and bare fragments are
// rejected.
func IsFollowableScheme(ref string) bool {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.HasPrefix(ref, "#") {
		return false
	}

	lower := strings.ToLower(ref)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return false
		}
	}
	return true
}

// IsHTTP reports whether an absolute URL uses http or https.
func IsHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
