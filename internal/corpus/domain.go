package corpus

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// GetDomain extracts the registrable domain name from a URL, without its
// public suffix.
func GetDomain(rawURL string) string {
	host := rawURL
	if idx := strings.Index(host, "://"); idx >= 0 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, "/"); idx >= 0 {
		host = host[:idx]
	}
	if idx := strings.Index(host, ":"); idx >= 0 {
		host = host[:idx]
	}

	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	// "example.co.uk" -> "example"
	if idx := strings.Index(domain, "."); idx >= 0 {
		return domain[:idx]
	}
	return domain
}
