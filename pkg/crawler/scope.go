package crawler

import (
	"fmt"
	"net/url"
	"strings"
)

// Scope limits a crawl to the base host and its subdomains over http(s).
type Scope struct {
	host string
}

// NewScope validates baseURL and returns its scope together with the
// normalized start URL.
func NewScope(baseURL string) (Scope, string, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return Scope{}, "", fmt.Errorf("%w: %v", ErrInvalidBaseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return Scope{}, "", fmt.Errorf("%w: %q must use http or https", ErrInvalidBaseURL, baseURL)
	}
	if u.Hostname() == "" {
		return Scope{}, "", fmt.Errorf("%w: %q has no host", ErrInvalidBaseURL, baseURL)
	}
	normalize(u)
	return Scope{host: strings.ToLower(u.Hostname())}, u.String(), nil
}

// Host is the base host of the crawl.
func (s Scope) Host() string {
	return s.host
}

// Contains reports whether u may be crawled.
func (s Scope) Contains(u *url.URL) bool {
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	return host == s.host || strings.HasSuffix(host, "."+s.host)
}

// Resolve resolves href against page and returns it without fragment when it is in scope.
func (s Scope) Resolve(page *url.URL, href string) (string, bool) {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	abs := page.ResolveReference(ref)
	if !s.Contains(abs) {
		return "", false
	}
	normalize(abs)
	return abs.String(), true
}

// normalize drops the fragment and gives an empty path the root "/", so
// "https://example.com" and "https://example.com/#top" are the same page.
func normalize(u *url.URL) {
	u.Fragment = ""
	u.RawFragment = ""
	if u.Path == "" && u.Opaque == "" {
		u.Path = "/"
	}
}
