// Package imageurl turns CMS image references into fully-qualified URLs.
package imageurl

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrEmptyRef is returned when the image reference carries no asset.
	ErrEmptyRef = errors.New("imageurl: empty reference")
	// ErrMalformedRef is returned when an asset reference cannot be parsed.
	ErrMalformedRef = errors.New("imageurl: malformed reference")
)

// Source identifies an image asset. PublicID takes precedence for Cloudinary-hosted assets.
type Source struct {
	Ref      string
	PublicID string
}

// Empty reports whether the source carries no asset.
func (s Source) Empty() bool {
	return strings.TrimSpace(s.Ref) == "" && strings.TrimSpace(s.PublicID) == ""
}

// Options tune the generated URL.
type Options struct {
	Width int
}

// Builder resolves a Source to a URL usable as an <img> src.
type Builder interface {
	URL(src Source, opts Options) (string, error)
}

// AllowList wraps a Builder and replaces URLs on hosts outside the allow-list with a placeholder.
type AllowList struct {
	next        Builder
	domains     map[string]struct{}
	placeholder string
}

// NewAllowList constructs an allow-listing builder. An empty domain list allows every host.
func NewAllowList(next Builder, domains []string, placeholder string) *AllowList {
	set := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			set[d] = struct{}{}
		}
	}
	return &AllowList{next: next, domains: set, placeholder: strings.TrimSpace(placeholder)}
}

// URL resolves src through the wrapped builder and enforces the domain allow-list.
func (a *AllowList) URL(src Source, opts Options) (string, error) {
	raw, err := a.next.URL(src, opts)
	if err != nil {
		return a.placeholder, err
	}
	if a.Allowed(raw) {
		return raw, nil
	}
	return a.placeholder, nil
}

// Allowed reports whether raw points at an allow-listed host.
func (a *AllowList) Allowed(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	if len(a.domains) == 0 {
		return true
	}
	_, ok := a.domains[strings.ToLower(u.Hostname())]
	return ok
}

// Resolve is a convenience for templates: it returns the URL or the fallback on error.
func Resolve(b Builder, src Source, opts Options, fallback string) string {
	if b == nil || src.Empty() {
		return fallback
	}
	u, err := b.URL(src, opts)
	if err != nil || u == "" {
		return fallback
	}
	return u
}
