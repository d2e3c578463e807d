package middleware

import (
	"context"
	"net/http"
	"strings"
)

type htmxContextKey struct{}

// HTMXInfo captures the htmx request headers handlers care about.
type HTMXInfo struct {
	Request bool
	Target  string
	Trigger string
	Boosted bool
}

// HTMX marks requests coming from htmx so handlers can answer with fragments.
func HTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		info := HTMXInfo{
			Request: strings.EqualFold(r.Header.Get("HX-Request"), "true"),
			Target:  r.Header.Get("HX-Target"),
			Trigger: r.Header.Get("HX-Trigger"),
			Boosted: strings.EqualFold(r.Header.Get("HX-Boosted"), "true"),
		}
		w.Header().Add("Vary", "HX-Request")
		ctx := context.WithValue(r.Context(), htmxContextKey{}, info)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HTMXFromContext returns the htmx info attached by HTMX.
func HTMXFromContext(ctx context.Context) HTMXInfo {
	if ctx == nil {
		return HTMXInfo{}
	}
	info, _ := ctx.Value(htmxContextKey{}).(HTMXInfo)
	return info
}

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(ctx context.Context) bool {
	return HTMXFromContext(ctx).Request
}
