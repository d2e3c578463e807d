package middleware

import (
	"net/http"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/httpx"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

// CSRFHeader is the header htmx and wallet.js send the token in.
const CSRFHeader = "X-CSRF-Token"

// CSRFOptions configures token protection for state-changing routes.
type CSRFOptions struct {
	Key            []byte
	Secure         bool
	TrustedOrigins []string
}

// CSRF wraps gorilla/csrf. Rejections are logged and answered with the JSON envelope for
// htmx and script callers or plain text otherwise.
func CSRF(opts CSRFOptions) func(http.Handler) http.Handler {
	return csrf.Protect(
		opts.Key,
		csrf.Secure(opts.Secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.RequestHeader(CSRFHeader),
		csrf.TrustedOrigins(opts.TrustedOrigins),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailure)),
	)
}

// CSRFToken returns the token for the current request, for templates.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func csrfFailure(w http.ResponseWriter, r *http.Request) {
	reason := csrf.FailureReason(r)
	observability.FromContext(r.Context()).Warn("csrf rejected", zap.Error(reason))
	if IsHTMX(r.Context()) || r.Header.Get("Accept") == "application/json" {
		httpx.WriteError(r.Context(), w, httpx.NewError("csrf_invalid", "request token missing or invalid", http.StatusForbidden))
		return
	}
	http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
}
