package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/cms"
	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

const (
	msgMinted      = "You Successfully Minted"
	msgFailed      = "Something Went Wrong"
	msgInFlight    = "A mint is already in progress"
	msgSignIn      = "Sign in to Mint"
	msgSoldOut     = "SOLD OUT"
	msgRateLimited = "Too many mint attempts, please wait a moment"
)

// Mint claims one token from the collection's drop to the session wallet. The response
// carries the re-read panel and exactly one notification; non-htmx submits redirect back
// to the detail page with the notification as a flash.
func (h *Handlers) Mint(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r, chi.URLParam(r, "slug"))
	if !ok {
		return
	}
	logger := observability.FromContext(r.Context()).With(zap.String("slug", c.Slug.Current))
	sessionID, address := sessionFrom(r)
	target := mint.Target{Session: sessionID, Contract: c.Address, Address: address}

	status := http.StatusOK
	note := Notification{Kind: middleware.FlashSuccess, Message: msgMinted, TimeoutMS: successTimeoutMS}

	if address != "" && !h.mintLimiter.Allow(address) {
		status = http.StatusTooManyRequests
		note = Notification{Kind: middleware.FlashError, Message: msgRateLimited}
	} else if _, err := h.mint.Mint(r.Context(), target); err != nil {
		status, note = mintFailure(err)
		if status >= http.StatusInternalServerError {
			logger.Error("mint request failed", zap.Error(err))
		} else {
			logger.Info("mint request rejected", zap.Error(err))
		}
	}

	if !middleware.IsHTMX(r.Context()) {
		h.redirectWithFlash(w, r, c, note)
		return
	}
	state := h.mint.Load(r.Context(), target)
	view := panelView(c, state, middleware.CSRFToken(r))
	view.Notification = &note
	w.Header().Set("Cache-Control", "no-store")
	h.renderFragment(w, r, status, "mint_panel", view)
}

func mintFailure(err error) (int, Notification) {
	fail := func(status int, msg string) (int, Notification) {
		return status, Notification{Kind: middleware.FlashError, Message: msg}
	}
	switch {
	case errors.Is(err, mint.ErrMintInFlight):
		return fail(http.StatusConflict, msgInFlight)
	case errors.Is(err, mint.ErrNotConnected):
		return fail(http.StatusUnauthorized, msgSignIn)
	case errors.Is(err, mint.ErrSoldOut):
		return fail(http.StatusConflict, msgSoldOut)
	case errors.Is(err, drop.ErrInvalidAddress), errors.Is(err, mint.ErrNotReady):
		return fail(http.StatusServiceUnavailable, msgFailed)
	default:
		return fail(http.StatusBadGateway, msgFailed)
	}
}

func (h *Handlers) redirectWithFlash(w http.ResponseWriter, r *http.Request, c cms.Collection, note Notification) {
	if sess, ok := middleware.SessionFromContext(r.Context()); ok {
		sess.AddFlash(note.Kind, note.Message)
		if err := sess.Save(w); err != nil {
			observability.FromContext(r.Context()).Warn("session save failed", zap.Error(err))
		}
	}
	http.Redirect(w, r, c.Path(), http.StatusSeeOther)
}
