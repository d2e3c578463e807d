package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/format"
	"github.com/ch-Arham/NFT-Drop/internal/httpx"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
	"github.com/ch-Arham/NFT-Drop/internal/wallet"
)

type nonceResponse struct {
	Nonce   string `json:"nonce"`
	Message string `json:"message"`
}

type walletResponse struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address,omitempty"`
	Display   string `json:"display,omitempty"`
}

// Nonce issues a fresh sign-in nonce and the message the wallet must sign.
func (h *Handlers) Nonce(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session unavailable", http.StatusInternalServerError))
		return
	}
	nonce := wallet.NewNonce()
	sess.SetNonce(nonce)
	if err := sess.Save(w); err != nil {
		observability.FromContext(r.Context()).Error("session save failed", zap.Error(err))
		httpx.WriteError(r.Context(), w, httpx.NewError("session_unavailable", "session unavailable", http.StatusInternalServerError))
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httpx.WriteJSON(w, http.StatusOK, nonceResponse{Nonce: nonce, Message: wallet.Message(format.MarketplaceName(h.brand), nonce)})
}

// Connect verifies a personal_sign signature over the outstanding nonce and stores the
// wallet address in the session. The nonce is single use whatever the outcome.
func (h *Handlers) Connect(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sess, ok := middleware.SessionFromContext(ctx)
	if !ok {
		httpx.WriteError(ctx, w, httpx.NewError("session_unavailable", "session unavailable", http.StatusInternalServerError))
		return
	}
	if err := r.ParseForm(); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", "malformed form body", http.StatusBadRequest))
		return
	}
	address := strings.TrimSpace(r.PostForm.Get("address"))
	signature := strings.TrimSpace(r.PostForm.Get("signature"))
	if !h.connectLimiter.Allow(sess.ID()) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many sign-in attempts", http.StatusTooManyRequests))
		return
	}

	nonce := sess.ConsumeNonce()
	if err := sess.Save(w); err != nil {
		observability.FromContext(ctx).Warn("session save failed", zap.Error(err))
	}
	logger := observability.FromContext(ctx).With(zap.String("wallet", observability.SanitizeAddress(address)))
	if nonce == "" {
		logger.Info("wallet connect without nonce")
		httpx.WriteError(ctx, w, httpx.NewError("nonce_missing", wallet.ErrNonceMissing.Error(), http.StatusUnauthorized))
		return
	}

	addr, err := wallet.Verify(address, wallet.Message(format.MarketplaceName(h.brand), nonce), signature)
	switch {
	case errors.Is(err, wallet.ErrInvalidAddress):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_address", "wallet address is not valid", http.StatusBadRequest))
		return
	case err != nil:
		logger.Info("wallet signature rejected", zap.Error(err))
		httpx.WriteError(ctx, w, httpx.NewError("signature_mismatch", wallet.ErrSignatureMismatch.Error(), http.StatusUnauthorized))
		return
	}

	sess.SetAddress(addr.Hex())
	if err := sess.Save(w); err != nil {
		logger.Error("session save failed", zap.Error(err))
	}
	logger.Info("wallet connected")
	httpx.WriteJSON(w, http.StatusOK, walletResponse{Connected: true, Address: addr.Hex(), Display: format.ShortAddress(addr.Hex())})
}

// Disconnect signs the wallet out and drops the session's mint guards.
func (h *Handlers) Disconnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if ok {
		h.mint.Registry().Close(sess.ID())
		sess.SignOut()
		if err := sess.Save(w); err != nil {
			observability.FromContext(r.Context()).Warn("session save failed", zap.Error(err))
		}
	}
	if middleware.IsHTMX(r.Context()) {
		w.Header().Set("HX-Refresh", "true")
	}
	httpx.WriteJSON(w, http.StatusOK, walletResponse{Connected: false})
}

// Health reports liveness.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
