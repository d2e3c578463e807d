package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

// List renders every collection as a card linking to its detail page. A failed query
// renders an empty grid.
func (h *Handlers) List(w http.ResponseWriter, r *http.Request) {
	page := ListPage{Layout: h.layout(w, r)}
	collections, err := h.cms.Collections(r.Context())
	if err != nil {
		observability.FromContext(r.Context()).Warn("collection list fetch failed", zap.Error(err))
	}
	page.Collections = make([]CardView, 0, len(collections))
	for _, c := range collections {
		if c.Slug.Current == "" {
			continue
		}
		page.Collections = append(page.Collections, h.cardView(c))
	}
	h.renderPage(w, r, http.StatusOK, "list", page)
}

// Detail renders the static collection content right away; the mint panel is fetched
// separately.
func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r, chi.URLParam(r, "slug"))
	if !ok {
		return
	}
	layout := h.layout(w, r)
	layout.Title = c.Title + " | " + h.title
	h.renderPage(w, r, http.StatusOK, "detail", DetailPage{
		Layout:     layout,
		Collection: h.collectionView(c),
		Panel:      deferredPanel(c, layout.Wallet.Address, layout.CSRFToken),
	})
}

// Panel reads price and supply and renders the mint panel. Without htmx it renders the
// whole page with the panel filled in.
func (h *Handlers) Panel(w http.ResponseWriter, r *http.Request) {
	c, ok := h.collection(w, r, chi.URLParam(r, "slug"))
	if !ok {
		return
	}
	sessionID, address := sessionFrom(r)
	state := h.mint.Load(r.Context(), mint.Target{Session: sessionID, Contract: c.Address, Address: address})
	if c.HasValidAddress() {
		// Supply reads are live; never let an intermediary cache the panel.
		w.Header().Set("Cache-Control", "no-store")
	}

	if middleware.IsHTMX(r.Context()) {
		h.renderFragment(w, r, http.StatusOK, "mint_panel", panelView(c, state, middleware.CSRFToken(r)))
		return
	}
	layout := h.layout(w, r)
	layout.Title = c.Title + " | " + h.title
	h.renderPage(w, r, http.StatusOK, "detail", DetailPage{
		Layout:     layout,
		Collection: h.collectionView(c),
		Panel:      panelView(c, state, layout.CSRFToken),
	})
}
