// Package handlers serves the collection list, the detail and mint page, and the wallet
// session endpoints.
package handlers

import (
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/cms"
	"github.com/ch-Arham/NFT-Drop/internal/imageurl"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
	"github.com/ch-Arham/NFT-Drop/internal/render"
)

// Deps wires the handlers to their collaborators.
type Deps struct {
	CMS         cms.Source
	Images      imageurl.Builder
	Placeholder string
	Mint        *mint.Service
	Renderer    *render.Renderer
	// MintLimiter throttles per wallet address and ConnectLimiter per session; nil
	// disables them.
	MintLimiter    *middleware.Limiter
	ConnectLimiter *middleware.Limiter
	Brand          string
	Title          string
}

// Handlers holds the HTTP handlers.
type Handlers struct {
	cms            cms.Source
	images         imageurl.Builder
	placeholder    string
	mint           *mint.Service
	renderer       *render.Renderer
	mintLimiter    *middleware.Limiter
	connectLimiter *middleware.Limiter
	brand          string
	title          string
}

// New constructs the handlers.
func New(d Deps) *Handlers {
	if d.CMS == nil {
		panic("handlers: cms source is required")
	}
	if d.Renderer == nil {
		panic("handlers: renderer is required")
	}
	svc := d.Mint
	if svc == nil {
		svc = mint.NewService(nil, nil)
	}
	return &Handlers{
		cms:            d.CMS,
		images:         d.Images,
		placeholder:    d.Placeholder,
		mint:           svc,
		renderer:       d.Renderer,
		mintLimiter:    d.MintLimiter,
		connectLimiter: d.ConnectLimiter,
		brand:          d.Brand,
		title:          d.Title,
	}
}

// layout builds the shared page data and drains pending flashes into notifications.
func (h *Handlers) layout(w http.ResponseWriter, r *http.Request) Layout {
	l := Layout{
		Brand:     h.brand,
		Title:     h.title,
		CSRFToken: middleware.CSRFToken(r),
	}
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return l
	}
	if addr := sess.Address(); addr != "" {
		l.Wallet = WalletView{Connected: true, Address: addr}
	}
	flashes := sess.Flashes()
	if len(flashes) == 0 {
		return l
	}
	for _, f := range flashes {
		n := Notification{Kind: f.Kind, Message: f.Message}
		if f.Kind == middleware.FlashSuccess {
			n.TimeoutMS = successTimeoutMS
		}
		l.Notifications = append(l.Notifications, n)
	}
	if err := sess.Save(w); err != nil {
		observability.FromContext(r.Context()).Warn("session save failed", zap.Error(err))
	}
	return l
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	if err := h.renderer.Page(w, status, page, data); err != nil {
		observability.FromContext(r.Context()).Error("render page failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handlers) renderFragment(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	if err := h.renderer.Fragment(w, status, name, data); err != nil {
		observability.FromContext(r.Context()).Error("render fragment failed", zap.String("fragment", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h *Handlers) renderError(w http.ResponseWriter, r *http.Request, status int) {
	page := ErrorPage{Layout: h.layout(w, r), Status: status}
	switch status {
	case http.StatusNotFound:
		page.Heading = "Collection not found"
		page.Message = "There is no collection at this address."
	default:
		page.Heading = "Something Went Wrong"
		page.Message = "The collection could not be loaded. Please try again."
	}
	h.renderPage(w, r, status, "error", page)
}

// collection resolves the {slug} route parameter, writing the error page on failure.
func (h *Handlers) collection(w http.ResponseWriter, r *http.Request, slug string) (cms.Collection, bool) {
	logger := observability.FromContext(r.Context())
	c, err := h.cms.CollectionBySlug(r.Context(), strings.TrimSpace(slug))
	switch {
	case errors.Is(err, cms.ErrNotFound):
		h.renderError(w, r, http.StatusNotFound)
		return cms.Collection{}, false
	case err != nil:
		logger.Error("collection fetch failed", zap.String("slug", slug), zap.Error(err))
		h.renderError(w, r, http.StatusBadGateway)
		return cms.Collection{}, false
	}
	return c, true
}

func sessionFrom(r *http.Request) (id, address string) {
	sess, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		return "", ""
	}
	return sess.ID(), sess.Address()
}
