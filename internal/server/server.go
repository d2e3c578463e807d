// Package server assembles the chi router and HTTP server.
package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/handlers"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
	"github.com/ch-Arham/NFT-Drop/public"
)

const (
	defaultReadTimeout    = 15 * time.Second
	defaultWriteTimeout   = 90 * time.Second
	defaultIdleTimeout    = 120 * time.Second
	defaultRequestTimeout = 75 * time.Second
)

// Config holds runtime options for the HTTP server.
type Config struct {
	Address        string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration

	Logger   *zap.Logger
	Handlers *handlers.Handlers
	Sessions sessions.Store
	// CSRF protects state-changing routes; nil disables it.
	CSRF *middleware.CSRFOptions
}

// New constructs the HTTP server with the middleware stack and embedded assets.
func New(cfg Config) (*http.Server, error) {
	router, err := NewRouter(cfg)
	if err != nil {
		return nil, err
	}
	return &http.Server{
		Addr:              cfg.Address,
		Handler:           router,
		ReadTimeout:       durationOr(cfg.ReadTimeout, defaultReadTimeout),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      durationOr(cfg.WriteTimeout, defaultWriteTimeout),
		IdleTimeout:       durationOr(cfg.IdleTimeout, defaultIdleTimeout),
	}, nil
}

// NewRouter builds the route table:
//
//	GET  /                  collection list
//	GET  /nft/{slug}        detail page
//	GET  /nft/{slug}/drop   mint panel fragment
//	POST /nft/{slug}/mint   claim one token
//	GET  /wallet/nonce      sign-in nonce
//	POST /wallet/connect    verify signature
//	POST /wallet/disconnect sign out
//	GET  /healthz           liveness
//	GET  /static/*          embedded assets
func NewRouter(cfg Config) (http.Handler, error) {
	if cfg.Handlers == nil {
		return nil, fmt.Errorf("server: handlers are required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("server: session store is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = observability.NoopLogger()
	}
	staticContent, err := public.StaticFS()
	if err != nil {
		return nil, fmt.Errorf("server: embed static: %w", err)
	}

	h := cfg.Handlers
	router := chi.NewRouter()
	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(observability.InjectLoggerMiddleware(logger))
	router.Use(observability.RequestLoggerMiddleware())
	router.Use(observability.RecoveryMiddleware(logger))
	router.Use(middleware.HTMX)
	router.Use(chimw.Compress(5))
	router.Use(chimw.Timeout(durationOr(cfg.RequestTimeout, defaultRequestTimeout)))

	router.Get("/healthz", h.Health)
	router.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(staticContent))))

	router.Group(func(r chi.Router) {
		r.Use(middleware.WithSession(cfg.Sessions))
		if cfg.CSRF != nil {
			r.Use(middleware.CSRF(*cfg.CSRF))
		}

		r.Get("/", h.List)
		r.Route("/nft/{slug}", func(r chi.Router) {
			r.Get("/", h.Detail)
			r.Get("/drop", h.Panel)
			r.Post("/mint", h.Mint)
		})
		r.Route("/wallet", func(r chi.Router) {
			r.Use(chimw.NoCache)
			r.Get("/nonce", h.Nonce)
			r.Post("/connect", h.Connect)
			r.Post("/disconnect", h.Disconnect)
		})
	})
	return router, nil
}

func durationOr(v, fallback time.Duration) time.Duration {
	if v > 0 {
		return v
	}
	return fallback
}
