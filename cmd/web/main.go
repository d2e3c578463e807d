package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/cms"
	"github.com/ch-Arham/NFT-Drop/internal/config"
	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/handlers"
	"github.com/ch-Arham/NFT-Drop/internal/imageurl"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
	"github.com/ch-Arham/NFT-Drop/internal/render"
	"github.com/ch-Arham/NFT-Drop/internal/server"
)

const connectAttemptsPerMinute = 20

func main() {
	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()
	logger := baseLogger.Named("web")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = observability.WithLogger(ctx, logger)

	cfg, err := config.Load(ctx)
	if err != nil {
		var validation *config.ValidationError
		if errors.As(err, &validation) {
			logger.Fatal("invalid configuration", zap.Strings("fields", validation.Fields()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	cmsClient := cms.NewClient(cms.Config{
		ProjectID:    cfg.CMS.ProjectID,
		Dataset:      cfg.CMS.Dataset,
		APIVersion:   cfg.CMS.APIVersion,
		Token:        cfg.CMS.Token,
		UseCDN:       cfg.CMS.UseCDN,
		FallbackFile: cfg.CMS.FallbackFile,
		CacheTTL:     cfg.CMS.CacheTTL,
	})
	if !cmsClient.Remote() {
		logger.Warn("no sanity project configured, serving collections from file", zap.String("file", cfg.CMS.FallbackFile))
	}

	images, err := newImageBuilder(cfg)
	if err != nil {
		logger.Fatal("failed to initialise image builder", zap.Error(err))
	}

	dropClient, err := newDropClient(cfg)
	if err != nil {
		logger.Fatal("failed to initialise drop client", zap.Error(err))
	}
	if _, ok := dropClient.(*drop.Fake); ok {
		logger.Warn("no drop gateway configured, claims are simulated in memory")
	}

	renderer, err := render.New(render.Options{Dir: cfg.Server.TemplatesDir, Dev: cfg.Server.DevMode})
	if err != nil {
		logger.Fatal("failed to parse templates", zap.Error(err))
	}

	sessionKey := keyOrEphemeral(logger, "session", cfg.Session.Key)
	csrfKey := keyOrEphemeral(logger, "csrf", cfg.Session.CSRFKey)

	h := handlers.New(handlers.Deps{
		CMS:            cmsClient,
		Images:         images,
		Placeholder:    cfg.Images.Placeholder,
		Mint:           mint.NewService(dropClient, mint.NewRegistry()),
		Renderer:       renderer,
		MintLimiter:    middleware.NewLimiter(cfg.Mint.AttemptsPerMinute, nil),
		ConnectLimiter: middleware.NewLimiter(connectAttemptsPerMinute, nil),
		Brand:          cfg.Site.Brand,
		Title:          cfg.Site.Title,
	})

	srv, err := server.New(server.Config{
		Address:        cfg.Server.Addr,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		RequestTimeout: cfg.Server.RequestTimeout,
		Logger:         logger,
		Handlers:       h,
		Sessions:       middleware.NewSessionStore(middleware.SessionOptions{Key: sessionKey, Secure: cfg.Session.CookieSecure}),
		CSRF:           &middleware.CSRFOptions{Key: csrfKey, Secure: cfg.Session.CookieSecure},
	})
	if err != nil {
		logger.Fatal("failed to build http server", zap.Error(err))
	}

	serverLogger := logger.Named("http").With(
		zap.String("addr", srv.Addr),
		zap.String("environment", cfg.Server.Environment),
		zap.Bool("dev", cfg.Server.DevMode),
	)
	go func() {
		serverLogger.Info("nft drop listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	serverLogger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}
}

func newImageBuilder(cfg config.Config) (imageurl.Builder, error) {
	var next imageurl.Builder
	switch cfg.Images.Provider {
	case config.ImageProviderCloudinary:
		b, err := imageurl.NewCloudinary(cfg.Images.CloudinaryCloudName)
		if err != nil {
			return nil, err
		}
		next = b
	default:
		next = imageurl.Sanity{ProjectID: cfg.CMS.ProjectID, Dataset: cfg.CMS.Dataset}
	}
	return imageurl.NewAllowList(next, cfg.Images.AllowedDomains, cfg.Images.Placeholder), nil
}

func newDropClient(cfg config.Config) (drop.Client, error) {
	if strings.TrimSpace(cfg.Drop.GatewayURL) == "" {
		return drop.NewFake(drop.FakeDrop{Total: 100, Price: decimal.RequireFromString("0.01")}), nil
	}
	return drop.NewHTTPClient(drop.HTTPConfig{
		BaseURL:       cfg.Drop.GatewayURL,
		Chain:         cfg.Drop.Chain,
		AccessToken:   cfg.Drop.AccessToken,
		BackendWallet: cfg.Drop.BackendWallet,
		ReadTimeout:   cfg.Drop.ReadTimeout,
		ClaimTimeout:  cfg.Drop.ClaimTimeout,
	})
}

// keyOrEphemeral returns the configured key, or a random one that does not survive a
// restart. Production configs are rejected earlier when a key is missing.
func keyOrEphemeral(logger *zap.Logger, name, configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		logger.Fatal("failed to generate key", zap.String("key", name), zap.Error(err))
	}
	logger.Warn("no key configured, using an ephemeral one", zap.String("key", name))
	return key
}
