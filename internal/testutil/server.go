package testutil

import (
	"context"
	"crypto/ecdsa"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ch-Arham/NFT-Drop/internal/cms"
	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/handlers"
	"github.com/ch-Arham/NFT-Drop/internal/imageurl"
	"github.com/ch-Arham/NFT-Drop/internal/middleware"
	"github.com/ch-Arham/NFT-Drop/internal/mint"
	"github.com/ch-Arham/NFT-Drop/internal/render"
	"github.com/ch-Arham/NFT-Drop/internal/server"
)

// Test keys; gorilla/csrf requires exactly 32 bytes.
var (
	SessionKey = []byte("test-session-key-0123456789abcdef")
	CSRFKey    = []byte("0123456789abcdef0123456789abcdef")
)

// Placeholder is the image URL used when a reference cannot be resolved.
const Placeholder = "https://links.papareact.com/placeholder.png"

// Env is a running server plus handles on its fakes.
type Env struct {
	Server *httptest.Server
	Client *http.Client
	CMS    cms.Source
	Drop   *drop.Fake
	Mint   *mint.Service

	csrf bool
}

type envConfig struct {
	cms           cms.Source
	drop          *drop.Fake
	logger        *zap.Logger
	csrf          bool
	mintPerMin    int
	connectPerMin int
	noDropClient  bool
}

// ServerOption customises the test server.
type ServerOption func(*envConfig)

// WithCMS overrides the collection source.
func WithCMS(source cms.Source) ServerOption {
	return func(c *envConfig) { c.cms = source }
}

// WithDrop overrides the fake drop client.
func WithDrop(fake *drop.Fake) ServerOption {
	return func(c *envConfig) { c.drop = fake }
}

// WithoutDropClient runs the server with no drop client at all.
func WithoutDropClient() ServerOption {
	return func(c *envConfig) { c.noDropClient = true }
}

// WithLogger sets the request logger.
func WithLogger(logger *zap.Logger) ServerOption {
	return func(c *envConfig) { c.logger = logger }
}

// WithCSRF enables CSRF protection on state-changing routes.
func WithCSRF() ServerOption {
	return func(c *envConfig) { c.csrf = true }
}

// WithMintRate sets the per-wallet mint attempts per minute.
func WithMintRate(perMinute int) ServerOption {
	return func(c *envConfig) { c.mintPerMin = perMinute }
}

// WithConnectRate sets the per-session sign-in attempts per minute.
func WithConnectRate(perMinute int) ServerOption {
	return func(c *envConfig) { c.connectPerMin = perMinute }
}

// NewServer constructs an httptest server running the full HTTP stack with fakes.
func NewServer(t testing.TB, opts ...ServerOption) *Env {
	t.Helper()

	cfg := envConfig{
		drop:          drop.NewFake(drop.FakeDrop{Total: 100, Price: decimal.RequireFromString("0.01")}),
		logger:        zap.NewNop(),
		mintPerMin:    100,
		connectPerMin: 100,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cms == nil {
		cfg.cms = NewStaticCMS()
	}

	renderer, err := render.New(render.Options{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	var client drop.Client = cfg.drop
	if cfg.noDropClient {
		client = nil
	}
	svc := mint.NewService(client, mint.NewRegistry())
	h := handlers.New(handlers.Deps{
		CMS:            cfg.cms,
		Images:         imageurl.NewAllowList(imageurl.Sanity{ProjectID: "test", Dataset: "production"}, []string{"cdn.sanity.io", "links.papareact.com"}, Placeholder),
		Placeholder:    Placeholder,
		Mint:           svc,
		Renderer:       renderer,
		MintLimiter:    middleware.NewLimiter(cfg.mintPerMin, nil),
		ConnectLimiter: middleware.NewLimiter(cfg.connectPerMin, nil),
		Brand:          "LeoAldo",
		Title:          "NFT Project",
	})

	srvCfg := server.Config{
		Address:  ":0",
		Logger:   cfg.logger,
		Handlers: h,
		Sessions: middleware.NewSessionStore(middleware.SessionOptions{Key: SessionKey}),
	}
	if cfg.csrf {
		srvCfg.CSRF = &middleware.CSRFOptions{Key: CSRFKey}
	}
	srv, err := server.New(srvCfg)
	if err != nil {
		t.Fatalf("server: %v", err)
	}
	ts := httptest.NewServer(srv.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	httpClient := ts.Client()
	httpClient.Jar = jar
	httpClient.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	return &Env{Server: ts, Client: httpClient, CMS: cfg.cms, Drop: cfg.drop, Mint: svc, csrf: cfg.csrf}
}

// Response is a fully read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Get issues a GET, optionally as an htmx request.
func (e *Env) Get(t testing.TB, path string, htmx bool) Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, e.Server.URL+path, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return e.do(t, req)
}

// Post submits a form, optionally as an htmx request. With CSRF enabled a token is
// fetched from the list page first.
func (e *Env) Post(t testing.TB, path string, form url.Values, htmx bool) Response {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, e.Server.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	if e.csrf {
		req.Header.Set(middleware.CSRFHeader, e.CSRFToken(t))
	}
	return e.do(t, req)
}

// CSRFToken reads the token from the list page meta tag.
func (e *Env) CSRFToken(t testing.TB) string {
	t.Helper()
	resp := e.Get(t, "/", false)
	token, _ := ParseHTML(t, resp.Body).Find(`meta[name="csrf-token"]`).Attr("content")
	return token
}

// ConnectWallet signs in a freshly generated wallet and returns its address.
func (e *Env) ConnectWallet(t testing.TB) string {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return e.ConnectWalletWithKey(t, key)
}

// ConnectWalletWithKey signs in with key and returns its checksummed address.
func (e *Env) ConnectWalletWithKey(t testing.TB, key *ecdsa.PrivateKey) string {
	t.Helper()
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	resp := e.Get(t, "/wallet/nonce", false)
	if resp.Status != http.StatusOK {
		t.Fatalf("nonce status %d: %s", resp.Status, resp.Body)
	}
	message := jsonField(t, resp.Body, "message")
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	sig[crypto.RecoveryIDOffset] += 27

	resp = e.Post(t, "/wallet/connect", url.Values{"address": {address}, "signature": {hexutil.Encode(sig)}}, false)
	if resp.Status != http.StatusOK {
		t.Fatalf("connect status %d: %s", resp.Status, resp.Body)
	}
	return address
}

func (e *Env) do(t testing.TB, req *http.Request) Response {
	t.Helper()
	resp, err := e.Client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return Response{Status: resp.StatusCode, Header: resp.Header, Body: body}
}
