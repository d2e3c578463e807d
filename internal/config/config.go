package config

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultSecretsFile     = ".secrets.local"
	defaultAddr            = ":8080"
	defaultEnvironment     = "local"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 90 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultRequestTimeout  = 75 * time.Second
	defaultSanityVersion   = "v2021-10-21"
	defaultSanityDataset   = "production"
	defaultFallbackFile    = "content/collections.yaml"
	defaultImageProvider   = ImageProviderSanity
	defaultPlaceholder     = "https://links.papareact.com/placeholder.png"
	defaultChain           = "sepolia"
	defaultDropReadTimeout = 8 * time.Second
	defaultClaimTimeout    = 60 * time.Second
	defaultMintPerMinute   = 6
	defaultBrand           = "LeoAldo"
	defaultSiteTitle       = "NFT Project"
	minProdSessionKeyLen   = 32
)

// Image providers understood by the image URL builder.
const (
	ImageProviderSanity     = "sanity"
	ImageProviderCloudinary = "cloudinary"
)

var defaultAllowedImageDomains = []string{
	"cdn.sanity.io",
	"res.cloudinary.com",
	"links.papareact.com",
}

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server  ServerConfig
	CMS     CMSConfig
	Images  ImageConfig
	Drop    DropConfig
	Session SessionConfig
	Mint    MintConfig
	Site    SiteConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Addr           string
	Environment    string
	DevMode        bool
	TemplatesDir   string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	RequestTimeout time.Duration
}

// CMSConfig points at the Sanity project holding collection records.
type CMSConfig struct {
	ProjectID    string
	Dataset      string
	APIVersion   string
	Token        string
	UseCDN       bool
	FallbackFile string
	CacheTTL     time.Duration
}

// ImageConfig controls how image references become URLs.
type ImageConfig struct {
	Provider            string
	CloudinaryCloudName string
	AllowedDomains      []string
	Placeholder         string
}

// DropConfig configures the drop gateway used for claim reads and claim submission.
type DropConfig struct {
	GatewayURL    string
	Chain         string
	AccessToken   string
	BackendWallet string
	ReadTimeout   time.Duration
	ClaimTimeout  time.Duration
}

// SessionConfig holds cookie signing material for the wallet session.
type SessionConfig struct {
	Key          string
	CSRFKey      string
	CookieSecure bool
}

// MintConfig throttles claim submissions.
type MintConfig struct {
	AttemptsPerMinute int
}

// SiteConfig carries presentation strings.
type SiteConfig struct {
	Brand string
	Title string
}

// IsProduction reports whether the server runs in the prod environment.
func (c Config) IsProduction() bool {
	return c.Server.Environment == "prod"
}

// SecretResolver resolves secret:// references to their values.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

var errSecretNotFound = errors.New("secret not found")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile      string
	secretsFile  string
	envMap       map[string]string
	useSystemEnv bool
	secret       SecretResolver
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithSecretsFile overrides the local file consulted for secret:// references.
func WithSecretsFile(path string) Option {
	return func(o *loaderOptions) {
		o.secretsFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets a custom resolver for secret:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// Load assembles the application configuration by combining defaults, .env overrides,
// environment variables, and secret:// lookups.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		secretsFile:  defaultSecretsFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	// PORT is honoured for platforms that inject it (Cloud Run).
	addr := defaultAddr
	if port, ok := lookup("PORT"); ok && strings.TrimSpace(port) != "" {
		addr = ":" + strings.TrimSpace(port)
	}

	cfg := Config{
		Server: ServerConfig{
			Addr:           stringWithDefault(lookup, "NFTDROP_HTTP_ADDR", addr),
			Environment:    strings.ToLower(stringWithDefault(lookup, "NFTDROP_ENV", defaultEnvironment)),
			DevMode:        boolWithDefault(lookup, "NFTDROP_DEV", false),
			TemplatesDir:   stringWithDefault(lookup, "NFTDROP_TEMPLATES_DIR", ""),
			ReadTimeout:    durationWithDefault(lookup, "NFTDROP_HTTP_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:   durationWithDefault(lookup, "NFTDROP_HTTP_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:    durationWithDefault(lookup, "NFTDROP_HTTP_IDLE_TIMEOUT", defaultIdleTimeout),
			RequestTimeout: durationWithDefault(lookup, "NFTDROP_HTTP_REQUEST_TIMEOUT", defaultRequestTimeout),
		},
		CMS: CMSConfig{
			ProjectID:    stringWithDefault(lookup, "NFTDROP_SANITY_PROJECT_ID", ""),
			Dataset:      stringWithDefault(lookup, "NFTDROP_SANITY_DATASET", defaultSanityDataset),
			APIVersion:   stringWithDefault(lookup, "NFTDROP_SANITY_API_VERSION", defaultSanityVersion),
			Token:        stringWithDefault(lookup, "NFTDROP_SANITY_TOKEN", ""),
			UseCDN:       boolWithDefault(lookup, "NFTDROP_SANITY_USE_CDN", true),
			FallbackFile: stringWithDefault(lookup, "NFTDROP_CMS_FALLBACK_FILE", defaultFallbackFile),
			CacheTTL:     durationWithDefault(lookup, "NFTDROP_CMS_CACHE_TTL", 0),
		},
		Images: ImageConfig{
			Provider:            strings.ToLower(stringWithDefault(lookup, "NFTDROP_IMAGE_PROVIDER", defaultImageProvider)),
			CloudinaryCloudName: stringWithDefault(lookup, "NFTDROP_CLOUDINARY_CLOUD_NAME", ""),
			AllowedDomains:      csvWithDefault(lookup, "NFTDROP_IMAGE_ALLOWED_DOMAINS", defaultAllowedImageDomains),
			Placeholder:         stringWithDefault(lookup, "NFTDROP_IMAGE_PLACEHOLDER", defaultPlaceholder),
		},
		Drop: DropConfig{
			GatewayURL:    stringWithDefault(lookup, "NFTDROP_DROP_GATEWAY_URL", ""),
			Chain:         stringWithDefault(lookup, "NFTDROP_DROP_CHAIN", defaultChain),
			AccessToken:   stringWithDefault(lookup, "NFTDROP_DROP_ACCESS_TOKEN", ""),
			BackendWallet: stringWithDefault(lookup, "NFTDROP_DROP_BACKEND_WALLET", ""),
			ReadTimeout:   durationWithDefault(lookup, "NFTDROP_DROP_READ_TIMEOUT", defaultDropReadTimeout),
			ClaimTimeout:  durationWithDefault(lookup, "NFTDROP_DROP_CLAIM_TIMEOUT", defaultClaimTimeout),
		},
		Session: SessionConfig{
			Key:          stringWithDefault(lookup, "NFTDROP_SESSION_KEY", ""),
			CSRFKey:      stringWithDefault(lookup, "NFTDROP_CSRF_KEY", ""),
			CookieSecure: boolWithDefault(lookup, "NFTDROP_COOKIE_SECURE", false),
		},
		Mint: MintConfig{
			AttemptsPerMinute: intWithDefault(lookup, "NFTDROP_MINT_PER_MINUTE", defaultMintPerMinute),
		},
		Site: SiteConfig{
			Brand: stringWithDefault(lookup, "NFTDROP_SITE_BRAND", defaultBrand),
			Title: stringWithDefault(lookup, "NFTDROP_SITE_TITLE", defaultSiteTitle),
		},
	}

	if cfg.IsProduction() {
		cfg.Session.CookieSecure = true
	}

	resolver := options.secret
	if resolver == nil {
		resolver = fileSecretResolver(options.secretsFile)
	}
	secretFields := []*string{
		&cfg.CMS.Token,
		&cfg.Drop.AccessToken,
		&cfg.Session.Key,
		&cfg.Session.CSRFKey,
	}
	for _, field := range secretFields {
		resolved, err := resolveSecret(ctx, *field, resolver)
		if err != nil {
			return Config{}, err
		}
		*field = resolved
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if strings.TrimSpace(cfg.Server.Addr) == "" {
		missing = append(missing, "Server.Addr")
	}
	if cfg.CMS.ProjectID != "" && strings.TrimSpace(cfg.CMS.Dataset) == "" {
		missing = append(missing, "CMS.Dataset")
	}
	if cfg.CMS.CacheTTL < 0 {
		missing = append(missing, "CMS.CacheTTL")
	}
	switch cfg.Images.Provider {
	case ImageProviderSanity:
	case ImageProviderCloudinary:
		if strings.TrimSpace(cfg.Images.CloudinaryCloudName) == "" {
			missing = append(missing, "Images.CloudinaryCloudName")
		}
	default:
		missing = append(missing, "Images.Provider")
	}
	if cfg.Drop.GatewayURL != "" && strings.TrimSpace(cfg.Drop.Chain) == "" {
		missing = append(missing, "Drop.Chain")
	}
	if cfg.Drop.ClaimTimeout <= 0 {
		missing = append(missing, "Drop.ClaimTimeout")
	}
	if cfg.Drop.ReadTimeout <= 0 {
		missing = append(missing, "Drop.ReadTimeout")
	}
	if cfg.IsProduction() {
		if len(cfg.Session.Key) < minProdSessionKeyLen {
			missing = append(missing, "Session.Key")
		}
		if len(cfg.Session.CSRFKey) != 32 {
			missing = append(missing, "Session.CSRFKey")
		}
	}
	if cfg.Mint.AttemptsPerMinute <= 0 {
		missing = append(missing, "Mint.AttemptsPerMinute")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	ref := strings.TrimSpace(value)
	secret, err := resolver.ResolveSecret(ctx, ref)
	if err != nil {
		return "", &SecretError{Ref: ref, Err: err}
	}
	return secret, nil
}

func isSecretReference(value string) bool {
	return strings.HasPrefix(strings.TrimSpace(value), "secret://")
}

// fileSecretResolver resolves secret://NAME against a dotenv-formatted local file.
func fileSecretResolver(path string) SecretResolver {
	return SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		values, err := loadDotEnv(path)
		if err != nil {
			return "", err
		}
		name := strings.TrimPrefix(ref, "secret://")
		if value, ok := values[name]; ok && value != "" {
			return value, nil
		}
		return "", errSecretNotFound
	})
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(parts[1]), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value)
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return fallback
}

func intWithDefault(lookup func(string) (string, bool), key string, fallback int) int {
	if value, ok := lookup(key); ok && value != "" {
		if parsed, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return parsed
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(strings.TrimSpace(value)) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}

func csvWithDefault(lookup func(string) (string, bool), key string, fallback []string) []string {
	raw, ok := lookup(key)
	if !ok || strings.TrimSpace(raw) == "" {
		out := make([]string, len(fallback))
		copy(out, fallback)
		return out
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.ToLower(strings.TrimSpace(part)); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
