package drop

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultReadTimeout  = 8 * time.Second
	defaultClaimTimeout = 60 * time.Second
	backendWalletHeader = "x-backend-wallet-address"
	tracerName          = "github.com/ch-Arham/NFT-Drop/internal/drop"
)

// HTTPConfig configures the drop gateway client.
type HTTPConfig struct {
	BaseURL       string
	Chain         string
	AccessToken   string
	BackendWallet string
	ReadTimeout   time.Duration
	ClaimTimeout  time.Duration
	HTTPClient    *http.Client
}

// HTTPClient talks JSON to a drop gateway exposing
// {base}/contract/{chain}/{address}/erc721/... endpoints.
type HTTPClient struct {
	baseURL       string
	chain         string
	token         string
	backendWallet string
	readTimeout   time.Duration
	claimTimeout  time.Duration
	http          *http.Client
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient constructs a gateway client.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("drop: gateway url required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("drop: gateway url: %w", err)
	}
	chain := strings.TrimSpace(cfg.Chain)
	if chain == "" {
		return nil, fmt.Errorf("drop: chain required")
	}
	c := &HTTPClient{
		baseURL:       base,
		chain:         chain,
		token:         strings.TrimSpace(cfg.AccessToken),
		backendWallet: strings.TrimSpace(cfg.BackendWallet),
		readTimeout:   cfg.ReadTimeout,
		claimTimeout:  cfg.ClaimTimeout,
		http:          cfg.HTTPClient,
	}
	if c.readTimeout <= 0 {
		c.readTimeout = defaultReadTimeout
	}
	if c.claimTimeout <= 0 {
		c.claimTimeout = defaultClaimTimeout
	}
	if c.http == nil {
		// Per-call deadlines come from the request context.
		c.http = &http.Client{}
	}
	return c, nil
}

type claimConditionPayload struct {
	Price              string `json:"price"`
	MaxClaimableSupply string `json:"maxClaimableSupply"`
	StartTime          string `json:"startTime"`
	CurrencyMetadata   struct {
		Symbol       string `json:"symbol"`
		DisplayValue string `json:"displayValue"`
	} `json:"currencyMetadata"`
}

type tokenPayload struct {
	Owner    string   `json:"owner"`
	Metadata metadata `json:"metadata"`
}

type metadata struct {
	ID          json.Number    `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Attributes  map[string]any `json:"attributes"`
}

func (m metadata) toMetadata() Metadata {
	return Metadata{Name: m.Name, Description: m.Description, Image: m.Image, Attributes: m.Attributes}
}

type claimPayload struct {
	Receipt struct {
		TransactionHash string          `json:"transactionHash"`
		BlockNumber     json.RawMessage `json:"blockNumber"`
	} `json:"receipt"`
	ID       json.Number `json:"id"`
	Metadata *metadata   `json:"metadata"`
}

// ClaimConditions returns every claim phase of the drop.
func (c *HTTPClient) ClaimConditions(ctx context.Context, contract common.Address) ([]ClaimCondition, error) {
	ctx, span := c.startSpan(ctx, "drop.claim_conditions", contract)
	defer span.End()

	var payload []claimConditionPayload
	if err := c.get(ctx, contract, &payload, nil, "claim-conditions", "get-all"); err != nil {
		return nil, recordErr(span, err)
	}
	out := make([]ClaimCondition, 0, len(payload))
	for _, p := range payload {
		raw := firstNonEmpty(p.CurrencyMetadata.DisplayValue, p.Price)
		value, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, recordErr(span, fmt.Errorf("drop: parse price %q: %w", raw, err))
		}
		out = append(out, ClaimCondition{
			Price:              Price{Value: value, Symbol: firstNonEmpty(p.CurrencyMetadata.Symbol, "ETH")},
			MaxClaimableSupply: p.MaxClaimableSupply,
			StartTime:          p.StartTime,
		})
	}
	return out, nil
}

// ClaimedTokens lists tokens already claimed from the drop.
func (c *HTTPClient) ClaimedTokens(ctx context.Context, contract common.Address) ([]Token, error) {
	ctx, span := c.startSpan(ctx, "drop.claimed_tokens", contract)
	defer span.End()

	var payload []tokenPayload
	if err := c.get(ctx, contract, &payload, nil, "get-all-claimed"); err != nil {
		return nil, recordErr(span, err)
	}
	out := make([]Token, 0, len(payload))
	for _, p := range payload {
		out = append(out, Token{ID: p.Metadata.ID.String(), Owner: p.Owner, Metadata: p.Metadata.toMetadata()})
	}
	span.SetAttributes(attribute.Int("drop.claimed", len(out)))
	return out, nil
}

// TotalSupply returns the total number of tokens the drop will ever mint.
func (c *HTTPClient) TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error) {
	ctx, span := c.startSpan(ctx, "drop.total_supply", contract)
	defer span.End()

	var payload json.RawMessage
	if err := c.get(ctx, contract, &payload, nil, "total-count"); err != nil {
		return nil, recordErr(span, err)
	}
	total, err := parseBigInt(payload)
	if err != nil {
		return nil, recordErr(span, err)
	}
	return total, nil
}

// ClaimTo mints quantity tokens to receiver, paid by the gateway's backend wallet.
func (c *HTTPClient) ClaimTo(ctx context.Context, contract, receiver common.Address, quantity int) ([]ClaimResult, error) {
	ctx, span := c.startSpan(ctx, "drop.claim_to", contract)
	defer span.End()
	span.SetAttributes(attribute.Int("drop.quantity", quantity))

	if quantity <= 0 {
		return nil, recordErr(span, fmt.Errorf("drop: quantity must be positive, got %d", quantity))
	}
	body, err := json.Marshal(map[string]string{
		"receiver": receiver.Hex(),
		"quantity": strconv.Itoa(quantity),
	})
	if err != nil {
		return nil, recordErr(span, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.claimTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodPost, contract, bytes.NewReader(body), nil, "claim-to")
	if err != nil {
		return nil, recordErr(span, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.backendWallet != "" {
		req.Header.Set(backendWalletHeader, c.backendWallet)
	}

	var payload []claimPayload
	if err := c.do(req, &payload); err != nil {
		return nil, recordErr(span, err)
	}
	out := make([]ClaimResult, 0, len(payload))
	for _, p := range payload {
		block, err := parseBlockNumber(p.Receipt.BlockNumber)
		if err != nil {
			return nil, recordErr(span, err)
		}
		result := ClaimResult{
			Receipt: Receipt{TxHash: p.Receipt.TransactionHash, BlockNumber: block},
			TokenID: p.ID.String(),
		}
		if p.Metadata != nil {
			md := p.Metadata.toMetadata()
			result.Metadata = &md
		}
		out = append(out, result)
	}
	return out, nil
}

// TokenMetadata fetches the metadata of a single token.
func (c *HTTPClient) TokenMetadata(ctx context.Context, contract common.Address, tokenID string) (Metadata, error) {
	ctx, span := c.startSpan(ctx, "drop.token_metadata", contract)
	defer span.End()

	var payload tokenPayload
	if err := c.get(ctx, contract, &payload, url.Values{"tokenId": {tokenID}}, "get"); err != nil {
		return Metadata{}, recordErr(span, err)
	}
	return payload.Metadata.toMetadata(), nil
}

func (c *HTTPClient) get(ctx context.Context, contract common.Address, out any, query url.Values, segments ...string) error {
	ctx, cancel := context.WithTimeout(ctx, c.readTimeout)
	defer cancel()
	req, err := c.newRequest(ctx, http.MethodGet, contract, nil, query, segments...)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *HTTPClient) newRequest(ctx context.Context, method string, contract common.Address, body io.Reader, query url.Values, segments ...string) (*http.Request, error) {
	parts := append([]string{"contract", c.chain, contract.Hex(), "erc721"}, segments...)
	endpoint, err := url.JoinPath(c.baseURL, parts...)
	if err != nil {
		return nil, err
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTPClient) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("drop: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("drop: %s status %d: %s", req.URL.Path, resp.StatusCode, drainError(resp.Body))
	}
	var envelope struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("drop: decode response: %w", err)
	}
	if len(envelope.Result) == 0 {
		return fmt.Errorf("drop: empty result from %s", req.URL.Path)
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = envelope.Result
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return fmt.Errorf("drop: decode result: %w", err)
	}
	return nil
}

func (c *HTTPClient) startSpan(ctx context.Context, name string, contract common.Address) (context.Context, trace.Span) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, name)
	span.SetAttributes(
		attribute.String("drop.chain", c.chain),
		attribute.String("drop.contract", contract.Hex()),
	)
	return ctx, span
}

func recordErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// parseBigInt accepts a JSON number, a decimal string or a 0x-prefixed hex string.
func parseBigInt(raw json.RawMessage) (*big.Int, error) {
	text := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	base := 10
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		text, base = text[2:], 16
	}
	value, ok := new(big.Int).SetString(text, base)
	if !ok {
		return nil, fmt.Errorf("drop: parse integer %s", string(raw))
	}
	return value, nil
}

func parseBlockNumber(raw json.RawMessage) (uint64, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return 0, nil
	}
	value, err := parseBigInt(raw)
	if err != nil {
		return 0, err
	}
	if !value.IsUint64() {
		return 0, fmt.Errorf("drop: block number out of range: %s", value)
	}
	return value.Uint64(), nil
}

func drainError(r io.Reader) string {
	if r == nil {
		return ""
	}
	b, _ := io.ReadAll(io.LimitReader(r, 256))
	return strings.TrimSpace(string(b))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
