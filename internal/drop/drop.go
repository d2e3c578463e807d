// Package drop reads claim conditions and supply from an NFT drop contract and submits
// claims through a drop gateway.
package drop

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidAddress is returned when a contract or wallet address is not a 20-byte hex address.
	ErrInvalidAddress = errors.New("drop: invalid address")
	// ErrExceedsSupply is returned when a claim would mint past the total supply.
	ErrExceedsSupply = errors.New("drop: claim exceeds remaining supply")
	// ErrNoClaimCondition is returned when a drop has no active claim phase.
	ErrNoClaimCondition = errors.New("drop: no claim condition")
)

// Client is the narrow view of an edition drop contract the pages depend on.
type Client interface {
	ClaimConditions(ctx context.Context, contract common.Address) ([]ClaimCondition, error)
	ClaimedTokens(ctx context.Context, contract common.Address) ([]Token, error)
	TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error)
	ClaimTo(ctx context.Context, contract, receiver common.Address, quantity int) ([]ClaimResult, error)
	TokenMetadata(ctx context.Context, contract common.Address, tokenID string) (Metadata, error)
}

// Price is the display value of a claim price in the drop's currency.
type Price struct {
	Value  decimal.Decimal
	Symbol string
}

// Display renders the value without trailing zeros, e.g. "0.01".
func (p Price) Display() string {
	return p.Value.String()
}

// ClaimCondition is one claim phase of a drop.
type ClaimCondition struct {
	Price              Price
	MaxClaimableSupply string
	StartTime          string
}

// Metadata is the token metadata stored alongside a minted token.
type Metadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Image       string         `json:"image,omitempty"`
	Attributes  map[string]any `json:"attributes,omitempty"`
}

// Token is a claimed token.
type Token struct {
	ID       string
	Owner    string
	Metadata Metadata
}

// Receipt identifies the transaction that carried a claim.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
}

// ClaimResult describes one token minted by a claim. Metadata is nil when the
// gateway did not include it in the claim response.
type ClaimResult struct {
	Receipt  Receipt
	TokenID  string
	Metadata *Metadata
}

// ParseAddress validates a hex address and returns its canonical form.
func ParseAddress(raw string) (common.Address, error) {
	raw = strings.TrimSpace(raw)
	if !common.IsHexAddress(raw) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, raw)
	}
	return common.HexToAddress(raw), nil
}

// FirstPrice returns the display price of the first claim condition.
func FirstPrice(conditions []ClaimCondition) (Price, error) {
	if len(conditions) == 0 {
		return Price{}, ErrNoClaimCondition
	}
	return conditions[0].Price, nil
}
