// Package mint drives the mint panel of a collection: it reads price and supply from the
// drop and submits single-flight claims for the connected wallet.
package mint

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

var (
	// ErrNotConnected is returned when a mint is requested without a wallet address.
	ErrNotConnected = errors.New("mint: wallet not connected")
	// ErrSoldOut is returned when the drop has no supply left.
	ErrSoldOut = errors.New("mint: sold out")
	// ErrMintInFlight is returned when the session already has a claim running for the drop.
	ErrMintInFlight = errors.New("mint: a mint is already in progress")
	// ErrNotReady is returned when supply could not be read before claiming.
	ErrNotReady = errors.New("mint: drop not ready")
)

const claimQuantity = 1

// Target identifies a panel: who is looking at which drop.
type Target struct {
	Session  string
	Contract string
	Address  string
}

// Result describes a successful claim.
type Result struct {
	AttemptID string
	Claims    []drop.ClaimResult
}

// Service reads drop state and submits claims. A nil drop client leaves every panel
// uninitialized.
type Service struct {
	client   drop.Client
	registry *Registry
}

// NewService wires a drop client to a guard registry.
func NewService(client drop.Client, registry *Registry) *Service {
	if registry == nil {
		registry = NewRegistry()
	}
	return &Service{client: client, registry: registry}
}

// Registry exposes the per-session guards so sessions can be torn down on disconnect.
func (s *Service) Registry() *Registry {
	return s.registry
}

// Load reads the panel state for t. Read failures are logged and reflected in the
// state rather than returned.
func (s *Service) Load(ctx context.Context, t Target) State {
	contract, ok := s.contract(t.Contract)
	if !ok {
		return State{Phase: PhaseUninitialized, Address: t.Address}
	}
	state := s.read(ctx, contract, t.Address)
	if s.registry.InFlight(t.Session, contract) {
		state.Phase = PhaseMinting
	}
	return state
}

// read runs the price and supply reads as two independent goroutines and joins them.
func (s *Service) read(ctx context.Context, contract common.Address, address string) State {
	logger := observability.FromContext(ctx).With(zap.String("contract", contract.Hex()))
	state := State{Phase: PhaseLoading, Address: address}

	var (
		price          drop.Price
		priceErr       error
		claimed, total int64
		supplyErr      error
	)
	var g errgroup.Group
	g.Go(func() error {
		conditions, err := s.client.ClaimConditions(ctx, contract)
		if err == nil {
			price, err = drop.FirstPrice(conditions)
		}
		priceErr = err
		return nil
	})
	g.Go(func() error {
		claimed, total, supplyErr = s.supply(ctx, contract)
		return nil
	})
	_ = g.Wait()

	if priceErr != nil {
		logger.Warn("drop price read failed", zap.Error(priceErr))
	} else {
		state.Price = price.Display()
		state.Symbol = price.Symbol
		state.PriceKnown = true
	}
	if supplyErr != nil {
		logger.Warn("drop supply read failed", zap.Error(supplyErr))
		return state
	}
	state.Claimed = claimed
	state.Total = total
	state.SupplyKnown = true
	state.Phase = PhaseReady
	return state
}

func (s *Service) supply(ctx context.Context, contract common.Address) (int64, int64, error) {
	tokens, err := s.client.ClaimedTokens(ctx, contract)
	if err != nil {
		return 0, 0, fmt.Errorf("claimed tokens: %w", err)
	}
	total, err := s.client.TotalSupply(ctx, contract)
	if err != nil {
		return 0, 0, fmt.Errorf("total supply: %w", err)
	}
	if !total.IsInt64() {
		return 0, 0, fmt.Errorf("total supply %s overflows int64", total)
	}
	return int64(len(tokens)), total.Int64(), nil
}

// Mint claims one token to the connected wallet. The guard for (session, contract) is
// held for the whole claim and released before Mint returns.
func (s *Service) Mint(ctx context.Context, t Target) (Result, error) {
	if strings.TrimSpace(t.Address) == "" {
		return Result{}, ErrNotConnected
	}
	if s.client == nil {
		return Result{}, ErrNotReady
	}
	contract, err := drop.ParseAddress(t.Contract)
	if err != nil {
		return Result{}, err
	}
	receiver, err := drop.ParseAddress(t.Address)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrNotConnected, err)
	}

	release, ok := s.registry.acquire(t.Session, contract)
	if !ok {
		return Result{}, ErrMintInFlight
	}
	defer release()

	attempt := ulid.Make().String()
	logger := observability.FromContext(ctx).With(
		zap.String("mint_attempt", attempt),
		zap.String("contract", contract.Hex()),
		zap.String("receiver", observability.SanitizeAddress(receiver.Hex())),
	)
	result := Result{AttemptID: attempt}

	state := s.read(ctx, contract, t.Address)
	switch {
	case state.SoldOut():
		return result, ErrSoldOut
	case state.Phase != PhaseReady:
		return result, ErrNotReady
	}

	logger.Info("minting")
	// The claim outlives a dropped browser request; the gateway still settles it.
	claimCtx := context.WithoutCancel(ctx)
	claims, err := s.client.ClaimTo(claimCtx, contract, receiver, claimQuantity)
	if err != nil {
		logger.Error("mint failed", zap.Error(err))
		return result, fmt.Errorf("mint: claim: %w", err)
	}

	for i := range claims {
		claim := &claims[i]
		if claim.Metadata == nil && claim.TokenID != "" {
			md, err := s.client.TokenMetadata(claimCtx, contract, claim.TokenID)
			if err != nil {
				logger.Warn("claimed token metadata unavailable", zap.String("token_id", claim.TokenID), zap.Error(err))
			} else {
				claim.Metadata = &md
			}
		}
		fields := []zap.Field{
			zap.String("tx_hash", claim.Receipt.TxHash),
			zap.Uint64("block_number", claim.Receipt.BlockNumber),
			zap.String("token_id", claim.TokenID),
		}
		if claim.Metadata != nil {
			fields = append(fields, zap.Any("metadata", claim.Metadata))
		}
		logger.Info("minted", fields...)
	}
	result.Claims = claims
	return result, nil
}

func (s *Service) contract(raw string) (common.Address, bool) {
	if s.client == nil {
		return common.Address{}, false
	}
	addr, err := drop.ParseAddress(raw)
	if err != nil {
		return common.Address{}, false
	}
	return addr, true
}
