package mint

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ch-Arham/NFT-Drop/internal/drop"
	"github.com/ch-Arham/NFT-Drop/internal/observability"
)

const (
	contractHex = "0x1B5FA9C3cE2a2A0D5C5C7Bd1d6b7A1E1f0b1e5A1"
	walletHex   = "0x00000000000000000000000000000000000000aA"
)

func newService(t *testing.T, seed drop.FakeDrop) (*Service, *drop.Fake) {
	t.Helper()
	fake := drop.NewFake(drop.FakeDrop{Total: 100, Price: decimal.RequireFromString("0.01")})
	fake.SetDrop(common.HexToAddress(contractHex), seed)
	return NewService(fake, NewRegistry()), fake
}

func TestLoadReadyWithWallet(t *testing.T) {
	svc, _ := newService(t, drop.FakeDrop{Total: 10, Claimed: 4, Price: decimal.RequireFromString("0.01")})

	state := svc.Load(context.Background(), Target{Session: "s1", Contract: contractHex, Address: walletHex})
	require.Equal(t, PhaseReady, state.Phase)
	require.Equal(t, int64(4), state.Claimed)
	require.Equal(t, int64(10), state.Total)
	require.Equal(t, "Mint NFT (0.01 ETH)", state.Label())
	require.True(t, state.Enabled())
	require.Equal(t, "4 / 10 NFT's claimed", state.SupplyText())
}

func TestLoadSoldOutRegardlessOfWallet(t *testing.T) {
	svc, _ := newService(t, drop.FakeDrop{Total: 5, Claimed: 5, Price: decimal.RequireFromString("0.01")})

	for _, addr := range []string{"", walletHex} {
		state := svc.Load(context.Background(), Target{Session: "s1", Contract: contractHex, Address: addr})
		require.Equal(t, "SOLD OUT", state.Label())
		require.False(t, state.Enabled())
	}
}

func TestLoadSignedOut(t *testing.T) {
	svc, _ := newService(t, drop.FakeDrop{Total: 5, Claimed: 1, Price: decimal.RequireFromString("0.01")})

	state := svc.Load(context.Background(), Target{Session: "s1", Contract: contractHex})
	require.Equal(t, "Sign in to Mint", state.Label())
	require.False(t, state.Enabled())
}

func TestLoadInertWithoutValidContract(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 5})
	state := svc.Load(context.Background(), Target{Session: "s1", Contract: "not-an-address", Address: walletHex})
	require.Equal(t, PhaseUninitialized, state.Phase)
	require.Equal(t, "Loading", state.Label())

	state = NewService(nil, nil).Load(context.Background(), Target{Contract: contractHex})
	require.Equal(t, PhaseUninitialized, state.Phase)
	require.Zero(t, fake.ClaimCalls())
}

func TestLoadReadFailures(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 5, Claimed: 1, Price: decimal.RequireFromString("0.01")})
	core, logs := observer.New(zap.WarnLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))

	fake.FailPrice(errors.New("rpc down"))
	state := svc.Load(ctx, Target{Session: "s1", Contract: contractHex, Address: walletHex})
	require.Equal(t, PhaseReady, state.Phase)
	require.Equal(t, "Mint NFT (? ETH)", state.Label())

	fake.FailPrice(nil)
	fake.FailSupply(errors.New("rpc down"))
	state = svc.Load(ctx, Target{Session: "s1", Contract: contractHex, Address: walletHex})
	require.Equal(t, PhaseLoading, state.Phase)
	require.Equal(t, "Loading", state.Label())
	require.Equal(t, "Loading Supply Count ...", state.SupplyText())

	require.Equal(t, 2, logs.Len())
}

func TestMintSuccessLogsClaim(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 3, Claimed: 1, Price: decimal.RequireFromString("0.01")})
	core, logs := observer.New(zap.InfoLevel)
	ctx := observability.WithLogger(context.Background(), zap.New(core))
	target := Target{Session: "s1", Contract: contractHex, Address: walletHex}

	result, err := svc.Mint(ctx, target)
	require.NoError(t, err)
	require.Len(t, result.Claims, 1)
	require.NotEmpty(t, result.AttemptID)
	require.Equal(t, "1", result.Claims[0].TokenID)
	require.Equal(t, 1, fake.ClaimCalls())

	minted := logs.FilterMessage("minted").All()
	require.Len(t, minted, 1)
	fields := minted[0].ContextMap()
	require.Equal(t, "1", fields["token_id"])
	require.NotEmpty(t, fields["tx_hash"])
	require.Equal(t, result.AttemptID, fields["mint_attempt"])

	state := svc.Load(ctx, target)
	require.Equal(t, int64(2), state.Claimed)
	require.False(t, svc.Registry().InFlight("s1", common.HexToAddress(contractHex)))
}

func TestMintFailureReleasesGuard(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 3, Price: decimal.RequireFromString("0.01")})
	target := Target{Session: "s1", Contract: contractHex, Address: walletHex}
	boom := errors.New("user rejected")
	fake.FailClaims(boom)

	_, err := svc.Mint(context.Background(), target)
	require.ErrorIs(t, err, boom)
	require.False(t, svc.Registry().InFlight("s1", common.HexToAddress(contractHex)))

	fake.FailClaims(nil)
	_, err = svc.Mint(context.Background(), target)
	require.NoError(t, err)
}

func TestMintPreconditions(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 2, Claimed: 2})

	_, err := svc.Mint(context.Background(), Target{Session: "s1", Contract: contractHex})
	require.ErrorIs(t, err, ErrNotConnected)

	_, err = svc.Mint(context.Background(), Target{Session: "s1", Contract: contractHex, Address: walletHex})
	require.ErrorIs(t, err, ErrSoldOut)

	_, err = svc.Mint(context.Background(), Target{Session: "s1", Contract: "0x12", Address: walletHex})
	require.ErrorIs(t, err, drop.ErrInvalidAddress)

	fake.FailSupply(errors.New("rpc down"))
	other := "0x00000000000000000000000000000000000000bb"
	_, err = svc.Mint(context.Background(), Target{Session: "s1", Contract: other, Address: walletHex})
	require.ErrorIs(t, err, ErrNotReady)

	require.Zero(t, fake.ClaimCalls())
}

func TestMintRejectsSecondSubmissionInFlight(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 10, Price: decimal.RequireFromString("0.01")})
	target := Target{Session: "s1", Contract: contractHex, Address: walletHex}

	started := make(chan struct{})
	release := make(chan struct{})
	fake.OnClaim(func(context.Context) error {
		close(started)
		<-release
		return nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := svc.Mint(context.Background(), target)
		done <- err
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("claim never started")
	}

	_, err := svc.Mint(context.Background(), target)
	require.ErrorIs(t, err, ErrMintInFlight)

	state := svc.Load(context.Background(), target)
	require.Equal(t, PhaseMinting, state.Phase)
	require.Equal(t, "Loading", state.Label())
	require.False(t, state.Enabled())

	// Another session minting the same drop is not blocked by this guard.
	require.False(t, svc.Registry().InFlight("s2", common.HexToAddress(contractHex)))

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, 1, fake.ClaimCalls())

	fake.OnClaim(nil)
	state = svc.Load(context.Background(), target)
	require.Equal(t, PhaseReady, state.Phase)
	require.Equal(t, int64(1), state.Claimed)
}

func TestRegistryClose(t *testing.T) {
	reg := NewRegistry()
	contract := common.HexToAddress(contractHex)
	release, ok := reg.acquire("s1", contract)
	require.True(t, ok)
	require.True(t, reg.InFlight("s1", contract))
	require.Equal(t, 1, reg.Sessions())

	// A sign-out during a claim keeps the guard; a reconnect cannot claim alongside it.
	reg.Close("s1")
	require.True(t, reg.InFlight("s1", contract))
	_, ok = reg.acquire("s1", contract)
	require.False(t, ok)

	release()
	require.False(t, reg.InFlight("s1", contract))
	require.Zero(t, reg.Sessions())

	release, ok = reg.acquire("s1", contract)
	require.True(t, ok)
	release()
}

func TestRegistryForgetsReleasedGuards(t *testing.T) {
	svc, _ := newService(t, drop.FakeDrop{Total: 1, Claimed: 1})
	for i := 0; i < 5; i++ {
		target := Target{Session: fmt.Sprintf("s%d", i), Contract: contractHex, Address: walletHex}
		_, err := svc.Mint(context.Background(), target)
		require.ErrorIs(t, err, ErrSoldOut)
	}
	require.Zero(t, svc.Registry().Sessions())
}

func TestInFlightCheckNeverBlocksMint(t *testing.T) {
	svc, fake := newService(t, drop.FakeDrop{Total: 1_000_000, Price: decimal.RequireFromString("0.01")})
	contract := common.HexToAddress(contractHex)
	target := Target{Session: "s1", Contract: contractHex, Address: walletHex}

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					svc.Registry().InFlight("s1", contract)
				}
			}
		}()
	}

	const attempts = 500
	var rejected int
	for i := 0; i < attempts; i++ {
		if _, err := svc.Mint(context.Background(), target); errors.Is(err, ErrMintInFlight) {
			rejected++
		}
	}
	close(stop)
	wg.Wait()

	require.Zero(t, rejected)
	require.Equal(t, attempts, fake.ClaimCalls())
}
