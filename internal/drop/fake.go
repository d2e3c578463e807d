package drop

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// FakeDrop seeds one in-memory drop.
type FakeDrop struct {
	Total   int64
	Claimed int64
	Price   decimal.Decimal
	Symbol  string
}

type fakeState struct {
	FakeDrop
	owners []common.Address
}

// Fake is an in-memory Client used for local development and tests. Contracts that were
// never seeded take a copy of the default drop on first use.
type Fake struct {
	mu         sync.Mutex
	defaults   FakeDrop
	drops      map[common.Address]*fakeState
	block      uint64
	priceErr   error
	supplyErr  error
	claimErr   error
	onClaim    func(ctx context.Context) error
	claimCalls int
}

var _ Client = (*Fake)(nil)

// NewFake returns a fake whose unknown contracts start as defaults.
func NewFake(defaults FakeDrop) *Fake {
	if defaults.Symbol == "" {
		defaults.Symbol = "ETH"
	}
	return &Fake{
		defaults: defaults,
		drops:    map[common.Address]*fakeState{},
		block:    5_000_000,
	}
}

// SetDrop replaces the state of contract.
func (f *Fake) SetDrop(contract common.Address, d FakeDrop) {
	if d.Symbol == "" {
		d.Symbol = "ETH"
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drops[contract] = newFakeState(d)
}

// FailPrice makes ClaimConditions return err until cleared with nil.
func (f *Fake) FailPrice(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.priceErr = err
}

// FailSupply makes ClaimedTokens and TotalSupply return err until cleared with nil.
func (f *Fake) FailSupply(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supplyErr = err
}

// FailClaims makes ClaimTo return err until cleared with nil.
func (f *Fake) FailClaims(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimErr = err
}

// OnClaim installs a hook run at the start of every ClaimTo, outside the fake's lock.
func (f *Fake) OnClaim(fn func(ctx context.Context) error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onClaim = fn
}

// ClaimCalls reports how many claims reached the fake.
func (f *Fake) ClaimCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.claimCalls
}

// ClaimConditions implements Client.
func (f *Fake) ClaimConditions(ctx context.Context, contract common.Address) ([]ClaimCondition, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.priceErr != nil {
		return nil, f.priceErr
	}
	d := f.stateLocked(contract)
	return []ClaimCondition{{
		Price:              Price{Value: d.Price, Symbol: d.Symbol},
		MaxClaimableSupply: strconv.FormatInt(d.Total, 10),
	}}, nil
}

// ClaimedTokens implements Client.
func (f *Fake) ClaimedTokens(ctx context.Context, contract common.Address) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	d := f.stateLocked(contract)
	out := make([]Token, 0, d.Claimed)
	for i := int64(0); i < d.Claimed; i++ {
		tok := Token{ID: strconv.FormatInt(i, 10), Metadata: fakeMetadata(i)}
		if i < int64(len(d.owners)) {
			tok.Owner = d.owners[i].Hex()
		}
		out = append(out, tok)
	}
	return out, nil
}

// TotalSupply implements Client.
func (f *Fake) TotalSupply(ctx context.Context, contract common.Address) (*big.Int, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.supplyErr != nil {
		return nil, f.supplyErr
	}
	return big.NewInt(f.stateLocked(contract).Total), nil
}

// ClaimTo implements Client.
func (f *Fake) ClaimTo(ctx context.Context, contract, receiver common.Address, quantity int) ([]ClaimResult, error) {
	f.mu.Lock()
	f.claimCalls++
	hook := f.onClaim
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx); err != nil {
			return nil, err
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if quantity <= 0 {
		return nil, fmt.Errorf("drop: quantity must be positive, got %d", quantity)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.claimErr != nil {
		return nil, f.claimErr
	}
	d := f.stateLocked(contract)
	if d.Claimed+int64(quantity) > d.Total {
		return nil, ErrExceedsSupply
	}
	f.block++
	receipt := Receipt{TxHash: randomHash(), BlockNumber: f.block}
	out := make([]ClaimResult, 0, quantity)
	for i := 0; i < quantity; i++ {
		id := d.Claimed
		d.Claimed++
		d.owners = append(d.owners, receiver)
		md := fakeMetadata(id)
		out = append(out, ClaimResult{Receipt: receipt, TokenID: strconv.FormatInt(id, 10), Metadata: &md})
	}
	return out, nil
}

// TokenMetadata implements Client.
func (f *Fake) TokenMetadata(ctx context.Context, contract common.Address, tokenID string) (Metadata, error) {
	if err := ctx.Err(); err != nil {
		return Metadata{}, err
	}
	id, err := strconv.ParseInt(tokenID, 10, 64)
	if err != nil {
		return Metadata{}, fmt.Errorf("drop: token id %q: %w", tokenID, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if id < 0 || id >= f.stateLocked(contract).Claimed {
		return Metadata{}, fmt.Errorf("drop: token %s not minted", tokenID)
	}
	return fakeMetadata(id), nil
}

func (f *Fake) stateLocked(contract common.Address) *fakeState {
	d, ok := f.drops[contract]
	if !ok {
		d = newFakeState(f.defaults)
		f.drops[contract] = d
	}
	return d
}

func newFakeState(d FakeDrop) *fakeState {
	if d.Claimed > d.Total {
		d.Claimed = d.Total
	}
	return &fakeState{FakeDrop: d}
}

func fakeMetadata(id int64) Metadata {
	return Metadata{Name: fmt.Sprintf("#%d", id)}
}

func randomHash() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "0x" + fmt.Sprintf("%064x", 0)
	}
	return "0x" + hex.EncodeToString(b)
}
