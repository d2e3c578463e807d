package mint

import "fmt"

// Phase is the lifecycle position of a mint panel.
type Phase int

const (
	// PhaseUninitialized means there is no drop to talk to.
	PhaseUninitialized Phase = iota
	// PhaseLoading means supply has not been read yet.
	PhaseLoading
	// PhaseReady means supply is known.
	PhaseReady
	// PhaseMinting means a claim for this session and contract is in flight.
	PhaseMinting
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseMinting:
		return "minting"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

const (
	labelLoading  = "Loading"
	labelSoldOut  = "SOLD OUT"
	labelSignedIn = "Sign in to Mint"
	unknownPrice  = "?"
	defaultSymbol = "ETH"
)

// State is the server side view of one mint panel. It is rebuilt from the drop on every
// render and never stored.
type State struct {
	Phase       Phase
	Claimed     int64
	Total       int64
	SupplyKnown bool
	Price       string
	Symbol      string
	PriceKnown  bool
	Address     string
}

// Loading reports whether the panel is still waiting for supply.
func (s State) Loading() bool {
	return s.Phase == PhaseUninitialized || s.Phase == PhaseLoading
}

// Minting reports whether a claim is in flight.
func (s State) Minting() bool {
	return s.Phase == PhaseMinting
}

// SoldOut reports whether every token has been claimed.
func (s State) SoldOut() bool {
	return s.SupplyKnown && s.Claimed >= s.Total
}

// SignedOut reports whether no wallet is connected.
func (s State) SignedOut() bool {
	return s.Address == ""
}

// Label returns the mint button text.
func (s State) Label() string {
	switch {
	case s.Loading() || s.Minting():
		return labelLoading
	case s.SoldOut():
		return labelSoldOut
	case s.SignedOut():
		return labelSignedIn
	}
	price := unknownPrice
	if s.PriceKnown {
		price = s.Price
	}
	symbol := s.Symbol
	if symbol == "" {
		symbol = defaultSymbol
	}
	return fmt.Sprintf("Mint NFT (%s %s)", price, symbol)
}

// Enabled reports whether the mint button accepts a click.
func (s State) Enabled() bool {
	return !s.Loading() && !s.Minting() && !s.SoldOut() && !s.SignedOut()
}

// SupplyText is the claimed supply line under the artwork.
func (s State) SupplyText() string {
	if !s.SupplyKnown {
		return "Loading Supply Count ..."
	}
	return fmt.Sprintf("%d / %d NFT's claimed", s.Claimed, s.Total)
}
