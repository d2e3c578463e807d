package mint

import "testing"

func TestLabelPrecedence(t *testing.T) {
	const wallet = "0x00000000000000000000000000000000000000aa"
	cases := []struct {
		name    string
		state   State
		label   string
		enabled bool
	}{
		{"uninitialized", State{Phase: PhaseUninitialized, Address: wallet}, "Loading", false},
		{"loading", State{Phase: PhaseLoading, Address: wallet}, "Loading", false},
		{"minting beats sold out", State{Phase: PhaseMinting, SupplyKnown: true, Claimed: 3, Total: 3, Address: wallet}, "Loading", false},
		{"sold out signed in", State{Phase: PhaseReady, SupplyKnown: true, Claimed: 3, Total: 3, Address: wallet}, "SOLD OUT", false},
		{"sold out signed out", State{Phase: PhaseReady, SupplyKnown: true, Claimed: 3, Total: 3}, "SOLD OUT", false},
		{"signed out", State{Phase: PhaseReady, SupplyKnown: true, Claimed: 1, Total: 3, Price: "0.01", PriceKnown: true}, "Sign in to Mint", false},
		{"ready", State{Phase: PhaseReady, SupplyKnown: true, Claimed: 1, Total: 3, Price: "0.01", Symbol: "ETH", PriceKnown: true, Address: wallet}, "Mint NFT (0.01 ETH)", true},
		{"unknown price", State{Phase: PhaseReady, SupplyKnown: true, Claimed: 1, Total: 3, Address: wallet}, "Mint NFT (? ETH)", true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.state.Label(); got != tc.label {
				t.Fatalf("expected label %q, got %q", tc.label, got)
			}
			if got := tc.state.Enabled(); got != tc.enabled {
				t.Fatalf("expected enabled=%v, got %v", tc.enabled, got)
			}
		})
	}
}

func TestSupplyText(t *testing.T) {
	if got := (State{}).SupplyText(); got != "Loading Supply Count ..." {
		t.Fatalf("unexpected loading text %q", got)
	}
	if got := (State{SupplyKnown: true, Claimed: 2, Total: 10}).SupplyText(); got != "2 / 10 NFT's claimed" {
		t.Fatalf("unexpected supply text %q", got)
	}
}
