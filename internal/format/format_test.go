package format

import "testing"

func TestShortAddress(t *testing.T) {
	cases := map[string]string{
		"0x1B5FA9C3cE2a2A0D5C5C7Bd1d6b7A1E1f0b1e5A1": "0x1B5...1e5A1",
		"  0x00000000000000000000000000000000000000aA ": "0x000...000aA",
		"0xabc": "0xabc",
		"":      "",
	}
	for in, want := range cases {
		if got := ShortAddress(in); got != want {
			t.Errorf("ShortAddress(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWalletBanner(t *testing.T) {
	got := WalletBanner("0x1B5FA9C3cE2a2A0D5C5C7Bd1d6b7A1E1f0b1e5A1")
	if got != "You're logged in with wallet 0x1B5...1e5A1" {
		t.Fatalf("unexpected banner %q", got)
	}
	if WalletBanner(" ") != "" {
		t.Fatalf("expected empty banner when signed out")
	}
}

func TestHeaderStrings(t *testing.T) {
	if got := MarketplaceName("LeoAldo"); got != "The LeoAldo NFT Market Place" {
		t.Fatalf("unexpected name %q", got)
	}
	if SessionToggle(true) != "Sign Out" || SessionToggle(false) != "Sign in" {
		t.Fatalf("unexpected toggle labels")
	}
}
