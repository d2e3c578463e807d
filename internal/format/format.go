package format

import (
	"fmt"
	"strings"
)

const addressEdge = 5

// ShortAddress keeps the first and last five characters of a wallet address,
// e.g. "0x1B5...1e5A1". Short inputs are returned unchanged.
func ShortAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if len(addr) <= 2*addressEdge+3 {
		return addr
	}
	return addr[:addressEdge] + "..." + addr[len(addr)-addressEdge:]
}

// WalletBanner is the line shown while a wallet is connected.
func WalletBanner(addr string) string {
	if strings.TrimSpace(addr) == "" {
		return ""
	}
	return fmt.Sprintf("You're logged in with wallet %s", ShortAddress(addr))
}

// MarketplaceName expands a brand into the header title.
func MarketplaceName(brand string) string {
	brand = strings.TrimSpace(brand)
	if brand == "" {
		return "NFT Market Place"
	}
	return fmt.Sprintf("The %s NFT Market Place", brand)
}

// SessionToggle is the header wallet button label.
func SessionToggle(connected bool) string {
	if connected {
		return "Sign Out"
	}
	return "Sign in"
}
