package observability

import (
	"net/http"
	"strings"
	"unicode"

	"github.com/ethereum/go-ethereum/common"
)

const maxRouteLen = 180

// SanitizeRoute drops control characters and caps the length of a logged path.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, route)
	if len(cleaned) > maxRouteLen {
		cleaned = cleaned[:maxRouteLen]
	}
	return cleaned
}

// SanitizeMethod maps anything but the methods this server routes to "OTHER".
func SanitizeMethod(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPost, http.MethodOptions:
		return method
	}
	return "OTHER"
}

// SanitizeAddress logs wallet addresses in checksum form. Client-supplied values that
// are not addresses are reduced to a marker.
func SanitizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	switch {
	case addr == "":
		return ""
	case common.IsHexAddress(addr):
		return common.HexToAddress(addr).Hex()
	}
	return "invalid"
}
