package drop

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var testContract = common.HexToAddress("0x1B5FA9C3cE2a2A0D5C5C7Bd1d6b7A1E1f0b1e5A1")

func newGateway(t *testing.T, routes map[string]http.HandlerFunc) *HTTPClient {
	t.Helper()
	mux := http.NewServeMux()
	for path, h := range routes {
		mux.HandleFunc(path, h)
	}
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	client, err := NewHTTPClient(HTTPConfig{
		BaseURL:       srv.URL + "/",
		Chain:         "sepolia",
		AccessToken:   "engine-token",
		BackendWallet: "0x000000000000000000000000000000000000dEaD",
		ReadTimeout:   time.Second,
	})
	require.NoError(t, err)
	return client
}

func contractPath(suffix string) string {
	return "/contract/sepolia/" + testContract.Hex() + "/erc721/" + suffix
}

func TestHTTPClientClaimConditions(t *testing.T) {
	client := newGateway(t, map[string]http.HandlerFunc{
		contractPath("claim-conditions/get-all"): func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodGet, r.Method)
			require.Equal(t, "Bearer engine-token", r.Header.Get("Authorization"))
			_, _ = w.Write([]byte(`{"result":[{"price":"10000000000000000","currencyMetadata":{"symbol":"ETH","displayValue":"0.010"}},{"price":"0.5"}]}`))
		},
	})

	conditions, err := client.ClaimConditions(context.Background(), testContract)
	require.NoError(t, err)
	require.Len(t, conditions, 2)
	price, err := FirstPrice(conditions)
	require.NoError(t, err)
	require.Equal(t, "0.01", price.Display())
	require.Equal(t, "ETH", price.Symbol)
	require.Equal(t, "0.5", conditions[1].Price.Display())
}

func TestHTTPClientSupply(t *testing.T) {
	client := newGateway(t, map[string]http.HandlerFunc{
		contractPath("get-all-claimed"): func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":[{"owner":"0xabc","metadata":{"id":"0","name":"#0"}},{"owner":"0xdef","metadata":{"id":"1","name":"#1"}}]}`))
		},
		contractPath("total-count"): func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"result":"0x64"}`))
		},
	})

	tokens, err := client.ClaimedTokens(context.Background(), testContract)
	require.NoError(t, err)
	require.Len(t, tokens, 2)
	require.Equal(t, "1", tokens[1].ID)
	require.Equal(t, "#1", tokens[1].Metadata.Name)

	total, err := client.TotalSupply(context.Background(), testContract)
	require.NoError(t, err)
	require.Equal(t, int64(100), total.Int64())
}

func TestHTTPClientClaimTo(t *testing.T) {
	receiver := common.HexToAddress("0x00000000000000000000000000000000000000aa")
	client := newGateway(t, map[string]http.HandlerFunc{
		contractPath("claim-to"): func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "0x000000000000000000000000000000000000dEaD", r.Header.Get(backendWalletHeader))
			var body map[string]string
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			require.Equal(t, receiver.Hex(), body["receiver"])
			require.Equal(t, "1", body["quantity"])
			_, _ = w.Write([]byte(`{"result":[{"receipt":{"transactionHash":"0xfeed","blockNumber":4242},"id":"7"}]}`))
		},
	})

	results, err := client.ClaimTo(context.Background(), testContract, receiver, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "0xfeed", results[0].Receipt.TxHash)
	require.Equal(t, uint64(4242), results[0].Receipt.BlockNumber)
	require.Equal(t, "7", results[0].TokenID)
	require.Nil(t, results[0].Metadata)

	_, err = client.ClaimTo(context.Background(), testContract, receiver, 0)
	require.Error(t, err)
}

func TestHTTPClientTokenMetadata(t *testing.T) {
	client := newGateway(t, map[string]http.HandlerFunc{
		contractPath("get"): func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "7", r.URL.Query().Get("tokenId"))
			_, _ = w.Write([]byte(`{"result":{"owner":"0xabc","metadata":{"id":"7","name":"Ape #7","image":"ipfs://x"}}}`))
		},
	})

	md, err := client.TokenMetadata(context.Background(), testContract, "7")
	require.NoError(t, err)
	require.Equal(t, "Ape #7", md.Name)
	require.Equal(t, "ipfs://x", md.Image)
}

func TestHTTPClientStatusError(t *testing.T) {
	client := newGateway(t, map[string]http.HandlerFunc{
		contractPath("total-count"): func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "contract not deployed", http.StatusBadGateway)
		},
	})

	_, err := client.TotalSupply(context.Background(), testContract)
	require.Error(t, err)
	require.Contains(t, err.Error(), "502")
	require.Contains(t, err.Error(), "contract not deployed")
}

func TestNewHTTPClientValidates(t *testing.T) {
	_, err := NewHTTPClient(HTTPConfig{Chain: "sepolia"})
	require.Error(t, err)
	_, err = NewHTTPClient(HTTPConfig{BaseURL: "https://gateway.example.com"})
	require.Error(t, err)
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress(" 0x1b5fa9c3ce2a2a0d5c5c7bd1d6b7a1e1f0b1e5a1 ")
	require.NoError(t, err)
	require.Equal(t, testContract, addr)

	for _, raw := range []string{"", "0x0", "not-an-address"} {
		_, err := ParseAddress(raw)
		require.ErrorIs(t, err, ErrInvalidAddress)
	}
}
