// Package wallet verifies that a browser wallet controls an address by checking an
// EIP-191 personal_sign signature over a server issued nonce.
package wallet

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
)

var (
	// ErrNonceMissing is returned when the session holds no outstanding nonce.
	ErrNonceMissing = errors.New("wallet: nonce missing")
	// ErrSignatureMismatch is returned when the signature was not produced by the claimed address.
	ErrSignatureMismatch = errors.New("wallet: signature does not match address")
	// ErrInvalidAddress is returned for a malformed wallet address.
	ErrInvalidAddress = errors.New("wallet: invalid address")
)

const signatureLength = 65

// NewNonce returns a fresh single-use nonce.
func NewNonce() string {
	return uuid.NewString()
}

// Message builds the text the wallet is asked to sign.
func Message(site, nonce string) string {
	site = strings.TrimSpace(site)
	if site == "" {
		site = "NFT Drop"
	}
	return fmt.Sprintf("Sign in to %s\n\nNonce: %s", site, nonce)
}

// Verify recovers the signer of message from a hex encoded 65-byte signature and checks it
// against address. It returns the checksummed address on success.
func Verify(address, message, signature string) (common.Address, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	want := common.HexToAddress(address)

	sig, err := hexutil.Decode(strings.TrimSpace(signature))
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: decode signature: %v", ErrSignatureMismatch, err)
	}
	if len(sig) != signatureLength {
		return common.Address{}, fmt.Errorf("%w: signature length %d", ErrSignatureMismatch, len(sig))
	}
	// Wallets return V as 27/28; SigToPub expects 0/1.
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(accounts.TextHash([]byte(message)), sig)
	if err != nil {
		return common.Address{}, fmt.Errorf("%w: recover: %v", ErrSignatureMismatch, err)
	}
	if got := crypto.PubkeyToAddress(*pub); got != want {
		return common.Address{}, ErrSignatureMismatch
	}
	return want, nil
}
