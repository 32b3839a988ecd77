package common

import (
	"strings"

	ethereum "github.com/ethereum/go-ethereum/common"
)

// ValidateAddress checks addr is a well formed hex Ethereum address and
// returns its parsed form. Invalid input is rejected, never coerced.
func ValidateAddress(addr string) (ethereum.Address, error) {
	if !ethereum.IsHexAddress(addr) {
		return ethereum.Address{}, NewValidationError(CodeInvalidAddress, "invalid address %q", addr)
	}
	return ethereum.HexToAddress(addr), nil
}

// NormalizeAddress lowercases a validated hex address so it can be used as
// a storage key.
func NormalizeAddress(addr ethereum.Address) string {
	return strings.ToLower(addr.Hex())
}
