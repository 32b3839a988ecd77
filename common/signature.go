package common

import (
	"fmt"

	ethereum "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// PersonalMessageHash hashes message with the Ethereum personal message
// scheme, the same digest wallets produce for personal_sign.
func PersonalMessageHash(message string) []byte {
	prefixed := fmt.Sprintf("\x19Ethereum Signed Message:\n%d%s", len(message), message)
	return crypto.Keccak256([]byte(prefixed))
}

// RecoverSigner recovers the address that signed message with personal_sign.
// The signature is the usual 65 byte r||s||v hex blob, v being 0/1 or 27/28.
// Any malformed component is a BAD_SIGNATURE validation error.
func RecoverSigner(message, signature string) (ethereum.Address, error) {
	sig, err := hexutil.Decode(signature)
	if err != nil {
		return ethereum.Address{}, NewValidationError(CodeBadSignature, "signature is not valid hex: %s", err.Error())
	}
	if len(sig) != crypto.SignatureLength {
		return ethereum.Address{}, NewValidationError(CodeBadSignature, "signature must be %d bytes, got %d", crypto.SignatureLength, len(sig))
	}
	// work on a copy, the caller's slice must stay untouched
	normalized := make([]byte, crypto.SignatureLength)
	copy(normalized, sig)
	if normalized[64] >= 27 {
		normalized[64] -= 27
	}
	if normalized[64] > 1 {
		return ethereum.Address{}, NewValidationError(CodeBadSignature, "invalid recovery id %d", sig[64])
	}
	pubkey, err := crypto.SigToPub(PersonalMessageHash(message), normalized)
	if err != nil {
		return ethereum.Address{}, NewValidationError(CodeBadSignature, "can not recover public key: %s", err.Error())
	}
	return crypto.PubkeyToAddress(*pubkey), nil
}
