package common

import (
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

const testPrivKey = "1111111111111111111111111111111111111111111111111111111111111111"

func signPersonal(t *testing.T, message, privHex string) (string, string) {
	key, err := crypto.HexToECDSA(privHex)
	if err != nil {
		t.Fatalf("Couldn't parse test private key: %v", err)
	}
	sig, err := crypto.Sign(PersonalMessageHash(message), key)
	if err != nil {
		t.Fatalf("Couldn't sign test message: %v", err)
	}
	// wallets report v as 27/28
	sig[64] += 27
	return hexutil.Encode(sig), crypto.PubkeyToAddress(key.PublicKey).Hex()
}

func TestRecoverSigner(t *testing.T) {
	message := "Please certify my address"
	signature, expected := signPersonal(t, message, testPrivKey)

	recovered, err := RecoverSigner(message, signature)
	if err != nil {
		t.Fatalf("Expected recovery to succeed, got: %v", err)
	}
	if recovered.Hex() != expected {
		t.Fatalf("Expected recovered address %s, got %s", expected, recovered.Hex())
	}

	// recovery must be deterministic
	again, err := RecoverSigner(message, signature)
	if err != nil {
		t.Fatalf("Expected repeated recovery to succeed, got: %v", err)
	}
	if again != recovered {
		t.Fatalf("Expected stable recovery, got %s then %s", recovered.Hex(), again.Hex())
	}
}

func TestRecoverSignerRejectsOtherMessage(t *testing.T) {
	signature, signer := signPersonal(t, "original message", testPrivKey)
	// a mismatched message either fails recovery or yields another address,
	// it must never reproduce the signer
	recovered, err := RecoverSigner("another message", signature)
	if err == nil && recovered.Hex() == signer {
		t.Fatalf("Expected a different address for a different message")
	}
}

func TestRecoverSignerMalformed(t *testing.T) {
	cases := []struct {
		msg       string
		signature string
	}{
		{"not hex at all", "zzzz"},
		{"missing 0x prefix", "1234"},
		{"wrong length", "0x1234"},
		{"bad recovery id", "0x" + strings.Repeat("11", 64) + "ff"},
	}
	for _, tc := range cases {
		_, err := RecoverSigner("message", tc.signature)
		if err == nil {
			t.Fatalf("Expected error for %s", tc.msg)
		}
		if KindOf(err) != ValidationError || CodeOf(err) != CodeBadSignature {
			t.Fatalf("Expected BAD_SIGNATURE validation error for %s, got %v", tc.msg, err)
		}
	}
}
