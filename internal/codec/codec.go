// Package codec provides the byte-level primitives for trading:
// base-58 address encoding, Ed25519 key handling and detached signing.
package codec

import (
	"crypto/ed25519"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// Key size constants (bytes).
const (
	SeedSize      = 32
	SecretKeySize = 64
	PublicKeySize = 32
	SignatureSize = 64
)

var (
	// ErrInvalidKeyLength is returned when a private key is neither a
	// 32-byte seed nor a 64-byte secret key.
	ErrInvalidKeyLength = errors.New("private key must be 32 or 64 bytes")

	// ErrInvalidPublicKey is returned when public key bytes do not decode
	// to a valid curve point.
	ErrInvalidPublicKey = errors.New("invalid ed25519 public key")
)

// EncodeBase58 encodes bytes with the standard base-58 alphabet.
// Leading zero bytes become leading '1' characters.
func EncodeBase58(b []byte) string {
	return base58.Encode(b)
}

// DecodeBase58 decodes a base-58 string back to bytes.
func DecodeBase58(s string) ([]byte, error) {
	return base58.Decode(s)
}

// DerivePublicKey returns the 32-byte public key for a private key.
// A 64-byte secret key carries the public key in its trailing 32 bytes;
// a 32-byte seed is expanded through Ed25519 key generation.
func DerivePublicKey(priv []byte) ([]byte, error) {
	switch len(priv) {
	case SecretKeySize:
		pub := make([]byte, PublicKeySize)
		copy(pub, priv[SeedSize:])
		return pub, nil
	case SeedSize:
		key := ed25519.NewKeyFromSeed(priv)
		pub := make([]byte, PublicKeySize)
		copy(pub, key[SeedSize:])
		return pub, nil
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(priv))
	}
}

// Sign produces a 64-byte detached Ed25519 signature over the raw message.
// The message is not pre-hashed; Ed25519 hashes internally.
func Sign(message, priv []byte) ([]byte, error) {
	var key ed25519.PrivateKey
	switch len(priv) {
	case SecretKeySize:
		key = ed25519.PrivateKey(priv)
	case SeedSize:
		key = ed25519.NewKeyFromSeed(priv)
	default:
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(priv))
	}
	return ed25519.Sign(key, message), nil
}

// ValidatePublicKey checks that the bytes decompress to a point on the curve.
// Off-curve keys are rejected before they ever reach the signer.
func ValidatePublicKey(pub []byte) error {
	if len(pub) != PublicKeySize {
		return fmt.Errorf("%w: got %d bytes", ErrInvalidPublicKey, len(pub))
	}
	if _, err := new(edwards25519.Point).SetBytes(pub); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return nil
}

// ParsePrivateKey accepts a private key in base-58 string form or as a JSON
// byte array ("[1,2,...]") and returns the raw 32- or 64-byte key.
func ParsePrivateKey(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, errors.New("empty private key")
	}

	var raw []byte
	if strings.HasPrefix(s, "[") {
		var arr []byte
		if err := json.Unmarshal([]byte(s), &arr); err != nil {
			return nil, fmt.Errorf("parse key array: %w", err)
		}
		raw = arr
	} else {
		decoded, err := base58.Decode(s)
		if err != nil {
			return nil, fmt.Errorf("decode base58 key: %w", err)
		}
		raw = decoded
	}

	if len(raw) != SeedSize && len(raw) != SecretKeySize {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidKeyLength, len(raw))
	}
	return raw, nil
}

// GenerateKeypair creates a fresh Ed25519 keypair. Used for throwaway
// signers and new asset mints in create flows.
func GenerateKeypair() (pub, priv []byte, err error) {
	pubKey, privKey, err := ed25519.GenerateKey(nil)
	if err != nil {
		return nil, nil, fmt.Errorf("generate keypair: %w", err)
	}
	return pubKey, privKey, nil
}
