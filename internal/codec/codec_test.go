package codec

import (
	"bytes"
	"crypto/ed25519"
	"testing"
)

func TestBase58RoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{},
		{0},
		{0, 0, 0},
		{0, 0, 1, 2, 3},
		{255},
		{1, 2, 3, 4, 5, 6, 7, 8},
		bytes.Repeat([]byte{0xAB}, 64),
	}

	for _, in := range cases {
		out, err := DecodeBase58(EncodeBase58(in))
		if err != nil {
			t.Fatalf("decode failed for %v: %v", in, err)
		}
		if !bytes.Equal(out, in) && !(len(in) == 0 && len(out) == 0) {
			t.Errorf("round trip mismatch: in=%v out=%v", in, out)
		}
	}
}

func TestBase58LeadingZeros(t *testing.T) {
	s := EncodeBase58([]byte{0, 0, 7})
	if s[0] != '1' || s[1] != '1' {
		t.Errorf("expected two leading '1' chars, got %q", s)
	}
}

func TestDerivePublicKey_Seed(t *testing.T) {
	seed := bytes.Repeat([]byte{7}, SeedSize)
	pub, err := DerivePublicKey(seed)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := ed25519.NewKeyFromSeed(seed).Public().(ed25519.PublicKey)
	if !bytes.Equal(pub, want) {
		t.Error("derived public key does not match ed25519 key generation")
	}
}

func TestDerivePublicKey_SecretKey(t *testing.T) {
	seed := bytes.Repeat([]byte{9}, SeedSize)
	key := ed25519.NewKeyFromSeed(seed)

	pub, err := DerivePublicKey(key)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !bytes.Equal(pub, key[SeedSize:]) {
		t.Error("expected trailing 32 bytes of 64-byte secret")
	}
}

func TestDerivePublicKey_BadLength(t *testing.T) {
	if _, err := DerivePublicKey(make([]byte, 33)); err == nil {
		t.Error("expected error for 33-byte key")
	}
}

func TestSign_Verifies(t *testing.T) {
	seed := bytes.Repeat([]byte{3}, SeedSize)
	msg := []byte("curve trade message")

	sig, err := Sign(msg, seed)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if len(sig) != SignatureSize {
		t.Fatalf("expected %d-byte signature, got %d", SignatureSize, len(sig))
	}

	pub, _ := DerivePublicKey(seed)
	if !ed25519.Verify(ed25519.PublicKey(pub), msg, sig) {
		t.Error("signature does not verify")
	}

	// Deterministic: same input, same signature.
	sig2, _ := Sign(msg, seed)
	if !bytes.Equal(sig, sig2) {
		t.Error("ed25519 signing should be deterministic")
	}
}

func TestValidatePublicKey(t *testing.T) {
	pub, _, err := GenerateKeypair()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if err := ValidatePublicKey(pub); err != nil {
		t.Errorf("valid key rejected: %v", err)
	}

	if err := ValidatePublicKey(make([]byte, 31)); err == nil {
		t.Error("expected error for short key")
	}
}

func TestParsePrivateKey_Forms(t *testing.T) {
	seed := bytes.Repeat([]byte{5}, SeedSize)

	fromB58, err := ParsePrivateKey(EncodeBase58(seed))
	if err != nil {
		t.Fatalf("base58 form: %v", err)
	}
	if !bytes.Equal(fromB58, seed) {
		t.Error("base58 form mismatch")
	}

	fromArr, err := ParsePrivateKey("[5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5,5]")
	if err != nil {
		t.Fatalf("array form: %v", err)
	}
	if !bytes.Equal(fromArr, seed) {
		t.Error("array form mismatch")
	}

	if _, err := ParsePrivateKey(""); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := ParsePrivateKey(EncodeBase58(make([]byte, 20))); err == nil {
		t.Error("expected error for wrong length")
	}
}
