package wire

import (
	"bytes"
	"crypto/ed25519"
	"testing"

	"solana-curve-trader/internal/codec"
)

func TestCompactU16RoundTrip(t *testing.T) {
	for _, v := range []int{0, 1, 2, 127, 128, 255, 256, 16383, 16384, 65535} {
		buf := AppendCompactU16(nil, v)
		got, n, err := DecodeCompactU16(buf)
		if err != nil {
			t.Fatalf("decode %d: %v", v, err)
		}
		if got != v || n != len(buf) {
			t.Errorf("value %d: got %d consuming %d of %d bytes", v, got, n, len(buf))
		}
	}
}

func TestDecodeCompactU16_Truncated(t *testing.T) {
	if _, _, err := DecodeCompactU16(nil); err == nil {
		t.Error("expected error for empty buffer")
	}
	if _, _, err := DecodeCompactU16([]byte{0x80}); err == nil {
		t.Error("expected error for dangling continuation bit")
	}
}

// buildTx constructs an unsigned transaction buffer with the given signer
// public keys plus extra non-signer account keys and an instruction tail.
func buildTx(signerPubs [][]byte) []byte {
	numRequired := len(signerPubs)

	msg := []byte{byte(numRequired), 0, 1}
	msg = AppendCompactU16(msg, numRequired+1)
	for _, pub := range signerPubs {
		msg = append(msg, pub...)
	}
	msg = append(msg, bytes.Repeat([]byte{0xEE}, 32)...) // non-signer account
	msg = append(msg, []byte{9, 8, 7, 6, 5}...)          // instruction tail

	buf := AppendCompactU16(nil, numRequired)
	buf = append(buf, make([]byte, numRequired*codec.SignatureSize)...)
	return append(buf, msg...)
}

func TestParse_SingleSigner(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, codec.SeedSize)
	pub, _ := codec.DerivePublicKey(seed)

	buf := buildTx([][]byte{pub})
	parsed, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	if parsed.SignatureCount != 1 {
		t.Errorf("expected 1 signature slot, got %d", parsed.SignatureCount)
	}
	if parsed.SignatureOffset != 1 {
		t.Errorf("expected offset 1, got %d", parsed.SignatureOffset)
	}
	if len(parsed.SignerKeys) != 1 || parsed.SignerKeys[0] != codec.EncodeBase58(pub) {
		t.Errorf("wrong signer keys: %v", parsed.SignerKeys)
	}
	if !bytes.Equal(parsed.Message, buf[1+codec.SignatureSize:]) {
		t.Error("message bytes wrong")
	}
}

func TestParse_Truncated(t *testing.T) {
	seed := bytes.Repeat([]byte{1}, codec.SeedSize)
	pub, _ := codec.DerivePublicKey(seed)
	buf := buildTx([][]byte{pub})

	for _, cut := range []int{0, 1, 40, len(buf) - 40} {
		if _, err := Parse(buf[:cut]); err == nil {
			t.Errorf("expected error for buffer cut at %d", cut)
		}
	}
}

func TestAssembleSigned_SingleSigner(t *testing.T) {
	seed := bytes.Repeat([]byte{2}, codec.SeedSize)
	pub, _ := codec.DerivePublicKey(seed)

	buf := buildTx([][]byte{pub})
	parsed, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	signed, err := AssembleSigned(buf, parsed, []Signer{{PublicKey: codec.EncodeBase58(pub), PrivateKey: seed}})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	if len(signed) != len(buf) {
		t.Fatalf("length changed: %d -> %d", len(buf), len(signed))
	}

	sig := signed[1 : 1+codec.SignatureSize]
	if !ed25519.Verify(ed25519.PublicKey(pub), parsed.Message, sig) {
		t.Error("slot 0 signature does not verify")
	}

	// Everything outside the signature slot is untouched.
	if signed[0] != buf[0] {
		t.Error("signature count byte changed")
	}
	if !bytes.Equal(signed[1+codec.SignatureSize:], buf[1+codec.SignatureSize:]) {
		t.Error("message bytes changed")
	}
}

func TestAssembleSigned_TwoSigners(t *testing.T) {
	seedA := bytes.Repeat([]byte{3}, codec.SeedSize)
	seedB := bytes.Repeat([]byte{4}, codec.SeedSize)
	pubA, _ := codec.DerivePublicKey(seedA)
	pubB, _ := codec.DerivePublicKey(seedB)

	buf := buildTx([][]byte{pubA, pubB})
	parsed, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}

	signed, err := AssembleSigned(buf, parsed, []Signer{
		{PublicKey: codec.EncodeBase58(pubB), PrivateKey: seedB},
		{PublicKey: codec.EncodeBase58(pubA), PrivateKey: seedA},
	})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}

	// Slots follow SignerKeys order, not the order signers were supplied.
	sigA := signed[parsed.SignatureOffset : parsed.SignatureOffset+codec.SignatureSize]
	sigB := signed[parsed.SignatureOffset+codec.SignatureSize : parsed.SignatureOffset+2*codec.SignatureSize]
	if !ed25519.Verify(ed25519.PublicKey(pubA), parsed.Message, sigA) {
		t.Error("slot 0 must hold signer A's signature")
	}
	if !ed25519.Verify(ed25519.PublicKey(pubB), parsed.Message, sigB) {
		t.Error("slot 1 must hold signer B's signature")
	}
}

func TestAssembleSigned_UnknownMultiSignerFatal(t *testing.T) {
	seedA := bytes.Repeat([]byte{5}, codec.SeedSize)
	seedB := bytes.Repeat([]byte{6}, codec.SeedSize)
	pubA, _ := codec.DerivePublicKey(seedA)
	pubB, _ := codec.DerivePublicKey(seedB)

	buf := buildTx([][]byte{pubA, pubB})
	parsed, _ := Parse(buf)

	_, err := AssembleSigned(buf, parsed, []Signer{{PublicKey: codec.EncodeBase58(pubA), PrivateKey: seedA}})
	if err == nil {
		t.Fatal("expected unknown-signer error for two-signer flow")
	}
}

func TestAssembleSigned_UnknownSingleSignerFallsBack(t *testing.T) {
	seedTx := bytes.Repeat([]byte{7}, codec.SeedSize)
	seedWallet := bytes.Repeat([]byte{8}, codec.SeedSize)
	pubTx, _ := codec.DerivePublicKey(seedTx)
	pubWallet, _ := codec.DerivePublicKey(seedWallet)

	buf := buildTx([][]byte{pubTx})
	parsed, _ := Parse(buf)

	signed, err := AssembleSigned(buf, parsed, []Signer{{PublicKey: codec.EncodeBase58(pubWallet), PrivateKey: seedWallet}})
	if err != nil {
		t.Fatalf("single-signer convenience path should not fail: %v", err)
	}

	sig := signed[parsed.SignatureOffset : parsed.SignatureOffset+codec.SignatureSize]
	if !ed25519.Verify(ed25519.PublicKey(pubWallet), parsed.Message, sig) {
		t.Error("slot 0 should hold the wallet's signature")
	}
}
