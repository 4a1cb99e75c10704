package wire

import (
	"bytes"
	"crypto/ed25519"
	"encoding/binary"
	"testing"

	"solana-curve-trader/internal/codec"
)

func TestBuildTransfer(t *testing.T) {
	seed := bytes.Repeat([]byte{3}, codec.SeedSize)
	fromPub, _ := codec.DerivePublicKey(seed)
	from := codec.EncodeBase58(fromPub)
	to := codec.EncodeBase58(bytes.Repeat([]byte{7}, codec.PublicKeySize))
	blockhash := codec.EncodeBase58(bytes.Repeat([]byte{9}, 32))

	buf, err := BuildTransfer(from, to, blockhash, 995_000)
	if err != nil {
		t.Fatalf("build transfer: %v", err)
	}

	parsed, err := Parse(buf)
	if err != nil {
		t.Fatalf("parse built transfer: %v", err)
	}
	if parsed.SignatureCount != 1 {
		t.Errorf("expected 1 signature slot, got %d", parsed.SignatureCount)
	}
	if len(parsed.SignerKeys) != 1 || parsed.SignerKeys[0] != from {
		t.Errorf("wrong signer keys: %v", parsed.SignerKeys)
	}

	// Instruction data is the message tail: u32 tag then u64 lamports.
	data := parsed.Message[len(parsed.Message)-12:]
	if tag := binary.LittleEndian.Uint32(data[:4]); tag != systemTransferIndex {
		t.Errorf("instruction tag %d, want %d", tag, systemTransferIndex)
	}
	if got := binary.LittleEndian.Uint64(data[4:]); got != 995_000 {
		t.Errorf("lamports %d, want 995000", got)
	}

	// The buffer must be signable end to end.
	signed, err := AssembleSigned(buf, parsed, []Signer{{PublicKey: from, PrivateKey: seed}})
	if err != nil {
		t.Fatalf("assemble: %v", err)
	}
	key := ed25519.NewKeyFromSeed(seed)
	sig := signed[parsed.SignatureOffset : parsed.SignatureOffset+codec.SignatureSize]
	if !ed25519.Verify(key.Public().(ed25519.PublicKey), parsed.Message, sig) {
		t.Error("signature does not verify")
	}
}

func TestBuildTransfer_BadInputs(t *testing.T) {
	seed := bytes.Repeat([]byte{3}, codec.SeedSize)
	fromPub, _ := codec.DerivePublicKey(seed)
	from := codec.EncodeBase58(fromPub)
	to := codec.EncodeBase58(bytes.Repeat([]byte{7}, codec.PublicKeySize))
	hash := codec.EncodeBase58(bytes.Repeat([]byte{9}, 32))

	if _, err := BuildTransfer("not-base58!", to, hash, 1); err == nil {
		t.Error("expected error for bad sender")
	}
	if _, err := BuildTransfer(from, "short", hash, 1); err == nil {
		t.Error("expected error for bad destination")
	}
	if _, err := BuildTransfer(from, to, "tooshort", 1); err == nil {
		t.Error("expected error for bad blockhash")
	}
}
