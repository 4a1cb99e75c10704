// Package wire implements the legacy transaction byte layout: a compact-u16
// signature count, 64-byte signature slots, then the message with its ordered
// required-signer key list.
package wire

import (
	"errors"
	"fmt"
	"log"

	"solana-curve-trader/internal/codec"
)

var (
	// ErrTruncated is returned when the buffer ends before the layout says it should.
	ErrTruncated = errors.New("transaction buffer truncated")

	// ErrNoSigners is returned for a message that declares zero required signers.
	ErrNoSigners = errors.New("transaction requires no signers")

	// ErrUnknownSigner is returned when a required signer is not controlled
	// by the caller in a multi-signer flow.
	ErrUnknownSigner = errors.New("unknown required signer")
)

// ParsedTransaction is the decomposition of an unsigned transaction buffer.
type ParsedTransaction struct {
	SignatureCount  int
	SignatureOffset int      // offset of the first signature slot
	Message         []byte   // bytes to sign
	SignerKeys      []string // required signers, base-58, in slot order
}

// Parse decomposes an unsigned transaction buffer. The buffer must carry a
// compact-u16 signature count, that many 64-byte slots, and a message whose
// header declares numRequiredSignatures followed by the account-key list.
func Parse(buf []byte) (*ParsedTransaction, error) {
	sigCount, sigCountLen, err := DecodeCompactU16(buf)
	if err != nil {
		return nil, fmt.Errorf("signature count: %w", err)
	}

	sigOffset := sigCountLen
	msgOffset := sigOffset + sigCount*codec.SignatureSize
	if msgOffset > len(buf) {
		return nil, fmt.Errorf("%w: %d signature slots do not fit in %d bytes", ErrTruncated, sigCount, len(buf))
	}
	message := buf[msgOffset:]

	// Message header: numRequiredSignatures, numReadonlySigned,
	// numReadonlyUnsigned, then compact-u16 account-key count.
	if len(message) < 3 {
		return nil, fmt.Errorf("%w: message header", ErrTruncated)
	}
	numRequired := int(message[0])
	if numRequired == 0 {
		return nil, ErrNoSigners
	}

	keyCount, keyCountLen, err := DecodeCompactU16(message[3:])
	if err != nil {
		return nil, fmt.Errorf("account key count: %w", err)
	}
	if keyCount < numRequired {
		return nil, fmt.Errorf("%w: %d account keys for %d required signers", ErrTruncated, keyCount, numRequired)
	}

	keysStart := 3 + keyCountLen
	if keysStart+numRequired*codec.PublicKeySize > len(message) {
		return nil, fmt.Errorf("%w: account key list", ErrTruncated)
	}

	signers := make([]string, numRequired)
	for i := 0; i < numRequired; i++ {
		off := keysStart + i*codec.PublicKeySize
		signers[i] = codec.EncodeBase58(message[off : off+codec.PublicKeySize])
	}

	return &ParsedTransaction{
		SignatureCount:  sigCount,
		SignatureOffset: sigOffset,
		Message:         message,
		SignerKeys:      signers,
	}, nil
}

// Signer pairs a base-58 public key with its raw private key bytes.
type Signer struct {
	PublicKey  string
	PrivateKey []byte
}

// AssembleSigned signs the message with every required signer and writes each
// 64-byte signature into its slot, leaving every other byte of buf identical.
//
// For a single-signer transaction, a required key not present among signers is
// tolerated: slot 0 is filled by the first provided signer with a logged
// warning. For multi-signer transactions an unknown required key is fatal so
// a creation flow can never submit an unsigned slot.
func AssembleSigned(buf []byte, parsed *ParsedTransaction, signers []Signer) ([]byte, error) {
	if parsed == nil || len(parsed.SignerKeys) == 0 {
		return nil, ErrNoSigners
	}
	if len(signers) == 0 {
		return nil, ErrUnknownSigner
	}

	byKey := make(map[string]Signer, len(signers))
	for _, s := range signers {
		byKey[s.PublicKey] = s
	}

	out := make([]byte, len(buf))
	copy(out, buf)

	for i, key := range parsed.SignerKeys {
		signer, ok := byKey[key]
		if !ok {
			if len(parsed.SignerKeys) > 1 {
				return nil, fmt.Errorf("%w: %s (slot %d)", ErrUnknownSigner, key, i)
			}
			log.Printf("warning: required signer %s not held, signing slot 0 with %s", key, signers[0].PublicKey)
			signer = signers[0]
		}

		sig, err := codec.Sign(parsed.Message, signer.PrivateKey)
		if err != nil {
			return nil, fmt.Errorf("sign slot %d: %w", i, err)
		}

		off := parsed.SignatureOffset + i*codec.SignatureSize
		if off+codec.SignatureSize > len(out) {
			return nil, fmt.Errorf("%w: signature slot %d", ErrTruncated, i)
		}
		copy(out[off:off+codec.SignatureSize], sig)
	}

	return out, nil
}
