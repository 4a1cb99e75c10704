package wire

import (
	"encoding/binary"
	"fmt"

	"solana-curve-trader/internal/codec"
)

// SystemProgramID is the native transfer program.
const SystemProgramID = "11111111111111111111111111111111"

// systemTransferIndex is the System Program instruction tag for Transfer.
const systemTransferIndex = 2

// BuildTransfer assembles an unsigned single-signer transaction moving
// lamports from one account to another. The returned buffer has one
// zero-filled signature slot and parses with Parse.
func BuildTransfer(fromPub, toPub string, blockhash string, lamports uint64) ([]byte, error) {
	from, err := codec.DecodeBase58(fromPub)
	if err != nil || len(from) != codec.PublicKeySize {
		return nil, fmt.Errorf("invalid sender key %q", fromPub)
	}
	to, err := codec.DecodeBase58(toPub)
	if err != nil || len(to) != codec.PublicKeySize {
		return nil, fmt.Errorf("invalid destination key %q", toPub)
	}
	program, err := codec.DecodeBase58(SystemProgramID)
	if err != nil {
		return nil, fmt.Errorf("decode system program id: %w", err)
	}
	hash, err := codec.DecodeBase58(blockhash)
	if err != nil || len(hash) != 32 {
		return nil, fmt.Errorf("invalid blockhash %q", blockhash)
	}

	// Header: 1 required signature, 0 readonly signed, 1 readonly unsigned
	// (the program account).
	msg := []byte{1, 0, 1}
	msg = AppendCompactU16(msg, 3)
	msg = append(msg, from...)
	msg = append(msg, to...)
	msg = append(msg, program...)
	msg = append(msg, hash...)

	// One instruction: program index 2, accounts [from, to], data
	// [tag u32 LE | lamports u64 LE].
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[0:4], systemTransferIndex)
	binary.LittleEndian.PutUint64(data[4:12], lamports)

	msg = AppendCompactU16(msg, 1) // instruction count
	msg = append(msg, 2)           // program id index
	msg = AppendCompactU16(msg, 2) // account count
	msg = append(msg, 0, 1)        // from, to
	msg = AppendCompactU16(msg, len(data))
	msg = append(msg, data...)

	buf := AppendCompactU16(nil, 1)
	buf = append(buf, make([]byte, codec.SignatureSize)...)
	return append(buf, msg...), nil
}

// MessageOf returns the message portion of a transaction built by
// BuildTransfer, for fee estimation.
func MessageOf(tx []byte) ([]byte, error) {
	parsed, err := Parse(tx)
	if err != nil {
		return nil, err
	}
	return parsed.Message, nil
}
