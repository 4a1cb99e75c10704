package wire

import "errors"

// ErrBadCompactU16 is returned when a compact-u16 prefix is truncated or
// exceeds the 3-byte maximum.
var ErrBadCompactU16 = errors.New("malformed compact-u16")

// DecodeCompactU16 reads a compact-u16 (base-128 little-endian, continuation
// bit per byte) from the front of buf. Returns the value and bytes consumed.
func DecodeCompactU16(buf []byte) (int, int, error) {
	value := 0
	for i := 0; i < 3; i++ {
		if i >= len(buf) {
			return 0, 0, ErrBadCompactU16
		}
		b := int(buf[i])
		value |= (b & 0x7f) << (7 * i)
		if b&0x80 == 0 {
			return value, i + 1, nil
		}
	}
	return 0, 0, ErrBadCompactU16
}

// AppendCompactU16 appends the compact-u16 encoding of v to dst.
func AppendCompactU16(dst []byte, v int) []byte {
	for {
		if v < 0x80 {
			return append(dst, byte(v))
		}
		dst = append(dst, byte(v&0x7f|0x80))
		v >>= 7
	}
}
