package wasm

// Uvarint decodes unsigned LEB128 at b[st:] for a value of the given bit width.
// It returns the value and the number of bytes consumed.
//
// At most ceil(bits/7) bytes are read whatever their continuation bits say,
// so an encoding longer than the width allows is truncated, not rejected.
func Uvarint(b []byte, st int, bits uint) (v uint64, n int, err error) {
	lim := int(bits+6) / 7
	x := byte(0x80)

	for x&0x80 != 0 && n < lim {
		if st+n >= len(b) {
			return 0, 0, ErrOutOfBounds
		}

		x = b[st+n]
		v |= uint64(x&0x7f) << (7 * uint(n))
		n++
	}

	return v, n, nil
}

// Varint is the signed counterpart of Uvarint.
// The result is sign-extended from bit 6 of the last byte read.
func Varint(b []byte, st int, bits uint) (v int64, n int, err error) {
	lim := int(bits+6) / 7
	x := byte(0x80)

	var u uint64

	for x&0x80 != 0 && n < lim {
		if st+n >= len(b) {
			return 0, 0, ErrOutOfBounds
		}

		x = b[st+n]
		u |= uint64(x&0x7f) << (7 * uint(n))
		n++
	}

	s := 7 * uint(n)

	if (x&0x40) != 0 && s < 64 {
		u |= ^uint64(0) << s
	}

	return int64(u), n, nil
}
