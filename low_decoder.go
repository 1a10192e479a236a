package wasm

import (
	"tlog.app/go/errors"
)

type (
	// LowDecoder reads primitives from a buffer at a given position.
	// Every method takes the position to read from
	// and returns the position right after the value.
	LowDecoder struct{}
)

func (d *LowDecoder) Byte(b []byte, st int) (r byte, i int, err error) {
	if st < 0 || st >= len(b) {
		return 0, st, ErrOutOfBounds
	}

	return b[st], st + 1, nil
}

func (d *LowDecoder) Uint8(b []byte, st int) (v uint8, i int, err error) {
	x, i, err := d.fixed(b, st, 1)
	return uint8(x), i, err
}

func (d *LowDecoder) Uint16(b []byte, st int) (v uint16, i int, err error) {
	x, i, err := d.fixed(b, st, 2)
	return uint16(x), i, err
}

func (d *LowDecoder) Uint32(b []byte, st int) (v uint32, i int, err error) {
	x, i, err := d.fixed(b, st, 4)
	return uint32(x), i, err
}

func (d *LowDecoder) Uint64(b []byte, st int) (v uint64, i int, err error) {
	return d.fixed(b, st, 8)
}

func (d *LowDecoder) fixed(b []byte, st, size int) (v uint64, i int, err error) {
	if st < 0 || st+size > len(b) {
		return 0, st, ErrOutOfBounds
	}

	for j := 0; j < size; j++ {
		v |= uint64(b[st+j]) << (8 * j)
	}

	return v, st + size, nil
}

func (d *LowDecoder) VarUint(b []byte, st int, bits uint) (v uint64, i int, err error) {
	if st < 0 {
		return 0, st, ErrOutOfBounds
	}

	v, n, err := Uvarint(b, st, bits)
	if err != nil {
		return 0, st, err
	}

	return v, st + n, nil
}

func (d *LowDecoder) VarInt(b []byte, st int, bits uint) (v int64, i int, err error) {
	if st < 0 {
		return 0, st, ErrOutOfBounds
	}

	v, n, err := Varint(b, st, bits)
	if err != nil {
		return 0, st, err
	}

	return v, st + n, nil
}

func (d *LowDecoder) VarUint1(b []byte, st int) (v uint8, i int, err error) {
	x, i, err := d.VarUint(b, st, 1)
	return uint8(x), i, err
}

func (d *LowDecoder) VarUint7(b []byte, st int) (v uint8, i int, err error) {
	x, i, err := d.VarUint(b, st, 7)
	return uint8(x), i, err
}

func (d *LowDecoder) VarUint32(b []byte, st int) (v uint32, i int, err error) {
	x, i, err := d.VarUint(b, st, 32)
	return uint32(x), i, err
}

func (d *LowDecoder) VarUint64(b []byte, st int) (v uint64, i int, err error) {
	return d.VarUint(b, st, 64)
}

func (d *LowDecoder) VarInt7(b []byte, st int) (v int8, i int, err error) {
	x, i, err := d.VarInt(b, st, 7)
	return int8(x), i, err
}

func (d *LowDecoder) VarInt16(b []byte, st int) (v int16, i int, err error) {
	x, i, err := d.VarInt(b, st, 16)
	return int16(x), i, err
}

func (d *LowDecoder) VarInt32(b []byte, st int) (v int32, i int, err error) {
	x, i, err := d.VarInt(b, st, 32)
	return int32(x), i, err
}

func (d *LowDecoder) VarInt64(b []byte, st int) (v int64, i int, err error) {
	return d.VarInt(b, st, 64)
}

// Int reads varuint32 as int. It's used for counts and lengths.
func (d *LowDecoder) Int(b []byte, st int) (l, i int, err error) {
	x, i, err := d.VarUint32(b, st)
	return int(x), i, err
}

func (d *LowDecoder) Bytes(b []byte, st, l int) (v []byte, i int, err error) {
	if st < 0 || l < 0 || st+l > len(b) {
		return nil, st, ErrOutOfBounds
	}

	return b[st : st+l], st + l, nil
}

// Name reads length-prefixed bytes.
// Returned slice points into b.
func (d *LowDecoder) Name(b []byte, st int) (v []byte, i int, err error) {
	l, i, err := d.Int(b, st)
	if err != nil {
		return nil, st, err
	}

	v, i, err = d.Bytes(b, i, l)
	if err != nil {
		return nil, st, err
	}

	return v, i, nil
}

// NameString reads a name treating each byte as a single character.
func (d *LowDecoder) NameString(b []byte, st int) (v string, i int, err error) {
	r, i, err := d.Name(b, st)
	if err != nil {
		return "", i, err
	}

	rs := make([]rune, len(r))
	for j, c := range r {
		rs[j] = rune(c)
	}

	return string(rs), i, nil
}

func (d *LowDecoder) ValueType(b []byte, st int) (tp ValueType, i int, err error) {
	x, i, err := d.VarUint7(b, st)
	if err != nil {
		return 0, st, err
	}

	switch tp = ValueType(x); tp {
	case I32, I64, F32, F64:
		return tp, i, nil
	}

	return 0, st, InvalidTagError{Production: "value_type", Tag: x, Offset: st}
}

func (d *LowDecoder) BlockType(b []byte, st int) (tp BlockType, i int, err error) {
	x, i, err := d.VarUint7(b, st)
	if err != nil {
		return 0, st, err
	}

	switch tp = BlockType(x); tp {
	case BlockI32, BlockI64, BlockF32, BlockF64, AnyFunc, FuncHeader, Empty:
		return tp, i, nil
	}

	return 0, st, InvalidTagError{Production: "block_type", Tag: x, Offset: st}
}

func (d *LowDecoder) ElemType(b []byte, st int) (tp BlockType, i int, err error) {
	x, i, err := d.Uint8(b, st)
	if err != nil {
		return 0, st, err
	}

	if BlockType(x) != AnyFunc {
		return 0, st, InvalidTagError{Production: "elem_type", Tag: x, Offset: st}
	}

	return AnyFunc, i, nil
}

func (d *LowDecoder) ExternalKind(b []byte, st int) (k ExternalKind, i int, err error) {
	x, i, err := d.Uint8(b, st)
	if err != nil {
		return 0, st, err
	}

	if k = ExternalKind(x); k > KindGlobal {
		return 0, st, InvalidTagError{Production: "external_kind", Tag: x, Offset: st}
	}

	return k, i, nil
}

func (d *LowDecoder) Limits(b []byte, st int) (l Limits, i int, err error) {
	flags, i, err := d.VarUint1(b, st)
	if err != nil {
		return l, st, errors.Wrap(err, "flags")
	}

	if flags > 1 {
		return l, st, InvalidTagError{Production: "resizable_limits", Tag: flags, Offset: st}
	}

	l.Flags = uint32(flags)
	l.Hi = -1

	lo, i, err := d.VarUint32(b, i)
	if err != nil {
		return l, st, errors.Wrap(err, "initial")
	}

	l.Lo = int64(lo)

	if flags == 0 {
		return l, i, nil
	}

	hi, i, err := d.VarUint32(b, i)
	if err != nil {
		return l, st, errors.Wrap(err, "maximum")
	}

	l.Hi = int64(hi)

	return l, i, nil
}
