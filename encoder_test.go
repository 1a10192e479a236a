package wasm

import "math"

// lowEncoder assembles binaries for tests.
type lowEncoder struct{}

func (e *lowEncoder) Int(b []byte, v int) []byte {
	return e.Uint64(b, uint64(v))
}

func (e *lowEncoder) Uint64(b []byte, v uint64) []byte {
	for {
		x := byte(v) & 0x7f
		v >>= 7

		if v != 0 {
			x |= 0x80
		}

		b = append(b, x)

		if x&0x80 == 0 {
			break
		}
	}

	return b
}

func (e *lowEncoder) Int64(b []byte, v int64) []byte {
	for {
		x := byte(v) & 0x7f
		s := byte(v) & 0x40
		v >>= 7

		if s == 0 && v != 0 || s != 0 && v != -1 {
			x |= 0x80
		}

		b = append(b, x)

		if x&0x80 == 0 {
			break
		}
	}

	return b
}

func (e *lowEncoder) Uint32LE(b []byte, v uint32) []byte {
	return append(b, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

func (e *lowEncoder) Float32(b []byte, v float32) []byte {
	return e.Uint32LE(b, math.Float32bits(v))
}

func (e *lowEncoder) Float64(b []byte, v float64) []byte {
	x := math.Float64bits(v)

	return append(b, byte(x), byte(x>>8), byte(x>>16), byte(x>>24), byte(x>>32), byte(x>>40), byte(x>>48), byte(x>>56))
}

func (e *lowEncoder) Name(b []byte, v string) []byte {
	b = e.Int(b, len(v))
	b = append(b, v...)

	return b
}

func (e *lowEncoder) FuncType(b []byte, params []ValueType, result ...ValueType) []byte {
	b = append(b, byte(FuncHeader))
	b = e.Int(b, len(params))

	for _, p := range params {
		b = append(b, byte(p))
	}

	b = e.Int(b, len(result))

	for _, r := range result {
		b = append(b, byte(r))
	}

	return b
}

func (e *lowEncoder) Limits(b []byte, lo, hi int) []byte {
	if hi < 0 {
		b = append(b, 0)
		return e.Int(b, lo)
	}

	b = append(b, 1)
	b = e.Int(b, lo)
	b = e.Int(b, hi)

	return b
}

func (e *lowEncoder) Section(b []byte, id SectionID, data []byte) []byte {
	b = append(b, byte(id))
	b = e.Int(b, len(data))
	b = append(b, data...)

	return b
}

// Vector prefixes concatenated entries with their count.
func (e *lowEncoder) Vector(b []byte, entries ...[]byte) []byte {
	b = e.Int(b, len(entries))

	for _, x := range entries {
		b = append(b, x...)
	}

	return b
}

// Body wraps locals and code (which must include the final end) with its size.
func (e *lowEncoder) Body(b []byte, locals []Local, code ...byte) []byte {
	var x []byte

	x = e.Int(x, len(locals))

	for _, l := range locals {
		x = e.Int(x, int(l.Count))
		x = append(x, byte(l.Type))
	}

	x = append(x, code...)

	b = e.Int(b, len(x))

	return append(b, x...)
}

func (e *lowEncoder) Module(sections ...[]byte) []byte {
	b := append([]byte{}, Magic...)
	b = e.Uint32LE(b, SupportedVersion)

	for _, s := range sections {
		b = append(b, s...)
	}

	return b
}
