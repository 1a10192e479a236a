package wasm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowEncoderDecoder(tb *testing.T) {
	var (
		b []byte
		e lowEncoder
		d LowDecoder
	)

	tb.Run("Fixed", func(tb *testing.T) {
		b = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}

		u8, i, err := d.Uint8(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, 1, i)
		assert.Equal(tb, uint8(0x01), u8)

		u16, i, err := d.Uint16(b, 1)
		assert.NoError(tb, err)
		assert.Equal(tb, 3, i)
		assert.Equal(tb, uint16(0x0302), u16)

		u32, i, err := d.Uint32(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, 4, i)
		assert.Equal(tb, uint32(0x04030201), u32)

		u64, i, err := d.Uint64(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, 8, i)
		assert.Equal(tb, uint64(0x0807060504030201), u64)

		_, i, err = d.Uint64(b, 1)
		assert.ErrorIs(tb, err, ErrOutOfBounds)
		assert.Equal(tb, 1, i)

		_, _, err = d.Uint32(b, 5)
		assert.ErrorIs(tb, err, ErrOutOfBounds)

		_, _, err = d.Byte(b, len(b))
		assert.ErrorIs(tb, err, ErrOutOfBounds)
	})

	tb.Run("Magic", func(tb *testing.T) {
		x, _, err := d.Uint32(Magic, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, uint32(MagicNumber), x)
	})

	tb.Run("VarWidths", func(tb *testing.T) {
		b = e.Int64(b[:0], -3)

		i7, i, err := d.VarInt7(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, len(b), i)
		assert.Equal(tb, int8(-3), i7)

		b = e.Int64(b[:0], -1000)

		i16, i, err := d.VarInt16(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, len(b), i)
		assert.Equal(tb, int16(-1000), i16)

		b = e.Int64(b[:0], -1<<40)

		i64, i, err := d.VarInt64(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, len(b), i)
		assert.Equal(tb, int64(-1<<40), i64)

		b = e.Uint64(b[:0], 1<<50)

		u64, i, err := d.VarUint64(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, len(b), i)
		assert.Equal(tb, uint64(1<<50), u64)

		b = e.Uint64(b[:0], 1)

		u1, i, err := d.VarUint1(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, 1, i)
		assert.Equal(tb, uint8(1), u1)
	})

	tb.Run("Name", func(tb *testing.T) {
		for _, x := range []string{"", "1", "a", "1qaz", "env"} {
			b = e.Name(b[:0], x)

			y, i, err := d.NameString(b, 0)
			assert.NoError(tb, err)
			assert.Equal(tb, len(b), i)
			assert.Equal(tb, x, y)
		}

		// bytes are single-byte characters, not utf-8
		b = e.Int(b[:0], 2)
		b = append(b, 0xc3, 0xa9)

		y, _, err := d.NameString(b, 0)
		assert.NoError(tb, err)
		assert.Equal(tb, "Ã©", y)

		b = e.Int(b[:0], 5)
		b = append(b, 'a')

		_, i, err := d.Name(b, 0)
		assert.ErrorIs(tb, err, ErrOutOfBounds)
		assert.Equal(tb, 0, i)
	})

	tb.Run("ValueType", func(tb *testing.T) {
		for _, x := range []ValueType{I32, I64, F32, F64} {
			y, i, err := d.ValueType([]byte{byte(x)}, 0)
			assert.NoError(tb, err)
			assert.Equal(tb, 1, i)
			assert.Equal(tb, x, y)
		}

		for _, x := range []byte{0x00, 0x40, 0x60, 0x70, 0x7b} {
			_, _, err := d.ValueType([]byte{x}, 0)
			assert.ErrorIs(tb, err, ErrInvalidTag, "0x%02x", x)

			var te InvalidTagError
			if assert.True(tb, errors.As(err, &te)) {
				assert.Equal(tb, "value_type", te.Production)
				assert.Equal(tb, x, te.Tag)
			}
		}
	})

	tb.Run("BlockType", func(tb *testing.T) {
		for _, x := range []BlockType{BlockI32, BlockI64, BlockF32, BlockF64, AnyFunc, FuncHeader, Empty} {
			y, i, err := d.BlockType([]byte{byte(x)}, 0)
			assert.NoError(tb, err)
			assert.Equal(tb, 1, i)
			assert.Equal(tb, x, y)
		}

		_, _, err := d.BlockType([]byte{0x7b}, 0)
		assert.ErrorIs(tb, err, ErrInvalidTag)

		_, _, err = d.ElemType([]byte{0x6f}, 0)
		assert.ErrorIs(tb, err, ErrInvalidTag)

		_, _, err = d.ExternalKind([]byte{0x04}, 0)
		assert.ErrorIs(tb, err, ErrInvalidTag)
	})

	tb.Run("Limits", func(tb *testing.T) {
		for _, x := range [][2]int{
			{0, -1},
			{1, -1},
			{0, 0},
			{0, 4},
			{1, 65536},
		} {
			b = e.Limits(b[:0], x[0], x[1])

			l, i, err := d.Limits(b, 0)
			assert.NoError(tb, err)
			assert.Equal(tb, len(b), i)
			assert.Equal(tb, x, [2]int{int(l.Lo), int(l.Hi)})
			assert.Equal(tb, x[1] >= 0, l.HasMax())
		}

		_, _, err := d.Limits([]byte{0x01, 0x01}, 0)
		assert.ErrorIs(tb, err, ErrOutOfBounds)

		// flags is varuint1: only 0 and 1 are valid
		_, i, err := d.Limits([]byte{0x02, 0x01, 0x05}, 0)
		assert.ErrorIs(tb, err, ErrInvalidTag)
		assert.Equal(tb, 0, i)

		var te InvalidTagError
		if assert.True(tb, errors.As(err, &te)) {
			assert.Equal(tb, "resizable_limits", te.Production)
			assert.Equal(tb, byte(0x02), te.Tag)
		}
	})
}

func TestFormatUint(tb *testing.T) {
	assert.Equal(tb, "0x0A", FormatUint8(10))
	assert.Equal(tb, "0x00FF", FormatUint16(255))
	assert.Equal(tb, "0x6D736100", FormatUint32(MagicNumber))
}

func TestInvalidTagErrorMessage(tb *testing.T) {
	err := InvalidTagError{Production: "elem_type", Tag: 0x6f, Offset: 0x10}

	require.EqualError(tb, err, "invalid elem_type tag: 0x6f at pos 0x10")
}
