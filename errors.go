package wasm

import (
	stderrors "errors"
	"fmt"
)

type (
	InvalidTagError struct {
		Production string
		Tag        byte
		Offset     int
	}

	InvalidOpcodeError struct {
		Opcode Opcode
		Offset int
	}
)

var (
	ErrOutOfBounds        = stderrors.New("out of bounds")
	ErrInvalidTag         = stderrors.New("invalid tag")
	ErrInvalidOpcode      = stderrors.New("invalid opcode")
	ErrMalformedBody      = stderrors.New("malformed body")
	ErrBadMagic           = stderrors.New("magic mismatch")
	ErrUnsupportedVersion = stderrors.New("unsupported binary format version")
)

func (e InvalidTagError) Error() string {
	return fmt.Sprintf("invalid %s tag: 0x%02x at pos 0x%x", e.Production, e.Tag, e.Offset)
}

func (e InvalidTagError) Is(target error) bool { return target == ErrInvalidTag }

func (e InvalidOpcodeError) Error() string {
	return fmt.Sprintf("invalid opcode: 0x%02x at pos 0x%x", byte(e.Opcode), e.Offset)
}

func (e InvalidOpcodeError) Is(target error) bool { return target == ErrInvalidOpcode }
