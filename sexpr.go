package wasm

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"tlog.app/go/errors"
)

type (
	// Printer renders a Model as S-expression text.
	// Highlight funcs are optional and wrap the corresponding tokens.
	Printer struct {
		Mnemonic func(string) string
		Name     func(string) string
		Type     func(string) string
	}
)

// Disassemble decodes b and renders its positional model.
func Disassemble(b []byte) (string, error) {
	m, err := Decode(b)
	if err != nil {
		return "", errors.Wrap(err, "decode")
	}

	return NewModel(m).SExpr(), nil
}

func (md *Model) SExpr() string {
	var p Printer

	return string(p.AppendSExpr(nil, md))
}

func (md *Model) WriteSExpr(w io.Writer) error {
	var p Printer

	_, err := w.Write(p.AppendSExpr(nil, md))

	return err
}

func (p *Printer) WriteSExpr(w io.Writer, md *Model) error {
	_, err := w.Write(p.AppendSExpr(nil, md))

	return err
}

// AppendSExpr appends module text to b.
// Closing parens go right after the last line of the func and of the module.
func (p *Printer) AppendSExpr(b []byte, md *Model) []byte {
	b = append(b, "(module"...)

	for _, e := range md.Exports {
		b = fmt.Appendf(b, "\n  (export \"%s\" (%s %s))", e.Name, e.Kind, p.hl(p.Name, NameMarker+e.Name))
	}

	for _, f := range md.Functions {
		b = append(b, "\n  ("...)
		b = append(b, p.hl(p.Mnemonic, "func")...)

		if f.Name != "" {
			b = append(b, ' ')
			b = append(b, p.hl(p.Name, f.Name)...)
		}

		b = p.appendTypes(b, "param", f.Params)
		b = p.appendTypes(b, "result", f.Results)

		for _, x := range f.Instructions {
			b = append(b, "\n    ("...)
			b = p.appendInstruction(b, x)
			b = append(b, ')')
		}

		b = append(b, ')')
	}

	b = append(b, ")\n"...)

	return b
}

func (p *Printer) appendTypes(b []byte, kw string, tps ResultType) []byte {
	if len(tps) == 0 {
		return b
	}

	b = append(b, " ("...)
	b = append(b, kw...)

	for _, tp := range tps {
		b = append(b, ' ')
		b = append(b, p.hl(p.Type, tp.String())...)
	}

	return append(b, ')')
}

func (p *Printer) appendInstruction(b []byte, x Instruction) []byte {
	b = append(b, p.hl(p.Mnemonic, x.Op.String())...)

	if x.Imm == nil {
		return b
	}

	b = append(b, ' ')

	return appendImm(b, x.Imm)
}

func (p *Printer) hl(f func(string) string, s string) string {
	if f == nil {
		return s
	}

	return f(s)
}

// String renders the mnemonic followed by immediates.
func (x Instruction) String() string {
	b := []byte(x.Op.String())

	if x.Imm != nil {
		b = append(b, ' ')
		b = appendImm(b, x.Imm)
	}

	return string(b)
}

func appendImm(b []byte, imm Immediate) []byte {
	switch imm := imm.(type) {
	case BlockImm:
		return append(b, imm.Type.String()...)
	case IndexImm:
		return strconv.AppendUint(b, uint64(imm.Index), 10)
	case BrTableImm:
		b = append(b, '[')

		for j, t := range imm.Targets {
			if j != 0 {
				b = append(b, ' ')
			}

			b = strconv.AppendUint(b, uint64(t), 10)
		}

		b = append(b, "] "...)

		return strconv.AppendUint(b, uint64(imm.Default), 10)
	case CallIndirectImm:
		return fmt.Appendf(b, "%d %d", imm.Type, imm.Reserved)
	case MemImm:
		return fmt.Appendf(b, "{flags=%d offset=%d}", imm.Flags, imm.Offset)
	case ReservedImm:
		return strconv.AppendUint(b, uint64(imm.Reserved), 10)
	case I32Imm:
		return strconv.AppendInt(b, int64(imm.Value), 10)
	case I64Imm:
		return strconv.AppendInt(b, imm.Value, 10)
	case F32Imm:
		return strconv.AppendFloat(b, float64(math.Float32frombits(imm.Bits)), 'g', -1, 32)
	case F64Imm:
		return strconv.AppendFloat(b, math.Float64frombits(imm.Bits), 'g', -1, 64)
	}

	panic(imm)
}

func FormatUint8(v uint8) string {
	return fmt.Sprintf("0x%02X", v)
}

func FormatUint16(v uint16) string {
	return fmt.Sprintf("0x%04X", v)
}

func FormatUint32(v uint32) string {
	return fmt.Sprintf("0x%08X", v)
}
