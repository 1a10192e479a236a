package wasm

import (
	"fmt"

	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	InstructionsDecoder struct {
		LowDecoder
	}

	Opcode byte

	Instruction struct {
		Op  Opcode
		Imm Immediate
	}

	// Immediate is one of the XxxImm types.
	// Operators with no immediates have it nil.
	Immediate interface {
		imm()
	}

	BlockImm struct {
		Type BlockType
	}

	// IndexImm is a label, function, local or global index.
	IndexImm struct {
		Index uint32
	}

	BrTableImm struct {
		Targets []uint32
		Default uint32
	}

	CallIndirectImm struct {
		Type     uint32
		Reserved uint8
	}

	MemImm struct {
		Flags  uint32
		Offset uint32
	}

	ReservedImm struct {
		Reserved uint8
	}

	I32Imm struct {
		Value int32
	}

	I64Imm struct {
		Value int64
	}

	// F32Imm and F64Imm keep the raw bit pattern.
	F32Imm struct {
		Bits uint32
	}

	F64Imm struct {
		Bits uint64
	}

	immKind byte

	opInfo struct {
		name string
		imm  immKind
	}
)

const (
	immNone immKind = iota
	immBlock
	immIndex
	immBrTable
	immCallIndirect
	immMem
	immReserved
	immI32
	immI64
	immF32
	immF64
)

// Opcodes
const (
	Unreachable Opcode = 0x00
	Nop         Opcode = 0x01

	Block   Opcode = 0x02
	Loop    Opcode = 0x03
	If      Opcode = 0x04
	Else    Opcode = 0x05
	End     Opcode = 0x0b
	Br      Opcode = 0x0c
	BrIf    Opcode = 0x0d
	BrTable Opcode = 0x0e
	Ret     Opcode = 0x0f

	Call      Opcode = 0x10
	CallIndir Opcode = 0x11

	Drop   Opcode = 0x1a
	Select Opcode = 0x1b

	LocalGet  Opcode = 0x20
	LocalSet  Opcode = 0x21
	LocalTee  Opcode = 0x22
	GlobalGet Opcode = 0x23
	GlobalSet Opcode = 0x24

	I32Load    Opcode = 0x28
	I64Load    Opcode = 0x29
	F32Load    Opcode = 0x2a
	F64Load    Opcode = 0x2b
	I32Load8S  Opcode = 0x2c
	I32Load8U  Opcode = 0x2d
	I32Load16S Opcode = 0x2e
	I32Load16U Opcode = 0x2f
	I64Load8S  Opcode = 0x30
	I64Load8U  Opcode = 0x31
	I64Load16S Opcode = 0x32
	I64Load16U Opcode = 0x33
	I64Load32S Opcode = 0x34
	I64Load32U Opcode = 0x35
	I32Store   Opcode = 0x36
	I64Store   Opcode = 0x37
	F32Store   Opcode = 0x38
	F64Store   Opcode = 0x39
	I32Store8  Opcode = 0x3a
	I32Store16 Opcode = 0x3b
	I64Store8  Opcode = 0x3c
	I64Store16 Opcode = 0x3d
	I64Store32 Opcode = 0x3e

	MemorySize Opcode = 0x3f
	MemoryGrow Opcode = 0x40

	I32Const Opcode = 0x41
	I64Const Opcode = 0x42
	F32Const Opcode = 0x43
	F64Const Opcode = 0x44

	I32EqZ Opcode = 0x45
	I32Eq  Opcode = 0x46
	I32Ne  Opcode = 0x47
	I32LtS Opcode = 0x48
	I32LtU Opcode = 0x49
	I32GtS Opcode = 0x4a
	I32GtU Opcode = 0x4b
	I32LeS Opcode = 0x4c
	I32LeU Opcode = 0x4d
	I32GeS Opcode = 0x4e
	I32GeU Opcode = 0x4f

	I64EqZ Opcode = 0x50
	I64Eq  Opcode = 0x51
	I64Ne  Opcode = 0x52
	I64LtS Opcode = 0x53
	I64LtU Opcode = 0x54
	I64GtS Opcode = 0x55
	I64GtU Opcode = 0x56
	I64LeS Opcode = 0x57
	I64LeU Opcode = 0x58
	I64GeS Opcode = 0x59
	I64GeU Opcode = 0x5a

	F32Eq Opcode = 0x5b
	F32Ne Opcode = 0x5c
	F32Lt Opcode = 0x5d
	F32Gt Opcode = 0x5e
	F32Le Opcode = 0x5f
	F32Ge Opcode = 0x60

	F64Eq Opcode = 0x61
	F64Ne Opcode = 0x62
	F64Lt Opcode = 0x63
	F64Gt Opcode = 0x64
	F64Le Opcode = 0x65
	F64Ge Opcode = 0x66

	I32Clz    Opcode = 0x67
	I32Ctz    Opcode = 0x68
	I32Popcnt Opcode = 0x69
	I32Add    Opcode = 0x6a
	I32Sub    Opcode = 0x6b
	I32Mul    Opcode = 0x6c
	I32DivS   Opcode = 0x6d
	I32DivU   Opcode = 0x6e
	I32RemS   Opcode = 0x6f
	I32RemU   Opcode = 0x70
	I32And    Opcode = 0x71
	I32Or     Opcode = 0x72
	I32Xor    Opcode = 0x73
	I32Shl    Opcode = 0x74
	I32ShrS   Opcode = 0x75
	I32ShrU   Opcode = 0x76
	I32RotL   Opcode = 0x77
	I32RotR   Opcode = 0x78

	I64Clz    Opcode = 0x79
	I64Ctz    Opcode = 0x7a
	I64Popcnt Opcode = 0x7b
	I64Add    Opcode = 0x7c
	I64Sub    Opcode = 0x7d
	I64Mul    Opcode = 0x7e
	I64DivS   Opcode = 0x7f
	I64DivU   Opcode = 0x80
	I64RemS   Opcode = 0x81
	I64RemU   Opcode = 0x82
	I64And    Opcode = 0x83
	I64Or     Opcode = 0x84
	I64Xor    Opcode = 0x85
	I64Shl    Opcode = 0x86
	I64ShrS   Opcode = 0x87
	I64ShrU   Opcode = 0x88
	I64RotL   Opcode = 0x89
	I64RotR   Opcode = 0x8a

	F32Abs      Opcode = 0x8b
	F32Neg      Opcode = 0x8c
	F32Ceil     Opcode = 0x8d
	F32Floor    Opcode = 0x8e
	F32Trunc    Opcode = 0x8f
	F32Near     Opcode = 0x90
	F32Sqrt     Opcode = 0x91
	F32Add      Opcode = 0x92
	F32Sub      Opcode = 0x93
	F32Mul      Opcode = 0x94
	F32Div      Opcode = 0x95
	F32Min      Opcode = 0x96
	F32Max      Opcode = 0x97
	F32CopySign Opcode = 0x98

	F64Abs      Opcode = 0x99
	F64Neg      Opcode = 0x9a
	F64Ceil     Opcode = 0x9b
	F64Floor    Opcode = 0x9c
	F64Trunc    Opcode = 0x9d
	F64Near     Opcode = 0x9e
	F64Sqrt     Opcode = 0x9f
	F64Add      Opcode = 0xa0
	F64Sub      Opcode = 0xa1
	F64Mul      Opcode = 0xa2
	F64Div      Opcode = 0xa3
	F64Min      Opcode = 0xa4
	F64Max      Opcode = 0xa5
	F64CopySign Opcode = 0xa6

	I32WrapI64        Opcode = 0xa7
	I32TruncSF32      Opcode = 0xa8
	I32TruncUF32      Opcode = 0xa9
	I32TruncSF64      Opcode = 0xaa
	I32TruncUF64      Opcode = 0xab
	I64ExtendSI32     Opcode = 0xac
	I64ExtendUI32     Opcode = 0xad
	I64TruncSF32      Opcode = 0xae
	I64TruncUF32      Opcode = 0xaf
	I64TruncSF64      Opcode = 0xb0
	I64TruncUF64      Opcode = 0xb1
	F32ConvertSI32    Opcode = 0xb2
	F32ConvertUI32    Opcode = 0xb3
	F32ConvertSI64    Opcode = 0xb4
	F32ConvertUI64    Opcode = 0xb5
	F32DemoteF64      Opcode = 0xb6
	F64ConvertSI32    Opcode = 0xb7
	F64ConvertUI32    Opcode = 0xb8
	F64ConvertSI64    Opcode = 0xb9
	F64ConvertUI64    Opcode = 0xba
	F64PromoteF32     Opcode = 0xbb
	I32ReinterpretF32 Opcode = 0xbc
	I64ReinterpretF64 Opcode = 0xbd
	F32ReinterpretI32 Opcode = 0xbe
	F64ReinterpretI64 Opcode = 0xbf
)

// Instruction decodes one instruction with its immediates.
func (d *InstructionsDecoder) Instruction(b []byte, st int) (x Instruction, i int, err error) {
	op, i, err := d.Byte(b, st)
	if err != nil {
		return x, st, err
	}

	x.Op = Opcode(op)

	info := opTable[op]
	if info.name == "" {
		return x, st, InvalidOpcodeError{Opcode: x.Op, Offset: st}
	}

	switch info.imm {
	case immNone:
	case immBlock:
		var tp BlockType

		tp, i, err = d.BlockType(b, i)
		x.Imm = BlockImm{Type: tp}
	case immIndex:
		var idx uint32

		idx, i, err = d.VarUint32(b, i)
		x.Imm = IndexImm{Index: idx}
	case immBrTable:
		x.Imm, i, err = d.brTable(b, i)
	case immCallIndirect:
		var imm CallIndirectImm

		imm.Type, i, err = d.VarUint32(b, i)
		if err != nil {
			break
		}

		imm.Reserved, i, err = d.VarUint1(b, i)
		x.Imm = imm
	case immMem:
		var imm MemImm

		imm.Flags, i, err = d.VarUint32(b, i)
		if err != nil {
			break
		}

		imm.Offset, i, err = d.VarUint32(b, i)
		x.Imm = imm
	case immReserved:
		var r uint8

		r, i, err = d.VarUint1(b, i)
		x.Imm = ReservedImm{Reserved: r}
	case immI32:
		var v int32

		v, i, err = d.VarInt32(b, i)
		x.Imm = I32Imm{Value: v}
	case immI64:
		var v int64

		v, i, err = d.VarInt64(b, i)
		x.Imm = I64Imm{Value: v}
	case immF32:
		var v uint32

		v, i, err = d.Uint32(b, i)
		x.Imm = F32Imm{Bits: v}
	case immF64:
		var v uint64

		v, i, err = d.Uint64(b, i)
		x.Imm = F64Imm{Bits: v}
	}

	if err != nil {
		return Instruction{Op: x.Op}, st, errors.Wrap(err, "%v at pos 0x%x", x.Op, st)
	}

	if l := tlog.V("opcode"); l != nil {
		l.Printw("opcode", "i", tlog.NextAsHex, st, "op", x.Op, "code", tlog.NextAsHex, b[st:i])
	}

	return x, i, nil
}

func (d *InstructionsDecoder) brTable(b []byte, st int) (imm BrTableImm, i int, err error) {
	l, i, err := d.Int(b, st)
	if err != nil {
		return imm, st, errors.Wrap(err, "target count")
	}

	// each target takes at least one byte
	if l > len(b)-i {
		return imm, st, ErrOutOfBounds
	}

	imm.Targets = make([]uint32, l)

	for j := range imm.Targets {
		imm.Targets[j], i, err = d.VarUint32(b, i)
		if err != nil {
			return imm, st, errors.Wrap(err, "target %d", j)
		}
	}

	imm.Default, i, err = d.VarUint32(b, i)
	if err != nil {
		return imm, st, errors.Wrap(err, "default target")
	}

	return imm, i, nil
}

// Expr decodes instructions up to and including the first end.
// Nested blocks are not tracked: an init expression is flat.
func (d *InstructionsDecoder) Expr(b []byte, st int) (code Expr, i int, err error) {
	i = st

	for {
		var x Instruction

		x, i, err = d.Instruction(b, i)
		if err != nil {
			return nil, st, err
		}

		code = append(code, x)

		if x.Op == End {
			return code, i, nil
		}
	}
}

func (op Opcode) Valid() bool { return opTable[op].name != "" }

func (op Opcode) String() string {
	if n := opTable[op].name; n != "" {
		return n
	}

	return fmt.Sprintf("%02x", byte(op))
}

func (BlockImm) imm()        {}
func (IndexImm) imm()        {}
func (BrTableImm) imm()      {}
func (CallIndirectImm) imm() {}
func (MemImm) imm()          {}
func (ReservedImm) imm()     {}
func (I32Imm) imm()          {}
func (I64Imm) imm()          {}
func (F32Imm) imm()          {}
func (F64Imm) imm()          {}

var opTable = [256]opInfo{
	Unreachable: {"unreachable", immNone},
	Nop:         {"nop", immNone},

	Block:   {"block", immBlock},
	Loop:    {"loop", immBlock},
	If:      {"if", immBlock},
	Else:    {"else", immNone},
	End:     {"end", immNone},
	Br:      {"br", immIndex},
	BrIf:    {"br_if", immIndex},
	BrTable: {"br_table", immBrTable},
	Ret:     {"return", immNone},

	Call:      {"call", immIndex},
	CallIndir: {"call_indirect", immCallIndirect},

	Drop:   {"drop", immNone},
	Select: {"select", immNone},

	LocalGet:  {"get_local", immIndex},
	LocalSet:  {"set_local", immIndex},
	LocalTee:  {"tee_local", immIndex},
	GlobalGet: {"get_global", immIndex},
	GlobalSet: {"set_global", immIndex},

	I32Load:    {"i32.load", immMem},
	I64Load:    {"i64.load", immMem},
	F32Load:    {"f32.load", immMem},
	F64Load:    {"f64.load", immMem},
	I32Load8S:  {"i32.load8_s", immMem},
	I32Load8U:  {"i32.load8_u", immMem},
	I32Load16S: {"i32.load16_s", immMem},
	I32Load16U: {"i32.load16_u", immMem},
	I64Load8S:  {"i64.load8_s", immMem},
	I64Load8U:  {"i64.load8_u", immMem},
	I64Load16S: {"i64.load16_s", immMem},
	I64Load16U: {"i64.load16_u", immMem},
	I64Load32S: {"i64.load32_s", immMem},
	I64Load32U: {"i64.load32_u", immMem},
	I32Store:   {"i32.store", immMem},
	I64Store:   {"i64.store", immMem},
	F32Store:   {"f32.store", immMem},
	F64Store:   {"f64.store", immMem},
	I32Store8:  {"i32.store8", immMem},
	I32Store16: {"i32.store16", immMem},
	I64Store8:  {"i64.store8", immMem},
	I64Store16: {"i64.store16", immMem},
	I64Store32: {"i64.store32", immMem},

	MemorySize: {"current_memory", immReserved},
	MemoryGrow: {"grow_memory", immReserved},

	I32Const: {"i32.const", immI32},
	I64Const: {"i64.const", immI64},
	F32Const: {"f32.const", immF32},
	F64Const: {"f64.const", immF64},

	I32EqZ: {"i32.eqz", immNone},
	I32Eq:  {"i32.eq", immNone},
	I32Ne:  {"i32.ne", immNone},
	I32LtS: {"i32.lt_s", immNone},
	I32LtU: {"i32.lt_u", immNone},
	I32GtS: {"i32.gt_s", immNone},
	I32GtU: {"i32.gt_u", immNone},
	I32LeS: {"i32.le_s", immNone},
	I32LeU: {"i32.le_u", immNone},
	I32GeS: {"i32.ge_s", immNone},
	I32GeU: {"i32.ge_u", immNone},

	I64EqZ: {"i64.eqz", immNone},
	I64Eq:  {"i64.eq", immNone},
	I64Ne:  {"i64.ne", immNone},
	I64LtS: {"i64.lt_s", immNone},
	I64LtU: {"i64.lt_u", immNone},
	I64GtS: {"i64.gt_s", immNone},
	I64GtU: {"i64.gt_u", immNone},
	I64LeS: {"i64.le_s", immNone},
	I64LeU: {"i64.le_u", immNone},
	I64GeS: {"i64.ge_s", immNone},
	I64GeU: {"i64.ge_u", immNone},

	F32Eq: {"f32.eq", immNone},
	F32Ne: {"f32.ne", immNone},
	F32Lt: {"f32.lt", immNone},
	F32Gt: {"f32.gt", immNone},
	F32Le: {"f32.le", immNone},
	F32Ge: {"f32.ge", immNone},

	F64Eq: {"f64.eq", immNone},
	F64Ne: {"f64.ne", immNone},
	F64Lt: {"f64.lt", immNone},
	F64Gt: {"f64.gt", immNone},
	F64Le: {"f64.le", immNone},
	F64Ge: {"f64.ge", immNone},

	I32Clz:    {"i32.clz", immNone},
	I32Ctz:    {"i32.ctz", immNone},
	I32Popcnt: {"i32.popcnt", immNone},
	I32Add:    {"i32.add", immNone},
	I32Sub:    {"i32.sub", immNone},
	I32Mul:    {"i32.mul", immNone},
	I32DivS:   {"i32.div_s", immNone},
	I32DivU:   {"i32.div_u", immNone},
	I32RemS:   {"i32.rem_s", immNone},
	I32RemU:   {"i32.rem_u", immNone},
	I32And:    {"i32.and", immNone},
	I32Or:     {"i32.or", immNone},
	I32Xor:    {"i32.xor", immNone},
	I32Shl:    {"i32.shl", immNone},
	I32ShrS:   {"i32.shr_s", immNone},
	I32ShrU:   {"i32.shr_u", immNone},
	I32RotL:   {"i32.rotl", immNone},
	I32RotR:   {"i32.rotr", immNone},

	I64Clz:    {"i64.clz", immNone},
	I64Ctz:    {"i64.ctz", immNone},
	I64Popcnt: {"i64.popcnt", immNone},
	I64Add:    {"i64.add", immNone},
	I64Sub:    {"i64.sub", immNone},
	I64Mul:    {"i64.mul", immNone},
	I64DivS:   {"i64.div_s", immNone},
	I64DivU:   {"i64.div_u", immNone},
	I64RemS:   {"i64.rem_s", immNone},
	I64RemU:   {"i64.rem_u", immNone},
	I64And:    {"i64.and", immNone},
	I64Or:     {"i64.or", immNone},
	I64Xor:    {"i64.xor", immNone},
	I64Shl:    {"i64.shl", immNone},
	I64ShrS:   {"i64.shr_s", immNone},
	I64ShrU:   {"i64.shr_u", immNone},
	I64RotL:   {"i64.rotl", immNone},
	I64RotR:   {"i64.rotr", immNone},

	F32Abs:      {"f32.abs", immNone},
	F32Neg:      {"f32.neg", immNone},
	F32Ceil:     {"f32.ceil", immNone},
	F32Floor:    {"f32.floor", immNone},
	F32Trunc:    {"f32.trunc", immNone},
	F32Near:     {"f32.nearest", immNone},
	F32Sqrt:     {"f32.sqrt", immNone},
	F32Add:      {"f32.add", immNone},
	F32Sub:      {"f32.sub", immNone},
	F32Mul:      {"f32.mul", immNone},
	F32Div:      {"f32.div", immNone},
	F32Min:      {"f32.min", immNone},
	F32Max:      {"f32.max", immNone},
	F32CopySign: {"f32.copysign", immNone},

	F64Abs:      {"f64.abs", immNone},
	F64Neg:      {"f64.neg", immNone},
	F64Ceil:     {"f64.ceil", immNone},
	F64Floor:    {"f64.floor", immNone},
	F64Trunc:    {"f64.trunc", immNone},
	F64Near:     {"f64.nearest", immNone},
	F64Sqrt:     {"f64.sqrt", immNone},
	F64Add:      {"f64.add", immNone},
	F64Sub:      {"f64.sub", immNone},
	F64Mul:      {"f64.mul", immNone},
	F64Div:      {"f64.div", immNone},
	F64Min:      {"f64.min", immNone},
	F64Max:      {"f64.max", immNone},
	F64CopySign: {"f64.copysign", immNone},

	I32WrapI64:        {"i32.wrap/i64", immNone},
	I32TruncSF32:      {"i32.trunc_s/f32", immNone},
	I32TruncUF32:      {"i32.trunc_u/f32", immNone},
	I32TruncSF64:      {"i32.trunc_s/f64", immNone},
	I32TruncUF64:      {"i32.trunc_u/f64", immNone},
	I64ExtendSI32:     {"i64.extend_s/i32", immNone},
	I64ExtendUI32:     {"i64.extend_u/i32", immNone},
	I64TruncSF32:      {"i64.trunc_s/f32", immNone},
	I64TruncUF32:      {"i64.trunc_u/f32", immNone},
	I64TruncSF64:      {"i64.trunc_s/f64", immNone},
	I64TruncUF64:      {"i64.trunc_u/f64", immNone},
	F32ConvertSI32:    {"f32.convert_s/i32", immNone},
	F32ConvertUI32:    {"f32.convert_u/i32", immNone},
	F32ConvertSI64:    {"f32.convert_s/i64", immNone},
	F32ConvertUI64:    {"f32.convert_u/i64", immNone},
	F32DemoteF64:      {"f32.demote/f64", immNone},
	F64ConvertSI32:    {"f64.convert_s/i32", immNone},
	F64ConvertUI32:    {"f64.convert_u/i32", immNone},
	F64ConvertSI64:    {"f64.convert_s/i64", immNone},
	F64ConvertUI64:    {"f64.convert_u/i64", immNone},
	F64PromoteF32:     {"f64.promote/f32", immNone},
	I32ReinterpretF32: {"i32.reinterpret/f32", immNone},
	I64ReinterpretF64: {"i64.reinterpret/f64", immNone},
	F32ReinterpretI32: {"f32.reinterpret/i32", immNone},
	F64ReinterpretI64: {"f64.reinterpret/i64", immNone},
}
