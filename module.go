package wasm

import (
	"fmt"

	"tlog.app/go/tlog/tlwire"
)

type (
	Module struct {
		Magic   uint32
		Version uint32

		Sections []Section
	}

	Section struct {
		ID SectionID

		// Size is the declared payload length.
		// Consumed is what the payload decoder actually read.
		Size     int
		Consumed int

		Payload Payload
	}

	SectionID  byte
	SectionIDs []SectionID

	Index        uint32
	ValueType    byte
	BlockType    byte
	ExternalKind byte

	ResultType []ValueType
	Expr       []Instruction

	// Payload is one of the *XxxSection types.
	Payload interface {
		payload()
	}

	TypeSection struct {
		Entries []FuncType
	}

	ImportSection struct {
		Entries []Import
	}

	FunctionSection struct {
		Types []Index
	}

	TableSection struct {
		Entries []TableType
	}

	MemorySection struct {
		Entries []MemoryType
	}

	GlobalSection struct {
		Globals []Global
	}

	ExportSection struct {
		Entries []Export
	}

	StartSection struct {
		Index Index
	}

	ElementSection struct {
		Entries []Element
	}

	CodeSection struct {
		Bodies []FuncBody
	}

	DataSection struct {
		Entries []Data
	}

	CustomSection struct {
		Name string
		Data []byte
	}

	FuncType struct {
		Params ResultType
		Result ResultType
	}

	Limits struct {
		Flags uint32

		// Hi is -1 if maximum is not set.
		Lo, Hi int64
	}

	// ImportDesc is one of FuncImport, TableType, MemoryType, GlobalType.
	ImportDesc interface {
		Kind() ExternalKind
	}

	FuncImport struct {
		Type Index
	}

	TableType struct {
		Elem   BlockType
		Limits Limits
	}

	MemoryType struct {
		Limits Limits
	}

	GlobalType struct {
		Type    ValueType
		Mutable bool
	}

	Import struct {
		Module string
		Field  string
		Kind   ExternalKind
		Desc   ImportDesc
	}

	Export struct {
		Field string
		Kind  ExternalKind
		Index Index
	}

	Global struct {
		Type GlobalType
		Init Expr
	}

	Element struct {
		Table  Index
		Offset Expr
		Funcs  []Index
	}

	Data struct {
		Memory Index
		Offset Expr
		Init   []byte
	}

	Local struct {
		Count uint32
		Type  ValueType
	}

	FuncBody struct {
		Size   int
		Locals []Local

		// Code excludes the terminal end.
		Code Expr
	}
)

var Magic = []byte("\000asm")

const (
	MagicNumber = 0x6d736100

	SupportedVersion = 1
)

// Basic types.
const (
	I32 ValueType = 0x7f
	I64 ValueType = 0x7e
	F32 ValueType = 0x7d
	F64 ValueType = 0x7c
)

// Block types. Value types are valid block types too.
const (
	BlockI32 BlockType = 0x7f
	BlockI64 BlockType = 0x7e
	BlockF32 BlockType = 0x7d
	BlockF64 BlockType = 0x7c

	AnyFunc    BlockType = 0x70
	FuncHeader BlockType = 0x60
	Empty      BlockType = 0x40
)

// External kinds.
const (
	KindFunction ExternalKind = iota
	KindTable
	KindMemory
	KindGlobal
)

// Section ids. Anything else decodes as a custom section.
const (
	CustomSectionID SectionID = iota
	TypeSectionID
	ImportSectionID
	FunctionSectionID
	TableSectionID
	MemorySectionID
	GlobalSectionID
	ExportSectionID
	StartSectionID
	ElementSectionID
	CodeSectionID
	DataSectionID

	sectionNext
)

func init() {
	if sectionNext != 12 {
		panic(sectionNext)
	}
}

// Section returns the first section with the given id or nil.
func (m *Module) Section(id SectionID) *Section {
	for i := range m.Sections {
		if m.Sections[i].ID == id {
			return &m.Sections[i]
		}
	}

	return nil
}

// IDs lists section ids in the order they appear.
func (m *Module) IDs() SectionIDs {
	r := make(SectionIDs, len(m.Sections))

	for i, s := range m.Sections {
		r[i] = s.ID
	}

	return r
}

func (*TypeSection) payload()     {}
func (*ImportSection) payload()   {}
func (*FunctionSection) payload() {}
func (*TableSection) payload()    {}
func (*MemorySection) payload()   {}
func (*GlobalSection) payload()   {}
func (*ExportSection) payload()   {}
func (*StartSection) payload()    {}
func (*ElementSection) payload()  {}
func (*CodeSection) payload()     {}
func (*DataSection) payload()     {}
func (*CustomSection) payload()   {}

func (FuncImport) Kind() ExternalKind { return KindFunction }
func (TableType) Kind() ExternalKind  { return KindTable }
func (MemoryType) Kind() ExternalKind { return KindMemory }
func (GlobalType) Kind() ExternalKind { return KindGlobal }

func (l Limits) HasMax() bool { return l.Hi >= 0 }

func (id SectionID) Known() bool {
	return id > CustomSectionID && id < sectionNext
}

func (id SectionID) String() string {
	if id.Known() {
		return sectionNames[id]
	}

	return fmt.Sprintf("custom(%d)", byte(id))
}

var sectionNames = [...]string{
	TypeSectionID:     "type",
	ImportSectionID:   "import",
	FunctionSectionID: "function",
	TableSectionID:    "table",
	MemorySectionID:   "memory",
	GlobalSectionID:   "global",
	ExportSectionID:   "export",
	StartSectionID:    "start",
	ElementSectionID:  "element",
	CodeSectionID:     "code",
	DataSectionID:     "data",
}

func (tp ValueType) String() string {
	switch tp {
	case I32:
		return "i32"
	case I64:
		return "i64"
	case F32:
		return "f32"
	case F64:
		return "f64"
	}

	return fmt.Sprintf("valtype(0x%02x)", byte(tp))
}

func (tp BlockType) String() string {
	switch tp {
	case AnyFunc:
		return "anyfunc"
	case FuncHeader:
		return "func"
	case Empty:
		return "empty"
	}

	return ValueType(tp).String()
}

func (k ExternalKind) String() string {
	switch k {
	case KindFunction:
		return "Function"
	case KindTable:
		return "Table"
	case KindMemory:
		return "Memory"
	case KindGlobal:
		return "Global"
	}

	return fmt.Sprintf("kind(%d)", byte(k))
}

func (tp ResultType) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendArray(b, len(tp))

	for _, t := range tp {
		b = e.AppendString(b, t.String())
	}

	return b
}

func (c Expr) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendArray(b, len(c))

	for _, x := range c {
		b = e.AppendString(b, x.String())
	}

	return b
}

func (ids SectionIDs) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendSemantic(b, tlwire.Hex)
	b = e.AppendArray(b, len(ids))

	for _, id := range ids {
		b = e.AppendInt(b, int(id))
	}

	return b
}
