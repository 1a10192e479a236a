package wasm

import (
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
)

type (
	Decoder struct {
		InstructionsDecoder
	}
)

// Decode is a shortcut for Decoder.Module.
func Decode(b []byte) (*Module, error) {
	var d Decoder

	return d.Module(b)
}

// Module decodes the whole binary.
// It returns either a fully decoded module or the first error.
func (d *Decoder) Module(b []byte) (m *Module, err error) {
	i := 0

	defer func() {
		if err == nil {
			return
		}

		m = nil
		err = errors.Wrap(err, "at pos 0x%x", i)
	}()

	magic, i, err := d.Uint32(b, i)
	if err != nil || magic != MagicNumber {
		return nil, ErrBadMagic
	}

	ver, i, err := d.Uint32(b, i)
	if err != nil {
		return nil, errors.Wrap(err, "version")
	}

	if ver != SupportedVersion {
		return nil, errors.Wrap(ErrUnsupportedVersion, "version %d", ver)
	}

	m = &Module{
		Magic:   magic,
		Version: ver,
	}

	for i < len(b) {
		var s Section

		s, i, err = d.Section(b, i)
		if err != nil {
			return nil, err
		}

		m.Sections = append(m.Sections, s)
	}

	return m, nil
}

// Section decodes a section header and its payload.
// Returned position is always payload start plus declared size.
func (d *Decoder) Section(b []byte, st int) (s Section, i int, err error) {
	id, i, err := d.VarUint7(b, st)
	if err != nil {
		return s, st, errors.Wrap(err, "section id")
	}

	s.ID = SectionID(id)

	s.Size, i, err = d.Int(b, i)
	if err != nil {
		return s, st, errors.Wrap(err, "section %v size", s.ID)
	}

	start := i
	end := start + s.Size

	if end > len(b) {
		return s, st, errors.Wrap(ErrMalformedBody, "section %v: payload size %d exceeds buffer", s.ID, s.Size)
	}

	tlog.V("section").Printw("section", "id", s.ID, "pos", tlog.NextAsHex, st, "size", s.Size)

	// payload decoders see the payload only
	p := b[:end]

	switch s.ID {
	case TypeSectionID:
		s.Payload, i, err = d.TypeSection(p, i)
	case ImportSectionID:
		s.Payload, i, err = d.ImportSection(p, i)
	case FunctionSectionID:
		s.Payload, i, err = d.FunctionSection(p, i)
	case TableSectionID:
		s.Payload, i, err = d.TableSection(p, i)
	case MemorySectionID:
		s.Payload, i, err = d.MemorySection(p, i)
	case GlobalSectionID:
		s.Payload, i, err = d.GlobalSection(p, i)
	case ExportSectionID:
		s.Payload, i, err = d.ExportSection(p, i)
	case StartSectionID:
		s.Payload, i, err = d.StartSection(p, i)
	case ElementSectionID:
		s.Payload, i, err = d.ElementSection(p, i)
	case CodeSectionID:
		s.Payload, i, err = d.CodeSection(p, i)
	case DataSectionID:
		s.Payload, i, err = d.DataSection(p, i)
	default:
		s.Payload, i, err = d.CustomSection(p, i)
	}

	if err != nil {
		return Section{}, st, errors.Wrap(err, "section %v", s.ID)
	}

	s.Consumed = i - start

	if s.Consumed != s.Size {
		tlog.V("section").Printw("section size mismatch", "id", s.ID, "pos", tlog.NextAsHex, start, "size", s.Size, "consumed", s.Consumed)
	}

	return s, end, nil
}

func (d *Decoder) CustomSection(b []byte, st int) (s *CustomSection, i int, err error) {
	name, i, err := d.NameString(b, st)
	if err != nil {
		return nil, st, errors.Wrap(err, "name")
	}

	s = &CustomSection{
		Name: name,
		Data: append([]byte{}, b[i:]...),
	}

	return s, len(b), nil
}

func (d *Decoder) TypeSection(b []byte, st int) (s *TypeSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 1)
	if err != nil {
		return nil, st, err
	}

	s = &TypeSection{Entries: make([]FuncType, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.FuncType(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "type %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) ImportSection(b []byte, st int) (s *ImportSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &ImportSection{Entries: make([]Import, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.Import(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "import %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) FunctionSection(b []byte, st int) (s *FunctionSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 1)
	if err != nil {
		return nil, st, err
	}

	s = &FunctionSection{Types: make([]Index, l)}

	for n := range s.Types {
		var x uint32

		x, i, err = d.VarUint32(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "func %d", n)
		}

		s.Types[n] = Index(x)
	}

	return s, i, nil
}

func (d *Decoder) TableSection(b []byte, st int) (s *TableSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &TableSection{Entries: make([]TableType, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.TableType(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "table %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) MemorySection(b []byte, st int) (s *MemorySection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 2)
	if err != nil {
		return nil, st, err
	}

	s = &MemorySection{Entries: make([]MemoryType, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.MemoryType(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "memory %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) GlobalSection(b []byte, st int) (s *GlobalSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &GlobalSection{Globals: make([]Global, l)}

	for n := range s.Globals {
		s.Globals[n], i, err = d.Global(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "global %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) ExportSection(b []byte, st int) (s *ExportSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &ExportSection{Entries: make([]Export, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.Export(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "export %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) StartSection(b []byte, st int) (s *StartSection, i int, err error) {
	x, i, err := d.VarUint32(b, st)
	if err != nil {
		return nil, st, errors.Wrap(err, "start function")
	}

	return &StartSection{Index: Index(x)}, i, nil
}

func (d *Decoder) ElementSection(b []byte, st int) (s *ElementSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &ElementSection{Entries: make([]Element, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.Element(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "element %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) CodeSection(b []byte, st int) (s *CodeSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 2)
	if err != nil {
		return nil, st, err
	}

	s = &CodeSection{Bodies: make([]FuncBody, l)}

	for n := range s.Bodies {
		s.Bodies[n], i, err = d.FuncBody(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "code %d", n)
		}
	}

	return s, i, nil
}

func (d *Decoder) DataSection(b []byte, st int) (s *DataSection, i int, err error) {
	l, i, err := d.vectorLen(b, st, 3)
	if err != nil {
		return nil, st, err
	}

	s = &DataSection{Entries: make([]Data, l)}

	for n := range s.Entries {
		s.Entries[n], i, err = d.Data(b, i)
		if err != nil {
			return nil, st, errors.Wrap(err, "data %d", n)
		}
	}

	return s, i, nil
}

// vectorLen reads a vector count and checks that the count entries
// of at least minSize bytes each fit into the rest of the payload.
func (d *Decoder) vectorLen(b []byte, st, minSize int) (l, i int, err error) {
	l, i, err = d.Int(b, st)
	if err != nil {
		return 0, st, errors.Wrap(err, "vector length")
	}

	if l > (len(b)-i)/minSize {
		return 0, st, errors.Wrap(ErrMalformedBody, "vector of %d entries does not fit into %d bytes", l, len(b)-i)
	}

	return l, i, nil
}

func (d *Decoder) FuncType(b []byte, st int) (fn FuncType, i int, err error) {
	form, i, err := d.Uint8(b, st)
	if err != nil {
		return fn, st, err
	}

	if BlockType(form) != FuncHeader {
		return fn, st, InvalidTagError{Production: "func_type", Tag: form, Offset: st}
	}

	l, i, err := d.Int(b, i)
	if err != nil {
		return fn, st, errors.Wrap(err, "param count")
	}

	if l > len(b)-i {
		return fn, st, ErrOutOfBounds
	}

	fn.Params = make(ResultType, l)

	for n := range fn.Params {
		fn.Params[n], i, err = d.ValueType(b, i)
		if err != nil {
			return fn, st, errors.Wrap(err, "param %d", n)
		}
	}

	rpos := i

	rl, i, err := d.VarUint1(b, i)
	if err != nil {
		return fn, st, errors.Wrap(err, "return count")
	}

	if rl > 1 {
		return fn, st, InvalidTagError{Production: "func_type return count", Tag: rl, Offset: rpos}
	}

	if rl == 0 {
		return fn, i, nil
	}

	tp, i, err := d.ValueType(b, i)
	if err != nil {
		return fn, st, errors.Wrap(err, "return type")
	}

	fn.Result = ResultType{tp}

	return fn, i, nil
}

func (d *Decoder) TableType(b []byte, st int) (t TableType, i int, err error) {
	t.Elem, i, err = d.ElemType(b, st)
	if err != nil {
		return t, st, err
	}

	t.Limits, i, err = d.Limits(b, i)
	if err != nil {
		return t, st, errors.Wrap(err, "limits")
	}

	return t, i, nil
}

func (d *Decoder) MemoryType(b []byte, st int) (t MemoryType, i int, err error) {
	t.Limits, i, err = d.Limits(b, st)
	if err != nil {
		return t, st, errors.Wrap(err, "limits")
	}

	return t, i, nil
}

func (d *Decoder) GlobalType(b []byte, st int) (t GlobalType, i int, err error) {
	t.Type, i, err = d.ValueType(b, st)
	if err != nil {
		return t, st, err
	}

	mut, i, err := d.VarUint1(b, i)
	if err != nil {
		return t, st, errors.Wrap(err, "mutability")
	}

	t.Mutable = mut != 0

	return t, i, nil
}

// InitExpr decodes an init expression. It's kept as is, not evaluated.
func (d *Decoder) InitExpr(b []byte, st int) (c Expr, i int, err error) {
	return d.Expr(b, st)
}

func (d *Decoder) Import(b []byte, st int) (im Import, i int, err error) {
	im.Module, i, err = d.NameString(b, st)
	if err != nil {
		return im, st, errors.Wrap(err, "module")
	}

	im.Field, i, err = d.NameString(b, i)
	if err != nil {
		return im, st, errors.Wrap(err, "field")
	}

	im.Kind, i, err = d.ExternalKind(b, i)
	if err != nil {
		return im, st, err
	}

	switch im.Kind {
	case KindFunction:
		var x uint32

		x, i, err = d.VarUint32(b, i)
		im.Desc = FuncImport{Type: Index(x)}
	case KindTable:
		im.Desc, i, err = d.TableType(b, i)
	case KindMemory:
		im.Desc, i, err = d.MemoryType(b, i)
	case KindGlobal:
		im.Desc, i, err = d.GlobalType(b, i)
	}

	if err != nil {
		return im, st, errors.Wrap(err, "%v import", im.Kind)
	}

	return im, i, nil
}

func (d *Decoder) Export(b []byte, st int) (ex Export, i int, err error) {
	ex.Field, i, err = d.NameString(b, st)
	if err != nil {
		return ex, st, errors.Wrap(err, "field")
	}

	ex.Kind, i, err = d.ExternalKind(b, i)
	if err != nil {
		return ex, st, err
	}

	idx, i, err := d.VarUint32(b, i)
	if err != nil {
		return ex, st, errors.Wrap(err, "index")
	}

	ex.Index = Index(idx)

	return ex, i, nil
}

func (d *Decoder) Global(b []byte, st int) (g Global, i int, err error) {
	g.Type, i, err = d.GlobalType(b, st)
	if err != nil {
		return g, st, err
	}

	g.Init, i, err = d.InitExpr(b, i)
	if err != nil {
		return g, st, errors.Wrap(err, "init")
	}

	return g, i, nil
}

func (d *Decoder) Element(b []byte, st int) (el Element, i int, err error) {
	idx, i, err := d.VarUint32(b, st)
	if err != nil {
		return el, st, errors.Wrap(err, "table index")
	}

	el.Table = Index(idx)

	el.Offset, i, err = d.InitExpr(b, i)
	if err != nil {
		return el, st, errors.Wrap(err, "offset")
	}

	l, i, err := d.Int(b, i)
	if err != nil {
		return el, st, errors.Wrap(err, "funcs")
	}

	if l > len(b)-i {
		return el, st, ErrOutOfBounds
	}

	el.Funcs = make([]Index, l)

	for n := range el.Funcs {
		idx, i, err = d.VarUint32(b, i)
		if err != nil {
			return el, st, errors.Wrap(err, "func %d", n)
		}

		el.Funcs[n] = Index(idx)
	}

	return el, i, nil
}

func (d *Decoder) Data(b []byte, st int) (x Data, i int, err error) {
	idx, i, err := d.VarUint32(b, st)
	if err != nil {
		return x, st, errors.Wrap(err, "memory index")
	}

	x.Memory = Index(idx)

	x.Offset, i, err = d.InitExpr(b, i)
	if err != nil {
		return x, st, errors.Wrap(err, "offset")
	}

	l, i, err := d.Int(b, i)
	if err != nil {
		return x, st, errors.Wrap(err, "size")
	}

	raw, i, err := d.Bytes(b, i, l)
	if err != nil {
		return x, st, errors.Wrap(err, "init")
	}

	x.Init = append([]byte{}, raw...)

	return x, i, nil
}

func (d *Decoder) Local(b []byte, st int) (l Local, i int, err error) {
	l.Count, i, err = d.VarUint32(b, st)
	if err != nil {
		return l, st, errors.Wrap(err, "count")
	}

	l.Type, i, err = d.ValueType(b, i)
	if err != nil {
		return l, st, err
	}

	return l, i, nil
}

// FuncBody decodes instructions until the body boundary is one byte away.
// The last instruction must be end and must finish exactly at the boundary.
func (d *Decoder) FuncBody(b []byte, st int) (f FuncBody, i int, err error) {
	f.Size, i, err = d.Int(b, st)
	if err != nil {
		return f, st, errors.Wrap(err, "body size")
	}

	start := i
	end := start + f.Size

	if end > len(b) {
		return f, st, errors.Wrap(ErrMalformedBody, "body size %d exceeds section", f.Size)
	}

	l, i, err := d.Int(b, i)
	if err != nil {
		return f, st, errors.Wrap(err, "local count")
	}

	if l > len(b)-i {
		return f, st, ErrOutOfBounds
	}

	f.Locals = make([]Local, l)

	for n := range f.Locals {
		f.Locals[n], i, err = d.Local(b, i)
		if err != nil {
			return f, st, errors.Wrap(err, "local %d", n)
		}
	}

	var x Instruction

	for i-start < f.Size-1 {
		x, i, err = d.Instruction(b, i)
		if err != nil {
			return f, st, err
		}

		f.Code = append(f.Code, x)
	}

	pos := i

	x, i, err = d.Instruction(b, i)
	if err != nil {
		return f, st, err
	}

	if x.Op != End {
		return f, st, errors.Wrap(ErrMalformedBody, "expected end at pos 0x%x, got %v", pos, x.Op)
	}

	if i != end {
		return f, st, errors.Wrap(ErrMalformedBody, "body ends at pos 0x%x, declared 0x%x", i, end)
	}

	return f, i, nil
}
