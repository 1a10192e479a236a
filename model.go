package wasm

type (
	// Model is a view over a decoded Module.
	// It's recomputed on request and never changes the Module.
	Model struct {
		Version uint32

		Exports   []ModelExport
		Functions []Function
	}

	ModelExport struct {
		ID   Index
		Name string
		Kind ExternalKind
	}

	Function struct {
		// Name is "$" + export name, or empty if not exported.
		Name string

		Params  ResultType
		Results ResultType

		// Imported is set for imported functions in the indexed view.
		// They have no body.
		Imported bool

		Instructions Expr
	}
)

// NameMarker prefixes exported function names.
const NameMarker = "$"

// NewModel builds the positional view:
// every Type section entry is a function,
// its body is the Code section body at the same position
// and its name is taken from a Function export with that index.
func NewModel(m *Module) *Model {
	md := &Model{
		Version: m.Version,
		Exports: exports(m),
	}

	s := m.Section(TypeSectionID)
	if s == nil {
		return md
	}

	types := s.Payload.(*TypeSection)

	for n, tp := range types.Entries {
		md.Functions = append(md.Functions, Function{
			Name:         md.functionName(Index(n)),
			Params:       tp.Params,
			Results:      tp.Result,
			Instructions: bodyCode(m, n),
		})
	}

	return md
}

// NewIndexedModel builds the view over the function index space:
// imported functions go first, then Function section entries.
// Bodies are matched to defined functions by their position in the Code section.
func NewIndexedModel(m *Module) *Model {
	md := &Model{
		Version: m.Version,
		Exports: exports(m),
	}

	var types []FuncType

	if s := m.Section(TypeSectionID); s != nil {
		types = s.Payload.(*TypeSection).Entries
	}

	sig := func(idx Index) (FuncType, bool) {
		if int(idx) >= len(types) {
			return FuncType{}, false
		}

		return types[idx], true
	}

	if s := m.Section(ImportSectionID); s != nil {
		for _, im := range s.Payload.(*ImportSection).Entries {
			fi, ok := im.Desc.(FuncImport)
			if !ok {
				continue
			}

			tp, _ := sig(fi.Type)

			md.Functions = append(md.Functions, Function{
				Name:     md.functionName(Index(len(md.Functions))),
				Params:   tp.Params,
				Results:  tp.Result,
				Imported: true,
			})
		}
	}

	if s := m.Section(FunctionSectionID); s != nil {
		for n, tidx := range s.Payload.(*FunctionSection).Types {
			tp, _ := sig(tidx)

			md.Functions = append(md.Functions, Function{
				Name:         md.functionName(Index(len(md.Functions))),
				Params:       tp.Params,
				Results:      tp.Result,
				Instructions: bodyCode(m, n),
			})
		}
	}

	return md
}

func exports(m *Module) (r []ModelExport) {
	s := m.Section(ExportSectionID)
	if s == nil {
		return nil
	}

	for _, e := range s.Payload.(*ExportSection).Entries {
		r = append(r, ModelExport{ID: e.Index, Name: e.Field, Kind: e.Kind})
	}

	return r
}

func (md *Model) functionName(idx Index) string {
	for _, e := range md.Exports {
		if e.Kind == KindFunction && e.ID == idx {
			return NameMarker + e.Name
		}
	}

	return ""
}

func bodyCode(m *Module, n int) Expr {
	s := m.Section(CodeSectionID)
	if s == nil {
		return nil
	}

	bodies := s.Payload.(*CodeSection).Bodies
	if n >= len(bodies) {
		return nil
	}

	return bodies[n].Code
}
