package wasm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelPositional(tb *testing.T) {
	var e lowEncoder

	// no Function section: type entries are the functions
	b := e.Module(
		e.Section(nil, TypeSectionID, e.Vector(nil, e.FuncType(nil, nil))),
		e.Section(nil, ExportSectionID, e.Vector(nil, append(e.Name(nil, "main"), byte(KindFunction), 0))),
	)

	m, err := Decode(b)
	require.NoError(tb, err)

	md := NewModel(m)

	assert.Equal(tb, uint32(1), md.Version)
	assert.Equal(tb, []ModelExport{{ID: 0, Name: "main", Kind: KindFunction}}, md.Exports)

	require.Len(tb, md.Functions, 1)
	assert.Equal(tb, "$main", md.Functions[0].Name)
	assert.Empty(tb, md.Functions[0].Params)
	assert.Empty(tb, md.Functions[0].Results)
	assert.Empty(tb, md.Functions[0].Instructions)
	assert.False(tb, md.Functions[0].Imported)
}

func TestModelResults(tb *testing.T) {
	var e lowEncoder

	b := e.Module(
		e.Section(nil, TypeSectionID, e.Vector(nil, e.FuncType(nil, []ValueType{I64, F32}, F64))),
		e.Section(nil, FunctionSectionID, e.Vector(nil, []byte{0})),
		e.Section(nil, CodeSectionID, e.Vector(nil, e.Body(nil, nil, 0x44, 0, 0, 0, 0, 0, 0, 0, 0, 0x0b))),
	)

	m, err := Decode(b)
	require.NoError(tb, err)

	for _, md := range []*Model{NewModel(m), NewIndexedModel(m)} {
		require.Len(tb, md.Functions, 1)

		f := md.Functions[0]
		assert.Equal(tb, "", f.Name)
		assert.Equal(tb, ResultType{I64, F32}, f.Params)
		assert.Equal(tb, ResultType{F64}, f.Results)
		assert.Equal(tb, Expr{{Op: F64Const, Imm: F64Imm{}}}, f.Instructions)
	}
}

func TestModelIndexed(tb *testing.T) {
	m, err := Decode(testModuleWithImport())
	require.NoError(tb, err)

	md := NewIndexedModel(m)

	require.Len(tb, md.Functions, 3)

	assert.Equal(tb, Function{
		Name:     "$log",
		Params:   ResultType{I32},
		Imported: true,
	}, md.Functions[0])

	assert.Equal(tb, "$run", md.Functions[1].Name)
	assert.Empty(tb, md.Functions[1].Params)
	assert.False(tb, md.Functions[1].Imported)
	assert.Equal(tb, Expr{
		{Op: I32Const, Imm: I32Imm{Value: 1}},
		{Op: Call, Imm: IndexImm{Index: 0}},
	}, md.Functions[1].Instructions)

	// defined but not exported, and no body for it
	assert.Equal(tb, "", md.Functions[2].Name)
	assert.Equal(tb, ResultType{I32}, md.Functions[2].Params)
	assert.Nil(tb, md.Functions[2].Instructions)

	// positional view just walks the types
	pos := NewModel(m)

	require.Len(tb, pos.Functions, 2)
	assert.Equal(tb, "$log", pos.Functions[0].Name)
	assert.Equal(tb, ResultType{I32}, pos.Functions[0].Params)
	assert.Equal(tb, md.Functions[1].Instructions, pos.Functions[0].Instructions)
	assert.Equal(tb, "$run", pos.Functions[1].Name)
	assert.Nil(tb, pos.Functions[1].Instructions)
}

func TestModelNoSections(tb *testing.T) {
	var e lowEncoder

	m, err := Decode(e.Module())
	require.NoError(tb, err)

	for _, md := range []*Model{NewModel(m), NewIndexedModel(m)} {
		assert.Empty(tb, md.Exports)
		assert.Empty(tb, md.Functions)
	}
}

func TestModelNonFunctionExports(tb *testing.T) {
	var e lowEncoder

	b := e.Module(
		e.Section(nil, TypeSectionID, e.Vector(nil, e.FuncType(nil, nil))),
		e.Section(nil, ExportSectionID, e.Vector(nil,
			append(e.Name(nil, "mem"), byte(KindMemory), 0),
			append(e.Name(nil, "f"), byte(KindFunction), 0),
		)),
	)

	m, err := Decode(b)
	require.NoError(tb, err)

	md := NewModel(m)

	require.Len(tb, md.Exports, 2)
	assert.Equal(tb, KindMemory, md.Exports[0].Kind)
	assert.Equal(tb, "$f", md.Functions[0].Name)
}

// testModuleWithImport imports log, defines run calling it
// and one more function the Code section has no body for.
func testModuleWithImport() []byte {
	var e lowEncoder

	types := e.Vector(nil,
		e.FuncType(nil, []ValueType{I32}),
		e.FuncType(nil, nil),
	)

	imports := e.Vector(nil,
		append(e.Name(e.Name(nil, "env"), "log"), byte(KindFunction), 0),
	)

	exports := e.Vector(nil,
		append(e.Name(nil, "log"), byte(KindFunction), 0),
		append(e.Name(nil, "run"), byte(KindFunction), 1),
	)

	code := e.Vector(nil, e.Body(nil, nil, 0x41, 0x01, 0x10, 0x00, 0x0b))

	return e.Module(
		e.Section(nil, TypeSectionID, types),
		e.Section(nil, ImportSectionID, imports),
		e.Section(nil, FunctionSectionID, e.Vector(nil, []byte{1}, []byte{0})),
		e.Section(nil, ExportSectionID, exports),
		e.Section(nil, CodeSectionID, code),
	)
}
