package crosscheck

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wasm "nikand.dev/go/wasmtools"
)

func section(id wasm.SectionID, data ...byte) []byte {
	return append([]byte{byte(id), byte(len(data))}, data...)
}

func module(sections ...[]byte) []byte {
	b := append([]byte{}, wasm.Magic...)
	b = append(b, wasm.SupportedVersion, 0, 0, 0)

	for _, s := range sections {
		b = append(b, s...)
	}

	return b
}

// (import "env" "log" (func (param i32)))
// (func (export "add") (param i32 i32) (result i32) local.get 0 local.get 1 i32.add)
// (func (export "zero") (result i64) i64.const 0)
var addModule = module(
	section(wasm.TypeSectionID,
		3,
		0x60, 2, 0x7f, 0x7f, 1, 0x7f,
		0x60, 1, 0x7f, 0,
		0x60, 0, 1, 0x7e,
	),
	section(wasm.ImportSectionID,
		1,
		3, 'e', 'n', 'v', 3, 'l', 'o', 'g', 0x00, 1,
	),
	section(wasm.FunctionSectionID, 2, 0, 2),
	section(wasm.ExportSectionID,
		2,
		3, 'a', 'd', 'd', 0x00, 1,
		4, 'z', 'e', 'r', 'o', 0x00, 2,
	),
	section(wasm.CodeSectionID,
		2,
		7, 0, 0x20, 0, 0x20, 1, 0x6a, 0x0b,
		4, 0, 0x42, 0, 0x0b,
	),
)

func TestModule(tb *testing.T) {
	ms, err := Module(context.Background(), addModule)
	require.NoError(tb, err)
	assert.Empty(tb, ms)
}

func TestModuleDecodeError(tb *testing.T) {
	_, err := Module(context.Background(), []byte("\x00asm\x02\x00\x00\x00"))
	assert.ErrorIs(tb, err, wasm.ErrUnsupportedVersion)
}

func TestModuleCompileError(tb *testing.T) {
	// function refers to a type that doesn't exist
	b := module(
		section(wasm.FunctionSectionID, 1, 5),
		section(wasm.CodeSectionID, 1, 2, 0, 0x0b),
	)

	_, err := Module(context.Background(), b)
	assert.Error(tb, err)
}

func TestPositionalModelDiffers(tb *testing.T) {
	m, err := wasm.Decode(addModule)
	require.NoError(tb, err)

	// the positional view names type entries, not functions
	pos := wasm.NewModel(m)
	idx := wasm.NewIndexedModel(m)

	require.Len(tb, pos.Functions, 3)
	require.Len(tb, idx.Functions, 3)

	assert.Equal(tb, "$add", idx.Functions[1].Name)
	assert.Equal(tb, `[i32 i32]`, types(idx.Functions[1].Params))
	assert.Equal(tb, `[i32]`, types(idx.Functions[1].Results))

	assert.Equal(tb, "$add", pos.Functions[1].Name)
	assert.Equal(tb, `[i32]`, types(pos.Functions[1].Params))
	assert.Equal(tb, `[]`, types(pos.Functions[1].Results))
}

func TestMismatchString(tb *testing.T) {
	m := Mismatch{Export: "add", What: "params", Ours: "[i32]", Theirs: "[i32 i32]"}

	assert.Equal(tb, "add: params: ours [i32], wazero [i32 i32]", m.String())
}
