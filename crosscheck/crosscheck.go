// Package crosscheck compares a decoded module against wazero's view of the same binary.
package crosscheck

import (
	"context"
	"fmt"
	"sort"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	wasm "nikand.dev/go/wasmtools"
)

type (
	Mismatch struct {
		Export string
		What   string

		Ours   string
		Theirs string
	}
)

// Module decodes b with both decoders and lists exported functions
// whose index or signature differ.
// The indexed model is used, as wazero follows the function index space.
func Module(ctx context.Context, b []byte) (ms []Mismatch, err error) {
	m, err := wasm.Decode(b)
	if err != nil {
		return nil, errors.Wrap(err, "decode")
	}

	md := wasm.NewIndexedModel(m)

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfigInterpreter())
	defer func() {
		e := rt.Close(ctx)
		if err == nil && e != nil {
			err = errors.Wrap(e, "close runtime")
		}
	}()

	cm, err := rt.CompileModule(ctx, b)
	if err != nil {
		return nil, errors.Wrap(err, "wazero: compile")
	}

	theirs := cm.ExportedFunctions()
	seen := map[string]bool{}

	for _, e := range md.Exports {
		if e.Kind != wasm.KindFunction {
			continue
		}

		seen[e.Name] = true

		def, ok := theirs[e.Name]
		if !ok {
			ms = append(ms, Mismatch{Export: e.Name, What: "missing", Ours: "present", Theirs: "absent"})
			continue
		}

		if uint32(e.ID) != def.Index() {
			ms = append(ms, Mismatch{Export: e.Name, What: "index", Ours: fmt.Sprint(e.ID), Theirs: fmt.Sprint(def.Index())})
		}

		if int(e.ID) >= len(md.Functions) {
			ms = append(ms, Mismatch{Export: e.Name, What: "function", Ours: "out of range", Theirs: fmt.Sprint(def.Index())})
			continue
		}

		f := md.Functions[e.ID]

		if o, t := types(f.Params), apiTypes(def.ParamTypes()); o != t {
			ms = append(ms, Mismatch{Export: e.Name, What: "params", Ours: o, Theirs: t})
		}

		if o, t := types(f.Results), apiTypes(def.ResultTypes()); o != t {
			ms = append(ms, Mismatch{Export: e.Name, What: "results", Ours: o, Theirs: t})
		}
	}

	for name := range theirs {
		if !seen[name] {
			ms = append(ms, Mismatch{Export: name, What: "missing", Ours: "absent", Theirs: "present"})
		}
	}

	sort.Slice(ms, func(i, j int) bool {
		if ms[i].Export != ms[j].Export {
			return ms[i].Export < ms[j].Export
		}

		return ms[i].What < ms[j].What
	})

	tlog.V("crosscheck").Printw("crosscheck", "exports", len(md.Exports), "wazero_funcs", len(theirs), "mismatches", len(ms))

	return ms, nil
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: %s: ours %s, wazero %s", m.Export, m.What, m.Ours, m.Theirs)
}

func types(tps wasm.ResultType) string {
	r := make([]api.ValueType, len(tps))

	for j, tp := range tps {
		r[j] = api.ValueType(tp)
	}

	return apiTypes(r)
}

func apiTypes(tps []api.ValueType) string {
	return fmt.Sprint(namesOf(tps))
}

func namesOf(tps []api.ValueType) []string {
	r := make([]string, len(tps))

	for j, tp := range tps {
		r[j] = api.ValueTypeName(tp)
	}

	return r
}
