package main

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/edsrzf/mmap-go"
	"golang.org/x/term"
	"nikand.dev/go/cli"
	"nikand.dev/go/cli/flag"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"
	"tlog.app/go/tlog/ext/tlflag"
	"tlog.app/go/tlog/tlwire"

	wasm "nikand.dev/go/wasmtools"
	"nikand.dev/go/wasmtools/crosscheck"
)

type (
	hexbytes []byte
)

var (
	mnemonicStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	nameStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD580"))
)

func main() {
	dump := &cli.Command{
		Name:        "dump",
		Description: "log decoded sections",
		Args:        cli.Args{},
		Action:      dumpRun,
	}

	disasm := &cli.Command{
		Name:        "disasm",
		Description: "print module as s-expression",
		Args:        cli.Args{},
		Action:      disasmRun,
		Flags: []*cli.Flag{
			cli.NewFlag("indexed", false, "use function index space instead of type section order"),
			cli.NewFlag("color", "auto", "highlight output: auto, always, never"),
		},
	}

	check := &cli.Command{
		Name:        "check",
		Description: "compare exported functions with wazero",
		Args:        cli.Args{},
		Action:      checkRun,
	}

	app := &cli.Command{
		Name:        "wasmtool",
		Description: "tool to inspect wasm binaries",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("log", "stderr?dm", "log output file (or stderr)"),
			cli.NewFlag("verbosity,v", "", "logger verbosity topics (opcode, section, crosscheck)"),
			cli.NewFlag("debug", "", "debug address", flag.Hidden),
			cli.FlagfileFlag,
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			dump,
			disasm,
			check,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	w, err := tlflag.OpenWriter(c.String("log"))
	if err != nil {
		return errors.Wrap(err, "open log file")
	}

	tlog.DefaultLogger = tlog.New(w)

	tlog.SetVerbosity(c.String("verbosity"))

	if q := c.String("debug"); q != "" {
		l, err := net.Listen("tcp", q)
		if err != nil {
			return errors.Wrap(err, "listen debug")
		}

		tlog.Printw("start debug interface", "addr", l.Addr())

		go func() {
			err := http.Serve(l, nil)
			if err != nil {
				tlog.Printw("debug", "addr", q, "err", err, "", tlog.Fatal)
				panic(err)
			}
		}()
	}

	return nil
}

// forEachFile maps every argument read-only and calls f with its content.
func forEachFile(c *cli.Command, f func(name string, data []byte) error) error {
	for _, a := range c.Args {
		err := func() (err error) {
			data, closer, err := mapFile(a)
			if err != nil {
				return errors.Wrap(err, "read file")
			}

			defer func() {
				e := closer()
				if err == nil && e != nil {
					err = errors.Wrap(e, "unmap")
				}
			}()

			return f(a, data)
		}()
		if err != nil {
			return errors.Wrap(err, "%v", a)
		}
	}

	return nil
}

func mapFile(name string) (data []byte, closer func() error, err error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, nil, err
	}

	defer func() {
		e := f.Close()
		if err == nil && e != nil {
			err = e
		}
	}()

	inf, err := f.Stat()
	if err != nil {
		return nil, nil, errors.Wrap(err, "stat")
	}

	// empty files can't be mapped
	if inf.Size() == 0 {
		return nil, func() error { return nil }, nil
	}

	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mmap")
	}

	return m, m.Unmap, nil
}

func disasmRun(c *cli.Command) error {
	p := printer(highlight(c.String("color")))

	return forEachFile(c, func(name string, data []byte) error {
		m, err := wasm.Decode(data)
		if err != nil {
			return errors.Wrap(err, "decode")
		}

		md := wasm.NewModel(m)
		if c.Bool("indexed") {
			md = wasm.NewIndexedModel(m)
		}

		return p.WriteSExpr(os.Stdout, md)
	})
}

func printer(color bool) *wasm.Printer {
	var p wasm.Printer

	if color {
		p.Mnemonic = render(mnemonicStyle)
		p.Name = render(nameStyle)
		p.Type = render(typeStyle)
	}

	return &p
}

func render(st lipgloss.Style) func(string) string {
	return func(s string) string { return st.Render(s) }
}

func highlight(mode string) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	}

	return term.IsTerminal(int(os.Stdout.Fd()))
}

func checkRun(c *cli.Command) error {
	ctx := context.Background()

	return forEachFile(c, func(name string, data []byte) error {
		ms, err := crosscheck.Module(ctx, data)
		if err != nil {
			return err
		}

		for _, m := range ms {
			tlog.Printw("mismatch", "file", name, "export", m.Export, "what", m.What, "ours", m.Ours, "wazero", m.Theirs)
		}

		if len(ms) != 0 {
			return errors.New("%d mismatches", len(ms))
		}

		tlog.Printw("ok", "file", name)

		return nil
	})
}

func dumpRun(c *cli.Command) error {
	return forEachFile(c, func(name string, data []byte) error {
		m, err := wasm.Decode(data)
		if err != nil {
			return errors.Wrap(err, "decode")
		}

		tlog.Printw("module", "file", name, "magic", wasm.FormatUint32(m.Magic), "version", m.Version, "sections", m.IDs())

		for _, s := range m.Sections {
			if s.Consumed != s.Size {
				tlog.Printw("section size mismatch", "id", s.ID, "size", s.Size, "consumed", s.Consumed)
			}

			dumpSection(s)
		}

		return nil
	})
}

func dumpSection(s wasm.Section) {
	switch p := s.Payload.(type) {
	case *wasm.TypeSection:
		for i, v := range p.Entries {
			tlog.Printw("type", "i", i, "params", v.Params, "result", v.Result)
		}
	case *wasm.ImportSection:
		for i, v := range p.Entries {
			tlog.Printw("import", "i", i, "mod", v.Module, "name", v.Field, "kind", v.Kind, "desc", v.Desc)
		}
	case *wasm.FunctionSection:
		for i, v := range p.Types {
			tlog.Printw("function", "i", i, "tp", v)
		}
	case *wasm.TableSection:
		for i, v := range p.Entries {
			tlog.Printw("table", "i", i, "tp", v.Elem, "limits", v.Limits)
		}
	case *wasm.MemorySection:
		for i, v := range p.Entries {
			tlog.Printw("memory", "i", i, "limits", v.Limits)
		}
	case *wasm.GlobalSection:
		for i, v := range p.Globals {
			tlog.Printw("global", "i", i, "tp", v.Type.Type, "mut", v.Type.Mutable, "init", v.Init)
		}
	case *wasm.ExportSection:
		for i, v := range p.Entries {
			tlog.Printw("export", "i", i, "name", v.Field, "kind", v.Kind, "index", v.Index)
		}
	case *wasm.StartSection:
		tlog.Printw("start", "func", p.Index)
	case *wasm.ElementSection:
		for i, v := range p.Entries {
			tlog.Printw("element", "i", i, "table", v.Table, "offset", v.Offset, "funcs", v.Funcs)
		}
	case *wasm.CodeSection:
		for i, v := range p.Bodies {
			tlog.Printw("code", "i", i, "size", v.Size, "locals", v.Locals, "code", v.Code)
		}
	case *wasm.DataSection:
		for i, v := range p.Entries {
			tlog.Printw("data", "i", i, "memory", v.Memory, "offset", v.Offset, "init", hexbytes(v.Init))
		}
	case *wasm.CustomSection:
		tlog.Printw("custom", "id", s.ID, "name", p.Name, "data", hexbytes(p.Data))
	}
}

func (a hexbytes) TlogAppend(b []byte) []byte {
	var e tlwire.Encoder

	b = e.AppendArray(b, len(a))

	for _, v := range a {
		b = e.AppendString(b, wasm.FormatUint8(v))
	}

	return b
}
