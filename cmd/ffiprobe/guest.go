package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/wasmhost"
)

type guestOptions struct {
	name string
	wasi bool
}

func newGuestCmd(a *app) *cobra.Command {
	opts := guestOptions{}
	cmd := &cobra.Command{
		Use:   "guest <module.wasm> [export [args...]]",
		Short: "Run a WebAssembly guest linked against the host module",
		Long: `Guest compiles a core WebAssembly module whose imports name the host
module, links it, and calls one export with integer or float arguments.
Without an export the module's exports are listed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGuest(cmd, args[0], args[1:], opts)
		},
	}
	cmd.Flags().StringVar(&opts.name, "name", "guest", "module name the guest is instantiated as")
	cmd.Flags().BoolVar(&opts.wasi, "wasi", false, "link wasi_snapshot_preview1 for guests built against WASI")
	return cmd
}

func (a *app) runGuest(cmd *cobra.Command, path string, rest []string, opts guestOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read guest: %w", err)
	}

	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	if opts.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r); err != nil {
			return fmt.Errorf("instantiate WASI: %w", err)
		}
	}

	host, err := wasmhost.Instantiate(ctx, r, a.cfg.Host())
	if err != nil {
		return err
	}
	defer host.Close(ctx)

	compiled, err := r.CompileModule(ctx, data)
	if err != nil {
		return fmt.Errorf("compile guest: %w", err)
	}
	if len(rest) == 0 {
		listExports(out, compiled)
		return nil
	}

	modCfg := wazero.NewModuleConfig().
		WithName(opts.name).
		WithStartFunctions().
		WithStdout(out).
		WithStderr(cmd.ErrOrStderr())
	mod, err := r.InstantiateModule(host.GuestContext(ctx, opts.name), compiled, modCfg)
	if err != nil {
		return fmt.Errorf("instantiate guest: %w", err)
	}
	defer mod.Close(ctx)

	fn := mod.ExportedFunction(rest[0])
	if fn == nil {
		return errors.NotFound(errors.PhaseHost, "export", rest[0])
	}
	def := fn.Definition()
	params, err := parseStack(def.ParamTypes(), rest[1:])
	if err != nil {
		return err
	}

	results, err := fn.Call(ctx, params...)
	var exit *sys.ExitError
	if stderrors.As(err, &exit) && exit.ExitCode() == 0 {
		err = nil
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", rest[0], err)
	}
	for i, t := range def.ResultTypes() {
		fmt.Fprintln(out, formatStack(t, results[i]))
	}

	if env, ok := host.Env(opts.name); ok {
		a.logger.Info("guest call finished",
			zap.String("export", rest[0]),
			zap.Int("live_buffers", env.Arena.Live()),
			zap.Uint64("live_bytes", env.Arena.LiveBytes()),
			zap.Stringer("last_error", env.LastCode()))
	}
	return nil
}

func listExports(w io.Writer, compiled wazero.CompiledModule) {
	defs := compiled.ExportedFunctions()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := defs[name]
		fmt.Fprintf(w, "%s(%s) -> (%s)\n", name, typeNames(def.ParamTypes()), typeNames(def.ResultTypes()))
	}
	for _, imp := range compiled.ImportedFunctions() {
		module, field, _ := imp.Import()
		fmt.Fprintf(w, "import %s.%s\n", module, field)
	}
}

func typeNames(types []api.ValueType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = api.ValueTypeName(t)
	}
	return strings.Join(names, ", ")
}

// parseStack lowers textual arguments onto the wazero stack.
func parseStack(types []api.ValueType, raw []string) ([]uint64, error) {
	if len(raw) != len(types) {
		return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
			Detail("got %d arguments, want %d", len(raw), len(types)).
			Build()
	}
	stack := make([]uint64, len(types))
	for i, t := range types {
		v, err := parseValue(t, raw[i])
		if err != nil {
			return nil, errors.New(errors.PhaseMarshal, errors.KindInvalidInput).
				CType(api.ValueTypeName(t)).
				Value(raw[i]).
				Cause(err).
				Build()
		}
		stack[i] = v
	}
	return stack, nil
}

func parseValue(t api.ValueType, s string) (uint64, error) {
	switch t {
	case api.ValueTypeI32:
		n, err := strconv.ParseInt(s, 0, 64)
		if err != nil || n < -1<<31 || n > 1<<32-1 {
			return 0, fmt.Errorf("not an i32: %q", s)
		}
		return uint64(uint32(n)), nil
	case api.ValueTypeI64:
		n, err := strconv.ParseInt(s, 0, 64)
		return uint64(n), err
	case api.ValueTypeF32:
		f, err := strconv.ParseFloat(s, 32)
		return api.EncodeF32(float32(f)), err
	case api.ValueTypeF64:
		f, err := strconv.ParseFloat(s, 64)
		return api.EncodeF64(f), err
	default:
		return 0, fmt.Errorf("unsupported value type %s", api.ValueTypeName(t))
	}
}

func formatStack(t api.ValueType, v uint64) string {
	switch t {
	case api.ValueTypeI32:
		return fmt.Sprintf("%d (%#x)", api.DecodeI32(v), api.DecodeU32(v))
	case api.ValueTypeI64:
		return strconv.FormatInt(int64(v), 10)
	case api.ValueTypeF32:
		return strconv.FormatFloat(float64(api.DecodeF32(v)), 'g', -1, 32)
	case api.ValueTypeF64:
		return strconv.FormatFloat(api.DecodeF64(v), 'g', -1, 64)
	default:
		return fmt.Sprintf("%#x", v)
	}
}
