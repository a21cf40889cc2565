package wasmhost

import (
	"context"
	"slices"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/experimental"
	"go.uber.org/zap"

	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/guard"
	"github.com/wippyai/ffi-bridge/surface"
)

// DefaultModuleName is the import module guests link against.
const DefaultModuleName = "ffi"

// Config configures the host module.
type Config struct {
	// ModuleName is the import module name. Defaults to "ffi".
	ModuleName string

	// Registry is the surface to export. Defaults to surface.Default().
	Registry *surface.Registry

	// Boundary contains faults for every guest. A fresh one is created
	// when nil.
	Boundary *guard.Boundary

	// ArenaPages is the number of guest pages the arena grows by at a time.
	ArenaPages uint32

	// MaxStringLen bounds borrowed string reads.
	MaxStringLen uint32
}

// guest is the surface state kept for one guest instance.
type guest struct {
	mem api.Memory
	env *surface.Env
}

// Host is the instantiated "ffi" host module. Each guest that calls into
// it gets its own arena, handle table, and last error code, keyed by the
// guest's module name.
type Host struct {
	module   api.Module
	cfg      Config
	boundary *guard.Boundary

	mu     sync.Mutex
	guests map[string]*guest
}

// Instantiate builds the host module in r. It must be called before any
// guest importing it is instantiated.
func Instantiate(ctx context.Context, r wazero.Runtime, cfg Config) (*Host, error) {
	if cfg.ModuleName == "" {
		cfg.ModuleName = DefaultModuleName
	}
	if cfg.Registry == nil {
		cfg.Registry = surface.Default()
	}
	if cfg.Boundary == nil {
		cfg.Boundary = guard.New(guard.WithLogger(Logger()))
	}

	h := &Host{
		cfg:      cfg,
		boundary: cfg.Boundary,
		guests:   make(map[string]*guest),
	}

	builder := r.NewHostModuleBuilder(cfg.ModuleName)
	for _, f := range cfg.Registry.Functions() {
		params, results := f.Lowered()
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.handler(f), params, results).
			WithParameterNames(f.Signature.ParamNames()...).
			Export(f.Name)
	}

	mod, err := builder.Instantiate(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.PhaseHost, errors.KindInternalFault, err, "instantiate host module "+cfg.ModuleName)
	}
	h.module = mod

	Logger().Debug("host module instantiated",
		zap.String("module", cfg.ModuleName),
		zap.Int("functions", cfg.Registry.Len()))
	return h, nil
}

func (h *Host) handler(f *surface.Function) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		env, err := h.env(mod)
		if err != nil {
			// Without guest memory there is nowhere to write a signal.
			panic(err)
		}
		f.Invoke(ctx, env, stack)
	}
}

// env returns the state for the calling guest, creating it on first use.
// A new instance reusing a released name gets fresh state.
func (h *Host) env(mod api.Module) (*surface.Env, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errors.New(errors.PhaseHost, errors.KindUnsupported).
			Path(mod.Name()).
			Detail("guest exports no memory").
			Build()
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	name := mod.Name()
	if g, ok := h.guests[name]; ok {
		if g.mem == mem {
			return g.env, nil
		}
		Logger().Warn("guest memory changed, discarding state",
			zap.String("guest", name))
		h.closeGuest(name, g)
	}

	env := surface.NewEnv(WrapMemory(mem), surface.Options{
		Boundary:     h.boundary,
		MaxStringLen: h.cfg.MaxStringLen,
		ArenaPages:   h.cfg.ArenaPages,
		Logger:       Logger().With(zap.String("guest", name)),
	})
	h.guests[name] = &guest{mem: mem, env: env}
	Logger().Debug("guest attached", zap.String("guest", name))
	return env, nil
}

// Module returns the instantiated host module.
func (h *Host) Module() api.Module { return h.module }

// Boundary returns the containment boundary shared by all guests.
func (h *Host) Boundary() *guard.Boundary { return h.boundary }

// Env returns the state of the guest named name, if it has called in.
func (h *Host) Env(name string) (*surface.Env, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	g, ok := h.guests[name]
	if !ok {
		return nil, false
	}
	return g.env, true
}

// Guests returns the names of guests with live state, sorted.
func (h *Host) Guests() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	names := make([]string, 0, len(h.guests))
	for name := range h.guests {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Release drops the state of the named guest, destroying the objects
// behind its handles. Its arena regions stay in guest memory and are
// reclaimed with the guest. Unknown names are a no-op.
func (h *Host) Release(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if g, ok := h.guests[name]; ok {
		h.closeGuest(name, g)
	}
}

func (h *Host) closeGuest(name string, g *guest) {
	delete(h.guests, name)
	if err := g.env.Close(); err != nil {
		Logger().Warn("guest state close failed",
			zap.String("guest", name),
			zap.Error(err))
	}
	Logger().Debug("guest released",
		zap.String("guest", name),
		zap.Int("live_buffers", g.env.Arena.Live()))
}

// GuestContext returns a context to instantiate the guest named name
// with. When that guest is closed its state is released automatically.
func (h *Host) GuestContext(ctx context.Context, name string) context.Context {
	return experimental.WithCloseNotifier(ctx, experimental.CloseNotifyFunc(
		func(context.Context, uint32) { h.Release(name) },
	))
}

// Close releases every guest's state and closes the host module.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	for name, g := range h.guests {
		h.closeGuest(name, g)
	}
	h.mu.Unlock()

	if h.module == nil {
		return nil
	}
	return h.module.Close(ctx)
}
