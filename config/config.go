package config

import (
	"context"

	"github.com/sethvargo/go-envconfig"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/ffi-bridge/binding"
	"github.com/wippyai/ffi-bridge/buffer"
	"github.com/wippyai/ffi-bridge/errors"
	"github.com/wippyai/ffi-bridge/wasmhost"
)

// Prefix is prepended to every variable name.
const Prefix = "FFIBRIDGE_"

const (
	FormatConsole = "console"
	FormatJSON    = "json"
)

// Config is the process configuration shared by the c-shared library and
// the probe CLI.
type Config struct {
	LogLevel     string `env:"LOG_LEVEL, default=warn"`
	LogFormat    string `env:"LOG_FORMAT, default=console"`
	ModuleName   string `env:"MODULE_NAME, default=ffi"`
	ArenaPages   uint32 `env:"ARENA_PAGES, default=1"`
	MaxPages     uint32 `env:"MAX_PAGES, default=256"`
	MaxStringLen uint32 `env:"MAX_STRING_LEN, default=1048576"`
}

// Load resolves the configuration from FFIBRIDGE_* environment variables.
func Load(ctx context.Context) (Config, error) {
	return LoadFrom(ctx, envconfig.PrefixLookuper(Prefix, envconfig.OsLookuper()))
}

// LoadFrom resolves the configuration from l. Names are looked up without
// the prefix.
func LoadFrom(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var c Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &c, Lookuper: l}); err != nil {
		return Config{}, errors.Wrap(errors.PhaseConfig, errors.KindInvalidInput, err, "resolving config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values envconfig cannot.
func (c Config) Validate() error {
	if _, err := zapcore.ParseLevel(c.LogLevel); err != nil {
		return invalid("LOG_LEVEL", c.LogLevel, "unknown log level")
	}
	if c.LogFormat != FormatConsole && c.LogFormat != FormatJSON {
		return invalid("LOG_FORMAT", c.LogFormat, "must be console or json")
	}
	if c.ModuleName == "" {
		return invalid("MODULE_NAME", c.ModuleName, "must not be empty")
	}
	if c.MaxPages == 0 || c.MaxPages > buffer.MaxPages {
		return invalid("MAX_PAGES", c.MaxPages, "must be between 1 and 65535")
	}
	if c.ArenaPages == 0 || c.ArenaPages > c.MaxPages {
		return invalid("ARENA_PAGES", c.ArenaPages, "must be between 1 and MAX_PAGES")
	}
	if c.MaxStringLen == 0 {
		return invalid("MAX_STRING_LEN", c.MaxStringLen, "must be positive")
	}
	return nil
}

func invalid(name string, value any, detail string) error {
	return errors.New(errors.PhaseConfig, errors.KindInvalidInput).
		Path(Prefix + name).
		Value(value).
		Detail("%s", detail).
		Build()
}

// Logger builds the process logger: human readable on the console format,
// production JSON otherwise.
func (c Config) Logger() (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, invalid("LOG_LEVEL", c.LogLevel, "unknown log level")
	}

	var zc zap.Config
	if c.LogFormat == FormatJSON {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	return zc.Build()
}

// Session returns the options for an in-process binding session.
func (c Config) Session() binding.Options {
	return binding.Options{
		MaxPages:     c.MaxPages,
		ArenaPages:   c.ArenaPages,
		MaxStringLen: c.MaxStringLen,
	}
}

// Host returns the configuration of the WebAssembly host module.
func (c Config) Host() wasmhost.Config {
	return wasmhost.Config{
		ModuleName:   c.ModuleName,
		ArenaPages:   c.ArenaPages,
		MaxStringLen: c.MaxStringLen,
	}
}
