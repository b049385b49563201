package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"

	"github.com/leapstack-labs/tablemigrate/internal/project"
)

// loggerKey is used to store the logger in context.
type loggerKey struct{}

// envPrefix is stripped from environment variables; "__" separates nesting
// levels, so TABLEMIGRATE_SOURCE__PASSWORD sets source.password.
const envPrefix = "TABLEMIGRATE_"

// maxUpwardSearchLevels limits how far up the directory tree to search for config files.
const maxUpwardSearchLevels = 10

var configFileUsed string

// configExistsIn returns the config file in dir, or "".
func configExistsIn(dir string) string {
	for _, name := range ConfigFileNames {
		candidate := filepath.Join(dir, name)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

// findConfigUpward searches upward from startDir for a config file.
func findConfigUpward(startDir string) string {
	dir := startDir
	for i := 0; i < maxUpwardSearchLevels; i++ {
		if found := configExistsIn(dir); found != "" {
			return found
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return ""
}

// resolvePathRelativeTo resolves a path relative to baseDir if it's not absolute.
func resolvePathRelativeTo(path, baseDir string) string {
	if path == "" || path == ":memory:" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}

// endpointFlagValue turns a --source/--target value into an endpoint section.
// The companion --*-driver flag is folded in so both land in one map.
func endpointFlagValue(flags *pflag.FlagSet, side, value string) map[string]any {
	section := map[string]any{}
	if project.LooksLikeURI(value) {
		section["type"] = project.TypeNetwork
		section["uri"] = value
	} else {
		section["type"] = project.TypeFile
		section["path"] = value
	}
	if f := flags.Lookup(side + "-driver"); f != nil && f.Changed {
		section["driver"] = f.Value.String()
	}
	return section
}

func flagKey(flags *pflag.FlagSet) func(f *pflag.Flag) (string, any) {
	return func(f *pflag.Flag) (string, any) {
		if !f.Changed {
			return "", nil
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		switch key {
		case "config":
			return "", nil
		case "state":
			return "state_path", posflag.FlagVal(flags, f)
		case "source", "target":
			return key, endpointFlagValue(flags, key, f.Value.String())
		case "source_driver", "target_driver":
			side := strings.TrimSuffix(key, "_driver")
			if sf := flags.Lookup(side); sf != nil && sf.Changed {
				return "", nil
			}
			return side + ".driver", posflag.FlagVal(flags, f)
		}
		return key, posflag.FlagVal(flags, f)
	}
}

// expandEnvHook expands ${VAR} in every decoded string.
func expandEnvHook() mapstructure.DecodeHookFuncKind {
	return func(from, to reflect.Kind, data any) (any, error) {
		s, ok := data.(string)
		if !ok || from != reflect.String || to != reflect.String {
			return data, nil
		}
		return project.ExpandEnv(s), nil
	}
}

// LoadConfig loads configuration from file, environment variables, and flags.
// Precedence (highest to lowest): flags > env vars > config file > defaults.
func LoadConfig(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")
	configFileUsed = ""

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	projectRoot := cwd

	// 1. Defaults
	if err := k.Load(confmap.Provider(map[string]any{
		"state_path":  DefaultStateFile,
		"log_level":   DefaultLogLevel,
		"output":      DefaultOutput,
		"verbose":     false,
		"no_history":  false,
		"concurrency": 0,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file: explicit path, else search upward from the working directory
	if cfgFile == "" {
		cfgFile = findConfigUpward(cwd)
	}
	if cfgFile != "" {
		if err := k.Load(file.Provider(cfgFile), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", cfgFile, err)
		}
		configFileUsed = cfgFile
		if abs, err := filepath.Abs(cfgFile); err == nil {
			projectRoot = filepath.Dir(abs)
		}
	}

	// 3. Environment variables
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		key := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		return strings.ReplaceAll(key, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, flagKey(flags)), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	// 5. Decode
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				expandEnvHook(),
			),
			WeaklyTypedInput: true,
		},
	}); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// 6. Relative paths in the config file resolve against its directory;
	// flag values are taken relative to the working directory.
	cfg.ProjectRoot = projectRoot
	if flags == nil || !flags.Changed("state") {
		cfg.StatePath = resolvePathRelativeTo(cfg.StatePath, projectRoot)
	}
	if flags == nil || !flags.Changed("project") {
		cfg.ProjectFile = resolvePathRelativeTo(cfg.ProjectFile, projectRoot)
	}
	if cfg.Source != nil && cfg.Source.FilePath != "" && (flags == nil || !flags.Changed("source")) {
		cfg.Source.FilePath = resolvePathRelativeTo(cfg.Source.FilePath, projectRoot)
	}
	if cfg.Target != nil && cfg.Target.FilePath != "" && (flags == nil || !flags.Changed("target")) {
		cfg.Target.FilePath = resolvePathRelativeTo(cfg.Target.FilePath, projectRoot)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// GetConfigFileUsed returns the path to the config file being used, if any.
func GetConfigFileUsed() string {
	return configFileUsed
}

// LoggerKey returns the context key used for storing the logger.
func LoggerKey() any {
	return loggerKey{}
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// GetLogger retrieves the logger from the command context.
func GetLogger(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.New(slog.DiscardHandler)
}

// NewLogger builds the stderr text logger for cfg.
func NewLogger(cfg *Config) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Level()}))
}

type configKey struct{}

// WithConfig stores cfg in ctx.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// GetConfig retrieves the config from the command context, or defaults.
func GetConfig(ctx context.Context) *Config {
	if c, ok := ctx.Value(configKey{}).(*Config); ok {
		return c
	}
	return &Config{
		StatePath:    DefaultStateFile,
		LogLevel:     DefaultLogLevel,
		OutputFormat: DefaultOutput,
	}
}
