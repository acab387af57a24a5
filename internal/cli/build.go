package cli

import (
	"context"
	"io"
	"os"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"plugind/internal/common/fsutil"
	"plugind/internal/config"
	"plugind/internal/discovery"
	"plugind/internal/logging"
	"plugind/internal/registry"
)

// buildConfig merges the config file, PLUGIND_* environment and flags, in
// increasing order of precedence.
func buildConfig(opts *Options) (config.Config, error) {
	var cfg config.Config
	if opts.ConfigPath != "" {
		p, err := fsutil.ExpandHome(opts.ConfigPath)
		if err != nil {
			return cfg, err
		}
		if cfg, err = config.Load(p); err != nil {
			return cfg, err
		}
	}
	getenv := opts.getenv
	if getenv == nil {
		getenv = os.Getenv
	}
	cfg, err := config.ApplyEnv(cfg, getenv)
	if err != nil {
		return cfg, err
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}
	if len(opts.Roots) > 0 {
		cfg.Roots = append([]string(nil), opts.Roots...)
	}
	if opts.Concurrency > 0 {
		cfg.Concurrency = opts.Concurrency
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if opts.LogFormat != "" {
		cfg.LogFormat = opts.LogFormat
	}
	cfg = cfg.WithDefaults()
	return cfg, cfg.Validate()
}

func newLogger(cfg config.Config, w io.Writer) (zerolog.Logger, error) {
	if w == nil {
		w = os.Stderr
	}
	return logging.New(cfg.LogLevel, cfg.LogFormat, w)
}

// newSource wires the filesystem loaders and the default catalog behind a
// scheme router.
func newSource(cfg config.Config, client *resty.Client) (discovery.Source, error) {
	fs, err := discovery.NewFS(
		discovery.NewLuaLoader(cfg.LuaPattern),
		discovery.NewManifestLoader(cfg.ManifestPattern, client),
	)
	if err != nil {
		return nil, err
	}
	return discovery.NewMux(cfg.DefaultScheme).
		Handle(discovery.FileScheme, fs).
		Handle(discovery.CatalogScheme, discovery.Default()), nil
}

// newRegistry builds and loads a registry for cfg. Logs go to stderr so
// command output stays machine readable.
func newRegistry(ctx context.Context, cfg config.Config) (*registry.Registry, error) {
	log, err := newLogger(cfg, os.Stderr)
	if err != nil {
		return nil, err
	}
	src, err := newSource(cfg, resty.New().SetHeader("User-Agent", "plugind"))
	if err != nil {
		return nil, err
	}
	reg, err := registry.NewWithConfig(registry.Config{
		Source:      src,
		Roots:       cfg.Roots,
		Concurrency: cfg.Concurrency,
		Suspended:   cfg.Suspended,
		Logger:      &log,
		Publisher:   registry.LogPublisher{Log: log},
	})
	if err != nil {
		return nil, err
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := reg.Reload(ctx); err != nil {
		return nil, err
	}
	return reg, nil
}
