package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/hargabyte/apishape/internal/analyzer"
	"github.com/hargabyte/apishape/internal/config"
	"github.com/hargabyte/apishape/internal/introspect"
	"github.com/hargabyte/apishape/internal/output"
	"github.com/hargabyte/apishape/internal/store"
)

// Shared helpers for command implementations

// loadConfig reads the config named by --config, or searches upward from
// the working directory.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		abs, err := filepath.Abs(configPath)
		if err != nil {
			return nil, fmt.Errorf("resolve config path: %w", err)
		}
		cfg, err := config.LoadFromPath(abs)
		if err != nil {
			return nil, err
		}
		// The file lives in .apishape/, whose parent is the project root.
		cfg.Root = filepath.Dir(filepath.Dir(abs))
		return cfg, nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("get working directory: %w", err)
	}
	return config.Load(cwd)
}

// newAnalyzer builds an analyzer from cfg: builtins, extensions, exclusions
// and the reflection dump when one is configured.
func newAnalyzer(cfg *config.Config) (*analyzer.Analyzer, error) {
	opts := []analyzer.Option{
		analyzer.WithBuiltins(cfg.Inference.Builtins),
		analyzer.WithExtensions(cfg.Scan.Extensions...),
		analyzer.WithExclude(cfg.Scan.Exclude...),
	}

	if cfg.Reflection.Dump != "" {
		registry, err := introspect.LoadRegistry(cfg.Resolve(cfg.Reflection.Dump))
		if err != nil {
			return nil, err
		}
		opts = append(opts, analyzer.WithHost(registry))
	}

	baseDir := cfg.Reflection.BaseDir
	if baseDir == "" {
		baseDir = cfg.Root
	}
	if baseDir != "" {
		opts = append(opts, analyzer.WithBaseDir(cfg.Resolve(baseDir)))
	}

	return analyzer.New(opts...)
}

// openIndex opens the declaration index named in cfg.
func openIndex(cfg *config.Config) (*store.Store, error) {
	return store.Open(cfg.Resolve(cfg.Index.Path))
}

// outputOptions combines --public-only with the configured default.
func outputOptions(cfg *config.Config) output.Options {
	return output.Options{PublicOnly: publicOnly || cfg.Output.PublicOnly}
}

// resolveFormat picks --format over the configured format.
func resolveFormat(cfg *config.Config) (output.Format, error) {
	if outputFormat != "" {
		return output.ParseFormat(outputFormat)
	}
	return output.ParseFormat(cfg.Output.Format)
}

// writeOutput renders v to w in the selected format.
func writeOutput(w io.Writer, cfg *config.Config, v interface{}) error {
	format, err := resolveFormat(cfg)
	if err != nil {
		return err
	}
	formatter, err := output.GetFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToWriter(w, v)
}
