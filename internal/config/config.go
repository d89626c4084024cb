package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hargabyte/apishape/internal/types"
)

// ConfigFileName is the name of the apishape configuration file
const ConfigFileName = "config.yaml"

// ConfigDirName is the name of the apishape configuration directory
const ConfigDirName = ".apishape"

// Config holds all apishape configuration
type Config struct {
	Scan       ScanConfig       `yaml:"scan"`
	Reflection ReflectionConfig `yaml:"reflection"`
	Inference  InferenceConfig  `yaml:"inference"`
	Output     OutputConfig     `yaml:"output"`
	Index      IndexConfig      `yaml:"index"`

	// Root is the project directory holding .apishape. Relative paths in
	// the file are resolved against it. Empty when defaults are used.
	Root string `yaml:"-"`
}

// ScanConfig holds configuration for directory scans
type ScanConfig struct {
	Extensions []string `yaml:"extensions"`
	Exclude    []string `yaml:"exclude"`
}

// ReflectionConfig points at a reflection dump produced by the analyzed
// application
type ReflectionConfig struct {
	Dump    string `yaml:"dump"`
	BaseDir string `yaml:"base_dir"`
}

// InferenceConfig extends the builtin function table
type InferenceConfig struct {
	Builtins map[string]string `yaml:"builtins"`
}

// OutputConfig holds configuration for output formatting
type OutputConfig struct {
	Format     string `yaml:"format"`
	PublicOnly bool   `yaml:"public_only"`
}

// IndexConfig holds configuration for the declaration index
type IndexConfig struct {
	Path string `yaml:"path"`
}

// ErrConfigNotFound is returned when no config file can be found
var ErrConfigNotFound = errors.New("config file not found")

// ErrInvalidConfig is returned when config validation fails
var ErrInvalidConfig = errors.New("invalid configuration")

// Load reads config from .apishape/config.yaml, falling back to defaults.
// It searches for the config directory starting from workDir and walking up
// the directory tree. If no config is found, returns defaults.
func Load(workDir string) (*Config, error) {
	configDir, err := FindConfigDir(workDir)
	if err != nil {
		// No config dir found, return defaults
		return DefaultConfig(), nil
	}

	cfg, err := LoadFromPath(filepath.Join(configDir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	cfg.Root = filepath.Dir(configDir)
	return cfg, nil
}

// LoadFromPath reads config from a specific path.
// Merges loaded config with defaults and validates the result.
func LoadFromPath(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	loaded := &Config{}
	if err := yaml.Unmarshal(data, loaded); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	merged := Merge(loaded, DefaultConfig())

	if err := Validate(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// FindConfigDir locates the .apishape directory by walking up from startDir.
// Returns the path to the .apishape directory if found.
func FindConfigDir(startDir string) (string, error) {
	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	currentDir := absDir
	for {
		configDir := filepath.Join(currentDir, ConfigDirName)
		info, err := os.Stat(configDir)
		if err == nil && info.IsDir() {
			return configDir, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			return "", ErrConfigNotFound
		}
		currentDir = parentDir
	}
}

// EnsureConfigDir creates the .apishape directory if it doesn't exist.
// Returns the path to the .apishape directory.
func EnsureConfigDir(workDir string) (string, error) {
	absDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolving path: %w", err)
	}

	configDir := filepath.Join(absDir, ConfigDirName)

	info, err := os.Stat(configDir)
	if err == nil {
		if info.IsDir() {
			return configDir, nil
		}
		return "", fmt.Errorf("%s exists but is not a directory", configDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", fmt.Errorf("creating config directory: %w", err)
	}

	return configDir, nil
}

// Validate checks that config values are valid.
// Returns an error if validation fails.
func Validate(cfg *Config) error {
	if !IsValidFormat(cfg.Output.Format) {
		return fmt.Errorf("%w: output.format must be one of %v, got %q",
			ErrInvalidConfig, ValidFormats, cfg.Output.Format)
	}

	for _, ext := range cfg.Scan.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("%w: scan.extensions entries must look like \".php\", got %q",
				ErrInvalidConfig, ext)
		}
	}

	for name, expr := range cfg.Inference.Builtins {
		if types.Parse(expr) == nil {
			return fmt.Errorf("%w: inference.builtins.%s has no type expression",
				ErrInvalidConfig, name)
		}
	}

	if cfg.Index.Path == "" {
		return fmt.Errorf("%w: index.path must not be empty", ErrInvalidConfig)
	}

	return nil
}

// Resolve returns p relative to the project root, or p unchanged when it is
// absolute or no root is known.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) || c.Root == "" {
		return p
	}
	return filepath.Join(c.Root, p)
}

// SaveDefault writes the default configuration to .apishape/config.yaml in
// workDir. Creates the .apishape directory if it doesn't exist.
func SaveDefault(workDir string) (string, error) {
	configDir, err := EnsureConfigDir(workDir)
	if err != nil {
		return "", err
	}

	configPath := filepath.Join(configDir, ConfigFileName)

	if _, err := os.Stat(configPath); err == nil {
		return "", fmt.Errorf("config file already exists: %s", configPath)
	}

	cfg := DefaultConfig()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("marshaling config: %w", err)
	}

	header := "# apishape configuration\n# Paths are relative to the directory holding .apishape.\n\n"
	data = append([]byte(header), data...)

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return "", fmt.Errorf("writing config file: %w", err)
	}

	return configPath, nil
}
