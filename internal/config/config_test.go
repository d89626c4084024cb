package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if len(cfg.Scan.Extensions) != 1 || cfg.Scan.Extensions[0] != ".php" {
		t.Errorf("expected extensions [.php], got %v", cfg.Scan.Extensions)
	}
	if len(cfg.Scan.Exclude) == 0 {
		t.Error("expected default exclude patterns")
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected format yaml, got %q", cfg.Output.Format)
	}
	if cfg.Output.PublicOnly {
		t.Error("expected public_only to default to false")
	}
	if cfg.Index.Path != ".apishape/index.db" {
		t.Errorf("unexpected index path %q", cfg.Index.Path)
	}
	if cfg.Inference.Builtins == nil {
		t.Error("expected non-nil builtins map")
	}

	if err := Validate(cfg); err != nil {
		t.Errorf("default config should be valid: %v", err)
	}
}

func TestIsValidFormat(t *testing.T) {
	tests := []struct {
		format string
		want   bool
	}{
		{"yaml", true},
		{"json", true},
		{"debug", true},
		{"YAML", false},
		{"xml", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			if got := IsValidFormat(tt.format); got != tt.want {
				t.Errorf("IsValidFormat(%q) = %v, want %v", tt.format, got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr bool
	}{
		{
			name:    "valid default",
			modify:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "invalid format",
			modify:  func(c *Config) { c.Output.Format = "xml" },
			wantErr: true,
		},
		{
			name:    "extension without dot",
			modify:  func(c *Config) { c.Scan.Extensions = []string{"php"} },
			wantErr: true,
		},
		{
			name:    "bare dot extension",
			modify:  func(c *Config) { c.Scan.Extensions = []string{"."} },
			wantErr: true,
		},
		{
			name:    "extra extensions",
			modify:  func(c *Config) { c.Scan.Extensions = []string{".php", ".inc"} },
			wantErr: false,
		},
		{
			name:    "builtin with type",
			modify:  func(c *Config) { c.Inference.Builtins["acme_id"] = "?int" },
			wantErr: false,
		},
		{
			name:    "builtin without type",
			modify:  func(c *Config) { c.Inference.Builtins["acme_id"] = "  " },
			wantErr: true,
		},
		{
			name:    "empty index path",
			modify:  func(c *Config) { c.Index.Path = "" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)

			err := Validate(cfg)
			if tt.wantErr && err == nil {
				t.Error("expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err != nil && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	defaults := DefaultConfig()
	defaults.Inference.Builtins["base_fn"] = "int"

	loaded := &Config{
		Scan: ScanConfig{
			Extensions: []string{".php", ".inc"},
		},
		Reflection: ReflectionConfig{
			Dump: "build/reflection.yaml",
		},
		Inference: InferenceConfig{
			Builtins: map[string]string{"acme_id": "int", "base_fn": "string"},
		},
		Output: OutputConfig{
			Format:     "json",
			PublicOnly: true,
		},
	}

	merged := Merge(loaded, defaults)

	if len(merged.Scan.Extensions) != 2 {
		t.Errorf("expected loaded extensions, got %v", merged.Scan.Extensions)
	}
	if len(merged.Scan.Exclude) != len(defaults.Scan.Exclude) {
		t.Errorf("expected default excludes, got %v", merged.Scan.Exclude)
	}
	if merged.Reflection.Dump != "build/reflection.yaml" {
		t.Errorf("expected loaded dump path, got %q", merged.Reflection.Dump)
	}
	if merged.Inference.Builtins["acme_id"] != "int" {
		t.Errorf("expected loaded builtin, got %v", merged.Inference.Builtins)
	}
	if merged.Inference.Builtins["base_fn"] != "string" {
		t.Errorf("expected loaded builtin to override default, got %q", merged.Inference.Builtins["base_fn"])
	}
	if merged.Output.Format != "json" {
		t.Errorf("expected format json, got %q", merged.Output.Format)
	}
	if !merged.Output.PublicOnly {
		t.Error("expected public_only from loaded config")
	}
	if merged.Index.Path != defaults.Index.Path {
		t.Errorf("expected default index path, got %q", merged.Index.Path)
	}
}

func TestFindConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	configDir := filepath.Join(tmpDir, ConfigDirName)
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	subDir := filepath.Join(tmpDir, "src", "Models")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	t.Run("from root", func(t *testing.T) {
		found, err := FindConfigDir(tmpDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})

	t.Run("from subdirectory", func(t *testing.T) {
		found, err := FindConfigDir(subDir)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if found != configDir {
			t.Errorf("expected %s, got %s", configDir, found)
		}
	})

	t.Run("not found", func(t *testing.T) {
		otherDir := t.TempDir()
		_, err := FindConfigDir(otherDir)
		if err != nil && !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})
}

func TestEnsureConfigDir(t *testing.T) {
	tmpDir := t.TempDir()

	configDir, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if info, err := os.Stat(configDir); err != nil || !info.IsDir() {
		t.Fatalf("expected %s to be a directory", configDir)
	}

	again, err := EnsureConfigDir(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error on second call: %v", err)
	}
	if again != configDir {
		t.Errorf("expected %s, got %s", configDir, again)
	}

	fileDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(fileDir, ConfigDirName), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := EnsureConfigDir(fileDir); err == nil {
		t.Error("expected error when .apishape is a file")
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()

	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadFromPath(filepath.Join(tmpDir, "missing.yaml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Output.Format != "yaml" {
			t.Errorf("expected default format, got %q", cfg.Output.Format)
		}
	})

	t.Run("partial file merges with defaults", func(t *testing.T) {
		path := filepath.Join(tmpDir, "partial.yaml")
		content := `output:
  format: json
  public_only: true
inference:
  builtins:
    acme_id: int
`
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}

		cfg, err := LoadFromPath(path)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Output.Format != "json" || !cfg.Output.PublicOnly {
			t.Errorf("unexpected output config: %+v", cfg.Output)
		}
		if cfg.Inference.Builtins["acme_id"] != "int" {
			t.Errorf("expected builtin from file, got %v", cfg.Inference.Builtins)
		}
		if len(cfg.Scan.Extensions) != 1 || cfg.Scan.Extensions[0] != ".php" {
			t.Errorf("expected default extensions, got %v", cfg.Scan.Extensions)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(tmpDir, "broken.yaml")
		if err := os.WriteFile(path, []byte("output: [unclosed"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadFromPath(path); err == nil {
			t.Error("expected parse error")
		}
	})

	t.Run("invalid values", func(t *testing.T) {
		path := filepath.Join(tmpDir, "invalid.yaml")
		if err := os.WriteFile(path, []byte("output:\n  format: xml\n"), 0644); err != nil {
			t.Fatal(err)
		}
		_, err := LoadFromPath(path)
		if !errors.Is(err, ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestLoad(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Root != "" {
		t.Errorf("expected empty root without config dir, got %q", cfg.Root)
	}

	configDir := filepath.Join(tmpDir, ConfigDirName)
	if err := os.Mkdir(configDir, 0755); err != nil {
		t.Fatal(err)
	}
	content := "reflection:\n  dump: build/reflection.yaml\n"
	if err := os.WriteFile(filepath.Join(configDir, ConfigFileName), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	subDir := filepath.Join(tmpDir, "src")
	if err := os.Mkdir(subDir, 0755); err != nil {
		t.Fatal(err)
	}

	cfg, err = Load(subDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	absRoot, _ := filepath.Abs(tmpDir)
	if cfg.Root != absRoot {
		t.Errorf("expected root %s, got %s", absRoot, cfg.Root)
	}
	want := filepath.Join(absRoot, "build", "reflection.yaml")
	if got := cfg.Resolve(cfg.Reflection.Dump); got != want {
		t.Errorf("Resolve() = %s, want %s", got, want)
	}
}

func TestResolve(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.Resolve("index.db"); got != "index.db" {
		t.Errorf("expected unchanged path without root, got %s", got)
	}

	cfg.Root = filepath.Join(string(filepath.Separator), "project")
	abs := filepath.Join(string(filepath.Separator), "tmp", "index.db")
	if got := cfg.Resolve(abs); got != abs {
		t.Errorf("expected absolute path unchanged, got %s", got)
	}
	if got := cfg.Resolve(""); got != "" {
		t.Errorf("expected empty path unchanged, got %s", got)
	}
}

func TestSaveDefault(t *testing.T) {
	tmpDir := t.TempDir()

	path, err := SaveDefault(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading saved config: %v", err)
	}
	if !strings.HasPrefix(string(data), "# apishape configuration") {
		t.Error("expected header comment")
	}
	if !strings.Contains(string(data), "public_only: false") {
		t.Errorf("expected output section in saved config:\n%s", data)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("saved config should load: %v", err)
	}
	if cfg.Output.Format != "yaml" {
		t.Errorf("expected yaml format, got %q", cfg.Output.Format)
	}

	if _, err := SaveDefault(tmpDir); err == nil {
		t.Error("expected error when config already exists")
	}
}
