package exclude

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestDetectAutoExcludes_Empty(t *testing.T) {
	tmpDir := t.TempDir()

	result := DetectAutoExcludes(tmpDir)

	if len(result.Directories) != 0 {
		t.Errorf("expected 0 directories, got %d: %v", len(result.Directories), result.Directories)
	}
}

func TestDetectAutoExcludes_Composer(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "composer.json"), `{"name": "acme/app"}`)
	writeFile(t, filepath.Join(tmpDir, "vendor", "autoload.php"), "<?php")

	result := DetectAutoExcludes(tmpDir)

	if !contains(result.Directories, "vendor") {
		t.Errorf("expected 'vendor' in directories, got %v", result.Directories)
	}
	if result.Reasons["vendor"] == "" {
		t.Error("expected reason for vendor directory")
	}
}

func TestDetectAutoExcludes_ComposerNoAutoload(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "composer.json"), `{"name": "acme/app"}`)
	if err := os.Mkdir(filepath.Join(tmpDir, "vendor"), 0755); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	if len(result.Directories) != 0 {
		t.Errorf("expected 0 directories (no vendor/autoload.php), got %v", result.Directories)
	}
}

func TestDetectAutoExcludes_ComposerVendorDir(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "composer.json"), `{"config": {"vendor-dir": "lib/deps"}}`)
	writeFile(t, filepath.Join(tmpDir, "lib", "deps", "autoload.php"), "<?php")

	result := DetectAutoExcludes(tmpDir)

	want := filepath.Join("lib", "deps")
	if !contains(result.Directories, want) {
		t.Errorf("expected %q in directories, got %v", want, result.Directories)
	}
}

func TestDetectAutoExcludes_Frameworks(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "artisan"), "#!/usr/bin/env php")
	writeFile(t, filepath.Join(tmpDir, "storage", "framework", "views", "a.php"), "<?php")
	writeFile(t, filepath.Join(tmpDir, "symfony", "bin", "console"), "#!/usr/bin/env php")
	writeFile(t, filepath.Join(tmpDir, "symfony", "var", "cache", "dev.php"), "<?php")

	result := DetectAutoExcludes(tmpDir)

	for _, dir := range []string{filepath.Join("storage", "framework"), filepath.Join("symfony", "var")} {
		if !contains(result.Directories, dir) {
			t.Errorf("expected %q in directories, got %v", dir, result.Directories)
		}
	}
	if contains(result.Directories, filepath.Join("bootstrap", "cache")) {
		t.Error("missing directories must not be excluded")
	}
}

func TestDetectAutoExcludes_Nested(t *testing.T) {
	tmpDir := t.TempDir()
	pkg := filepath.Join(tmpDir, "packages", "billing")
	writeFile(t, filepath.Join(pkg, "composer.json"), `{}`)
	writeFile(t, filepath.Join(pkg, "vendor", "autoload.php"), "<?php")
	writeFile(t, filepath.Join(pkg, "package.json"), `{}`)
	if err := os.Mkdir(filepath.Join(pkg, "node_modules"), 0755); err != nil {
		t.Fatal(err)
	}

	result := DetectAutoExcludes(tmpDir)

	for _, dir := range []string{
		filepath.Join("packages", "billing", "vendor"),
		filepath.Join("packages", "billing", "node_modules"),
	} {
		if !contains(result.Directories, dir) {
			t.Errorf("expected %q in directories, got %v", dir, result.Directories)
		}
	}

	patterns := result.Patterns()
	if len(patterns) != len(result.Directories) {
		t.Fatalf("expected one pattern per directory, got %v", patterns)
	}
	if !contains(patterns, "packages/billing/vendor/**") {
		t.Errorf("expected slash pattern for vendor, got %v", patterns)
	}
}
