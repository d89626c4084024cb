// Package exclude decides which directories a PHP project scan skips.
package exclude

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
)

// AutoExcludeResult contains the directories to exclude and why.
type AutoExcludeResult struct {
	// Directories to exclude (relative to project root)
	Directories []string
	// Reasons maps each directory to why it was excluded
	Reasons map[string]string
}

// Patterns returns the excluded directories as matcher patterns.
func (r *AutoExcludeResult) Patterns() []string {
	patterns := make([]string, 0, len(r.Directories))
	for _, dir := range r.Directories {
		patterns = append(patterns, filepath.ToSlash(dir)+"/**")
	}
	return patterns
}

// DetectAutoExcludes scans the project root for dependency and cache
// directories that hold no first-party PHP. Only marker files are used as
// evidence, so nothing is excluded on a guess. Nested projects are detected
// too (e.g. packages/billing/vendor/).
func DetectAutoExcludes(projectRoot string) *AutoExcludeResult {
	result := &AutoExcludeResult{
		Directories: []string{},
		Reasons:     make(map[string]string),
	}

	add := func(dir, reason string) {
		if !dirExists(filepath.Join(projectRoot, dir)) || contains(result.Directories, dir) {
			return
		}
		result.Directories = append(result.Directories, dir)
		result.Reasons[dir] = reason
	}

	_ = filepath.WalkDir(projectRoot, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip directories we can't read
		}
		if path == projectRoot {
			return nil
		}

		relPath, err := filepath.Rel(projectRoot, path)
		if err != nil {
			return nil
		}

		if d.IsDir() {
			// Skip anything already excluded, and never descend into
			// dependency trees looking for more markers.
			for _, excluded := range result.Directories {
				if relPath == excluded || strings.HasPrefix(relPath, excluded+string(filepath.Separator)) {
					return filepath.SkipDir
				}
			}
			switch d.Name() {
			case "vendor", "node_modules", ".git":
				return filepath.SkipDir
			}
			return nil
		}

		relDir := filepath.Dir(relPath)
		join := func(name string) string {
			if relDir == "." {
				return name
			}
			return filepath.Join(relDir, name)
		}

		switch d.Name() {
		case "composer.json":
			vendorDir := join(composerVendorDir(path))
			if fileExists(filepath.Join(projectRoot, vendorDir, "autoload.php")) {
				add(vendorDir, "PHP Composer dependencies (vendor/autoload.php detected)")
			}

		case "package.json":
			add(join("node_modules"), "Node.js dependencies (package.json detected)")

		case "artisan":
			add(join(filepath.Join("storage", "framework")), "Laravel compiled views and cache (artisan detected)")
			add(join(filepath.Join("bootstrap", "cache")), "Laravel bootstrap cache (artisan detected)")

		case "console":
			if filepath.Base(relDir) == "bin" {
				projectDir := filepath.Dir(relDir)
				varDir := filepath.Join(projectDir, "var")
				if projectDir == "." {
					varDir = "var"
				}
				add(varDir, "Symfony cache and logs (bin/console detected)")
			}
		}

		return nil
	})

	return result
}

// composerVendorDir returns the vendor directory configured in a
// composer.json, or "vendor".
func composerVendorDir(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return "vendor"
	}
	var manifest struct {
		Config struct {
			VendorDir string `json:"vendor-dir"`
		} `json:"config"`
	}
	if err := json.Unmarshal(data, &manifest); err != nil || manifest.Config.VendorDir == "" {
		return "vendor"
	}
	return filepath.Clean(filepath.FromSlash(manifest.Config.VendorDir))
}

// fileExists checks if a file exists and is not a directory.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// dirExists checks if a directory exists.
func dirExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

// contains checks if a string is in a slice.
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
