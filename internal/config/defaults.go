package config

// DefaultConfig returns configuration with sensible defaults.
// These defaults are used when no config file exists or when
// config file is missing specific fields.
func DefaultConfig() *Config {
	return &Config{
		Scan: ScanConfig{
			Extensions: []string{".php"},
			Exclude: []string{
				"vendor/**",
				"node_modules/**",
				"**/cache/**",
				"*.blade.php",
			},
		},
		Inference: InferenceConfig{
			Builtins: map[string]string{},
		},
		Output: OutputConfig{
			Format: "yaml",
		},
		Index: IndexConfig{
			Path: ".apishape/index.db",
		},
	}
}

// Merge merges loaded config with defaults.
// Values from loaded config take precedence over defaults.
// Returns a new Config with merged values.
func Merge(loaded, defaults *Config) *Config {
	result := &Config{Root: loaded.Root}

	result.Scan = mergeScanConfig(loaded.Scan, defaults.Scan)
	result.Reflection = mergeReflectionConfig(loaded.Reflection, defaults.Reflection)
	result.Inference = mergeInferenceConfig(loaded.Inference, defaults.Inference)
	result.Output = mergeOutputConfig(loaded.Output, defaults.Output)
	result.Index = mergeIndexConfig(loaded.Index, defaults.Index)

	return result
}

func mergeScanConfig(loaded, defaults ScanConfig) ScanConfig {
	result := ScanConfig{}

	// Use loaded extensions if provided, otherwise defaults
	if len(loaded.Extensions) > 0 {
		result.Extensions = loaded.Extensions
	} else {
		result.Extensions = defaults.Extensions
	}

	// Use loaded exclude patterns if provided, otherwise defaults
	if len(loaded.Exclude) > 0 {
		result.Exclude = loaded.Exclude
	} else {
		result.Exclude = defaults.Exclude
	}

	return result
}

func mergeReflectionConfig(loaded, defaults ReflectionConfig) ReflectionConfig {
	result := defaults
	if loaded.Dump != "" {
		result.Dump = loaded.Dump
	}
	if loaded.BaseDir != "" {
		result.BaseDir = loaded.BaseDir
	}
	return result
}

// mergeInferenceConfig layers loaded builtins over the defaults entry by
// entry.
func mergeInferenceConfig(loaded, defaults InferenceConfig) InferenceConfig {
	result := InferenceConfig{Builtins: make(map[string]string, len(defaults.Builtins)+len(loaded.Builtins))}
	for k, v := range defaults.Builtins {
		result.Builtins[k] = v
	}
	for k, v := range loaded.Builtins {
		result.Builtins[k] = v
	}
	return result
}

func mergeOutputConfig(loaded, defaults OutputConfig) OutputConfig {
	result := OutputConfig{}

	// Format: use loaded if non-empty
	if loaded.Format != "" {
		result.Format = loaded.Format
	} else {
		result.Format = defaults.Format
	}

	// PublicOnly defaults to false, so the loaded value is always used
	result.PublicOnly = loaded.PublicOnly

	return result
}

func mergeIndexConfig(loaded, defaults IndexConfig) IndexConfig {
	if loaded.Path != "" {
		return loaded
	}
	return defaults
}

// ValidFormats lists the valid values for output format
var ValidFormats = []string{"yaml", "json", "debug"}

// IsValidFormat checks if the given format value is valid
func IsValidFormat(format string) bool {
	for _, valid := range ValidFormats {
		if format == valid {
			return true
		}
	}
	return false
}
