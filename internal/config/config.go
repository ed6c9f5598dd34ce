package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"amdmon/internal/fsutil"
)

const envPrefix = "AMDMON_"

// Load resolves the configuration in priority order:
// defaults < config file < .env file < environment variables.
// The path is only ever user-supplied, so a file that cannot be read is an
// error rather than a silent fall-through to defaults. Repairs made while
// normalizing are returned alongside so the caller can log them; they never
// fail the load.
func Load(path string) (Config, []string, error) {
	cfg := DefaultConfig()

	if path != "" {
		if err := mergeConfigFile(&cfg, path); err != nil {
			return cfg, nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	// A .env file in the working directory feeds the same AMDMON_* variables
	// as the real environment. Missing file is fine.
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	repairs := cfg.Normalize()

	if validationErrors := cfg.Validate(); len(validationErrors) > 0 {
		return cfg, repairs, fmt.Errorf("invalid configuration: %v", formatValidationErrors(validationErrors))
	}

	return cfg, repairs, nil
}

// mergeConfigFile reads a YAML file and merges it into the existing config
func mergeConfigFile(cfg *Config, path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// applyEnvOverrides merges AMDMON_* environment variables into the config.
// Unparsable numeric values are left for Normalize to repair by setting the
// offending field non-positive.
func applyEnvOverrides(cfg *Config) {
	if v, ok := lookupEnv("INTERVAL"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sampling.IntervalSeconds = f
		} else {
			cfg.Sampling.IntervalSeconds = -1
		}
	}

	if v, ok := lookupEnv("TOOL_TIMEOUT"); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Sampling.ToolTimeoutSeconds = f
		} else {
			cfg.Sampling.ToolTimeoutSeconds = -1
		}
	}

	cfg.Output.DataDir = fsutil.ResolveDataDir(cfg.Output.DataDir)

	if v, ok := lookupEnv("LOG_LEVEL"); ok {
		cfg.Logging.Level = strings.ToLower(v)
	}

	if v, ok := lookupEnv("LOG_FILE"); ok {
		cfg.Logging.File = v
	}

	if v, ok := lookupEnv("LISTEN"); ok {
		cfg.Export.ListenAddress = v
	}

	if v, ok := lookupEnv("DISABLE_AMDSMI"); ok && isTruthy(v) {
		cfg.Backends.AMDSMI = false
	}

	if v, ok := lookupEnv("DISABLE_ROCMSMI"); ok && isTruthy(v) {
		cfg.Backends.ROCmSMI = false
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// formatValidationErrors formats validation errors for display
func formatValidationErrors(errors []ValidationError) string {
	messages := make([]string, 0, len(errors))
	for _, e := range errors {
		messages = append(messages, e.Error())
	}
	return strings.Join(messages, "; ")
}
