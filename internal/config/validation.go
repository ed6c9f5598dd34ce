package config

import "fmt"

// Normalize repairs recoverable configuration problems in place and returns a
// description of every repair made. A non-positive sampling interval or tool
// timeout is not an error: the monitor falls back to the documented default
// so a bad environment variable never prevents a session from starting.
func (c *Config) Normalize() []string {
	var repairs []string

	if c.Sampling.IntervalSeconds <= 0 {
		repairs = append(repairs, fmt.Sprintf(
			"sampling.interval_seconds: %v is not positive, using default %v",
			c.Sampling.IntervalSeconds, DefaultIntervalSeconds))
		c.Sampling.IntervalSeconds = DefaultIntervalSeconds
	}

	if c.Sampling.ToolTimeoutSeconds <= 0 {
		repairs = append(repairs, fmt.Sprintf(
			"sampling.tool_timeout_seconds: %v is not positive, using default %v",
			c.Sampling.ToolTimeoutSeconds, DefaultToolTimeoutSeconds))
		c.Sampling.ToolTimeoutSeconds = DefaultToolTimeoutSeconds
	}

	if c.Output.DataDir == "" {
		repairs = append(repairs, "output.data_dir: empty, using current directory")
		c.Output.DataDir = "."
	}

	return repairs
}

// Validate checks the configuration for problems Normalize cannot repair
func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	validLevels := []string{"debug", "info", "warn", "error"}
	if !contains(validLevels, c.Logging.Level) {
		errors = append(errors, ValidationError{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got '%s'", validLevels, c.Logging.Level),
		})
	}

	if !c.Backends.AMDSMI && !c.Backends.ROCmSMI {
		errors = append(errors, ValidationError{
			Path:    "backends",
			Message: "at least one backend must be enabled",
		})
	}

	return errors
}

// contains checks if a string is in a slice
func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
