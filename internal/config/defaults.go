package config

import "time"

const (
	// DefaultIntervalSeconds is the documented sampling interval fallback.
	DefaultIntervalSeconds = 2.0
	// DefaultToolTimeoutSeconds bounds a single rocm-smi invocation.
	DefaultToolTimeoutSeconds = 10.0
	// FastIntervalSeconds is the --fast shorthand interval.
	FastIntervalSeconds = 0.5
	// SlowIntervalSeconds is the --slow shorthand interval.
	SlowIntervalSeconds = 5.0
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() Config {
	return Config{
		Backends: BackendsConfig{
			AMDSMI:  true,
			ROCmSMI: true,
		},
		Sampling: SamplingConfig{
			IntervalSeconds:    DefaultIntervalSeconds,
			ToolTimeoutSeconds: DefaultToolTimeoutSeconds,
		},
		Output: OutputConfig{
			DataDir: ".",
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Export: ExportConfig{
			ListenAddress: "",
		},
	}
}

// Interval returns the sampling interval as a duration
func (c *Config) Interval() time.Duration {
	return time.Duration(c.Sampling.IntervalSeconds * float64(time.Second))
}

// ToolTimeout returns the external-tool invocation bound as a duration
func (c *Config) ToolTimeout() time.Duration {
	return time.Duration(c.Sampling.ToolTimeoutSeconds * float64(time.Second))
}
