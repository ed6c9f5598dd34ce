package config

// Config represents the complete resolved monitor configuration. It is built
// once at process start and passed by reference into the session and the
// sources; nothing reads flags or environment variables after that.
type Config struct {
	Backends BackendsConfig `yaml:"backends"`
	Sampling SamplingConfig `yaml:"sampling"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`
	Export   ExportConfig   `yaml:"export"`
}

// BackendsConfig enables or disables individual telemetry backends
type BackendsConfig struct {
	AMDSMI  bool `yaml:"amdsmi"`
	ROCmSMI bool `yaml:"rocmsmi"`
}

// SamplingConfig controls the sample loop timing
type SamplingConfig struct {
	IntervalSeconds    float64 `yaml:"interval_seconds"`
	ToolTimeoutSeconds float64 `yaml:"tool_timeout_seconds"`
}

// OutputConfig controls where record streams and reports are written
type OutputConfig struct {
	DataDir string `yaml:"data_dir"`
}

// LoggingConfig represents logging configuration. An empty File keeps
// diagnostics on stderr.
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// ExportConfig controls the optional Prometheus exporter
type ExportConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Path    string
	Message string
}

func (e ValidationError) Error() string {
	return e.Path + ": " + e.Message
}
