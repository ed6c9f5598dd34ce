package telemetry

import (
	"time"
)

// Source name constants. Registry order puts the library-backed source
// before the tool-backed one, so consumers that need a single-source view
// can deterministically prefer the first.
const (
	SourceAMDSMI  = "amdsmi"
	SourceROCmSMI = "rocmsmi"
)

// DefaultCounterResolutionMicrojoules is the energy represented by one tick
// of the accumulator when the backend does not report its own resolution.
// This is the documented RSMI counter resolution on current hardware.
const DefaultCounterResolutionMicrojoules = 15.259

// Record is the canonical, backend-agnostic telemetry sample for one device
// at one instant. Optional fields are pointers and serialize as JSON null
// when absent; zero is a legitimate reading and never stands in for unknown.
type Record struct {
	DeviceID   int       `json:"device_id"`
	Timestamp  time.Time `json:"timestamp"`
	SourceName string    `json:"source_name"`

	PowerWatts         *float64 `json:"power_watts"`
	TemperatureCelsius *float64 `json:"temperature_celsius"`
	UtilizationPercent *float64 `json:"utilization_percent"`
	VRAMUsagePercent   *float64 `json:"vram_usage_percent"`
	CoreClockMHz       *float64 `json:"core_clock_mhz"`
	MemoryClockMHz     *float64 `json:"memory_clock_mhz"`

	// EnergyCounterTicks is the raw monotonically increasing hardware
	// counter; it is only meaningful together with the tick resolution
	// reported by the same sample.
	EnergyCounterTicks              *uint64  `json:"energy_counter_ticks"`
	EnergyTickResolutionMicrojoules *float64 `json:"energy_tick_resolution_microjoules"`
}

// Source is a telemetry acquisition path. Sample never propagates failures
// to the caller: any internal error yields an empty list and a log entry.
// Available is probed once at startup; a source found unavailable stays out
// of the active set for the whole session.
type Source interface {
	Name() string
	Available() bool
	Sample() []Record
}

// TotalPower sums the known per-device power across records. Devices with
// unknown power are excluded from both the sum and the count rather than
// contributing zero.
func TotalPower(records []Record) (watts float64, devices int) {
	for _, r := range records {
		if r.PowerWatts != nil {
			watts += *r.PowerWatts
			devices++
		}
	}
	return watts, devices
}
