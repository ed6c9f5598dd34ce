// Package amdsmi wraps the AMD SMI library behind a narrow interface so the
// telemetry layer can be exercised without GPU hardware. The real binding is
// only compiled with the `amdsmi` build tag; untagged builds get a stub that
// reports the library as unavailable, leaving rocm-smi as the usable backend.
package amdsmi

import "errors"

// ErrUnavailable is returned by every call on a stub handle and by Init when
// the library cannot be brought up.
var ErrUnavailable = errors.New("amdsmi library not available")

// ErrUnsupported is returned when the library is up but a particular call is
// not supported by the installed firmware or binding.
var ErrUnsupported = errors.New("amdsmi call not supported")

// SMI is the handle-based session contract against the AMD SMI library.
// A session is scoped per sample pass: Init, enumerate, read, Shutdown.
// Holding a session across sample passes is not allowed because handles can
// go stale between them.
//
// Calls that mirror dictionary-shaped library responses return loosely typed
// payloads; the telemetry layer applies its key-priority rules to them the
// same way it does to tool output.
type SMI interface {
	Init() error
	Shutdown() error
	DeviceCount() (int, error)

	// Metrics is the comprehensive per-device metrics call. Firmware or
	// API mismatches make it fail as a whole; callers then fall back to
	// the narrow calls below, each independently optional.
	Metrics(device int) (map[string]interface{}, error)

	// Power reports socket power readings in watts.
	Power(device int) (map[string]interface{}, error)

	// TemperatureCelsius reports the current edge-sensor temperature.
	TemperatureCelsius(device int) (float64, error)

	// Activity reports engine activity percentages.
	Activity(device int) (map[string]interface{}, error)

	// Energy reports the cumulative energy counter and its tick
	// resolution in microjoules.
	Energy(device int) (map[string]interface{}, error)

	// VRAMUsage reports used and total VRAM in bytes.
	VRAMUsage(device int) (used, total uint64, err error)
}
