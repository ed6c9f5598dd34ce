package telemetry

import (
	"time"

	"amdmon/internal/amdsmi"
	"amdmon/internal/logging"
)

// AMDSMISource samples telemetry through the AMD SMI library. Each sample
// pass opens its own library session and releases it on every exit path;
// handles are never held across ticks.
type AMDSMISource struct {
	smi    amdsmi.SMI
	logger *logging.Logger
	now    func() time.Time
}

// NewAMDSMISource creates a library-backed source using the system binding.
func NewAMDSMISource(logger *logging.Logger) *AMDSMISource {
	return NewAMDSMISourceWithSMI(amdsmi.NewSystemSMI(), logger)
}

// NewAMDSMISourceWithSMI creates a source with a custom SMI handle (for testing).
func NewAMDSMISourceWithSMI(smi amdsmi.SMI, logger *logging.Logger) *AMDSMISource {
	return &AMDSMISource{
		smi:    smi,
		logger: logger,
		now:    time.Now,
	}
}

// Name identifies records produced by this source.
func (s *AMDSMISource) Name() string {
	return SourceAMDSMI
}

// Available probes the library once: a session must come up and enumerate at
// least one device.
func (s *AMDSMISource) Available() bool {
	if err := s.smi.Init(); err != nil {
		s.logger.Debug("amdsmi.probe.failed", "AMD SMI not available", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	defer s.closeSession()

	count, err := s.smi.DeviceCount()
	if err != nil {
		s.logger.Debug("amdsmi.probe.failed", "AMD SMI device enumeration failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}

	return count > 0
}

// Sample collects one record per device. Any session-level failure yields an
// empty list; per-call failures degrade only the affected fields.
func (s *AMDSMISource) Sample() []Record {
	if err := s.smi.Init(); err != nil {
		s.logger.Warn("amdsmi.sample.failed", "AMD SMI session init failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	defer s.closeSession()

	count, err := s.smi.DeviceCount()
	if err != nil {
		s.logger.Warn("amdsmi.sample.failed", "AMD SMI device enumeration failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	timestamp := s.now()
	records := make([]Record, 0, count)
	for device := 0; device < count; device++ {
		records = append(records, s.sampleDevice(device, timestamp))
	}

	return records
}

// sampleDevice tries the comprehensive metrics call first and falls back to
// the narrow per-metric calls when it fails. VRAM has no comprehensive
// representation and always uses its own call.
func (s *AMDSMISource) sampleDevice(device int, timestamp time.Time) Record {
	record := Record{
		DeviceID:   device,
		Timestamp:  timestamp,
		SourceName: SourceAMDSMI,
	}

	if metrics, err := s.smi.Metrics(device); err == nil {
		s.extractComprehensive(&record, metrics)
	} else {
		s.logger.Debug("amdsmi.metrics.fallback", "Comprehensive metrics failed, using narrow calls", map[string]interface{}{
			"device": device,
			"error":  err.Error(),
		})
		s.extractNarrow(&record, device)
	}

	if used, total, err := s.smi.VRAMUsage(device); err == nil && total > 0 {
		pct := float64(used) / float64(total) * 100
		record.VRAMUsagePercent = &pct
	}

	return record
}

func (s *AMDSMISource) extractComprehensive(record *Record, metrics map[string]interface{}) {
	record.PowerWatts = firstFloat(metrics, "average_socket_power", "current_socket_power")
	record.TemperatureCelsius = firstFloat(metrics, "temperature_edge", "temperature_hotspot")
	record.UtilizationPercent = firstFloat(metrics, "average_gfx_activity")
	record.CoreClockMHz = firstFloat(metrics, "average_gfxclk_frequency", "current_gfxclk")
	record.MemoryClockMHz = firstFloat(metrics, "average_uclk_frequency", "current_uclk")

	record.EnergyCounterTicks = firstUint(metrics, "energy_accumulator")
	if record.EnergyCounterTicks != nil {
		record.EnergyTickResolutionMicrojoules = firstFloat(metrics, "energy_counter_resolution")
		if record.EnergyTickResolutionMicrojoules == nil {
			resolution := DefaultCounterResolutionMicrojoules
			record.EnergyTickResolutionMicrojoules = &resolution
		}
	}
}

// extractNarrow issues one call per metric; a failed call leaves only its
// field absent.
func (s *AMDSMISource) extractNarrow(record *Record, device int) {
	if power, err := s.smi.Power(device); err == nil {
		record.PowerWatts = firstFloat(power, "current_socket_power", "average_socket_power")
	}

	if temp, err := s.smi.TemperatureCelsius(device); err == nil {
		record.TemperatureCelsius = &temp
	}

	if activity, err := s.smi.Activity(device); err == nil {
		record.UtilizationPercent = firstFloat(activity, "gfx_activity")
	}

	if energy, err := s.smi.Energy(device); err == nil {
		record.EnergyCounterTicks = firstUint(energy, "energy_accumulator", "counter")
		if record.EnergyCounterTicks != nil {
			record.EnergyTickResolutionMicrojoules = firstFloat(energy, "counter_resolution")
			if record.EnergyTickResolutionMicrojoules == nil {
				resolution := DefaultCounterResolutionMicrojoules
				record.EnergyTickResolutionMicrojoules = &resolution
			}
		}
	}
}

func (s *AMDSMISource) closeSession() {
	if err := s.smi.Shutdown(); err != nil {
		s.logger.Warn("amdsmi.shutdown.failed", "AMD SMI session shutdown reported an error", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
