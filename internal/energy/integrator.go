// Package energy converts the hardware energy accumulator into physical
// energy quantities and cross-validates the result against power-sample
// integration.
package energy

import (
	"time"

	"amdmon/internal/telemetry"
)

const (
	microjoulesPerJoule    = 1e6
	microjoulesPerWattHour = 3.6e9
	wattHoursPerKilowatt   = 1e3
)

// Integration is the energy consumed between two samples of the same device.
type Integration struct {
	DeltaTicks    uint64
	Microjoules   float64
	Joules        float64
	WattHours     float64
	KilowattHours float64

	// ResolutionDrift is set when the two samples report different tick
	// resolutions. The initial sample's resolution is still used, but the
	// result may be off if the backend's resolution is not session-stable,
	// so callers should surface a warning.
	ResolutionDrift bool
}

// Integrate computes the energy consumed between an initial and a final
// record. It returns nil, meaning unknown, when either record lacks the
// counter or its resolution, or when the counter decreased. A decreased
// counter indicates a wraparound or device reset; the counter width is not
// guaranteed, so no wrap modulus is guessed and no data beats a wrong number.
func Integrate(initial, final telemetry.Record) *Integration {
	if initial.EnergyCounterTicks == nil || initial.EnergyTickResolutionMicrojoules == nil {
		return nil
	}
	if final.EnergyCounterTicks == nil || final.EnergyTickResolutionMicrojoules == nil {
		return nil
	}
	if *final.EnergyCounterTicks < *initial.EnergyCounterTicks {
		return nil
	}

	// The initial sample's resolution is authoritative for the interval.
	deltaTicks := *final.EnergyCounterTicks - *initial.EnergyCounterTicks
	microjoules := float64(deltaTicks) * *initial.EnergyTickResolutionMicrojoules

	return &Integration{
		DeltaTicks:      deltaTicks,
		Microjoules:     microjoules,
		Joules:          microjoules / microjoulesPerJoule,
		WattHours:       microjoules / microjoulesPerWattHour,
		KilowattHours:   microjoules / microjoulesPerWattHour / wattHoursPerKilowatt,
		ResolutionDrift: *initial.EnergyTickResolutionMicrojoules != *final.EnergyTickResolutionMicrojoules,
	}
}

// SampledEnergyJoules estimates session energy from the average sampled power
// over the session duration. Counter integration and periodic power sampling
// carry different systematic biases, so the two figures are reported side by
// side rather than reconciled.
func SampledEnergyJoules(avgPowerWatts float64, duration time.Duration) float64 {
	return avgPowerWatts * duration.Seconds()
}

// DivergencePercent reports how far the counter-integrated energy deviates
// from the power-sample estimate, as a percentage of the estimate. Nil when
// the estimate is zero, since the ratio is undefined there. Divergence is
// diagnostic output only, never an error.
func DivergencePercent(integratedJoules, sampledJoules float64) *float64 {
	if sampledJoules == 0 {
		return nil
	}
	divergence := (integratedJoules - sampledJoules) / sampledJoules * 100
	return &divergence
}
