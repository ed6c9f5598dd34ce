package energy

import (
	"math"
	"testing"
	"time"

	"amdmon/internal/telemetry"
)

func recordWithEnergy(ticks uint64, resolution float64) telemetry.Record {
	return telemetry.Record{
		DeviceID:                        0,
		SourceName:                      telemetry.SourceAMDSMI,
		EnergyCounterTicks:              &ticks,
		EnergyTickResolutionMicrojoules: &resolution,
	}
}

func TestIntegrate_KnownScenario(t *testing.T) {
	// 1000 ticks at 15.259 uJ/tick = 15259 uJ.
	initial := recordWithEnergy(1000, 15.259)
	final := recordWithEnergy(2000, 15.259)

	result := Integrate(initial, final)
	if result == nil {
		t.Fatal("expected a known integration result")
	}

	if result.DeltaTicks != 1000 {
		t.Errorf("expected delta 1000 ticks, got %d", result.DeltaTicks)
	}
	if math.Abs(result.Microjoules-15259) > 1e-9 {
		t.Errorf("expected 15259 uJ, got %v", result.Microjoules)
	}
	if math.Abs(result.Joules-0.015259) > 1e-12 {
		t.Errorf("expected 0.015259 J, got %v", result.Joules)
	}
	if math.Abs(result.WattHours-15259/3.6e9) > 1e-15 {
		t.Errorf("expected ~0.0000042386 Wh, got %v", result.WattHours)
	}
	if result.ResolutionDrift {
		t.Error("expected no resolution drift")
	}
}

func TestIntegrate_LinearInDeltaTicks(t *testing.T) {
	initial := recordWithEnergy(5000, 15.259)
	single := Integrate(initial, recordWithEnergy(6000, 15.259))
	double := Integrate(initial, recordWithEnergy(7000, 15.259))

	if single == nil || double == nil {
		t.Fatal("expected known results")
	}
	if math.Abs(double.Joules-2*single.Joules) > 1e-12 {
		t.Errorf("doubling delta ticks should double energy: %v vs %v", single.Joules, double.Joules)
	}
}

func TestIntegrate_UnknownCases(t *testing.T) {
	valid := recordWithEnergy(1000, 15.259)

	noTicks := valid
	noTicks.EnergyCounterTicks = nil

	noResolution := valid
	noResolution.EnergyTickResolutionMicrojoules = nil

	tests := []struct {
		name    string
		initial telemetry.Record
		final   telemetry.Record
	}{
		{"initial missing ticks", noTicks, recordWithEnergy(2000, 15.259)},
		{"final missing ticks", valid, noTicks},
		{"initial missing resolution", noResolution, recordWithEnergy(2000, 15.259)},
		{"final missing resolution", valid, noResolution},
		{"counter decreased", recordWithEnergy(2000, 15.259), recordWithEnergy(1000, 15.259)},
		{"both empty", telemetry.Record{}, telemetry.Record{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Integrate(tt.initial, tt.final); result != nil {
				t.Errorf("expected unknown (nil), got %+v", result)
			}
		})
	}
}

func TestIntegrate_EqualTicksIsZeroEnergy(t *testing.T) {
	// An unchanged counter is a valid zero, not unknown.
	result := Integrate(recordWithEnergy(1000, 15.259), recordWithEnergy(1000, 15.259))
	if result == nil {
		t.Fatal("expected a known zero result")
	}
	if result.Joules != 0 {
		t.Errorf("expected 0 J, got %v", result.Joules)
	}
}

func TestIntegrate_ResolutionDriftUsesInitial(t *testing.T) {
	initial := recordWithEnergy(0, 15.259)
	final := recordWithEnergy(1000, 10.0)

	result := Integrate(initial, final)
	if result == nil {
		t.Fatal("expected a known result despite drift")
	}
	if !result.ResolutionDrift {
		t.Error("expected resolution drift to be flagged")
	}
	if math.Abs(result.Microjoules-15259) > 1e-9 {
		t.Errorf("expected initial resolution to be used (15259 uJ), got %v", result.Microjoules)
	}
}

func TestSampledEnergyJoules(t *testing.T) {
	// 100 W for half an hour = 180 kJ.
	joules := SampledEnergyJoules(100, 30*time.Minute)
	if math.Abs(joules-180000) > 1e-9 {
		t.Errorf("expected 180000 J, got %v", joules)
	}
}

func TestDivergencePercent(t *testing.T) {
	if d := DivergencePercent(110, 100); d == nil || math.Abs(*d-10) > 1e-9 {
		t.Errorf("expected +10%%, got %v", d)
	}
	if d := DivergencePercent(90, 100); d == nil || math.Abs(*d+10) > 1e-9 {
		t.Errorf("expected -10%%, got %v", d)
	}
	if d := DivergencePercent(50, 0); d != nil {
		t.Errorf("expected nil divergence for zero estimate, got %v", *d)
	}
}
