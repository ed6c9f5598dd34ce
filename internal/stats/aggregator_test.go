package stats

import (
	"math"
	"testing"
	"time"

	"amdmon/internal/telemetry"
)

func floatPtr(v float64) *float64 { return &v }
func uintPtr(v uint64) *uint64    { return &v }

func record(device int, ts time.Time, power *float64) telemetry.Record {
	return telemetry.Record{
		DeviceID:   device,
		Timestamp:  ts,
		SourceName: telemetry.SourceROCmSMI,
		PowerWatts: power,
	}
}

func energyRecord(device int, ticks uint64, resolution float64) telemetry.Record {
	return telemetry.Record{
		DeviceID:                        device,
		SourceName:                      telemetry.SourceROCmSMI,
		EnergyCounterTicks:              &ticks,
		EnergyTickResolutionMicrojoules: &resolution,
	}
}

func TestBuildSeries(t *testing.T) {
	series := BuildSeries([]float64{10, 30, 20})
	if series.Min != 10 || series.Max != 30 || series.Avg != 20 || series.Count != 3 {
		t.Errorf("unexpected series: %+v", series)
	}

	empty := BuildSeries(nil)
	if empty.Count != 0 || empty.Min != 0 || empty.Max != 0 || empty.Avg != 0 {
		t.Errorf("expected zero series, got %+v", empty)
	}
}

func TestAggregate_EmptyStream(t *testing.T) {
	summary := Aggregate(telemetry.SourceROCmSMI, nil, nil, nil, time.Minute)

	if summary.DeviceCount != 0 || summary.RecordCount != 0 {
		t.Errorf("expected zero counts, got %+v", summary)
	}
	if summary.DevicePower.Count != 0 || summary.SystemPower.Count != 0 {
		t.Error("expected empty power series")
	}
	if summary.IntegratedJoules != nil || summary.AvgPowerFromSamples != nil {
		t.Error("expected unknown energy figures")
	}
}

func TestAggregate_UnknownPowerExcludedFromSystemTotal(t *testing.T) {
	ts := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	records := []telemetry.Record{
		record(0, ts, floatPtr(120.0)),
		record(1, ts, nil), // unknown power must not count as zero
	}

	summary := Aggregate(telemetry.SourceROCmSMI, records, nil, nil, time.Minute)

	if summary.SystemPower.Count != 1 {
		t.Fatalf("expected one system power entry, got %d", summary.SystemPower.Count)
	}
	if summary.SystemPower.Avg != 120.0 {
		t.Errorf("expected system power 120.0, got %v", summary.SystemPower.Avg)
	}
	if summary.DeviceCount != 2 {
		t.Errorf("expected 2 devices, got %d", summary.DeviceCount)
	}
	if summary.DevicePower.Count != 1 {
		t.Errorf("expected 1 per-device power reading, got %d", summary.DevicePower.Count)
	}
}

func TestAggregate_InstantWithNoKnownPowerContributesNothing(t *testing.T) {
	ts1 := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	ts2 := ts1.Add(2 * time.Second)
	records := []telemetry.Record{
		record(0, ts1, floatPtr(100.0)),
		record(1, ts1, floatPtr(50.0)),
		record(0, ts2, nil),
		record(1, ts2, nil),
	}

	summary := Aggregate(telemetry.SourceROCmSMI, records, nil, nil, time.Minute)

	if summary.SystemPower.Count != 1 {
		t.Fatalf("expected one system power entry, got %d", summary.SystemPower.Count)
	}
	if summary.SystemPower.Max != 150.0 {
		t.Errorf("expected 150.0 total, got %v", summary.SystemPower.Max)
	}
}

func TestAggregate_EnergyFromBookends(t *testing.T) {
	start := []telemetry.Record{
		energyRecord(0, 1000, 15.259),
		energyRecord(1, 5000, 15.259),
	}
	end := []telemetry.Record{
		energyRecord(0, 2000, 15.259),
		energyRecord(1, 6000, 15.259),
	}

	summary := Aggregate(telemetry.SourceROCmSMI, nil, start, end, time.Hour)

	if summary.EnergyDevices != 2 {
		t.Fatalf("expected 2 integrated devices, got %d", summary.EnergyDevices)
	}
	expectedJoules := 2 * 1000 * 15.259 / 1e6
	if summary.IntegratedJoules == nil || math.Abs(*summary.IntegratedJoules-expectedJoules) > 1e-12 {
		t.Errorf("expected %v J, got %v", expectedJoules, summary.IntegratedJoules)
	}
	if summary.AvgPowerFromEnergy == nil {
		t.Fatal("expected avg power from energy")
	}
	if math.Abs(*summary.AvgPowerFromEnergy-expectedJoules/3600) > 1e-15 {
		t.Errorf("unexpected avg power from energy: %v", *summary.AvgPowerFromEnergy)
	}
}

func TestAggregate_NonMonotonicDeviceStaysUnknown(t *testing.T) {
	start := []telemetry.Record{
		energyRecord(0, 1000, 15.259),
		energyRecord(1, 9000, 15.259), // counter will go backwards
	}
	end := []telemetry.Record{
		energyRecord(0, 2000, 15.259),
		energyRecord(1, 100, 15.259),
	}

	summary := Aggregate(telemetry.SourceROCmSMI, nil, start, end, time.Hour)

	if summary.EnergyDevices != 1 {
		t.Fatalf("expected 1 integrated device, got %d", summary.EnergyDevices)
	}
	expectedJoules := 1000 * 15.259 / 1e6
	if summary.IntegratedJoules == nil || math.Abs(*summary.IntegratedJoules-expectedJoules) > 1e-12 {
		t.Errorf("expected only device 0's energy, got %v", summary.IntegratedJoules)
	}
}

func TestAggregate_ResolutionDriftFlagged(t *testing.T) {
	start := []telemetry.Record{energyRecord(0, 1000, 15.259)}
	end := []telemetry.Record{energyRecord(0, 2000, 10.0)}

	summary := Aggregate(telemetry.SourceROCmSMI, nil, start, end, time.Hour)

	if !summary.ResolutionDrift {
		t.Error("expected resolution drift to be flagged")
	}
}

func TestAggregate_Divergence(t *testing.T) {
	ts := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)
	// 100 W sampled for one hour = 360 kJ; counter says 396 kJ = +10%.
	//   396000 J = 396e9 uJ; at 15.259 uJ/tick that's ticks = 396e9/15.259.
	microjoulesPerTick := 15.259
	deltaTicks := uint64(396000e6 / microjoulesPerTick)
	records := []telemetry.Record{record(0, ts, floatPtr(100.0))}
	start := []telemetry.Record{energyRecord(0, 0, 15.259)}
	end := []telemetry.Record{energyRecord(0, deltaTicks, 15.259)}

	summary := Aggregate(telemetry.SourceROCmSMI, records, start, end, time.Hour)

	if summary.DivergencePercent == nil {
		t.Fatal("expected a divergence figure")
	}
	if math.Abs(*summary.DivergencePercent-10) > 0.01 {
		t.Errorf("expected ~+10%% divergence, got %v", *summary.DivergencePercent)
	}
}
