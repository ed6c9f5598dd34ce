package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"
)

const rocmShowAllFixture = `{
	"card0": {
		"Current Socket Graphics Package Power (W)": "35.0",
		"Average Graphics Package Power (W)": "33.0",
		"Temperature (Sensor junction) (C)": "62.0",
		"Temperature (Sensor edge) (C)": "55.0",
		"GPU use (%)": "97",
		"GPU Memory Allocated (VRAM%)": "41",
		"current_gfxclk (MHz)": "2235",
		"current_uclk (MHz)": "1249",
		"Energy counter": "123456789",
		"Energy counter resolution (uJ)": "15.259"
	},
	"card1": {
		"Average Graphics Package Power (W)": "28.5",
		"GPU use (%)": "N/A",
		"Temperature (Sensor edge) (C)": "48.0"
	},
	"system": {
		"Driver version": "6.3.2"
	}
}`

func fixtureRunner(out string, err error) commandRunner {
	return func(context.Context, string, ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func newTestROCmSource(run commandRunner) *ROCmSMISource {
	source := NewROCmSMISource(time.Second, testLogger())
	source.run = run
	return source
}

func TestROCmSMISource_Name(t *testing.T) {
	source := newTestROCmSource(fixtureRunner("", nil))
	if source.Name() != SourceROCmSMI {
		t.Errorf("expected %s, got %s", SourceROCmSMI, source.Name())
	}
}

func TestROCmSMISource_Available(t *testing.T) {
	available := newTestROCmSource(fixtureRunner("ROCM-SMI version: 2.0.0", nil))
	if !available.Available() {
		t.Error("expected available when version check succeeds")
	}

	missing := newTestROCmSource(fixtureRunner("", errors.New("executable not found")))
	if missing.Available() {
		t.Error("expected unavailable when version check fails")
	}
}

func TestROCmSMISource_Sample_ParsesCards(t *testing.T) {
	source := newTestROCmSource(fixtureRunner(rocmShowAllFixture, nil))

	records := source.Sample()
	if len(records) != 2 {
		t.Fatalf("expected 2 records (system key skipped), got %d", len(records))
	}

	card0 := records[0]
	if card0.DeviceID != 0 || card0.SourceName != SourceROCmSMI {
		t.Errorf("identity mismatch: %+v", card0)
	}
	if card0.PowerWatts == nil || *card0.PowerWatts != 35.0 {
		t.Errorf("expected preferred power key 35.0, got %v", card0.PowerWatts)
	}
	if card0.TemperatureCelsius == nil || *card0.TemperatureCelsius != 62.0 {
		t.Errorf("expected junction temperature 62.0, got %v", card0.TemperatureCelsius)
	}
	if card0.UtilizationPercent == nil || *card0.UtilizationPercent != 97 {
		t.Errorf("utilization mismatch: %v", card0.UtilizationPercent)
	}
	if card0.VRAMUsagePercent == nil || *card0.VRAMUsagePercent != 41 {
		t.Errorf("vram mismatch: %v", card0.VRAMUsagePercent)
	}
	if card0.CoreClockMHz == nil || *card0.CoreClockMHz != 2235 {
		t.Errorf("core clock mismatch: %v", card0.CoreClockMHz)
	}
	if card0.EnergyCounterTicks == nil || *card0.EnergyCounterTicks != 123456789 {
		t.Errorf("energy counter mismatch: %v", card0.EnergyCounterTicks)
	}
	if card0.EnergyTickResolutionMicrojoules == nil || *card0.EnergyTickResolutionMicrojoules != 15.259 {
		t.Errorf("resolution mismatch: %v", card0.EnergyTickResolutionMicrojoules)
	}

	card1 := records[1]
	if card1.DeviceID != 1 {
		t.Errorf("expected device 1, got %d", card1.DeviceID)
	}
	if card1.PowerWatts == nil || *card1.PowerWatts != 28.5 {
		t.Errorf("expected fallback power key 28.5, got %v", card1.PowerWatts)
	}
	// "N/A" values stay unknown.
	if card1.UtilizationPercent != nil {
		t.Errorf("expected unknown utilization for N/A, got %v", *card1.UtilizationPercent)
	}
	if card1.TemperatureCelsius == nil || *card1.TemperatureCelsius != 48.0 {
		t.Errorf("expected edge-sensor fallback 48.0, got %v", card1.TemperatureCelsius)
	}
	if card1.EnergyCounterTicks != nil {
		t.Error("expected unknown energy counter for card1")
	}
}

func TestROCmSMISource_Sample_CommandFailure(t *testing.T) {
	source := newTestROCmSource(fixtureRunner("", errors.New("exit status 1")))

	if records := source.Sample(); len(records) != 0 {
		t.Errorf("expected empty records on command failure, got %d", len(records))
	}
}

func TestROCmSMISource_Sample_MalformedOutput(t *testing.T) {
	source := newTestROCmSource(fixtureRunner("WARNING: something went wrong", nil))

	if records := source.Sample(); len(records) != 0 {
		t.Errorf("expected empty records on malformed output, got %d", len(records))
	}
}

func TestROCmSMISource_Sample_TimeoutThenRecovers(t *testing.T) {
	calls := 0
	source := newTestROCmSource(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		calls++
		if calls == 1 {
			// Simulate a stalled tool hitting its invocation bound.
			<-ctx.Done()
			return nil, ctx.Err()
		}
		return []byte(rocmShowAllFixture), nil
	})
	source.timeout = 10 * time.Millisecond

	if records := source.Sample(); len(records) != 0 {
		t.Fatalf("expected empty records for the timed-out tick, got %d", len(records))
	}

	// The next tick proceeds normally.
	if records := source.Sample(); len(records) != 2 {
		t.Errorf("expected recovery on next tick, got %d records", len(records))
	}
}

func TestROCmSMISource_Sample_BadCardKeyDropped(t *testing.T) {
	source := newTestROCmSource(fixtureRunner(`{"cardX": {"GPU use (%)": "50"}}`, nil))

	if records := source.Sample(); len(records) != 0 {
		t.Errorf("expected unparsable card key to be dropped, got %d records", len(records))
	}
}
