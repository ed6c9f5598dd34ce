package stats

import (
	"fmt"
	"strings"
	"time"
)

// Render produces the UTF-8 session report for one source. The report is
// self-contained: every figure the session derived for this source appears
// here, with "unknown" standing in for values that could not be computed.
func Render(summary Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== GPU Monitoring Report [%s] ===\n", strings.ToUpper(summary.Source))
	if summary.SessionID != "" {
		fmt.Fprintf(&b, "Session:  %s\n", summary.SessionID)
	}
	fmt.Fprintf(&b, "Duration: %s\n", summary.Duration.Round(time.Millisecond))
	fmt.Fprintf(&b, "Devices:  %d\n", summary.DeviceCount)
	fmt.Fprintf(&b, "Records:  %d", summary.RecordCount)
	if summary.DroppedLines > 0 {
		fmt.Fprintf(&b, " (%d malformed lines dropped)", summary.DroppedLines)
	}
	b.WriteString("\n\n")

	if summary.DeviceCount == 0 {
		b.WriteString("No device data recorded for this source.\n")
		return b.String()
	}

	writeSeries(&b, "Power (per device)", summary.DevicePower, "W")
	writeSeries(&b, "Power (system)", summary.SystemPower, "W")
	writeSeries(&b, "Temperature", summary.Temperature, "°C")
	writeSeries(&b, "Utilization", summary.Utilization, "%")
	b.WriteString("\n")

	b.WriteString("Energy (counter integration):\n")
	if summary.IntegratedJoules != nil {
		fmt.Fprintf(&b, "  Devices integrated:   %d\n", summary.EnergyDevices)
		fmt.Fprintf(&b, "  Total:                %.1f J  (%.6f Wh, %.9f kWh)\n",
			*summary.IntegratedJoules, *summary.IntegratedWattHours, *summary.IntegratedKilowattHours)
		if summary.AvgPowerFromEnergy != nil {
			fmt.Fprintf(&b, "  Avg power from energy: %.1f W\n", *summary.AvgPowerFromEnergy)
		}
	} else {
		b.WriteString("  unknown (no usable energy counter for this source)\n")
	}

	if summary.AvgPowerFromSamples != nil {
		fmt.Fprintf(&b, "  Avg power from samples: %.1f W", *summary.AvgPowerFromSamples)
		if summary.SampledEnergyJoules != nil {
			fmt.Fprintf(&b, "  (%.1f J over session)", *summary.SampledEnergyJoules)
		}
		b.WriteString("\n")
	}

	if summary.DivergencePercent != nil {
		fmt.Fprintf(&b, "  Divergence (counter vs sampled): %+.1f%%\n", *summary.DivergencePercent)
	}

	if summary.ResolutionDrift {
		b.WriteString("\nWarning: energy counter resolution changed during the session;\n")
		b.WriteString("integrated energy assumes the start-of-session resolution.\n")
	}

	return b.String()
}

func writeSeries(b *strings.Builder, label string, series Series, unit string) {
	if series.Count == 0 {
		fmt.Fprintf(b, "%-22s unknown\n", label+":")
		return
	}
	fmt.Fprintf(b, "%-22s min %.1f %s   max %.1f %s   avg %.1f %s\n",
		label+":", series.Min, unit, series.Max, unit, series.Avg, unit)
}
