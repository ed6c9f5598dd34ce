// Package stats derives session statistics from a record stream and the
// session's bookend records. Sources are aggregated independently; streams
// from different backends are never merged because their sampling cadence
// and device enumeration are not assumed commensurable.
package stats

import (
	"sort"
	"time"

	"amdmon/internal/energy"
	"amdmon/internal/telemetry"
)

// Series summarizes the observed values of one metric.
type Series struct {
	Min   float64
	Max   float64
	Avg   float64
	Count int
}

// BuildSeries computes min/max/avg over the given values. An empty input
// yields the zero Series.
func BuildSeries(values []float64) Series {
	if len(values) == 0 {
		return Series{}
	}

	series := Series{
		Min:   values[0],
		Max:   values[0],
		Count: len(values),
	}

	var sum float64
	for _, v := range values {
		if v < series.Min {
			series.Min = v
		}
		if v > series.Max {
			series.Max = v
		}
		sum += v
	}
	series.Avg = sum / float64(len(values))

	return series
}

// Summary holds the derived statistics for one source over one session.
type Summary struct {
	Source      string
	SessionID   string
	Duration    time.Duration
	DeviceCount int
	RecordCount int
	// DroppedLines counts malformed stream lines skipped while reading the
	// record stream back; set by the caller that owns the stream.
	DroppedLines int

	// DevicePower flattens per-device readings across all devices and
	// instants. SystemPower summarizes the per-instant totals.
	DevicePower Series
	SystemPower Series
	Temperature Series
	Utilization Series

	// EnergyDevices counts devices whose bookend pair integrated to a
	// known value; the totals below are nil when it is zero.
	EnergyDevices           int
	IntegratedJoules        *float64
	IntegratedWattHours     *float64
	IntegratedKilowattHours *float64
	AvgPowerFromEnergy      *float64
	AvgPowerFromSamples     *float64
	SampledEnergyJoules     *float64
	DivergencePercent       *float64
	ResolutionDrift         bool
}

// Aggregate computes a source's session summary. Empty inputs produce a
// zero-valued summary, never an error.
func Aggregate(source string, records, startBookends, endBookends []telemetry.Record, duration time.Duration) Summary {
	summary := Summary{
		Source:      source,
		Duration:    duration,
		RecordCount: len(records),
		DeviceCount: countDevices(records, startBookends, endBookends),
	}

	var devicePower, temperature, utilization []float64
	for _, r := range records {
		if r.PowerWatts != nil {
			devicePower = append(devicePower, *r.PowerWatts)
		}
		if r.TemperatureCelsius != nil {
			temperature = append(temperature, *r.TemperatureCelsius)
		}
		if r.UtilizationPercent != nil {
			utilization = append(utilization, *r.UtilizationPercent)
		}
	}

	summary.DevicePower = BuildSeries(devicePower)
	summary.Temperature = BuildSeries(temperature)
	summary.Utilization = BuildSeries(utilization)
	summary.SystemPower = BuildSeries(systemPowerSeries(records))

	aggregateEnergy(&summary, startBookends, endBookends)

	if summary.SystemPower.Count > 0 {
		avg := summary.SystemPower.Avg
		summary.AvgPowerFromSamples = &avg

		if duration > 0 {
			sampled := energy.SampledEnergyJoules(avg, duration)
			summary.SampledEnergyJoules = &sampled

			if summary.IntegratedJoules != nil {
				summary.DivergencePercent = energy.DivergencePercent(*summary.IntegratedJoules, sampled)
			}
		}
	}

	return summary
}

// systemPowerSeries groups records by sampling instant and sums the known
// per-device power within each group. Devices with unknown power are
// excluded from the sum; an instant with no known-power device contributes
// no entry at all.
func systemPowerSeries(records []telemetry.Record) []float64 {
	type group struct {
		total float64
		known bool
	}

	groups := make(map[int64]*group)
	var order []int64
	for _, r := range records {
		key := r.Timestamp.UnixNano()
		g, ok := groups[key]
		if !ok {
			g = &group{}
			groups[key] = g
			order = append(order, key)
		}
		if r.PowerWatts != nil {
			g.total += *r.PowerWatts
			g.known = true
		}
	}

	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	var series []float64
	for _, key := range order {
		if g := groups[key]; g.known {
			series = append(series, g.total)
		}
	}
	return series
}

// aggregateEnergy integrates each device's bookend pair and sums known
// results. A device whose counter went backwards or lost its resolution
// stays unknown without affecting the others.
func aggregateEnergy(summary *Summary, startBookends, endBookends []telemetry.Record) {
	finals := make(map[int]telemetry.Record, len(endBookends))
	for _, r := range endBookends {
		finals[r.DeviceID] = r
	}

	var totalMicrojoules float64
	for _, initial := range startBookends {
		final, ok := finals[initial.DeviceID]
		if !ok {
			continue
		}

		result := energy.Integrate(initial, final)
		if result == nil {
			continue
		}

		totalMicrojoules += result.Microjoules
		summary.EnergyDevices++
		if result.ResolutionDrift {
			summary.ResolutionDrift = true
		}
	}

	if summary.EnergyDevices == 0 {
		return
	}

	joules := totalMicrojoules / 1e6
	wattHours := totalMicrojoules / 3.6e9
	kilowattHours := wattHours / 1e3
	summary.IntegratedJoules = &joules
	summary.IntegratedWattHours = &wattHours
	summary.IntegratedKilowattHours = &kilowattHours

	if summary.Duration > 0 {
		avg := joules / summary.Duration.Seconds()
		summary.AvgPowerFromEnergy = &avg
	}
}

func countDevices(recordSets ...[]telemetry.Record) int {
	seen := make(map[int]bool)
	for _, records := range recordSets {
		for _, r := range records {
			seen[r.DeviceID] = true
		}
	}
	return len(seen)
}
