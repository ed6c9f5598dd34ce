package telemetry

import (
	"context"
	"encoding/json"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"time"

	"amdmon/internal/logging"
)

const (
	rocmSMIBinary     = "rocm-smi"
	rocmProbeTimeout  = 3 * time.Second
	rocmCardKeyPrefix = "card"
)

// commandRunner executes an external command and returns its stdout.
// Injectable so tests can exercise parsing, failure, and timeout behavior
// without a real rocm-smi.
type commandRunner func(ctx context.Context, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// ROCmSMISource samples telemetry by invoking the rocm-smi command-line tool
// with a bounded timeout and parsing its JSON output. A non-zero exit code,
// a stalled invocation, or unparsable output yields an empty record list for
// that tick; the next tick proceeds normally.
type ROCmSMISource struct {
	logger  *logging.Logger
	timeout time.Duration
	run     commandRunner
	now     func() time.Time
}

// NewROCmSMISource creates a tool-backed source. The timeout bounds each
// --showall invocation.
func NewROCmSMISource(timeout time.Duration, logger *logging.Logger) *ROCmSMISource {
	return &ROCmSMISource{
		logger:  logger,
		timeout: timeout,
		run:     runCommand,
		now:     time.Now,
	}
}

// Name identifies records produced by this source.
func (s *ROCmSMISource) Name() string {
	return SourceROCmSMI
}

// Available probes the tool once with a short version check.
func (s *ROCmSMISource) Available() bool {
	ctx, cancel := context.WithTimeout(context.Background(), rocmProbeTimeout)
	defer cancel()

	if _, err := s.run(ctx, rocmSMIBinary, "--version"); err != nil {
		s.logger.Debug("rocmsmi.probe.failed", "rocm-smi not available", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Sample invokes rocm-smi and maps its per-card payloads to canonical records.
func (s *ROCmSMISource) Sample() []Record {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	out, err := s.run(ctx, rocmSMIBinary, "--showall", "--json")
	if err != nil {
		s.logger.Warn("rocmsmi.sample.failed", "rocm-smi invocation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	return s.parse(out)
}

// parse maps the tool's JSON object ({"card0": {...}, ...}) to records.
// Card entries that cannot be interpreted are dropped individually.
func (s *ROCmSMISource) parse(out []byte) []Record {
	var payload map[string]map[string]interface{}
	if err := json.Unmarshal(out, &payload); err != nil {
		s.logger.Warn("rocmsmi.parse.failed", "rocm-smi output is not valid JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	timestamp := s.now()
	records := make([]Record, 0, len(payload))
	for cardKey, cardData := range payload {
		if !strings.HasPrefix(cardKey, rocmCardKeyPrefix) {
			continue
		}

		deviceID, err := strconv.Atoi(strings.TrimPrefix(cardKey, rocmCardKeyPrefix))
		if err != nil || deviceID < 0 {
			s.logger.Debug("rocmsmi.card.dropped", "Unparsable card key", map[string]interface{}{
				"key": cardKey,
			})
			continue
		}

		records = append(records, s.extract(deviceID, timestamp, cardData))
	}

	// Map iteration order is random; keep device order stable for consumers.
	sortRecordsByDevice(records)

	return records
}

// extract applies the key-priority lists. rocm-smi key names have drifted
// across versions; the lists encode newest-first.
func (s *ROCmSMISource) extract(deviceID int, timestamp time.Time, card map[string]interface{}) Record {
	record := Record{
		DeviceID:   deviceID,
		Timestamp:  timestamp,
		SourceName: SourceROCmSMI,
	}

	record.PowerWatts = firstFloat(card,
		"Current Socket Graphics Package Power (W)",
		"Average Graphics Package Power (W)")
	record.TemperatureCelsius = firstFloat(card,
		"Temperature (Sensor junction) (C)",
		"Temperature (Sensor edge) (C)")
	record.UtilizationPercent = firstFloat(card,
		"GPU use (%)")
	record.VRAMUsagePercent = firstFloat(card,
		"GPU Memory Allocated (VRAM%)",
		"GPU memory use (%)")
	record.CoreClockMHz = firstFloat(card,
		"current_gfxclk (MHz)",
		"sclk clock speed (MHz)")
	record.MemoryClockMHz = firstFloat(card,
		"current_uclk (MHz)",
		"mclk clock speed (MHz)")

	record.EnergyCounterTicks = firstUint(card,
		"energy_accumulator",
		"Energy counter")
	if record.EnergyCounterTicks != nil {
		record.EnergyTickResolutionMicrojoules = firstFloat(card,
			"Energy counter resolution (uJ)",
			"counter_resolution")
		if record.EnergyTickResolutionMicrojoules == nil {
			resolution := DefaultCounterResolutionMicrojoules
			record.EnergyTickResolutionMicrojoules = &resolution
		}
	}

	return record
}

func sortRecordsByDevice(records []Record) {
	sort.Slice(records, func(i, j int) bool {
		return records[i].DeviceID < records[j].DeviceID
	})
}
