// Package export exposes the latest telemetry records as Prometheus gauges
// over an optional HTTP listener.
package export

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"amdmon/internal/logging"
	"amdmon/internal/telemetry"
)

// Exporter mirrors the most recent sample of each device into gauges
// labelled by source and device. Unknown fields clear their gauge instead
// of reporting zero, and devices absent from the latest tick have their
// series removed rather than serving stale values.
type Exporter struct {
	registry *prometheus.Registry

	mu   sync.Mutex
	seen map[string]map[string]struct{}

	power       *prometheus.GaugeVec
	temperature *prometheus.GaugeVec
	utilization *prometheus.GaugeVec
	vram        *prometheus.GaugeVec
	coreClock   *prometheus.GaugeVec
	memClock    *prometheus.GaugeVec
	energyTicks *prometheus.GaugeVec
}

// New creates an exporter with its own registry.
func New() *Exporter {
	labels := []string{"source", "device"}
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		seen:     make(map[string]map[string]struct{}),
		power: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_power_watts",
			Help: "Current GPU socket power in watts.",
		}, labels),
		temperature: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_temperature_celsius",
			Help: "Current GPU temperature in degrees Celsius.",
		}, labels),
		utilization: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_utilization_percent",
			Help: "Current GPU utilization percentage.",
		}, labels),
		vram: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_vram_usage_percent",
			Help: "Current VRAM usage percentage.",
		}, labels),
		coreClock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_core_clock_mhz",
			Help: "Current GPU core clock in MHz.",
		}, labels),
		memClock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_memory_clock_mhz",
			Help: "Current GPU memory clock in MHz.",
		}, labels),
		energyTicks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "amdmon_energy_counter_ticks",
			Help: "Raw cumulative energy counter ticks.",
		}, labels),
	}

	e.registry.MustRegister(e.power, e.temperature, e.utilization, e.vram,
		e.coreClock, e.memClock, e.energyTicks)

	return e
}

// Observe updates the gauges from one source's tick.
func (e *Exporter) Observe(source string, records []telemetry.Record) {
	current := make(map[string]struct{}, len(records))

	for _, r := range records {
		device := strconv.Itoa(r.DeviceID)
		current[device] = struct{}{}

		setOrClear(e.power, source, device, r.PowerWatts)
		setOrClear(e.temperature, source, device, r.TemperatureCelsius)
		setOrClear(e.utilization, source, device, r.UtilizationPercent)
		setOrClear(e.vram, source, device, r.VRAMUsagePercent)
		setOrClear(e.coreClock, source, device, r.CoreClockMHz)
		setOrClear(e.memClock, source, device, r.MemoryClockMHz)

		if r.EnergyCounterTicks != nil {
			e.energyTicks.WithLabelValues(source, device).Set(float64(*r.EnergyCounterTicks))
		} else {
			e.energyTicks.DeleteLabelValues(source, device)
		}
	}

	e.mu.Lock()
	previous := e.seen[source]
	e.seen[source] = current
	e.mu.Unlock()

	for device := range previous {
		if _, ok := current[device]; !ok {
			e.clearDevice(source, device)
		}
	}
}

// clearDevice drops every series for a device that stopped reporting.
func (e *Exporter) clearDevice(source, device string) {
	for _, gauge := range []*prometheus.GaugeVec{
		e.power, e.temperature, e.utilization, e.vram,
		e.coreClock, e.memClock, e.energyTicks,
	} {
		gauge.DeleteLabelValues(source, device)
	}
}

func setOrClear(gauge *prometheus.GaugeVec, source, device string, value *float64) {
	if value == nil {
		gauge.DeleteLabelValues(source, device)
		return
	}
	gauge.WithLabelValues(source, device).Set(*value)
}

// Serve runs the /metrics endpoint until ctx is cancelled.
func (e *Exporter) Serve(ctx context.Context, addr string, logger *logging.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{}))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("export.shutdown.failed", "Metrics listener shutdown reported an error", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("export.listening", "Prometheus metrics exposed", map[string]interface{}{
		"addr": addr,
	})

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
