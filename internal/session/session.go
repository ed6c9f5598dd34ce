// Package session drives the sample/sleep cycle over the active backend
// sources, routes records to their per-source streams, and finalizes the
// run into per-source statistics reports.
package session

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"amdmon/internal/config"
	"amdmon/internal/fsutil"
	"amdmon/internal/logging"
	"amdmon/internal/stats"
	"amdmon/internal/stream"
	"amdmon/internal/telemetry"
)

// Observer receives each tick's records for a source. The Prometheus
// exporter implements this; tests use it to watch the loop.
type Observer interface {
	Observe(source string, records []telemetry.Record)
}

// Options configures a session beyond the resolved process configuration.
type Options struct {
	// Save enables the per-source record streams and report files.
	// Without it the session aggregates from memory and only prints.
	Save bool
	// Stdout receives human-readable status output and reports.
	// Defaults to os.Stdout.
	Stdout io.Writer
	// Observer is optional.
	Observer Observer
}

// Session owns one monitoring run: the active sources, the start/end
// bookend record sets, and the running record streams.
type Session struct {
	cfg      *config.Config
	logger   *logging.Logger
	sources  []telemetry.Source
	observer Observer
	stdout   io.Writer
	save     bool

	id    uuid.UUID
	start time.Time
	now   func() time.Time

	sinks         map[string]*stream.Sink
	buffers       map[string][]telemetry.Record
	startBookends map[string][]telemetry.Record
}

// New creates a session over the already-discovered active sources.
func New(cfg *config.Config, sources []telemetry.Source, logger *logging.Logger, opts Options) *Session {
	stdout := opts.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}

	return &Session{
		cfg:           cfg,
		logger:        logger,
		sources:       sources,
		observer:      opts.Observer,
		stdout:        stdout,
		save:          opts.Save,
		id:            uuid.New(),
		now:           time.Now,
		sinks:         make(map[string]*stream.Sink),
		buffers:       make(map[string][]telemetry.Record),
		startBookends: make(map[string][]telemetry.Record),
	}
}

// ID returns the session identity used in logs and reports.
func (s *Session) ID() string {
	return s.id.String()
}

// RunOnce performs exactly one sample pass and prints the instantaneous
// record set and total power. It never writes files.
func (s *Session) RunOnce() {
	s.start = s.now()
	bySource := s.samplePass(false)
	s.printStatus(bySource)
}

// Run executes the continuous monitoring loop until ctx is cancelled, then
// finalizes: the end bookend is captured, per-source statistics are
// aggregated, and one report per source is emitted. Cancellation is only
// observed between ticks; an in-flight sample finishes or is abandoned with
// the process, never torn down halfway.
func (s *Session) Run(ctx context.Context) error {
	s.start = s.now()

	if s.save {
		if err := fsutil.EnsureDataDir(s.cfg.Output.DataDir); err != nil {
			return err
		}
		for _, source := range s.sources {
			path := stream.FilePath(s.cfg.Output.DataDir, source.Name(), s.start)
			s.sinks[source.Name()] = stream.NewSink(path, s.logger)
			fmt.Fprintf(s.stdout, "Saving %s records to: %s\n", source.Name(), path)
		}
	}

	s.logger.Info("session.start", "Monitoring session started", map[string]interface{}{
		"session":  s.ID(),
		"interval": s.cfg.Interval().String(),
		"sources":  len(s.sources),
		"save":     s.save,
	})

	// The first pass doubles as the start-time bookend.
	bySource := s.samplePass(true)
	s.printStatus(bySource)
	for name, records := range bySource {
		s.startBookends[name] = records
	}

	ticker := time.NewTicker(s.cfg.Interval())
	defer ticker.Stop()

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			s.printStatus(s.samplePass(true))
		}
	}

	return s.finalize()
}

// samplePass samples every active source sequentially. A failing source
// yields an empty set for this tick only; it stays active for the next one.
func (s *Session) samplePass(persist bool) map[string][]telemetry.Record {
	bySource := make(map[string][]telemetry.Record, len(s.sources))

	for _, source := range s.sources {
		records := source.Sample()
		bySource[source.Name()] = records

		if len(records) == 0 {
			s.logger.Debug("session.tick.empty", "Source produced no records this tick", map[string]interface{}{
				"source": source.Name(),
			})
		}

		if s.observer != nil {
			s.observer.Observe(source.Name(), records)
		}

		if !persist {
			continue
		}

		if sink, ok := s.sinks[source.Name()]; ok {
			if err := sink.Append(records); err != nil {
				s.logger.Error("session.sink.failed", "Failed to append records", map[string]interface{}{
					"source": source.Name(),
					"error":  err.Error(),
				})
			}
		} else {
			s.buffers[source.Name()] = append(s.buffers[source.Name()], records...)
		}
	}

	return bySource
}

// finalize captures the end-time bookend, aggregates each source's stream
// independently, and emits one report per source.
func (s *Session) finalize() error {
	endBookends := s.samplePass(true)
	duration := s.now().Sub(s.start)

	s.logger.Info("session.finalize", "Monitoring stopped, aggregating", map[string]interface{}{
		"session":  s.ID(),
		"duration": duration.String(),
	})

	for _, source := range s.sources {
		summary := s.aggregate(source.Name(), endBookends[source.Name()], duration)
		summary.SessionID = s.ID()

		report := stats.Render(summary)
		fmt.Fprintln(s.stdout)
		fmt.Fprint(s.stdout, report)

		if s.save {
			if err := s.writeReport(source.Name(), report); err != nil {
				s.logger.Error("session.report.failed", "Failed to write report", map[string]interface{}{
					"source": source.Name(),
					"error":  err.Error(),
				})
			}
		}
	}

	return nil
}

// aggregate builds one source's summary from its persisted stream (save
// mode) or its in-memory buffer. An unreadable stream degrades to an empty
// summary so reporting never aborts the session; the in-memory bookends are
// discarded too, so the report cannot claim devices or integrated energy
// the stream no longer substantiates.
func (s *Session) aggregate(source string, endBookend []telemetry.Record, duration time.Duration) stats.Summary {
	var records []telemetry.Record
	var dropped int
	startBookend := s.startBookends[source]

	if sink, ok := s.sinks[source]; ok {
		var err error
		records, dropped, err = stream.ReadAll(sink.Path(), s.logger)
		if err != nil {
			s.logger.Error("session.stream.unreadable", "Record stream could not be read back", map[string]interface{}{
				"source": source,
				"error":  err.Error(),
			})
			records, startBookend, endBookend = nil, nil, nil
		}
	} else {
		records = s.buffers[source]
	}

	summary := stats.Aggregate(source, records, startBookend, endBookend, duration)
	summary.DroppedLines = dropped
	return summary
}

func (s *Session) writeReport(source, report string) error {
	path := filepath.Join(s.cfg.Output.DataDir,
		fmt.Sprintf("gpu_report_%s_%s.txt", source, s.start.Format("20060102_150405")))

	if err := fsutil.AtomicWriteFile(path, []byte(report), fsutil.DefaultFilePermissions, s.logger); err != nil {
		return err
	}

	fmt.Fprintf(s.stdout, "Report written to: %s\n", path)
	return nil
}

// printStatus renders the per-tick human-readable view: one block per
// source with data, then the total system power taken from the first source
// in registry order that produced records.
func (s *Session) printStatus(bySource map[string][]telemetry.Record) {
	any := false
	for _, records := range bySource {
		if len(records) > 0 {
			any = true
			break
		}
	}
	if !any {
		fmt.Fprintln(s.stdout, "No GPU data available")
		return
	}

	fmt.Fprintf(s.stdout, "\n=== GPU Status - %s ===\n", s.now().Format("15:04:05"))

	for _, source := range s.sources {
		records := bySource[source.Name()]
		if len(records) == 0 {
			continue
		}

		fmt.Fprintf(s.stdout, "\n[%s]\n", source.Name())
		for _, r := range records {
			fmt.Fprintf(s.stdout, "  GPU %d: %s, %s, %s util, %s VRAM\n",
				r.DeviceID,
				formatValue(r.PowerWatts, "%.1fW"),
				formatValue(r.TemperatureCelsius, "%.1f°C"),
				formatValue(r.UtilizationPercent, "%.1f%%"),
				formatValue(r.VRAMUsagePercent, "%.1f%%"))
		}
	}

	// Single-source-of-truth view: the first source with data wins.
	for _, source := range s.sources {
		records := bySource[source.Name()]
		if len(records) == 0 {
			continue
		}
		if watts, devices := telemetry.TotalPower(records); devices > 0 {
			fmt.Fprintf(s.stdout, "\nTotal System Power: %.1fW (%d GPUs via %s)\n",
				watts, devices, source.Name())
		}
		break
	}
}

func formatValue(v *float64, format string) string {
	if v == nil {
		return "N/A"
	}
	return fmt.Sprintf(format, *v)
}
