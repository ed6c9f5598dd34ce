// Package stream persists canonical records as an append-only JSONL stream,
// one file per source per session, and reads them back for aggregation.
package stream

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"amdmon/internal/fsutil"
	"amdmon/internal/logging"
	"amdmon/internal/telemetry"
)

// FilePath builds the record stream path for a source within a session.
// The session start timestamp keeps concurrent and successive sessions from
// appending to each other's streams.
func FilePath(dir, source string, sessionStart time.Time) string {
	name := fmt.Sprintf("gpu_records_%s_%s.jsonl", source, sessionStart.Format("20060102_150405"))
	return filepath.Join(dir, name)
}

// Sink appends records for one source to its session stream file. The file
// is only ever written by the orchestrator after a tick, so no locking is
// needed.
type Sink struct {
	path   string
	logger *logging.Logger
}

// NewSink creates a sink writing to the given path.
func NewSink(path string, logger *logging.Logger) *Sink {
	return &Sink{
		path:   path,
		logger: logger,
	}
}

// Path returns the stream file path.
func (s *Sink) Path() string {
	return s.path
}

// Append writes one JSON object per record. Optional record fields serialize
// as null so downstream tooling can rely on key presence.
func (s *Sink) Append(records []telemetry.Record) error {
	if len(records) == 0 {
		return nil
	}

	file, err := os.OpenFile(s.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fsutil.DefaultFilePermissions)
	if err != nil {
		return fmt.Errorf("failed to open record stream: %w", err)
	}
	defer file.Close()

	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("failed to marshal record: %w", err)
		}
		data = append(data, '\n')

		if _, err := file.Write(data); err != nil {
			return fmt.Errorf("failed to write record: %w", err)
		}
	}

	s.logger.Debug("stream.appended", "Appended records to stream", map[string]interface{}{
		"path":  s.path,
		"count": len(records),
	})

	return nil
}
