package stream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"amdmon/internal/logging"
	"amdmon/internal/telemetry"
)

// ReadAll reads a record stream back. Malformed lines are dropped and
// counted, never fatal; the error return is reserved for the file being
// unreadable as a whole.
func ReadAll(path string, logger *logging.Logger) (records []telemetry.Record, dropped int, err error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to open record stream: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	// Records are small, but leave headroom over the default token size.
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var record telemetry.Record
		if err := json.Unmarshal(line, &record); err != nil {
			dropped++
			if logger != nil {
				logger.Warn("stream.line.dropped", "Dropped malformed stream line", map[string]interface{}{
					"path":  path,
					"error": err.Error(),
				})
			}
			continue
		}

		records = append(records, record)
	}

	if err := scanner.Err(); err != nil {
		return records, dropped, fmt.Errorf("failed to read record stream: %w", err)
	}

	return records, dropped, nil
}
