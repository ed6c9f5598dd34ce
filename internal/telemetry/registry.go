package telemetry

import (
	"amdmon/internal/logging"
)

// Discover probes each candidate source once and returns the active set in
// the candidates' order, deduplicated by name. The availability result is
// cached for the session: a backend that fails its probe typically reflects
// persistent driver or tooling state, so it is not retried mid-session.
func Discover(candidates []Source, logger *logging.Logger) []Source {
	active := make([]Source, 0, len(candidates))
	seen := make(map[string]bool)

	for _, source := range candidates {
		if seen[source.Name()] {
			continue
		}
		seen[source.Name()] = true

		if !source.Available() {
			if logger != nil {
				logger.Warn("source.unavailable", "Backend source not available", map[string]interface{}{
					"source": source.Name(),
				})
			}
			continue
		}

		if logger != nil {
			logger.Info("source.active", "Backend source active", map[string]interface{}{
				"source": source.Name(),
			})
		}
		active = append(active, source)
	}

	return active
}
