// Package logging assembles structured slog loggers and formatting helpers used
// across videoflix.
//
// It owns the console and JSON handlers, centralizes level and output plumbing,
// and exposes context-aware helpers so pipeline code automatically tags log
// lines with asset IDs, job IDs, profiles, and correlation IDs. The package also
// provides a no-op logger for tests and wiring code that cannot fail.
package logging
