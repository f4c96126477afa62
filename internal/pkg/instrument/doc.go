// Package instrument wires OpenTelemetry tracing, metrics and logs, and
// installs the process-wide slog logger.
//
// Log records carry the request correlation id and the active trace and span
// ids, and configured sensitive keys are masked before any handler sees them.
package instrument
