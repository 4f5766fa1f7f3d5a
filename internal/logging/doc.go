// Package logging assembles structured slog loggers and formatting helpers used
// across autocrack.
//
// Console output puts the component and pipeline step in the line prefix and
// trails everything else as key=value pairs. When a log directory is
// configured, the same records also land in autocrack.log as JSON lines. The
// context helpers tag lines with the run id, the current step, and the
// library being processed.
package logging
