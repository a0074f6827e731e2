// Package logging builds the slog loggers used across clipforge.
//
// Two output formats are supported: a compact console format that lifts the
// component attribute into the line prefix, and standard JSON. Output fans out
// to stdout and a file under the configured log directory.
package logging
