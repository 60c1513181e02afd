// Package logging assembles structured slog loggers and formatting helpers used
// across vidshelf.
//
// It owns the console and JSON handlers, centralizes level and output
// plumbing, and exposes attribute helpers so transport code tags log lines
// with session, request, and notification identifiers in a consistent shape.
// A no-op logger is provided for tests and wiring code that cannot fail.
package logging
