package logging

import (
	"context"
	"errors"
	"log/slog"
)

// fileCopyHandler writes each record to the terminal handler and a JSON copy
// to the log file. Each side filters by its own level, so the file can keep
// debug wire traces while the terminal shows only what the user asked for.
type fileCopyHandler struct {
	terminal slog.Handler
	file     slog.Handler
}

func newFileCopyHandler(terminal, file slog.Handler) slog.Handler {
	if file == nil {
		return terminal
	}
	return &fileCopyHandler{terminal: terminal, file: file}
}

func (h *fileCopyHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.terminal.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *fileCopyHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	if h.terminal.Enabled(ctx, record.Level) {
		// The terminal handler gets a clone; record attrs are shared otherwise.
		errs = append(errs, h.terminal.Handle(ctx, record.Clone()))
	}
	if h.file.Enabled(ctx, record.Level) {
		errs = append(errs, h.file.Handle(ctx, record))
	}
	return errors.Join(errs...)
}

func (h *fileCopyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &fileCopyHandler{terminal: h.terminal.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *fileCopyHandler) WithGroup(name string) slog.Handler {
	return &fileCopyHandler{terminal: h.terminal.WithGroup(name), file: h.file.WithGroup(name)}
}
