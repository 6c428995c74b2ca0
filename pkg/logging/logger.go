// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package logging builds the structured loggers used by the insight
// binaries.
//
// Output goes to stderr by default, following Unix CLI conventions.
// When a log directory is configured, a JSON file log is written
// alongside, named "{service}_{YYYY-MM-DD}.log". File logs are always
// JSON regardless of the stderr format since they are meant for
// machine processing.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"
)

// Config configures a logger. The zero value logs Info and above to
// stderr as text.
type Config struct {
	// Level is the minimum level to emit.
	// Default: slog.LevelInfo
	Level slog.Level

	// Service is attached to every entry as the "service" attribute.
	// Default: "" (no attribute)
	Service string

	// LogDir enables file logging when non-empty. Supports a leading ~
	// for the home directory. The directory is created if missing.
	LogDir string

	// JSON switches the stderr output to JSON.
	JSON bool

	// Quiet disables stderr output. Useful for daemons whose stderr is
	// not monitored. File logging still applies when LogDir is set.
	Quiet bool

	// Writer overrides the stderr destination. Tests use this to
	// capture output.
	Writer io.Writer
}

// New builds a logger from the config.
//
// Outputs:
//
//	*slog.Logger - Ready to use logger
//	func() error - Cleanup closing the log file, safe to call always
func New(config Config) (*slog.Logger, func() error) {
	opts := &slog.HandlerOptions{Level: config.Level}

	stderr := config.Writer
	if stderr == nil {
		stderr = os.Stderr
	}

	var handlers []slog.Handler
	if !config.Quiet {
		if config.JSON {
			handlers = append(handlers, slog.NewJSONHandler(stderr, opts))
		} else {
			handlers = append(handlers, slog.NewTextHandler(stderr, opts))
		}
	}

	cleanup := func() error { return nil }
	if config.LogDir != "" {
		if file, err := openLogFile(config.LogDir, config.Service); err == nil {
			handlers = append(handlers, slog.NewJSONHandler(file, opts))
			cleanup = func() error {
				if err := file.Sync(); err != nil {
					return fmt.Errorf("sync log file: %w", err)
				}
				return file.Close()
			}
		}
	}

	var handler slog.Handler
	switch len(handlers) {
	case 0:
		handler = slog.NewTextHandler(stderr, opts)
	case 1:
		handler = handlers[0]
	default:
		handler = &multiHandler{handlers: handlers}
	}

	if config.Service != "" {
		handler = handler.WithAttrs([]slog.Attr{slog.String("service", config.Service)})
	}
	return slog.New(handler), cleanup
}

// Default returns a stderr-only text logger at Info level.
func Default() *slog.Logger {
	logger, _ := New(Config{Service: "insight"})
	return logger
}

func openLogFile(dir, service string) (*os.File, error) {
	dir = expandPath(dir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, err
	}
	if service == "" {
		service = "insight"
	}
	name := fmt.Sprintf("%s_%s.log", service, time.Now().Format("2006-01-02"))
	return os.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if len(path) > 0 && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// multiHandler fans a record out to every handler, so stderr can stay
// human-readable while the file log stays JSON.
type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, r.Level) {
			if err := handler.Handle(ctx, r); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		handlers[i] = handler.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
