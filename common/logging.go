// Package common contains shared utilities used across the provisioner:
// logger setup and build version information.
package common

import (
	"log/slog"
	"os"
)

type LoggingOpts struct {
	// Debug lowers the minimum log level to DEBUG.
	Debug bool

	// JSON switches the handler to JSON output, for log collectors.
	JSON bool

	// Service is added as a "service" attribute to every record when set.
	Service string

	// Version is added as a "version" attribute to every record when set.
	Version string
}

// SetupLogger builds the process-wide slog.Logger. All components receive
// this logger (or a child of it) through their constructors.
func SetupLogger(opts *LoggingOpts) (log *slog.Logger) {
	logLevel := slog.LevelInfo
	if opts.Debug {
		logLevel = slog.LevelDebug
	}

	if opts.JSON {
		log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	} else {
		log = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	}

	if opts.Service != "" {
		log = log.With("service", opts.Service)
	}
	if opts.Version != "" {
		log = log.With("version", opts.Version)
	}

	return log
}
