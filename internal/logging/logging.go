// Package logging wires log/slog to stderr or a rotating file sink,
// following the ambient stack described in SPEC_FULL.md §2.1.
package logging

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Verbose bool
	// LogFile, if non-empty, routes logs through a rotating file sink
	// instead of stderr (GITCUTTLE_LOG_FILE).
	LogFile string
}

// New builds the process-wide logger. Verbose raises the level from
// Info to Debug, which is where every git subprocess invocation is
// logged (args, working directory, exit code, trimmed stderr) per
// SPEC_FULL.md §2.1.
func New(opts Options) *slog.Logger {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}

	var w io.Writer = os.Stderr
	if opts.LogFile != "" {
		w = &lumberjack.Logger{
			Filename:   opts.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		}
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

// LogGitCommand emits the Debug-level subprocess trace SPEC_FULL.md
// §2.1 describes: args, working directory, and either a trimmed
// stderr or a success marker.
func LogGitCommand(logger *slog.Logger, dir string, args []string, err error) {
	if err != nil {
		logger.Debug("git command failed", "dir", dir, "args", args, "error", err)
		return
	}
	logger.Debug("git command", "dir", dir, "args", args)
}
