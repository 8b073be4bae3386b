package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/natefinch/lumberjack.v2"

	platformerrors "github.com/ab22593k/gitai/errors"
)

func (c *CLI) setupLogging(cmd *cobra.Command) error {
	level, _ := cmd.Flags().GetString("log-level")
	format, _ := cmd.Flags().GetString("log-format")
	file, _ := cmd.Flags().GetString("log-file")

	logger, closer, err := newLogger(level, format, file, c.stderr)
	if err != nil {
		return err
	}
	c.closeLog()
	c.logger, c.logCloser = logger, closer
	return nil
}

// newLogger builds the process logger. With a file, output goes through a
// rotating writer that the returned closer closes.
func newLogger(level, format, file string, stderr io.Writer) (*slog.Logger, io.Closer, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, nil, platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "invalid log level"),
			"level", level,
		)
	}

	var (
		out    = stderr
		closer io.Closer
	)
	if file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o755); err != nil {
			return nil, nil, platformerrors.Wrap(err, platformerrors.CodeInvalidConfig, "failed to create log directory")
		}
		rotator := &lumberjack.Logger{
			Filename:   file,
			MaxSize:    50,
			MaxBackups: 5,
			Compress:   true,
			LocalTime:  true,
		}
		out, closer = rotator, rotator
	}

	opts := &slog.HandlerOptions{Level: lvl}
	var handler slog.Handler
	switch strings.ToLower(format) {
	case "", "text":
		handler = slog.NewTextHandler(out, opts)
	case "json":
		handler = slog.NewJSONHandler(out, opts)
	default:
		if closer != nil {
			_ = closer.Close()
		}
		return nil, nil, platformerrors.WithContext(
			platformerrors.New(platformerrors.CodeInvalidInput, "invalid log format"),
			"format", format,
		)
	}
	return slog.New(handler), closer, nil
}
