package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/idelchi/shelldu/internal/shelldu"
)

// newLogger returns a console debug logger writing to w, or a no-op logger.
func newLogger(debug bool, w io.Writer) *zap.Logger {
	if !debug {
		return zap.NewNop()
	}

	encoder := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())

	return zap.New(zapcore.NewCore(encoder, zapcore.AddSync(w), zapcore.DebugLevel))
}

// isTerminal reports whether w is a terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)

	return ok && isatty.IsTerminal(f.Fd())
}

func (c CLI) analyze(ctx context.Context, options shelldu.Options) error {
	enableProgress := options.Output == "table" &&
		!options.Debug &&
		isTerminal(c.stderr)

	log := newLogger(options.Debug, c.stderr)
	defer log.Sync() //nolint:errcheck // Nothing to do on sync failure

	options.Logger = log
	options.Stdin = c.stdin

	// Simple progress callback that prints directly to stderr
	var progressHook func(lines, bytes int64)

	if enableProgress {
		// Hide cursor for in-place updates; restore on exit.
		fmt.Fprint(c.stderr, "\033[?25l")
		defer fmt.Fprint(c.stderr, "\033[?25h")

		progressHook = func(lines, bytes int64) {
			msg := fmt.Sprintf("Reading… %d lines, %s",
				lines, humanize.IBytes(uint64(bytes))) //nolint:gosec // Bytes is always positive
			fmt.Fprintf(c.stderr, "\r\033[2K%s\r", msg)
		}
	}

	results, err := shelldu.Run(ctx, c.fsys, options, progressHook)

	// Clear the status line
	if enableProgress {
		fmt.Fprint(c.stderr, "\r\033[2K\r")
	}

	if err != nil {
		return err
	}

	switch options.Output {
	case "json":
		return PrintJSON(results, c.stdout)
	case "yaml":
		return PrintYAML(results, c.stdout)
	case "table":
		return PrintTable(results, c.stdout)
	default:
		return fmt.Errorf("unknown output format: %s", options.Output)
	}
}

func (c CLI) record(ctx context.Context, path, out string, options shelldu.Options) (err error) {
	log := newLogger(options.Debug, c.stderr)
	defer log.Sync() //nolint:errcheck // Nothing to do on sync failure

	options.Logger = log

	w := c.stdout

	if out != "" {
		f, createErr := c.fsys.Create(out)
		if createErr != nil {
			return fmt.Errorf("creating %q: %w", out, createErr)
		}

		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("closing %q: %w", out, cerr)
			}
		}()

		w = f
	}

	res, err := shelldu.Record(ctx, path, options, w)
	if err != nil {
		return err
	}

	if res.Skipped > 0 {
		fmt.Fprintf(c.stderr, "skipped %d unreadable or unencodable entries\n", res.Skipped)
	}

	return nil
}
