// Command tau compresses a file or directory into an xz archive.
//
//	tau <input> <output>
//
// A regular file is compressed as-is. A directory is archived as a stream of
// records, one per regular file beneath it. The exit status is 0 on success,
// 1 on failure, and 2 on a usage error.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"

	"github.com/meigma/tau"
)

const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := run(ctx, os.Args[1:], os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("tau", flag.ContinueOnError)
	fs.SetOutput(stderr)
	atomic := fs.Bool("atomic", false, "write to a temporary file and rename it into place")
	verbose := fs.Bool("v", false, "log session progress and every archived file")
	maxFiles := fs.Int("max-files", 0, "fail if a directory holds more regular files (0: no limit)")
	fs.Usage = func() {
		fmt.Fprintln(fs.Output(), "usage: tau [flags] <input> <output>")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if fs.NArg() != 2 {
		fs.Usage()
		return exitUsage
	}
	input, output := fs.Arg(0), fs.Arg(1)

	opts := []tau.Option{
		tau.WithLogger(newLogger(stderr, *verbose)),
		tau.WithMaxFiles(*maxFiles),
	}
	if *atomic {
		opts = append(opts, tau.WithAtomicWrite())
	}

	if _, err := tau.CompressPath(ctx, input, output, opts...); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", errorLabel(stderr), err)
		return exitError
	}
	return exitOK
}

// newLogger logs warnings only, so a failed run prints one line. Verbose
// mode logs everything down to Debug.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// errorLabel is the diagnostic prefix, red when w is a terminal.
func errorLabel(w io.Writer) string {
	c := color.New(color.FgRed, color.Bold)
	if isTerminal(w) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c.Sprint("error:")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
