// Package main is the entry point for scenepad.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/gdamore/tcell/v2"
	"golang.org/x/term"

	"github.com/dshills/scenepad/internal/app"
	"github.com/dshills/scenepad/internal/config"
	"github.com/dshills/scenepad/internal/logging"
	"github.com/dshills/scenepad/internal/render"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

type options struct {
	configPath string
	query      string
	renderOut  string
	logFile    string
	logLevel   string
	headless   bool
	watch      bool
	path       string
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}

	headless := opts.headless || !term.IsTerminal(int(os.Stdin.Fd())) || !term.IsTerminal(int(os.Stdout.Fd()))

	logOut, closeLog, err := logOutput(opts.logFile, headless)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer closeLog()
	logger := logging.New(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Output: logOut,
		Prefix: "scenepad",
	})

	sessOpts := app.Options{
		Config: cfg,
		Path:   opts.path,
		Query:  opts.query,
		Watch:  opts.watch,
		Logger: logger,
	}
	if opts.renderOut != "" {
		store := render.NewStore()
		sessOpts.Resources = store
		sessOpts.Target = render.NewFileTarget(opts.renderOut, store)
	}

	session, err := app.New(sessOpts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to initialize: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := session.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	defer func() {
		if err := session.Close(); err != nil {
			logger.Error("shutdown: %v", err)
		}
	}()

	if headless {
		logger.Info("running headless; interrupt to exit")
		<-ctx.Done()
		return 0
	}

	screen, err := tcell.NewScreen()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to create terminal: %v\n", err)
		return 1
	}
	if err := session.Run(ctx, screen); err != nil && !errors.Is(err, app.ErrQuit) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// logOutput picks the log destination. The terminal front end owns the
// screen, so it only logs to a file.
func logOutput(path string, headless bool) (io.Writer, func(), error) {
	if path == "" {
		if headless {
			return os.Stderr, func() {}, nil
		}
		return io.Discard, func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func parseFlags() options {
	var opts options
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.configPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.configPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&opts.query, "query", "", "Startup directives, e.g. \"foldLevel=2&lines=10-20\"")
	flag.StringVar(&opts.query, "q", "", "Startup directives (shorthand)")
	flag.StringVar(&opts.renderOut, "render-out", "", "Write the render-ready scene to this file on every reload")
	flag.StringVar(&opts.logFile, "log-file", "", "Append logs to this file")
	flag.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
	flag.BoolVar(&opts.headless, "headless", false, "Run without the terminal front end")
	flag.BoolVar(&opts.watch, "watch", true, "Reload the scene when it changes on disk")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "scenepad - editor for map scene styles\n\n")
		fmt.Fprintf(os.Stderr, "Usage: scenepad [options] [scene.yaml]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  scenepad                               Restore the last session\n")
		fmt.Fprintf(os.Stderr, "  scenepad scene.yaml                    Open a scene\n")
		fmt.Fprintf(os.Stderr, "  scenepad -q foldLevel=1 scene.yaml     Open folded to level 1\n")
		fmt.Fprintf(os.Stderr, "  scenepad -render-out live.yaml s.yaml  Mirror edits to live.yaml\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("scenepad %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	switch opts.logLevel {
	case "", "debug", "info", "warn", "error":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid log level %q (must be debug, info, warn, or error)\n", opts.logLevel)
		os.Exit(1)
	}

	if flag.NArg() > 0 {
		opts.path = flag.Arg(0)
	}
	return opts
}
