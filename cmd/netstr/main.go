package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/epithet-ssh/netstr/pkg/config"
	"github.com/epithet-ssh/netstr/pkg/netstr"
	"github.com/lmittmann/tint"
)

var version = "dev"

type CLI struct {
	Verbose    int      `short:"v" type:"counter" help:"Increase log verbosity (-v info, -vv debug)"`
	Config     []string `short:"c" help:"Config file (YAML, JSON or CUE); repeat to unify several"`
	MaxLength  *int     `help:"Largest accepted payload in bytes (overrides config)"`
	BufferSize *int     `help:"Bytes requested from the input per read (overrides config)"`
	Lenient    bool     `help:"Skip ASCII whitespace between netstrings"`

	Encode  EncodeCLI  `cmd:"" help:"Encode lines or whole files as netstrings"`
	Decode  DecodeCLI  `cmd:"" help:"Decode a netstring stream and print each payload"`
	Check   CheckCLI   `cmd:"" help:"Validate netstring streams"`
	Version VersionCLI `cmd:"" help:"Print the version"`
}

// Streams are the process streams, replaced in tests.
type Streams struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], &Streams{Stdin: os.Stdin, Stdout: os.Stdout, Stderr: os.Stderr})
	stop()
	os.Exit(code)
}

// run parses args, executes the selected command and returns the exit status.
func run(ctx context.Context, args []string, streams *Streams) int {
	var cli CLI
	parser, err := kong.New(&cli,
		kong.Name("netstr"),
		kong.Description("Encode, decode and validate netstring streams."),
		kong.UsageOnError(),
		kong.Writers(streams.Stdout, streams.Stderr),
	)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "netstr: %v\n", err)
		return 2
	}

	kctx, err := parser.Parse(args)
	if err != nil {
		fmt.Fprintf(streams.Stderr, "netstr: %v\n", err)
		return 2
	}

	logger := newLogger(streams.Stderr, cli.Verbose)

	cfg, err := cli.loadConfig()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return 2
	}
	logger.Debug("config loaded",
		"max_length", cfg.MaxLength,
		"buffer_size", cfg.BufferSize,
		"lenient", cfg.Lenient,
		"format", cfg.Format)

	kctx.BindTo(ctx, (*context.Context)(nil))
	if err := kctx.Run(logger, cfg, streams); err != nil {
		if !errors.Is(err, errInvalidInput) {
			logger.Error("command failed", "command", kctx.Command(), "error", err)
		}
		return 1
	}
	return 0
}

func newLogger(w io.Writer, verbosity int) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case verbosity == 1:
		level = slog.LevelInfo
	case verbosity >= 2:
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    os.Getenv("NO_COLOR") != "",
	}))
}

// loadConfig reads the config files and applies flag overrides.
func (c *CLI) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(c.Config...)
	if err != nil {
		return nil, err
	}
	if c.MaxLength != nil {
		if *c.MaxLength < 0 {
			return nil, fmt.Errorf("--max-length must not be negative")
		}
		cfg.MaxLength = *c.MaxLength
	}
	if c.BufferSize != nil {
		if *c.BufferSize < 1 {
			return nil, fmt.Errorf("--buffer-size must be positive")
		}
		cfg.BufferSize = *c.BufferSize
	}
	if c.Lenient {
		cfg.Lenient = true
	}
	return cfg, nil
}

func decoderOptions(cfg *config.Config) []netstr.Option {
	opts := []netstr.Option{
		netstr.MaxLength(cfg.MaxLength),
		netstr.BufferSize(cfg.BufferSize),
	}
	if cfg.Lenient {
		opts = append(opts, netstr.Lenient())
	}
	return opts
}

type VersionCLI struct{}

func (v *VersionCLI) Run(streams *Streams) error {
	_, err := fmt.Fprintf(streams.Stdout, "netstr %s\n", version)
	return err
}
