package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/epithet-ssh/netstr/internal/source"
	"github.com/epithet-ssh/netstr/pkg/config"
	"github.com/epithet-ssh/netstr/pkg/netstr"
)

// errInvalidInput is returned by check once the report has been printed.
var errInvalidInput = errors.New("invalid input")

type CheckCLI struct {
	Inputs      []string `arg:"" optional:"" help:"Streams to validate: paths, s3:// URLs or - for stdin (default stdin)"`
	Compression string   `help:"Input compression: auto, none, gzip, zstd, lz4" default:"auto"`
}

// checkResult summarizes one validated stream.
type checkResult struct {
	Values int
	Bytes  int64 // payload bytes
	Offset int64 // stream offset of the error, or the stream length
	Err    error
}

func (c *CheckCLI) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config, streams *Streams) error {
	compression, err := source.ParseCompression(c.Compression)
	if err != nil {
		return err
	}

	inputs := c.Inputs
	if len(inputs) == 0 {
		inputs = []string{source.Stdin}
	}

	failed := 0
	for _, name := range inputs {
		res := checkStream(ctx, name, cfg, source.Options{
			Compression: compression,
			S3:          cfg.S3,
			Stdin:       streams.Stdin,
			Logger:      logger,
		})
		if res.Err != nil {
			failed++
			logger.Warn("invalid stream", "input", name, "offset", res.Offset, "error", res.Err)
			fmt.Fprintf(streams.Stdout, "%s: invalid at offset %d after %d netstrings: %v\n", name, res.Offset, res.Values, res.Err)
			continue
		}
		fmt.Fprintf(streams.Stdout, "%s: ok, %d netstrings, %d payload bytes\n", name, res.Values, res.Bytes)
	}

	if failed > 0 {
		return errInvalidInput
	}
	return nil
}

func checkStream(ctx context.Context, name string, cfg *config.Config, opts source.Options) checkResult {
	r, err := source.Open(ctx, name, opts)
	if err != nil {
		return checkResult{Err: err}
	}
	defer r.Close()

	var res checkResult
	dec := netstr.NewDecoder(r, decoderOptions(cfg)...)
	for data, err := range dec.Values() {
		if err != nil {
			res.Err = err
			res.Offset = dec.Offset()
			var fe *netstr.FormatError
			if errors.As(err, &fe) {
				res.Offset = fe.Offset
			}
			return res
		}
		res.Values++
		res.Bytes += int64(len(data))
	}
	res.Offset = dec.Offset()
	return res
}
