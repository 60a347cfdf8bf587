package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/epithet-ssh/netstr/internal/source"
	"github.com/epithet-ssh/netstr/pkg/config"
	"github.com/epithet-ssh/netstr/pkg/netstr"
)

type EncodeCLI struct {
	Files       []string `arg:"" optional:"" help:"Inputs to encode: paths, s3:// URLs or - for stdin (default stdin)"`
	Lines       bool     `help:"Encode each input line as one netstring (default)" xor:"mode"`
	Whole       bool     `help:"Encode each input as a single netstring" xor:"mode"`
	KeepNewline bool     `help:"Keep the line terminator in each payload, written as the platform newline"`
	Key         string   `short:"k" help:"One-byte key prefixed to every payload"`
	Compression string   `help:"Input compression: auto, none, gzip, zstd, lz4" default:"auto"`
}

func (e *EncodeCLI) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config, streams *Streams) error {
	if len(e.Key) > 1 {
		return fmt.Errorf("--key must be a single byte, got %q", e.Key)
	}
	if e.KeepNewline && e.Whole {
		return errors.New("--keep-newline only applies to line mode")
	}
	compression, err := source.ParseCompression(e.Compression)
	if err != nil {
		return err
	}

	files := e.Files
	if len(files) == 0 {
		files = []string{source.Stdin}
	}

	out := bufio.NewWriter(streams.Stdout)
	enc := netstr.NewEncoder(out)
	for _, name := range files {
		n, err := e.encodeInput(ctx, enc, name, source.Options{
			Compression: compression,
			S3:          cfg.S3,
			Stdin:       streams.Stdin,
			Logger:      logger,
		})
		if err != nil {
			out.Flush()
			return fmt.Errorf("%s: %w", name, err)
		}
		logger.Info("encoded input", "input", name, "netstrings", n)
	}
	return enc.Flush()
}

func (e *EncodeCLI) encodeInput(ctx context.Context, enc *netstr.Encoder, name string, opts source.Options) (int, error) {
	r, err := source.Open(ctx, name, opts)
	if err != nil {
		return 0, err
	}
	defer r.Close()

	if e.Whole {
		data, err := io.ReadAll(r)
		if err != nil {
			return 0, err
		}
		return 1, e.encode(enc, string(data))
	}

	br := bufio.NewReader(r)
	count := 0
	for {
		line, err := br.ReadString('\n')
		if line != "" {
			line = strings.TrimSuffix(strings.TrimSuffix(line, "\n"), "\r")
			if e.KeepNewline {
				err := enc.EncodeLine(e.Key + line)
				if err != nil {
					return count, err
				}
			} else if err := e.encode(enc, line); err != nil {
				return count, err
			}
			count++
		}
		if err == io.EOF {
			return count, nil
		}
		if err != nil {
			return count, err
		}
	}
}

func (e *EncodeCLI) encode(enc *netstr.Encoder, s string) error {
	if e.Key != "" {
		return enc.EncodeKeyedString(e.Key[0], s)
	}
	return enc.EncodeString(s)
}
