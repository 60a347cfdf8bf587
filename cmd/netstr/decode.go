package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"

	"github.com/epithet-ssh/netstr/internal/render"
	"github.com/epithet-ssh/netstr/internal/source"
	"github.com/epithet-ssh/netstr/pkg/config"
	"github.com/epithet-ssh/netstr/pkg/netstr"
)

type DecodeCLI struct {
	Input       string `arg:"" optional:"" default:"-" help:"Stream to decode: path, s3:// URL or - for stdin"`
	Format      string `short:"f" help:"Output format: raw, quoted, hex, json, template (overrides config)"`
	Template    string `short:"t" help:"Mustache template for --format=template (overrides config)"`
	Compression string `help:"Input compression: auto, none, gzip, zstd, lz4" default:"auto"`
}

func (d *DecodeCLI) Run(ctx context.Context, logger *slog.Logger, cfg *config.Config, streams *Streams) error {
	format, tmpl := cfg.Format, cfg.Template
	if d.Format != "" {
		format = d.Format
	}
	if d.Template != "" {
		tmpl = d.Template
	}
	renderer, err := render.New(format, tmpl)
	if err != nil {
		return err
	}
	compression, err := source.ParseCompression(d.Compression)
	if err != nil {
		return err
	}

	r, err := source.Open(ctx, d.Input, source.Options{
		Compression: compression,
		S3:          cfg.S3,
		Stdin:       streams.Stdin,
		Logger:      logger,
	})
	if err != nil {
		return err
	}
	defer r.Close()

	out := bufio.NewWriter(streams.Stdout)
	defer out.Flush()

	dec := netstr.NewDecoder(r, decoderOptions(cfg)...)
	index := 0
	for data, err := range dec.Values() {
		if err != nil {
			return fmt.Errorf("%s: %w", d.Input, err)
		}
		rec := render.Record{
			Index:  index,
			Offset: dec.Offset() - int64(netstr.EncodedLen(len(data))),
			Data:   data,
		}
		if err := renderer.Render(out, rec); err != nil {
			return err
		}
		index++
	}

	logger.Info("decoded stream", "input", d.Input, "netstrings", index, "bytes", dec.Offset())
	return out.Flush()
}
