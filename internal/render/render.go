// Package render formats decoded netstring payloads for output.
package render

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/cbroglie/mustache"
	"github.com/cespare/xxhash/v2"
)

// Formats lists the accepted format names.
var Formats = []string{"raw", "quoted", "hex", "json", "template"}

// Record is one decoded value and where it was found.
type Record struct {
	Index  int
	Offset int64 // offset of the size field in the stream
	Data   []byte
}

// Digest returns the xxhash64 of the payload as 16 hex digits.
func (r Record) Digest() string {
	return fmt.Sprintf("%016x", xxhash.Sum64(r.Data))
}

// Renderer writes records to w.
type Renderer interface {
	Render(w io.Writer, rec Record) error
}

// RendererFunc adapts a function to a Renderer.
type RendererFunc func(w io.Writer, rec Record) error

func (f RendererFunc) Render(w io.Writer, rec Record) error {
	return f(w, rec)
}

// New returns the renderer for format. tmpl is only used by "template".
func New(format, tmpl string) (Renderer, error) {
	switch format {
	case "", "raw":
		return RendererFunc(renderRaw), nil
	case "quoted":
		return RendererFunc(renderQuoted), nil
	case "hex":
		return RendererFunc(renderHex), nil
	case "json":
		return RendererFunc(renderJSON), nil
	case "template":
		return newTemplate(tmpl)
	default:
		return nil, fmt.Errorf("unknown format %q", format)
	}
}

func renderRaw(w io.Writer, rec Record) error {
	if _, err := w.Write(rec.Data); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}

func renderQuoted(w io.Writer, rec Record) error {
	_, err := io.WriteString(w, strconv.Quote(string(rec.Data))+"\n")
	return err
}

func renderHex(w io.Writer, rec Record) error {
	_, err := io.WriteString(w, hex.EncodeToString(rec.Data)+"\n")
	return err
}

// jsonRecord is one line of "json" output. Text holds valid UTF-8 payloads;
// anything else is carried in Base64.
type jsonRecord struct {
	Index  int    `json:"index"`
	Offset int64  `json:"offset"`
	Length int    `json:"length"`
	XXHash string `json:"xxhash"`
	Text   string `json:"text,omitempty"`
	Base64 []byte `json:"base64,omitempty"`
}

func renderJSON(w io.Writer, rec Record) error {
	out := jsonRecord{
		Index:  rec.Index,
		Offset: rec.Offset,
		Length: len(rec.Data),
		XXHash: rec.Digest(),
	}
	if utf8.Valid(rec.Data) {
		out.Text = string(rec.Data)
	} else {
		out.Base64 = rec.Data
	}

	// Encoder.Encode terminates each value with a newline.
	if err := json.NewEncoder(w).Encode(out); err != nil {
		return fmt.Errorf("failed to encode record %d: %w", rec.Index, err)
	}
	return nil
}

type templateRenderer struct {
	tmpl *mustache.Template
}

func newTemplate(src string) (*templateRenderer, error) {
	if src == "" {
		return nil, fmt.Errorf("template format requires a template")
	}
	tmpl, err := mustache.ParseString(src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template: %w", err)
	}
	return &templateRenderer{tmpl: tmpl}, nil
}

// Render exposes index, offset, length, text, quoted, hex and xxhash to the
// template. A newline is written after each record.
func (t *templateRenderer) Render(w io.Writer, rec Record) error {
	out, err := t.tmpl.Render(map[string]any{
		"index":  rec.Index,
		"offset": rec.Offset,
		"length": len(rec.Data),
		"text":   string(rec.Data),
		"quoted": strconv.Quote(string(rec.Data)),
		"hex":    hex.EncodeToString(rec.Data),
		"xxhash": rec.Digest(),
	})
	if err != nil {
		return fmt.Errorf("failed to render record %d: %w", rec.Index, err)
	}
	_, err = io.WriteString(w, out+"\n")
	return err
}
