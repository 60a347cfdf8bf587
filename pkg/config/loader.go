// Package config provides configuration loading for netstr.
// It supports YAML, JSON, and CUE file formats using CUE as the underlying
// parser, and validates every file against an embedded CUE schema.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/encoding/yaml"
)

//go:embed schema.cue
var schemaSource string

// Config is the decoded netstr configuration.
type Config struct {
	MaxLength  int      `json:"max_length"`
	BufferSize int      `json:"buffer_size"`
	Lenient    bool     `json:"lenient"`
	Format     string   `json:"format"`
	Template   string   `json:"template"`
	S3         S3Config `json:"s3"`
}

// S3Config configures access to s3:// inputs.
type S3Config struct {
	Region       string `json:"region"`
	Endpoint     string `json:"endpoint"`
	UsePathStyle bool   `json:"use_path_style"`
	CACert       string `json:"ca_cert"`
	Insecure     bool   `json:"insecure"`
}

// Loader loads configuration values into a single CUE context, so values
// from several files can be unified with each other and the schema.
type Loader struct {
	ctx    *cue.Context
	schema cue.Value
}

// NewLoader compiles the embedded schema.
func NewLoader() (*Loader, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue")).LookupPath(cue.ParsePath("#Config"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile config schema: %w", err)
	}
	return &Loader{ctx: ctx, schema: schema}, nil
}

// LoadValueFromReader loads configuration from an io.Reader and returns a CUE value.
// This parses the content as YAML (which is a superset of JSON).
func (l *Loader) LoadValueFromReader(r io.Reader) (cue.Value, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to read config: %w", err)
	}

	file, err := yaml.Extract("", data)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to parse config: %w", err)
	}

	val := l.ctx.BuildFile(file)
	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to build CUE value: %w", err)
	}
	return val, nil
}

// LoadValue loads configuration from a file or directory and returns a CUE value.
//
// For .cue files and directories: uses CUE's load.Instances, so packages with
// several files are supported.
// For .yaml/.yml/.json files: parses the data file directly.
func (l *Loader) LoadValue(path string) (cue.Value, error) {
	fileInfo, err := os.Stat(path)
	if err != nil {
		return cue.Value{}, fmt.Errorf("failed to stat path: %w", err)
	}

	var val cue.Value
	if fileInfo.IsDir() || strings.EqualFold(filepath.Ext(path), ".cue") {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("failed to resolve path: %w", err)
		}

		cfg := &load.Config{Dir: absPath, DataFiles: true}
		if !fileInfo.IsDir() {
			cfg.Dir = filepath.Dir(absPath)
		}

		instances := load.Instances([]string{absPath}, cfg)
		if len(instances) == 0 {
			return cue.Value{}, fmt.Errorf("no instances loaded from %s", path)
		}
		if err := instances[0].Err; err != nil {
			return cue.Value{}, fmt.Errorf("failed to load config: %w", err)
		}
		val = l.ctx.BuildInstance(instances[0])
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("failed to read file: %w", err)
		}

		if strings.EqualFold(filepath.Ext(path), ".json") {
			val = l.ctx.CompileBytes(data, cue.Filename(path))
		} else {
			// YAML, and the default for unknown extensions
			file, err := yaml.Extract(path, data)
			if err != nil {
				return cue.Value{}, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			val = l.ctx.BuildFile(file)
		}
	}

	if err := val.Err(); err != nil {
		return cue.Value{}, fmt.Errorf("failed to build CUE value: %w", err)
	}
	return val, nil
}

// LoadAndUnifyPaths loads every path and unifies the results. Conflicting
// concrete values are an error.
func (l *Loader) LoadAndUnifyPaths(paths []string) (cue.Value, error) {
	unified := l.ctx.CompileString("{}")
	for _, path := range paths {
		val, err := l.LoadValue(path)
		if err != nil {
			return cue.Value{}, fmt.Errorf("%s: %w", path, err)
		}
		unified = unified.Unify(val)
	}
	if err := unified.Validate(); err != nil {
		return cue.Value{}, fmt.Errorf("config files conflict: %w", err)
	}
	return unified, nil
}

// Decode unifies val with the schema, fills in defaults and decodes the result.
func (l *Loader) Decode(val cue.Value) (*Config, error) {
	merged := l.schema.Unify(val)
	if err := merged.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	var cfg Config
	if err := merged.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func (l *Loader) Default() (*Config, error) {
	return l.Decode(l.ctx.CompileString("{}"))
}

// Load reads and decodes the files at paths. With no paths it returns the defaults.
func Load(paths ...string) (*Config, error) {
	l, err := NewLoader()
	if err != nil {
		return nil, err
	}
	if len(paths) == 0 {
		return l.Default()
	}

	val, err := l.LoadAndUnifyPaths(paths)
	if err != nil {
		return nil, err
	}
	return l.Decode(val)
}

// Validate checks constraints the schema cannot express.
func (c *Config) Validate() error {
	if c.Format == "template" && c.Template == "" {
		return errors.New("invalid config: format \"template\" requires a template")
	}
	return nil
}
