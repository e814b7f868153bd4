// Package config loads deskboard settings from a YAML file and DESKBOARD_*
// environment variables, and checks them against an embedded CUE schema.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"
)

//go:embed schema.cue
var schemaSource string

// EnvPrefix prefixes every environment override.
const EnvPrefix = "DESKBOARD_"

// Defaults. A zero timeout leaves requests to the transport's own limits.
const (
	DefaultBaseURL  = "http://127.0.0.1:8000"
	DefaultTimeout  = time.Duration(0)
	DefaultLogLevel = "info"
	dbFileName      = "deskboard.db"
	configFileName  = "config.yaml"
)

// Config is the resolved configuration.
type Config struct {
	BaseURL         string
	DataDir         string
	Timeout         time.Duration
	LogLevel        string
	Concurrency     int
	MetricsTextfile string
}

// file is the on-disk and schema shape. Durations stay strings until the
// schema has accepted them.
type file struct {
	BaseURL         string `yaml:"base_url" json:"base_url"`
	DataDir         string `yaml:"data_dir" json:"data_dir"`
	Timeout         string `yaml:"timeout" json:"timeout"`
	LogLevel        string `yaml:"log_level" json:"log_level"`
	Concurrency     int    `yaml:"concurrency" json:"concurrency"`
	MetricsTextfile string `yaml:"metrics_textfile" json:"metrics_textfile,omitempty"`
}

// ValidationError reports a value the schema rejected.
type ValidationError struct {
	Source  string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Source, e.Message)
}

// DefaultDir is where the config file and local storage live by default.
func DefaultDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ".deskboard"
	}
	return filepath.Join(dir, "deskboard")
}

// DefaultPath is the config file read when no path is given.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), configFileName)
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:  DefaultBaseURL,
		DataDir:  DefaultDir(),
		Timeout:  DefaultTimeout,
		LogLevel: DefaultLogLevel,
	}
}

// Load resolves the configuration: defaults, then the file at path, then the
// environment. An empty path reads DefaultPath if it exists. lookup is
// usually os.LookupEnv.
func Load(path string, lookup func(string) (string, bool)) (Config, error) {
	f := toFile(Default())
	source := "defaults"

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := decode(data, &f); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		source = path
	case errors.Is(err, fs.ErrNotExist) && !explicit:
	default:
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	if err := applyEnv(&f, lookup); err != nil {
		return Config{}, err
	}
	if err := validate(f, source); err != nil {
		return Config{}, err
	}
	return fromFile(f)
}

func decode(data []byte, f *file) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	return dec.Decode(f)
}

func applyEnv(f *file, lookup func(string) (string, bool)) error {
	if lookup == nil {
		return nil
	}
	strs := map[string]*string{
		"BASE_URL":         &f.BaseURL,
		"DATA_DIR":         &f.DataDir,
		"TIMEOUT":          &f.Timeout,
		"LOG_LEVEL":        &f.LogLevel,
		"METRICS_TEXTFILE": &f.MetricsTextfile,
	}
	for name, dst := range strs {
		if v, ok := lookup(EnvPrefix + name); ok {
			*dst = v
		}
	}
	if v, ok := lookup(EnvPrefix + "CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return &ValidationError{Source: EnvPrefix + "CONCURRENCY", Message: fmt.Sprintf("not an integer: %q", v)}
		}
		f.Concurrency = n
	}
	return nil
}

func validate(f file, source string) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return fmt.Errorf("compile config schema: %w", err)
	}
	def := schema.LookupPath(cue.ParsePath("#Config"))
	v := def.Unify(ctx.Encode(f))
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return &ValidationError{Source: source, Message: firstCUEError(err)}
	}
	return nil
}

func firstCUEError(err error) string {
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return err.Error()
	}
	return errs[0].Error()
}

func toFile(c Config) file {
	return file{
		BaseURL:         c.BaseURL,
		DataDir:         c.DataDir,
		Timeout:         c.Timeout.String(),
		LogLevel:        c.LogLevel,
		Concurrency:     c.Concurrency,
		MetricsTextfile: c.MetricsTextfile,
	}
}

func fromFile(f file) (Config, error) {
	timeout, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return Config{}, &ValidationError{Source: "timeout", Message: err.Error()}
	}
	return Config{
		BaseURL:         f.BaseURL,
		DataDir:         f.DataDir,
		Timeout:         timeout,
		LogLevel:        f.LogLevel,
		Concurrency:     f.Concurrency,
		MetricsTextfile: f.MetricsTextfile,
	}, nil
}

// DBPath is the local storage database file.
func (c Config) DBPath() string {
	return filepath.Join(c.DataDir, dbFileName)
}

// Level maps LogLevel to a slog level.
func (c Config) Level() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
