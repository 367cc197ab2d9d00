// Package config holds the configuration of the lcmapstress tool.
package config

import (
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/puzpuzpuz/lcmap"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

const (
	KeyKindInt    = "int"
	KeyKindString = "string"

	LogFormatConsole = "console"
	LogFormatJSON    = "json"
)

// Config is the full configuration of a stress run.
type Config struct {
	// Capacity is the number of buckets of the table under test.
	Capacity int      `yaml:"capacity" toml:"capacity" json:"capacity"`
	Workload Workload `yaml:"workload" toml:"workload" json:"workload"`
	Log      Log      `yaml:"log" toml:"log" json:"log"`
}

// Workload describes the operations the workers apply.
type Workload struct {
	// Workers is the number of concurrent workers. Every worker owns a
	// disjoint range of keys.
	Workers int `yaml:"workers" toml:"workers" json:"workers"`
	// Ops is the number of operations per worker.
	Ops int `yaml:"ops" toml:"ops" json:"ops"`
	// Keys is the number of keys per worker.
	Keys int `yaml:"keys" toml:"keys" json:"keys"`
	// KeyKind is either "int" or "string".
	KeyKind string `yaml:"key-kind" toml:"key-kind" json:"key-kind"`
	Mix     Mix    `yaml:"mix" toml:"mix" json:"mix"`
	// ReportInterval is the period of progress log lines.
	ReportInterval Duration `yaml:"report-interval" toml:"report-interval" json:"report-interval"`
}

// Mix is the percentage of each operation kind; the three add up to 100.
type Mix struct {
	Insert int `yaml:"insert" toml:"insert" json:"insert"`
	Remove int `yaml:"remove" toml:"remove" json:"remove"`
	Lookup int `yaml:"lookup" toml:"lookup" json:"lookup"`
}

// Log configures the logger of the tool.
type Log struct {
	Level  string `yaml:"level" toml:"level" json:"level"`
	Format string `yaml:"format" toml:"format" json:"format"`
	// Filename enables a rotated log file next to the console output.
	Filename   string `yaml:"filename" toml:"filename" json:"filename"`
	MaxSize    int    `yaml:"max-size" toml:"max-size" json:"max-size"`
	MaxDays    int    `yaml:"max-days" toml:"max-days" json:"max-days"`
	MaxBackups int    `yaml:"max-backups" toml:"max-backups" json:"max-backups"`
}

// Duration is a time.Duration read from strings such as "500ms".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return errors.Wrapf(err, "parse duration %q", text)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Default returns the configuration used when nothing overrides it.
func Default() Config {
	return Config{
		Capacity: lcmap.DefaultCapacity,
		Workload: Workload{
			Workers:        runtime.NumCPU(),
			Ops:            100_000,
			Keys:           1024,
			KeyKind:        KeyKindInt,
			Mix:            Mix{Insert: 50, Remove: 25, Lookup: 25},
			ReportInterval: Duration{time.Second},
		},
		Log: Log{
			Level:   "info",
			Format:  LogFormatConsole,
			MaxSize: 512,
		},
	}
}

// ParseMix parses an "insert/remove/lookup" percentage triple such as
// "50/25/25".
func ParseMix(s string) (Mix, error) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return Mix{}, errors.Wrapf(ErrInvalid, "mix %q: want insert/remove/lookup", s)
	}
	var pct [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return Mix{}, errors.Wrapf(ErrInvalid, "mix %q: %v", s, err)
		}
		pct[i] = v
	}
	m := Mix{Insert: pct[0], Remove: pct[1], Lookup: pct[2]}
	if err := m.Validate(); err != nil {
		return Mix{}, err
	}
	return m, nil
}

func (m Mix) String() string {
	return strconv.Itoa(m.Insert) + "/" + strconv.Itoa(m.Remove) + "/" + strconv.Itoa(m.Lookup)
}

// Validate checks that the percentages are non-negative and add up to 100.
func (m Mix) Validate() error {
	if m.Insert < 0 || m.Remove < 0 || m.Lookup < 0 {
		return errors.Wrapf(ErrInvalid, "mix %s: negative percentage", m)
	}
	if sum := m.Insert + m.Remove + m.Lookup; sum != 100 {
		return errors.Wrapf(ErrInvalid, "mix %s: percentages add up to %d, want 100", m, sum)
	}
	return nil
}

// Validate returns the first problem found in c, wrapping ErrInvalid.
func (c *Config) Validate() error {
	if c.Capacity <= 0 {
		return errors.Wrapf(ErrInvalid, "capacity must be positive, got %d", c.Capacity)
	}
	w := &c.Workload
	if w.Workers <= 0 {
		return errors.Wrapf(ErrInvalid, "workers must be positive, got %d", w.Workers)
	}
	if w.Ops < 0 {
		return errors.Wrapf(ErrInvalid, "ops must not be negative, got %d", w.Ops)
	}
	if w.Keys <= 0 {
		return errors.Wrapf(ErrInvalid, "keys must be positive, got %d", w.Keys)
	}
	if uint64(w.Workers)*uint64(w.Keys) > 1<<32 {
		return errors.Wrapf(ErrInvalid, "workers*keys must fit in 32 bits, got %d*%d", w.Workers, w.Keys)
	}
	switch w.KeyKind {
	case KeyKindInt, KeyKindString:
	default:
		return errors.Wrapf(ErrInvalid, "unsupported key kind %q", w.KeyKind)
	}
	if err := w.Mix.Validate(); err != nil {
		return err
	}
	if w.ReportInterval.Duration <= 0 {
		return errors.Wrapf(ErrInvalid, "report interval must be positive, got %s", w.ReportInterval)
	}
	switch c.Log.Format {
	// An empty format means JSON.
	case LogFormatConsole, LogFormatJSON, "":
	default:
		return errors.Wrapf(ErrInvalid, "unsupported log format %q", c.Log.Format)
	}
	return nil
}
