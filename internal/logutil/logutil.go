// Package logutil builds the zap logger of the lcmapstress tool.
package logutil

import (
	"os"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/puzpuzpuz/lcmap/internal/config"
)

// LogConfig wraps the log section of the configuration.
type LogConfig struct {
	config.Log
}

// ZapSink pairs an encoder with the syncer it writes to.
type ZapSink struct {
	enc zapcore.Encoder
	out zapcore.WriteSyncer
}

// NewLogger builds a logger writing to stderr and, when Filename is set,
// to a file rotated by size and age.
func NewLogger(cfg config.Log) (*zap.Logger, error) {
	c := &LogConfig{Log: cfg}
	level, err := c.getLevel()
	if err != nil {
		return nil, err
	}
	sinks, err := c.getSinks()
	if err != nil {
		return nil, err
	}
	cores := make([]zapcore.Core, 0, len(sinks))
	for _, s := range sinks {
		cores = append(cores, zapcore.NewCore(s.enc, s.out, level))
	}
	return zap.New(zapcore.NewTee(cores...), c.getOptions()...), nil
}

func (c *LogConfig) getLevel() (zap.AtomicLevel, error) {
	if c.Level == "" {
		return zap.NewAtomicLevelAt(zap.InfoLevel), nil
	}
	level, err := zap.ParseAtomicLevel(c.Level)
	if err != nil {
		return zap.AtomicLevel{}, errors.Wrapf(err, "invalid log level %q", c.Level)
	}
	return level, nil
}

func (c *LogConfig) getOptions() []zap.Option {
	return []zap.Option{zap.AddStacktrace(zapcore.FatalLevel), zap.AddCaller()}
}

func (c *LogConfig) getEncoder() (zapcore.Encoder, error) {
	return getLoggerEncoder(c.Format)
}

func (c *LogConfig) getSinks() ([]ZapSink, error) {
	enc, err := c.getEncoder()
	if err != nil {
		return nil, err
	}
	sinks := []ZapSink{{enc: enc, out: getConsoleSyncer()}}
	if c.Filename != "" {
		// The file always gets JSON so it can be post-processed.
		sinks = append(sinks, ZapSink{enc: newJSONEncoder(), out: c.getFileSyncer()})
	}
	return sinks, nil
}

func (c *LogConfig) getFileSyncer() zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   c.Filename,
		MaxSize:    c.MaxSize,
		MaxAge:     c.MaxDays,
		MaxBackups: c.MaxBackups,
		LocalTime:  true,
	})
}

func getConsoleSyncer() zapcore.WriteSyncer {
	return zapcore.Lock(os.Stderr)
}

// getLoggerEncoder accepts the formats config.Validate accepts; an empty
// format means JSON.
func getLoggerEncoder(format string) (zapcore.Encoder, error) {
	switch format {
	case config.LogFormatJSON, "":
		return newJSONEncoder(), nil
	case config.LogFormatConsole:
		encCfg := encoderConfig()
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		return zapcore.NewConsoleEncoder(encCfg), nil
	default:
		return nil, errors.Newf("unsupported log format: %s", format)
	}
}

func newJSONEncoder() zapcore.Encoder {
	return zapcore.NewJSONEncoder(encoderConfig())
}

func encoderConfig() zapcore.EncoderConfig {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return encCfg
}
