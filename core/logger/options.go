package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	coreconfig "github.com/m3rciful/vkrelay/core/config"
)

// options is the resolved form of the logging section.
type options struct {
	format    logFormat
	keyOrder  []string
	level     slog.Level
	profile   string
	sampleNum int
	sampleDen int
	trace     bool
	filePath  string
}

const (
	defaultSampleNum = 1
	defaultSampleDen = 50
)

func resolveOptions(cfg *coreconfig.Config) options {
	opts := options{
		format:    formatJSON,
		keyOrder:  slices.Clone(defaultKeyOrder),
		level:     slog.LevelInfo,
		profile:   "prod",
		sampleNum: defaultSampleNum,
		sampleDen: defaultSampleDen,
	}
	if cfg == nil {
		return opts
	}
	lc := cfg.Logging

	if p := strings.ToLower(strings.TrimSpace(lc.Profile)); p != "" {
		opts.profile = p
	}
	switch strings.ToLower(strings.TrimSpace(lc.Format)) {
	case "kv", "text", "pretty":
		opts.format = formatKV
	case "json":
	default:
		if opts.profile == "debug" || opts.profile == "dev" {
			opts.format = formatKV
		}
	}
	switch strings.ToLower(strings.TrimSpace(lc.Level)) {
	case "debug":
		opts.level = slog.LevelDebug
	case "warn", "warning":
		opts.level = slog.LevelWarn
	case "error":
		opts.level = slog.LevelError
	}
	if order := splitKeys(lc.KeysOrder); len(order) > 0 {
		opts.keyOrder = order
	}
	if spec := strings.TrimSpace(lc.DebugSample); spec != "" {
		opts.sampleNum, opts.sampleDen = parseRatioSpec(spec)
	}
	opts.trace = lc.Trace

	dir, file := strings.TrimSpace(lc.Dir), strings.TrimSpace(lc.BotFile)
	if dir != "" && file != "" {
		opts.filePath = filepath.Join(dir, file)
	}
	return opts
}

func splitKeys(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "default" {
		return nil
	}
	var keys []string
	for _, part := range strings.Split(raw, ",") {
		if k := strings.TrimSpace(part); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// openSinks returns stdout plus the optional log file.
func (o options) openSinks() ([]io.Writer, []io.Closer, error) {
	writers := []io.Writer{os.Stdout}
	if o.filePath == "" {
		return writers, nil, nil
	}
	if err := os.MkdirAll(filepath.Dir(o.filePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	f, err := os.OpenFile(o.filePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: open log file: %w", err)
	}
	return append(writers, f), []io.Closer{f}, nil
}
