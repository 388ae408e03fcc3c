package logger

import (
	"bytes"
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
)

type logFormat string

const (
	formatJSON logFormat = "json"
	formatKV   logFormat = "kv"

	timeFormatMillis = "2006-01-02T15:04:05.000Z07:00"
)

var errNoWriter = errors.New("logger: writer not initialized")

type handlerConfig struct {
	level    slog.Leveler
	writer   *asyncWriter
	format   logFormat
	keyOrder []string
}

// structuredHandler renders each record as one line, either JSON or
// key=value, with the configured keys first and the rest sorted.
type structuredHandler struct {
	cfg    handlerConfig
	prefix string
	preset map[string]any
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if cfg.level == nil {
		cfg.level = slog.LevelInfo
	}
	if cfg.keyOrder == nil {
		cfg.keyOrder = slices.Clone(defaultKeyOrder)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled reports whether the handler allows processing the provided level.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.cfg.level.Level()
}

// Handle formats the slog.Record and writes it using the configured writer.
func (h *structuredHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.cfg.writer == nil {
		return errNoWriter
	}
	fields := make(map[string]any, len(h.preset)+r.NumAttrs()+8)
	maps.Copy(fields, h.preset)
	r.Attrs(func(a slog.Attr) bool {
		addAttr(fields, h.prefix, a)
		return true
	})
	MetaFrom(ctx).apply(fields)

	ts := r.Time.UTC()
	fields["ts"] = ts.Truncate(time.Millisecond).Format(timeFormatMillis)
	fields["level"] = levelName(r.Level)
	if h.cfg.format == formatJSON {
		fields["ts_unix_nano"] = ts.UnixNano()
	}
	finalize(fields, r.Message, h.cfg.format == formatJSON)

	line, err := encodeLine(h.cfg.format, fields, h.cfg.keyOrder)
	if err != nil {
		return err
	}
	return h.cfg.writer.Write(line)
}

// WithAttrs returns a copy of the handler with attrs resolved up front.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.preset = maps.Clone(h.preset)
	if clone.preset == nil {
		clone.preset = make(map[string]any, len(attrs))
	}
	for _, a := range attrs {
		addAttr(clone.preset, h.prefix, a)
	}
	return &clone
}

// WithGroup prefixes keys of attrs added later with name and a dot.
func (h *structuredHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = joinKey(h.prefix, name)
	return &clone
}

func joinKey(prefix, key string) string {
	switch {
	case prefix == "":
		return key
	case key == "":
		return prefix
	}
	return prefix + "." + key
}

// addAttr flattens groups into dotted keys and stores the normalised value.
func addAttr(fields map[string]any, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	key := joinKey(prefix, a.Key)
	if a.Value.Kind() == slog.KindGroup {
		for _, child := range a.Value.Group() {
			addAttr(fields, key, child)
		}
		return
	}
	if key == "" {
		return
	}
	if d, ok := durationOf(a.Value); ok {
		fields[durationKey(key)] = RoundMS(d).Milliseconds()
		return
	}
	if v, ok := plainValue(a.Value); ok {
		fields[key] = v
	}
}

func durationOf(v slog.Value) (time.Duration, bool) {
	switch v.Kind() {
	case slog.KindDuration:
		return v.Duration(), true
	case slog.KindAny:
		d, ok := v.Any().(time.Duration)
		return d, ok
	}
	return 0, false
}

func plainValue(v slog.Value) (any, bool) {
	switch v.Kind() {
	case slog.KindString:
		return strings.TrimSpace(v.String()), true
	case slog.KindBool:
		return v.Bool(), true
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		if u := v.Uint64(); u <= math.MaxInt64 {
			return int64(u), true
		}
		return v.Uint64(), true
	case slog.KindFloat64:
		return v.Float64(), true
	case slog.KindTime:
		return v.Time().UTC().Format(time.RFC3339Nano), true
	}
	switch x := v.Any().(type) {
	case nil:
		return nil, false
	case error:
		return x.Error(), true
	case string:
		return strings.TrimSpace(x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// finalize fills required keys, compacts the rid and scrubs the record.
func finalize(fields map[string]any, msg string, keepFullRID bool) {
	if rid, ok := fields["rid"].(string); ok && rid != "" {
		if compact := CompactRID(rid); compact != rid {
			fields["rid"] = compact
			if _, seen := fields["rid_full"]; keepFullRID && !seen {
				fields["rid_full"] = rid
			}
		}
	}
	if s, _ := fields["event"].(string); s == "" {
		fields["event"] = cmp.Or(msg, "unknown")
	}
	if s, _ := fields["component"].(string); s == "" {
		fields["component"] = "app"
	}
	if s, ok := fields["status"].(string); ok && s != "" {
		fields["status"] = normalizeStatus(s)
	}
	if s, ok := fields["outcome"].(string); ok && s != "" {
		if out, ok := normalizeOutcome(s); ok {
			fields["outcome"] = out
		} else {
			delete(fields, "outcome")
		}
	}
	for k, v := range fields {
		if v == nil || v == "" {
			delete(fields, k)
		}
	}
	redact(fields)
}

func encodeLine(format logFormat, fields map[string]any, order []string) ([]byte, error) {
	var b bytes.Buffer
	keys := orderedKeys(fields, order)
	if format == formatJSON {
		b.WriteByte('{')
		for i, key := range keys {
			k, err := json.Marshal(key)
			if err != nil {
				return nil, err
			}
			v, err := json.Marshal(fields[key])
			if err != nil {
				return nil, fmt.Errorf("logger: encode %s: %w", key, err)
			}
			if i > 0 {
				b.WriteByte(',')
			}
			b.Write(k)
			b.WriteByte(':')
			b.Write(v)
		}
		b.WriteByte('}')
	} else {
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.WriteString(key)
			b.WriteByte('=')
			b.WriteString(kvValue(fields[key]))
		}
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}

func orderedKeys(fields map[string]any, order []string) []string {
	keys := make([]string, 0, len(fields))
	seen := make(map[string]bool, len(order))
	for _, key := range order {
		if _, ok := fields[key]; ok && !seen[key] {
			keys = append(keys, key)
			seen[key] = true
		}
	}
	head := len(keys)
	for key := range fields {
		if !seen[key] {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys[head:])
	return keys
}

func kvValue(val any) string {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case bool:
		return strconv.FormatBool(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		s = fmt.Sprint(v)
	}
	if strings.IndexFunc(s, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(s)
	}
	return s
}
