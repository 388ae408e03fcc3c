package router

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	tghelpers "github.com/m3rciful/vkrelay/core/telegram/helpers"

	tele "gopkg.in/telebot.v4"
)

var timeNow = time.Now

const maxErrLen = 256

// summary collects what one handler invocation did and writes it as a
// single handler.handled line.
type summary struct {
	handler string
	start   time.Time
	skipped bool
	attrs   []slog.Attr
}

func newSummary(handler string) *summary {
	return &summary{handler: handlerName(handler), start: timeNow()}
}

func (s *summary) with(attrs ...slog.Attr) *summary {
	s.attrs = append(s.attrs, attrs...)
	return s
}

// run executes fn under the handler name and logs the result.
func (s *summary) run(c tele.Context, fn func() error) error {
	tghelpers.WithHandler(c, s.handler)
	err := fn()
	s.emit(c, err)
	return err
}

// skip logs that the update reached no handler.
func (s *summary) skip(c tele.Context) error {
	s.skipped = true
	s.emit(c, nil)
	return nil
}

func (s *summary) emit(c tele.Context, err error) {
	ctx := tghelpers.WithHandler(c, s.handler)
	msgs, kb := tghelpers.OutboundCounts(c)

	status, outcome := "ok", "ok"
	switch {
	case err != nil:
		status, outcome = "fail", "fail"
	case s.skipped:
		status = "skip"
	}

	attrs := append([]slog.Attr{
		slog.String("status", status),
		slog.String("handler", s.handler),
		slog.String("outcome", outcome),
		slog.Int("messages", msgs),
		slog.Bool("kb", kb),
		slog.Duration("duration", timeNow().Sub(s.start)),
	}, s.attrs...)
	if err != nil {
		attrs = append(attrs,
			slog.String("err", logger.SanitizeLimit(err.Error(), maxErrLen)),
			slog.String("err_code", errorCode(err)),
		)
	}
	logger.LogEvent(ctx, logger.Component("tg"), slog.LevelInfo, "handler.handled", attrs...)
}

// handlerName turns a command or callback key into a log-friendly name.
func handlerName(name string) string {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return "unknown"
	}
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

// errorCode prefers an explicit Code() anywhere in the chain, then the
// concrete type name of the outermost error.
func errorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		if code := strings.TrimSpace(coded.Code()); code != "" {
			return strings.ToUpper(strings.Join(strings.Fields(code), "_"))
		}
	}
	name := strings.TrimLeft(fmt.Sprintf("%T", err), "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "UNKNOWN_ERROR"
	}
	return strings.ToUpper(name)
}
