// Package sender runs outbound Telegram calls off the update goroutines.
// Calls for one chat run on one lane, so a user sees replies in the order
// they were queued.
package sender

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/core/netutil"

	tele "gopkg.in/telebot.v4"
)

var (
	// ErrQueueClosed is returned when enqueue is attempted after dispatcher stop.
	ErrQueueClosed = errors.New("telegram sender: queue closed")
	// ErrQueueFull indicates the lane is saturated and the job was not accepted.
	ErrQueueFull = errors.New("telegram sender: queue full")

	errNilRun = errors.New("telegram sender: nil run function")

	tokenRe = regexp.MustCompile(`bot[0-9]+:[A-Za-z0-9_-]+`)
)

// Options controls the behaviour of the outbound dispatcher.
type Options struct {
	// QueueSize is the capacity of each lane.
	QueueSize int
	// Workers is the number of lanes.
	Workers      int
	MaxRetries   int
	RetryBackoff time.Duration
	// MaxDuration bounds the time spent retrying a single job.
	MaxDuration time.Duration
}

func (o Options) withDefaults() Options {
	if o.QueueSize <= 0 {
		o.QueueSize = 64
	}
	if o.Workers <= 0 {
		o.Workers = 4
	}
	o.MaxRetries = max(o.MaxRetries, 0)
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 2 * time.Second
	}
	if o.MaxDuration <= 0 {
		o.MaxDuration = 12 * time.Second
	}
	return o
}

type job struct {
	ctx      context.Context
	action   string
	endpoint string
	run      func() error
}

// Dispatcher executes outbound Telegram calls asynchronously with retries.
type Dispatcher struct {
	opts  Options
	lanes []chan job
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool

	failed atomic.Uint64
}

// NewDispatcher starts one goroutine per lane.
func NewDispatcher(opts Options) *Dispatcher {
	opts = opts.withDefaults()
	d := &Dispatcher{opts: opts, lanes: make([]chan job, opts.Workers)}
	d.wg.Add(opts.Workers)
	for i := range d.lanes {
		d.lanes[i] = make(chan job, opts.QueueSize)
		go d.drain(d.lanes[i])
	}
	return d
}

// Enqueue schedules run on the lane of the chat stored in ctx.
// The run closure must be idempotent if retries are desired.
func (d *Dispatcher) Enqueue(ctx context.Context, action, endpoint string, run func() error) error {
	if run == nil {
		return errNilRun
	}
	if ctx == nil {
		ctx = context.Background()
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return ErrQueueClosed
	}
	select {
	case d.lanes[d.laneFor(ctx)] <- job{ctx: ctx, action: action, endpoint: endpoint, run: run}:
		return nil
	default:
		return ErrQueueFull
	}
}

func (d *Dispatcher) laneFor(ctx context.Context) int {
	chatID := logger.MetaFrom(ctx).ChatID
	if chatID < 0 {
		chatID = -chatID
	}
	return int(chatID % int64(len(d.lanes)))
}

// ErrorCount returns the number of jobs that finally failed.
func (d *Dispatcher) ErrorCount() uint64 {
	return d.failed.Load()
}

// Close stops accepting jobs and waits until queued ones are done.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		for _, lane := range d.lanes {
			close(lane)
		}
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) drain(lane <-chan job) {
	defer d.wg.Done()
	for j := range lane {
		if err := d.execute(j); err != nil {
			d.failed.Add(1)
		}
	}
}

// execute runs j until it succeeds, fails permanently, exhausts its
// attempts or runs out of time.
func (d *Dispatcher) execute(j job) error {
	ctx, cancel := context.WithTimeout(j.ctx, d.opts.MaxDuration)
	defer cancel()

	start := time.Now()
	attempts := d.opts.MaxRetries + 1
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = j.run(); err == nil {
			logger.Debug(j.ctx, "tg.sender", "send.success",
				append(jobAttrs(j), slog.Int("attempts", attempt), slog.Duration("duration", logger.Took(start)))...)
			return nil
		}
		if attempt == attempts || !retryable(err) {
			break
		}
		delay := d.backoff(err, attempt)
		logger.Debug(j.ctx, "tg.sender", "send.retry",
			append(jobAttrs(j), slog.Int("attempt", attempt), slog.Duration("backoff", delay))...)
		if waitErr := sleep(ctx, delay); waitErr != nil {
			err = errors.Join(err, waitErr)
			attempts = attempt
			break
		}
	}
	logger.Error(j.ctx, "tg.sender", "send.fail",
		append(jobAttrs(j),
			slog.String("status", "fail"),
			slog.String("err", redactToken(err)),
			slog.Int("attempts", attempts),
			slog.Duration("duration", logger.Took(start)),
		)...)
	return err
}

// backoff grows linearly with the attempt, unless Telegram asked to wait.
func (d *Dispatcher) backoff(err error, attempt int) time.Duration {
	var flood tele.FloodError
	if errors.As(err, &flood) && flood.RetryAfter > 0 {
		return time.Duration(flood.RetryAfter) * time.Second
	}
	return d.opts.RetryBackoff * time.Duration(attempt)
}

func retryable(err error) bool {
	var flood tele.FloodError
	return errors.As(err, &flood) || netutil.ShouldRetry(err)
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func jobAttrs(j job) []slog.Attr {
	attrs := []slog.Attr{slog.String("action", j.action)}
	if j.endpoint != "" {
		attrs = append(attrs, slog.String("endpoint", j.endpoint))
	}
	return attrs
}

// redactToken hides bot tokens that Telegram client errors embed in URLs.
func redactToken(err error) string {
	if err == nil {
		return ""
	}
	return tokenRe.ReplaceAllString(err.Error(), "bot<redacted>")
}
