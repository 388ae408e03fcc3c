package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter moves sink I/O off the logging goroutines. A single loop owns
// the buffered sinks and flushes them whenever the queue drains.
type asyncWriter struct {
	queue chan entry
	done  chan struct{}
	sinks []*bufio.Writer

	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	err   error
}

// entry is either a line to write or a flush request.
type entry struct {
	line []byte
	ack  chan error
}

func newAsyncWriter(writers []io.Writer, size int) *asyncWriter {
	if size <= 0 {
		size = 1024
	}
	w := &asyncWriter{
		queue: make(chan entry, size),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriter(out))
		}
	}
	go w.run()
	return w
}

func (w *asyncWriter) run() {
	defer close(w.done)
	for e := range w.queue {
		if e.ack != nil {
			e.ack <- w.flush()
			continue
		}
		w.record(w.write(e.line))
		if len(w.queue) == 0 {
			w.record(w.flush())
		}
	}
	w.record(w.flush())
}

func (w *asyncWriter) enqueue(e entry) error {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- e
	return nil
}

// Write queues a copy of p. It blocks while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if err := w.enqueue(entry{line: append([]byte(nil), p...)}); err != nil {
		return err
	}
	return w.lastErr()
}

// Flush waits until every line queued before the call reaches the sinks.
func (w *asyncWriter) Flush() error {
	ack := make(chan error, 1)
	if err := w.enqueue(entry{ack: ack}); err != nil {
		return w.lastErr()
	}
	if err := <-ack; err != nil {
		return err
	}
	return w.lastErr()
}

// Close drains the queue and stops the loop. Further writes fail.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.lastErr()
}

func (w *asyncWriter) write(p []byte) error {
	var errs []error
	for _, s := range w.sinks {
		if _, err := s.Write(p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) flush() error {
	var errs []error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (w *asyncWriter) record(err error) {
	if err == nil {
		return
	}
	w.errMu.Lock()
	if w.err == nil {
		w.err = err
	}
	w.errMu.Unlock()
}

func (w *asyncWriter) lastErr() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
