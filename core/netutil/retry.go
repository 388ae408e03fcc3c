// Package netutil holds the HTTP plumbing shared by the Telegram runtime and
// the VK client.
package netutil

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// ShouldRetry reports whether err is a transient network failure: a failed
// dial or a timeout. Cancellation is never transient.
func ShouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if dialFailed(err) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// dialFailed means the request never left the client.
func dialFailed(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions, http.MethodPut, http.MethodDelete:
		return true
	}
	return false
}

// RetryTransport retries requests that failed before a response arrived.
// A request that may have reached the server (a timeout rather than a
// failed dial) is replayed only when its method is idempotent, so a
// wall post is never sent twice. Bodies without GetBody are sent once.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	Backoff    time.Duration
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	resp, err := base.RoundTrip(req)
	for attempt := 1; err != nil && attempt <= t.MaxRetries; attempt++ {
		if !t.retryable(req, err) {
			break
		}
		if werr := wait(req.Context(), t.Backoff*time.Duration(attempt)); werr != nil {
			return nil, werr
		}
		next, rerr := replay(req)
		if rerr != nil {
			return nil, rerr
		}
		resp, err = base.RoundTrip(next)
	}
	return resp, err
}

func (t *RetryTransport) retryable(req *http.Request, err error) bool {
	if !ShouldRetry(err) {
		return false
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		return false
	}
	return dialFailed(err) || idempotent(req.Method)
}

func replay(req *http.Request) (*http.Request, error) {
	next := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		next.Body = body
	}
	return next, nil
}

func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
