package sender

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/stretchr/testify/require"
)

func chatCtx(chatID int64) context.Context {
	return logger.WithUpdateMeta(context.Background(), 1, chatID, chatID)
}

func TestDispatcherKeepsPerChatOrder(t *testing.T) {
	d := NewDispatcher(Options{Workers: 3, QueueSize: 32})

	var mu sync.Mutex
	got := map[int64][]int{}
	for i := 0; i < 10; i++ {
		for _, chat := range []int64{7, -100500} {
			chat, i := chat, i
			require.NoError(t, d.Enqueue(chatCtx(chat), "send.text", "sendMessage", func() error {
				mu.Lock()
				got[chat] = append(got[chat], i)
				mu.Unlock()
				return nil
			}))
		}
	}
	d.Close()

	for chat, seq := range got {
		require.Len(t, seq, 10, "chat %d", chat)
		for i, v := range seq {
			require.Equal(t, i, v, "chat %d out of order", chat)
		}
	}
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherRetriesTransientErrors(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 2, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(chatCtx(1), "send.text", "", func() error {
		calls++
		if calls < 3 {
			return &net.OpError{Op: "dial", Err: errors.New("refused")}
		}
		return nil
	}))
	d.Close()
	require.Equal(t, 3, calls)
	require.Zero(t, d.ErrorCount())
}

func TestDispatcherCountsPermanentFailures(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, MaxRetries: 5, RetryBackoff: time.Millisecond})
	calls := 0
	require.NoError(t, d.Enqueue(chatCtx(1), "send.text", "", func() error {
		calls++
		return errors.New("bad request")
	}))
	d.Close()
	require.Equal(t, 1, calls)
	require.EqualValues(t, 1, d.ErrorCount())
}

func TestDispatcherRejectsAfterClose(t *testing.T) {
	d := NewDispatcher(Options{})
	d.Close()
	d.Close()
	err := d.Enqueue(context.Background(), "send.text", "", func() error { return nil })
	require.ErrorIs(t, err, ErrQueueClosed)
	require.Error(t, d.Enqueue(context.Background(), "send.text", "", nil))
}

func TestDispatcherReportsFullLane(t *testing.T) {
	d := NewDispatcher(Options{Workers: 1, QueueSize: 1})
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, d.Enqueue(chatCtx(1), "block", "", func() error {
		close(started)
		<-release
		return nil
	}))
	<-started
	require.NoError(t, d.Enqueue(chatCtx(1), "queued", "", func() error { return nil }))
	require.ErrorIs(t, d.Enqueue(chatCtx(1), "overflow", "", func() error { return nil }), ErrQueueFull)
	close(release)
	d.Close()
}

func TestRedactToken(t *testing.T) {
	err := errors.New(`Post "https://api.telegram.org/bot123:AbC-_x/sendMessage": timeout`)
	require.Equal(t, `Post "https://api.telegram.org/bot<redacted>/sendMessage": timeout`, redactToken(err))
	require.Empty(t, redactToken(nil))
}
