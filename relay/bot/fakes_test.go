package bot

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/m3rciful/vkrelay/relay/conversation"

	tele "gopkg.in/telebot.v4"
)

// fakeContext implements the parts of tele.Context the bot touches.
type fakeContext struct {
	tele.Context

	update    tele.Update
	store     map[string]interface{}
	sent      []string
	sendOpts  []*tele.SendOptions
	responses []*tele.CallbackResponse
}

func newFakeContext(upd tele.Update) *fakeContext {
	return &fakeContext{update: upd, store: map[string]interface{}{}}
}

func (f *fakeContext) Update() tele.Update { return f.update }

func (f *fakeContext) Message() *tele.Message {
	if f.update.Callback != nil {
		return f.update.Callback.Message
	}
	return f.update.Message
}

func (f *fakeContext) Callback() *tele.Callback { return f.update.Callback }

func (f *fakeContext) Sender() *tele.User {
	if f.update.Callback != nil {
		return f.update.Callback.Sender
	}
	if f.update.Message != nil {
		return f.update.Message.Sender
	}
	return nil
}

func (f *fakeContext) Chat() *tele.Chat {
	if m := f.Message(); m != nil {
		return m.Chat
	}
	return nil
}

func (f *fakeContext) Text() string {
	if m := f.Message(); m != nil {
		return m.Text
	}
	return ""
}

func (f *fakeContext) Get(key string) interface{} { return f.store[key] }

func (f *fakeContext) Set(key string, val interface{}) { f.store[key] = val }

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	text, _ := what.(string)
	f.sent = append(f.sent, text)
	var so *tele.SendOptions
	for _, o := range opts {
		if v, ok := o.(*tele.SendOptions); ok {
			so = v
		}
	}
	f.sendOpts = append(f.sendOpts, so)
	return nil
}

func (f *fakeContext) Respond(resp ...*tele.CallbackResponse) error {
	if len(resp) == 0 {
		f.responses = append(f.responses, &tele.CallbackResponse{})
		return nil
	}
	f.responses = append(f.responses, resp[0])
	return nil
}

type handled struct {
	userID int64
	ev     conversation.Event
}

// fakeHandler records events and optionally drives the responder.
type fakeHandler struct {
	mu     sync.Mutex
	events []handled
	run    func(ctx context.Context, out conversation.Responder) error
}

func (h *fakeHandler) Handle(ctx context.Context, userID int64, ev conversation.Event, out conversation.Responder) error {
	h.mu.Lock()
	h.events = append(h.events, handled{userID: userID, ev: ev})
	h.mu.Unlock()
	if h.run != nil {
		return h.run(ctx, out)
	}
	return nil
}

type fakeFiles struct {
	got []string
}

func (f *fakeFiles) File(file *tele.File) (io.ReadCloser, error) {
	f.got = append(f.got, file.FileID)
	return io.NopCloser(bytes.NewReader([]byte("data:" + file.FileID))), nil
}

func userMessage(userID int64, m *tele.Message) tele.Update {
	m.Sender = &tele.User{ID: userID}
	m.Chat = &tele.Chat{ID: userID, Type: tele.ChatPrivate}
	return tele.Update{ID: 1, Message: m}
}

func userCallback(userID int64, unique string) tele.Update {
	user := &tele.User{ID: userID}
	return tele.Update{ID: 2, Callback: &tele.Callback{
		ID:      "cb-1",
		Sender:  user,
		Unique:  unique,
		Message: &tele.Message{ID: 10, Chat: &tele.Chat{ID: userID, Type: tele.ChatPrivate}},
	}}
}
