package conversation

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/m3rciful/vkrelay/relay/credentials"
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/staging"
)

type fakeValidator struct {
	mu     sync.Mutex
	err    error
	tokens []string
}

func (v *fakeValidator) ValidateToken(_ context.Context, token string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.tokens = append(v.tokens, token)
	return v.err
}

type fakePublisher struct {
	mu       sync.Mutex
	result   func(publish.PublishRequest) publish.Result
	panicMsg string
	calls    []publishCall
}

type publishCall struct {
	Cred credentials.Credential
	Req  publish.PublishRequest
}

func (p *fakePublisher) Publish(_ context.Context, cred credentials.Credential, req publish.PublishRequest) publish.Result {
	p.mu.Lock()
	p.calls = append(p.calls, publishCall{Cred: cred, Req: req})
	p.mu.Unlock()
	if p.panicMsg != "" {
		panic(p.panicMsg)
	}
	if p.result != nil {
		return p.result(req)
	}
	res := publish.Result{}
	if req.PublishPost {
		for i := range cred.GroupIDs {
			res.PostsAttempted++
			res.PostIDs = append(res.PostIDs, int64(100+i))
		}
	}
	if req.PublishStory && req.HasMedia() {
		res.StoryAttempted, res.StoryOK = true, true
	}
	return res
}

func (p *fakePublisher) Calls() []publishCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishCall(nil), p.calls...)
}

type fakeStager struct {
	mu       sync.Mutex
	n        int
	err      error
	released []string
}

func (s *fakeStager) Stage(_ context.Context, userID int64, kind publish.MediaKind, _ staging.Source) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return "", s.err
	}
	s.n++
	return fmt.Sprintf("/staged/%d/%s_%d", userID, kind, s.n), nil
}

func (s *fakeStager) Release(_ context.Context, paths []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, paths...)
}

func (s *fakeStager) Released() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.released...)
}

type recorder struct {
	mu        sync.Mutex
	replies   []string
	menus     []*Menu
	notices   []Notice
	refreshes []Menu
	closed    int
}

func (r *recorder) Reply(_ context.Context, text string, menu *Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.replies = append(r.replies, text)
	r.menus = append(r.menus, menu)
	return nil
}

func (r *recorder) Notice(_ context.Context, text string, alert bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, Notice{Text: text, Alert: alert})
	return nil
}

func (r *recorder) RefreshMenu(_ context.Context, menu Menu) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refreshes = append(r.refreshes, menu)
	return nil
}

func (r *recorder) CloseMenu(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed++
	return nil
}

func (r *recorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.replies) == 0 {
		return ""
	}
	return r.replies[len(r.replies)-1]
}

type textSource struct {
	name, mime, body string
}

func (s textSource) Open(context.Context) (io.ReadCloser, error) {
	return io.NopCloser(strings.NewReader(s.body)), nil
}
func (s textSource) FileName() string { return s.name }
func (s textSource) MIME() string     { return s.mime }

func photo() MediaReceived {
	return MediaReceived{Kind: publish.MediaPhoto, Source: textSource{name: "p.jpg", mime: "image/jpeg", body: "jpeg"}}
}

func video() MediaReceived {
	return MediaReceived{Kind: publish.MediaVideo, Source: textSource{name: "v.mp4", mime: "video/mp4", body: "mp4"}}
}
