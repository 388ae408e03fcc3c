package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/core/telegram/state"
	"github.com/m3rciful/vkrelay/relay/credentials"
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/staging"
)

const component = "relay.fsm"

// TokenValidator checks VK access tokens.
type TokenValidator interface {
	ValidateToken(ctx context.Context, token string) error
}

// Publisher sends a request to every target of a credential.
type Publisher interface {
	Publish(ctx context.Context, cred credentials.Credential, req publish.PublishRequest) publish.Result
}

// MediaStager downloads attachments and deletes them again.
type MediaStager interface {
	Stage(ctx context.Context, userID int64, kind publish.MediaKind, src staging.Source) (string, error)
	Release(ctx context.Context, paths []string)
}

// Responder delivers output effects to the user, in order.
type Responder interface {
	Reply(ctx context.Context, text string, menu *Menu) error
	Notice(ctx context.Context, text string, alert bool) error
	RefreshMenu(ctx context.Context, menu Menu) error
	CloseMenu(ctx context.Context) error
}

// Deps wires a Machine.
type Deps struct {
	Credentials credentials.Store
	Validator   TokenValidator
	Publisher   Publisher
	Media       MediaStager
	// Sessions is optional; a fresh in-memory store is used when nil.
	Sessions *state.Memory[Phase]
}

// Machine runs Transition against per-user sessions and executes effects.
type Machine struct {
	sessions  *state.Memory[Phase]
	creds     credentials.Store
	validator TokenValidator
	publisher Publisher
	media     MediaStager
}

// NewMachine validates dependencies and builds a machine.
func NewMachine(deps Deps) (*Machine, error) {
	switch {
	case deps.Credentials == nil:
		return nil, errors.New("conversation: nil credential store")
	case deps.Validator == nil:
		return nil, errors.New("conversation: nil token validator")
	case deps.Publisher == nil:
		return nil, errors.New("conversation: nil publisher")
	case deps.Media == nil:
		return nil, errors.New("conversation: nil media stager")
	}
	sessions := deps.Sessions
	if sessions == nil {
		sessions = NewSessions()
	}
	return &Machine{
		sessions:  sessions,
		creds:     deps.Credentials,
		validator: deps.Validator,
		publisher: deps.Publisher,
		media:     deps.Media,
	}, nil
}

// NewSessions returns an empty session store whose users start Idle.
func NewSessions() *state.Memory[Phase] {
	return state.NewMemory(func() Phase { return Idle{} })
}

// Phase returns the current phase of a user.
func (m *Machine) Phase(userID int64) Phase {
	return m.sessions.Get(userID)
}

// Handle processes one user event to completion, including any publish
// attempt it triggers. Events of the same user are handled one at a time;
// racing events run in lock acquisition order. The returned error is the first Responder failure; state
// changes are applied regardless.
func (m *Machine) Handle(ctx context.Context, userID int64, ev Event, out Responder) error {
	unlock := m.sessions.Lock(userID)
	defer unlock()

	phase := m.sessions.Get(userID)
	queue := []Event{ev}
	var outErr error

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		next, effects := Transition(phase, cur)
		if PhaseName(next) != PhaseName(phase) {
			logger.Debug(ctx, component, "fsm.transition",
				slog.Int64("user_id", userID),
				slog.String("from", PhaseName(phase)),
				slog.String("to", PhaseName(next)),
				slog.String("cause", cur.event()),
			)
		}
		phase = next
		m.save(userID, phase)

		for _, eff := range effects {
			result, err := m.execute(ctx, userID, eff, out)
			if err != nil && outErr == nil {
				outErr = err
			}
			if result != nil {
				queue = append(queue, result)
			}
		}
	}
	return outErr
}

func (m *Machine) save(userID int64, p Phase) {
	if _, idle := p.(Idle); idle {
		m.sessions.Clear(userID)
		return
	}
	m.sessions.Set(userID, p)
}

// execute runs one effect. I/O effects return their result event; output
// effects return the Responder error.
func (m *Machine) execute(ctx context.Context, userID int64, eff Effect, out Responder) (Event, error) {
	switch e := eff.(type) {
	case ValidateToken:
		err := m.validator.ValidateToken(ctx, e.Token)
		return TokenValidated{Token: e.Token, Err: err}, nil
	case StageMedia:
		path, err := m.media.Stage(ctx, userID, e.Kind, e.Source)
		if err != nil {
			logger.Warn(ctx, component, "media.stage",
				slog.Int64("user_id", userID),
				slog.String("kind", string(e.Kind)),
				slog.String("err", logger.Sanitize(err.Error())),
			)
		}
		return MediaStaged{Kind: e.Kind, Path: path, Err: err}, nil
	case SaveCredential:
		err := m.creds.Set(ctx, credentials.Input{
			UserID:         userID,
			Token:          e.Token,
			GroupIDs:       e.Groups,
			StoriesGroupID: e.StoriesGroupID,
		})
		return CredentialSaved{Err: err}, nil
	case LookupCredential:
		_, found, err := m.creds.Get(ctx, userID)
		return CredentialChecked{Found: found, Err: err}, nil
	case Publish:
		return m.publish(ctx, userID, e.Request), nil
	case Release:
		m.media.Release(ctx, e.Paths)
		return nil, nil
	}

	if out == nil {
		return nil, nil
	}
	switch e := eff.(type) {
	case Reply:
		return nil, out.Reply(ctx, e.Text, e.Menu)
	case Notice:
		return nil, out.Notice(ctx, e.Text, e.Alert)
	case RefreshMenu:
		return nil, out.RefreshMenu(ctx, e.Menu)
	case CloseMenu:
		return nil, out.CloseMenu(ctx)
	}
	return nil, fmt.Errorf("conversation: unknown effect %T", eff)
}

// publish reads the credential fresh and runs the publisher. The staged
// files are released before the result event is returned, whatever the
// outcome.
func (m *Machine) publish(ctx context.Context, userID int64, req publish.PublishRequest) (ev Event) {
	start := time.Now()
	lease := staging.NewLease(req.Files(), m.media.Release)
	defer lease.Release(ctx)
	defer func() {
		if r := recover(); r != nil {
			logger.Error(ctx, component, "publish.panic",
				slog.Int64("user_id", userID),
				slog.Any("err", r),
				slog.String("stack", string(debug.Stack())),
			)
			ev = PublishFailed{Err: fmt.Errorf("conversation: publish panic: %v", r)}
		}
	}()

	cred, found, err := m.creds.Get(ctx, userID)
	if err != nil {
		logger.Error(ctx, component, "publish.credentials",
			slog.Int64("user_id", userID),
			slog.String("err", logger.Sanitize(err.Error())),
		)
		return PublishFailed{Err: err}
	}
	if !found {
		logger.Info(ctx, component, "publish.credentials",
			slog.Int64("user_id", userID),
			slog.String("status", "missing"),
		)
		return CredentialMissing{}
	}

	res := m.publisher.Publish(ctx, cred, req)
	logger.Info(ctx, component, "publish.done",
		slog.Int64("user_id", userID),
		slog.Int("posts_ok", len(res.PostIDs)),
		slog.Int("posts_failed", res.PostsFailed()),
		slog.Bool("story_attempted", res.StoryAttempted),
		slog.Bool("story_ok", res.StoryOK),
		slog.Duration("duration", logger.Took(start)),
	)
	return Published{Result: res}
}
