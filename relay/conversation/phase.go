// Package conversation drives the per-user dialogue that configures VK
// credentials and assembles publish requests. Transition is pure; Machine
// executes the effects it returns.
package conversation

import (
	"github.com/m3rciful/vkrelay/relay/publish"
)

// Phase is the conversation state of one user. Each phase carries exactly
// the data valid in it.
type Phase interface {
	phase() string
}

// Idle means no flow is active.
type Idle struct{}

// SetupToken waits for the VK access token.
type SetupToken struct{}

// SetupGroups waits for the community list.
type SetupGroups struct {
	Token string
}

// SetupStories waits for the optional stories target.
type SetupStories struct {
	Token  string
	Groups []int64
}

// CollectMedia accepts photos until a video or the caption arrives.
type CollectMedia struct {
	Media publish.Media
}

// CollectText waits for the caption after a video.
type CollectText struct {
	Media publish.Media
}

// CollectOptions shows the option menu for an assembled request.
type CollectOptions struct {
	Request      publish.PublishRequest
	AwaitingNote bool
}

// Publishing holds the request while the publisher runs.
type Publishing struct {
	Request publish.PublishRequest
}

func (Idle) phase() string           { return "idle" }
func (SetupToken) phase() string     { return "setup_token" }
func (SetupGroups) phase() string    { return "setup_groups" }
func (SetupStories) phase() string   { return "setup_stories" }
func (CollectMedia) phase() string   { return "collect_media" }
func (CollectText) phase() string    { return "collect_text" }
func (CollectOptions) phase() string { return "collect_options" }
func (Publishing) phase() string     { return "publishing" }

// PhaseName returns a stable label for logs.
func PhaseName(p Phase) string {
	if p == nil {
		return Idle{}.phase()
	}
	return p.phase()
}

// StagedFiles lists the files owned by a phase. Files of a request being
// published belong to the publish attempt, not to the phase.
func StagedFiles(p Phase) []string {
	switch p := p.(type) {
	case CollectMedia:
		return p.Media.Files()
	case CollectText:
		return p.Media.Files()
	case CollectOptions:
		return p.Request.Files()
	default:
		return nil
	}
}
