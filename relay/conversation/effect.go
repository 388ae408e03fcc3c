package conversation

import (
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/staging"
)

// Effect is an instruction returned by Transition. I/O effects produce a
// result event; output effects are delivered to the Responder in order.
type Effect interface {
	effect() string
}

// ValidateToken checks a VK token. Result: TokenValidated.
type ValidateToken struct {
	Token string
}

// StageMedia downloads an attachment. Result: MediaStaged.
type StageMedia struct {
	Kind   publish.MediaKind
	Source staging.Source
}

// SaveCredential stores a full credential record. Result: CredentialSaved.
type SaveCredential struct {
	Token          string
	Groups         []int64
	StoriesGroupID *int64
}

// LookupCredential checks whether the user is configured. Result: CredentialChecked.
type LookupCredential struct{}

// Publish runs the publisher. Result: Published, CredentialMissing or PublishFailed.
type Publish struct {
	Request publish.PublishRequest
}

// Release deletes staged files. No result.
type Release struct {
	Paths []string
}

// Menu is the rendered state of the option keyboard.
type Menu struct {
	Post  bool
	Story bool
	Audio bool
}

// MenuFor renders the menu state of a request.
func MenuFor(req publish.PublishRequest) Menu {
	return Menu{Post: req.PublishPost, Story: req.PublishStory, Audio: req.AddAudio}
}

// Reply sends a message, optionally with the option menu attached.
type Reply struct {
	Text string
	Menu *Menu
}

// Notice answers a menu press. An empty Text only acknowledges it.
type Notice struct {
	Text  string
	Alert bool
}

// RefreshMenu redraws the option menu in place.
type RefreshMenu struct {
	Menu Menu
}

// CloseMenu removes the option menu from its message.
type CloseMenu struct{}

func (ValidateToken) effect() string    { return "validate_token" }
func (StageMedia) effect() string       { return "stage_media" }
func (SaveCredential) effect() string   { return "save_credential" }
func (LookupCredential) effect() string { return "lookup_credential" }
func (Publish) effect() string          { return "publish" }
func (Release) effect() string          { return "release" }
func (Reply) effect() string            { return "reply" }
func (Notice) effect() string           { return "notice" }
func (RefreshMenu) effect() string      { return "refresh_menu" }
func (CloseMenu) effect() string        { return "close_menu" }
