package conversation

import (
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/staging"
)

// CommandName enumerates the bot commands understood by the machine.
type CommandName string

const (
	CmdStart      CommandName = "start"
	CmdSetup      CommandName = "setup"
	CmdPost       CommandName = "post"
	CmdCancel     CommandName = "cancel"
	CmdPublishNow CommandName = "publish_now"
)

// Option is a menu choice in CollectOptions.
type Option string

const (
	OptPost    Option = "opt_post"
	OptStory   Option = "opt_story"
	OptBoth    Option = "opt_both"
	OptAudio   Option = "opt_audio"
	OptPublish Option = "opt_publish"
)

// Options lists the menu choices in display order.
var Options = []Option{OptPost, OptStory, OptBoth, OptAudio, OptPublish}

// Event is an input to Transition: either a user action or the result of an
// effect executed by the machine.
type Event interface {
	event() string
}

// Command is a slash command with its trailing arguments.
type Command struct {
	Name CommandName
	Args string
}

// Text is a non-command text message.
type Text struct {
	Text string
}

// MediaReceived is an incoming photo or video.
type MediaReceived struct {
	Kind   publish.MediaKind
	Source staging.Source
}

// UnsupportedMedia is an attachment that is neither photo nor video.
type UnsupportedMedia struct{}

// Choice is a press on the option menu.
type Choice struct {
	Option Option
}

// TokenValidated reports the outcome of ValidateToken.
type TokenValidated struct {
	Token string
	Err   error
}

// MediaStaged reports the outcome of StageMedia.
type MediaStaged struct {
	Kind publish.MediaKind
	Path string
	Err  error
}

// CredentialSaved reports the outcome of SaveCredential.
type CredentialSaved struct {
	Err error
}

// CredentialChecked reports the outcome of LookupCredential.
type CredentialChecked struct {
	Found bool
	Err   error
}

// Published carries the aggregate result of a publish attempt.
type Published struct {
	Result publish.Result
}

// CredentialMissing means the user has no stored credential at publish time.
type CredentialMissing struct{}

// PublishFailed means the publish attempt failed as a whole.
type PublishFailed struct {
	Err error
}

func (Command) event() string           { return "command" }
func (Text) event() string              { return "text" }
func (MediaReceived) event() string     { return "media" }
func (UnsupportedMedia) event() string  { return "unsupported_media" }
func (Choice) event() string            { return "choice" }
func (TokenValidated) event() string    { return "token_validated" }
func (MediaStaged) event() string       { return "media_staged" }
func (CredentialSaved) event() string   { return "credential_saved" }
func (CredentialChecked) event() string { return "credential_checked" }
func (Published) event() string         { return "published" }
func (CredentialMissing) event() string { return "credential_missing" }
func (PublishFailed) event() string     { return "publish_failed" }
