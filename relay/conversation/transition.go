package conversation

import (
	"errors"
	"strings"

	"github.com/m3rciful/vkrelay/relay/credentials"
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/vk"
)

// Transition computes the next phase and the effects of one event. It does
// no I/O; results of I/O effects come back as events.
func Transition(p Phase, ev Event) (Phase, []Effect) {
	if p == nil {
		p = Idle{}
	}
	if cmd, ok := ev.(Command); ok && cmd.Name != CmdPublishNow {
		return command(p, cmd)
	}
	// A staged file that no phase accepted must not outlive the event.
	if st, ok := ev.(MediaStaged); ok {
		if _, collecting := p.(CollectMedia); !collecting {
			if st.Path != "" {
				return p, []Effect{Release{Paths: []string{st.Path}}}
			}
			return p, nil
		}
	}

	switch p := p.(type) {
	case Idle:
		return onIdle(p, ev)
	case SetupToken:
		return onSetupToken(p, ev)
	case SetupGroups:
		return onSetupGroups(p, ev)
	case SetupStories:
		return onSetupStories(p, ev)
	case CollectMedia:
		return onCollectMedia(p, ev)
	case CollectText:
		return onCollectText(p, ev)
	case CollectOptions:
		return onCollectOptions(p, ev)
	case Publishing:
		return onPublishing(p, ev)
	}
	return p, nil
}

// command handles the top-level commands. They abandon any flow and release
// its staged files.
func command(p Phase, cmd Command) (Phase, []Effect) {
	var next Phase
	var out Effect
	switch cmd.Name {
	case CmdStart:
		next, out = Idle{}, LookupCredential{}
	case CmdSetup:
		next, out = SetupToken{}, Reply{Text: textSetupIntro}
	case CmdPost:
		next, out = CollectMedia{}, Reply{Text: textAskMedia}
	case CmdCancel:
		next, out = Idle{}, Reply{Text: textCancelled}
	default:
		return p, nil
	}
	var effects []Effect
	if files := StagedFiles(p); len(files) > 0 {
		effects = append(effects, Release{Paths: files})
	}
	return next, append(effects, out)
}

// outOfFlow answers inputs that the current phase does not expect.
func outOfFlow(p Phase, ev Event, hint string) (Phase, []Effect) {
	switch ev.(type) {
	case Choice:
		return p, []Effect{Notice{Text: textNoActivePost, Alert: true}}
	case Command:
		switch p.(type) {
		case CollectMedia, CollectText:
			return p, []Effect{Reply{Text: hint}}
		}
		return p, []Effect{Reply{Text: textNoActivePost}}
	case Text, MediaReceived, UnsupportedMedia:
		return p, []Effect{Reply{Text: hint}}
	}
	return p, nil
}

func onIdle(p Idle, ev Event) (Phase, []Effect) {
	if e, ok := ev.(CredentialChecked); ok {
		return p, []Effect{Reply{Text: greeting(e.Found && e.Err == nil)}}
	}
	return outOfFlow(p, ev, textIdleHint)
}

func onSetupToken(p SetupToken, ev Event) (Phase, []Effect) {
	switch e := ev.(type) {
	case Text:
		token := strings.TrimSpace(e.Text)
		if token == "" {
			return p, []Effect{Reply{Text: textTokenEmpty}}
		}
		return p, []Effect{Reply{Text: textTokenChecking}, ValidateToken{Token: token}}
	case TokenValidated:
		switch {
		case e.Err == nil:
			return SetupGroups{Token: e.Token}, []Effect{Reply{Text: textAskGroups}}
		case errors.Is(e.Err, vk.ErrInvalidToken):
			return p, []Effect{Reply{Text: textTokenRejected}}
		default:
			return p, []Effect{Reply{Text: textVKUnavailable}}
		}
	}
	return outOfFlow(p, ev, textSetupBusy)
}

func onSetupGroups(p SetupGroups, ev Event) (Phase, []Effect) {
	e, ok := ev.(Text)
	if !ok {
		return outOfFlow(p, ev, textSetupBusy)
	}
	groups, err := credentials.ParseGroupIDs(e.Text)
	if err != nil {
		return p, []Effect{Reply{Text: textGroupsInvalid}}
	}
	return SetupStories{Token: p.Token, Groups: groups}, []Effect{Reply{Text: textAskStories}}
}

func onSetupStories(p SetupStories, ev Event) (Phase, []Effect) {
	switch e := ev.(type) {
	case Text:
		save := SaveCredential{Token: p.Token, Groups: append([]int64(nil), p.Groups...)}
		if !IsSkip(e.Text) {
			id, err := credentials.ParseStoriesID(e.Text)
			if err != nil {
				return p, []Effect{Reply{Text: textStoriesInvalid}}
			}
			save.StoriesGroupID = &id
		}
		return p, []Effect{save}
	case CredentialSaved:
		if e.Err != nil {
			return p, []Effect{Reply{Text: textSaveFailed}}
		}
		return Idle{}, []Effect{Reply{Text: textSetupDone}}
	}
	return outOfFlow(p, ev, textSetupBusy)
}

func onCollectMedia(p CollectMedia, ev Event) (Phase, []Effect) {
	switch e := ev.(type) {
	case MediaReceived:
		return p, []Effect{StageMedia{Kind: e.Kind, Source: e.Source}}
	case MediaStaged:
		if e.Err != nil {
			return p, []Effect{Reply{Text: textDownloadFailed}}
		}
		if e.Kind == publish.MediaVideo {
			return CollectText{Media: p.Media.WithVideo(e.Path)}, []Effect{Reply{Text: textVideoReceived}}
		}
		media := p.Media.AddPhoto(e.Path)
		return CollectMedia{Media: media}, []Effect{Reply{Text: photoAdded(len(media.Photos))}}
	case UnsupportedMedia:
		return p, []Effect{Reply{Text: textPhotoOrVideo}}
	case Text:
		return toOptions(p.Media, e.Text)
	}
	return outOfFlow(p, ev, textPhotoOrVideo)
}

func onCollectText(p CollectText, ev Event) (Phase, []Effect) {
	if e, ok := ev.(Text); ok {
		return toOptions(p.Media, e.Text)
	}
	return outOfFlow(p, ev, textTextExpected)
}

func toOptions(media publish.Media, text string) (Phase, []Effect) {
	caption := text
	if IsSkip(text) {
		caption = ""
	}
	req := publish.NewRequest(media, caption)
	menu := MenuFor(req)
	return CollectOptions{Request: req}, []Effect{Reply{Text: textOptionsPrompt, Menu: &menu}}
}

func onCollectOptions(p CollectOptions, ev Event) (Phase, []Effect) {
	req := p.Request
	switch e := ev.(type) {
	case Choice:
		switch e.Option {
		case OptPost:
			req.SelectPostOnly()
		case OptStory:
			req.SelectStoryOnly()
		case OptBoth:
			req.SelectBoth()
		case OptAudio:
			req.ToggleAudio()
			notice := textAudioOff
			if req.AddAudio {
				notice = textAudioOn
			}
			next := CollectOptions{Request: req, AwaitingNote: p.AwaitingNote && req.AddAudio}
			return next, []Effect{Notice{Text: notice}, RefreshMenu{Menu: MenuFor(req)}}
		case OptPublish:
			return confirm(p, true)
		default:
			return p, []Effect{Notice{}}
		}
		next := CollectOptions{Request: req, AwaitingNote: p.AwaitingNote}
		return next, []Effect{Notice{}, RefreshMenu{Menu: MenuFor(req)}}
	case Command:
		if note := strings.TrimSpace(e.Args); note != "" {
			p.Request.AudioNote = note
		}
		return confirm(p, false)
	case Text:
		if !req.AddAudio {
			return p, []Effect{Reply{Text: textUseMenu}}
		}
		req.AudioNote = strings.TrimSpace(e.Text)
		return CollectOptions{Request: req}, []Effect{Reply{Text: textNoteSaved}}
	case MediaReceived, UnsupportedMedia:
		return p, []Effect{Reply{Text: textUseMenu}}
	}
	return p, nil
}

// confirm starts publishing. The menu button asks for the audio note first
// when audio is requested; /publish_now publishes without one.
func confirm(p CollectOptions, fromMenu bool) (Phase, []Effect) {
	req := p.Request
	if !req.Actionable() {
		if fromMenu {
			return p, []Effect{Notice{Text: textNotActionable, Alert: true}}
		}
		return p, []Effect{Reply{Text: textNotActionable}}
	}
	if fromMenu && req.AddAudio && strings.TrimSpace(req.AudioNote) == "" {
		return CollectOptions{Request: req, AwaitingNote: true}, []Effect{Notice{}, Reply{Text: textAskNote}}
	}

	var effects []Effect
	if fromMenu {
		effects = append(effects, Notice{}, CloseMenu{})
	}
	effects = append(effects, Reply{Text: textPublishing}, Publish{Request: req})
	return Publishing{Request: req}, effects
}

func onPublishing(p Publishing, ev Event) (Phase, []Effect) {
	switch e := ev.(type) {
	case Published:
		return Idle{}, []Effect{Reply{Text: summary(p.Request, e.Result)}}
	case CredentialMissing:
		return Idle{}, []Effect{Reply{Text: textNoCredential}}
	case PublishFailed:
		return Idle{}, []Effect{Reply{Text: textPublishFailed}}
	case Choice:
		return p, []Effect{Notice{Text: textPublishBusy}}
	}
	return outOfFlow(p, ev, textPublishBusy)
}
