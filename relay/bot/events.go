package bot

import (
	"github.com/m3rciful/vkrelay/relay/conversation"
	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/staging"

	tele "gopkg.in/telebot.v4"
)

// MessageEvent maps an incoming message to a conversation event. Images and
// videos sent as documents count as photos and videos.
func MessageEvent(m *tele.Message, files FileGetter) (conversation.Event, bool) {
	if m == nil {
		return nil, false
	}
	switch {
	case m.Photo != nil:
		return media(publish.MediaPhoto, files, m.Photo.File, "", "image/jpeg"), true
	case m.Video != nil:
		return media(publish.MediaVideo, files, m.Video.File, m.Video.FileName, m.Video.MIME), true
	case m.Animation != nil, m.Sticker != nil, m.VideoNote != nil, m.Audio != nil, m.Voice != nil:
		return conversation.UnsupportedMedia{}, true
	case m.Document != nil:
		doc := m.Document
		switch {
		case staging.IsImageMIME(doc.MIME):
			return media(publish.MediaPhoto, files, doc.File, doc.FileName, doc.MIME), true
		case staging.IsVideoMIME(doc.MIME):
			return media(publish.MediaVideo, files, doc.File, doc.FileName, doc.MIME), true
		}
		return conversation.UnsupportedMedia{}, true
	case m.Text != "":
		return conversation.Text{Text: m.Text}, true
	}
	return nil, false
}

func media(kind publish.MediaKind, files FileGetter, file tele.File, name, mime string) conversation.MediaReceived {
	return conversation.MediaReceived{
		Kind:   kind,
		Source: &fileSource{files: files, file: file, name: name, mime: mime},
	}
}
