// Package publish models a pending publication assembled from a conversation:
// staged media, caption, target flags and the optional audio note.
package publish

import "strings"

// MediaKind distinguishes staged photo and video files.
type MediaKind string

const (
	// MediaPhoto identifies a still image.
	MediaPhoto MediaKind = "photo"
	// MediaVideo identifies a video clip.
	MediaVideo MediaKind = "video"
)

// Media holds the staged files collected before the caption is known.
// Photos keep upload order.
type Media struct {
	Photos []string
	Video  string
}

// AddPhoto returns a copy of m with path appended to the photo list.
func (m Media) AddPhoto(path string) Media {
	photos := make([]string, 0, len(m.Photos)+1)
	photos = append(photos, m.Photos...)
	photos = append(photos, path)
	return Media{Photos: photos, Video: m.Video}
}

// WithVideo returns a copy of m with the video set to path.
func (m Media) WithVideo(path string) Media {
	return Media{Photos: append([]string(nil), m.Photos...), Video: path}
}

// Empty reports whether no file has been staged.
func (m Media) Empty() bool {
	return len(m.Photos) == 0 && m.Video == ""
}

// Files lists every staged file, photos first.
func (m Media) Files() []string {
	files := make([]string, 0, len(m.Photos)+1)
	files = append(files, m.Photos...)
	if m.Video != "" {
		files = append(files, m.Video)
	}
	return files
}

// PublishRequest is one pending publication.
type PublishRequest struct {
	Photos []string
	Video  string
	Text   string

	PublishPost  bool
	PublishStory bool
	AddAudio     bool
	AudioNote    string
}

// NewRequest builds a request from collected media and caption with the
// default targets: wall post only, no story, no audio.
func NewRequest(media Media, text string) PublishRequest {
	return PublishRequest{
		Photos:      append([]string(nil), media.Photos...),
		Video:       media.Video,
		Text:        text,
		PublishPost: true,
	}
}

// HasMedia reports whether at least one photo or a video is attached.
func (r PublishRequest) HasMedia() bool {
	return len(r.Photos) > 0 || r.Video != ""
}

// HasText reports whether the caption has non-whitespace content.
func (r PublishRequest) HasText() bool {
	return strings.TrimSpace(r.Text) != ""
}

// Actionable reports whether there is anything to publish.
func (r PublishRequest) Actionable() bool {
	return r.HasMedia() || r.HasText()
}

// Files lists the backing files that must be released after the attempt.
func (r PublishRequest) Files() []string {
	return Media{Photos: r.Photos, Video: r.Video}.Files()
}

// StoryMedia picks the single file used for a story. The first photo wins
// over the video.
func (r PublishRequest) StoryMedia() (string, MediaKind, bool) {
	if len(r.Photos) > 0 {
		return r.Photos[0], MediaPhoto, true
	}
	if r.Video != "" {
		return r.Video, MediaVideo, true
	}
	return "", "", false
}

// SelectPostOnly targets the wall only.
func (r *PublishRequest) SelectPostOnly() {
	r.PublishPost, r.PublishStory = true, false
}

// SelectStoryOnly targets stories only.
func (r *PublishRequest) SelectStoryOnly() {
	r.PublishPost, r.PublishStory = false, true
}

// SelectBoth targets the wall and stories.
func (r *PublishRequest) SelectBoth() {
	r.PublishPost, r.PublishStory = true, true
}

// ToggleAudio flips the audio annotation flag.
func (r *PublishRequest) ToggleAudio() {
	r.AddAudio = !r.AddAudio
}
