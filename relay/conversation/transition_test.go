package conversation

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/m3rciful/vkrelay/relay/publish"
	"github.com/m3rciful/vkrelay/relay/vk"
)

func TestIsSkip(t *testing.T) {
	for _, s := range []string{"skip", "SKIP", " Пропустить ", "пропустить", "/skip", "/Skip"} {
		require.True(t, IsSkip(s), s)
	}
	for _, s := range []string{"", "skipped", "нет", "/cancel"} {
		require.False(t, IsSkip(s), s)
	}
}

func TestTopLevelCommandsClearAnyPhase(t *testing.T) {
	req := publish.NewRequest(publish.Media{Photos: []string{"/a.jpg"}, Video: "/v.mp4"}, "x")
	phases := []Phase{
		Idle{},
		SetupToken{},
		SetupGroups{Token: "t"},
		SetupStories{Token: "t", Groups: []int64{-1}},
		CollectMedia{Media: publish.Media{Photos: []string{"/a.jpg"}}},
		CollectText{Media: publish.Media{Video: "/v.mp4"}},
		CollectOptions{Request: req, AwaitingNote: true},
	}
	cases := map[CommandName]Phase{
		CmdStart:  Idle{},
		CmdSetup:  SetupToken{},
		CmdPost:   CollectMedia{},
		CmdCancel: Idle{},
	}
	for _, from := range phases {
		for name, want := range cases {
			t.Run(fmt.Sprintf("%s/%s", PhaseName(from), name), func(t *testing.T) {
				next, effects := Transition(from, Command{Name: name})
				require.Equal(t, want, next)
				files := StagedFiles(from)
				if len(files) == 0 {
					require.NotContains(t, effectNames(effects), "release")
					return
				}
				require.Equal(t, Release{Paths: files}, effects[0])
			})
		}
	}
}

func TestStartLooksUpCredential(t *testing.T) {
	next, effects := Transition(Idle{}, Command{Name: CmdStart})
	require.Equal(t, Idle{}, next)
	require.Equal(t, []Effect{LookupCredential{}}, effects)

	_, effects = Transition(Idle{}, CredentialChecked{Found: false})
	require.Contains(t, effects[0].(Reply).Text, "/setup и введи")

	_, effects = Transition(Idle{}, CredentialChecked{Found: true})
	require.NotContains(t, effects[0].(Reply).Text, "Перед первым постом")
}

func TestSetupTokenStep(t *testing.T) {
	next, effects := Transition(SetupToken{}, Text{Text: "   "})
	require.Equal(t, SetupToken{}, next)
	require.Equal(t, []Effect{Reply{Text: textTokenEmpty}}, effects)

	next, effects = Transition(SetupToken{}, Text{Text: "  vk1.token  "})
	require.Equal(t, SetupToken{}, next)
	require.Equal(t, ValidateToken{Token: "vk1.token"}, effects[len(effects)-1])

	next, effects = Transition(SetupToken{}, TokenValidated{Token: "vk1.token", Err: fmt.Errorf("%w: bad", vk.ErrInvalidToken)})
	require.Equal(t, SetupToken{}, next)
	require.Equal(t, []Effect{Reply{Text: textTokenRejected}}, effects)

	next, effects = Transition(SetupToken{}, TokenValidated{Token: "vk1.token", Err: errors.New("dial tcp: timeout")})
	require.Equal(t, SetupToken{}, next)
	require.Equal(t, []Effect{Reply{Text: textVKUnavailable}}, effects)

	next, _ = Transition(SetupToken{}, TokenValidated{Token: "vk1.token"})
	require.Equal(t, SetupGroups{Token: "vk1.token"}, next)
}

func TestSetupGroupsStep(t *testing.T) {
	p := SetupGroups{Token: "t"}
	for _, bad := range []string{"", "abc", "12 34", "0", ",,"} {
		next, effects := Transition(p, Text{Text: bad})
		require.Equal(t, p, next, bad)
		require.Equal(t, []Effect{Reply{Text: textGroupsInvalid}}, effects, bad)
	}
	next, _ := Transition(p, Text{Text: "123, -456,"})
	require.Equal(t, SetupStories{Token: "t", Groups: []int64{-123, -456}}, next)
}

func TestSetupStoriesStep(t *testing.T) {
	p := SetupStories{Token: "t", Groups: []int64{-1, -2}}

	next, effects := Transition(p, Text{Text: "Пропустить"})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{SaveCredential{Token: "t", Groups: []int64{-1, -2}}}, effects)

	_, effects = Transition(p, Text{Text: "55"})
	save := effects[0].(SaveCredential)
	require.NotNil(t, save.StoriesGroupID)
	require.Equal(t, int64(-55), *save.StoriesGroupID)

	next, effects = Transition(p, Text{Text: "five"})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Reply{Text: textStoriesInvalid}}, effects)

	next, effects = Transition(p, CredentialSaved{Err: errors.New("disk full")})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Reply{Text: textSaveFailed}}, effects)

	next, _ = Transition(p, CredentialSaved{})
	require.Equal(t, Idle{}, next)
}

func TestCollectMediaStep(t *testing.T) {
	next, effects := Transition(CollectMedia{}, photo())
	require.Equal(t, CollectMedia{}, next)
	require.IsType(t, StageMedia{}, effects[0])

	next, _ = Transition(CollectMedia{}, MediaStaged{Kind: publish.MediaPhoto, Path: "/p1"})
	require.Equal(t, []string{"/p1"}, next.(CollectMedia).Media.Photos)

	next, effects = Transition(CollectMedia{}, MediaStaged{Kind: publish.MediaPhoto, Err: errors.New("404")})
	require.Equal(t, CollectMedia{}, next)
	require.Equal(t, []Effect{Reply{Text: textDownloadFailed}}, effects)

	next, _ = Transition(CollectMedia{Media: publish.Media{Photos: []string{"/p1"}}}, MediaStaged{Kind: publish.MediaVideo, Path: "/v"})
	require.Equal(t, CollectText{Media: publish.Media{Photos: []string{"/p1"}, Video: "/v"}}, next)

	_, effects = Transition(CollectMedia{}, UnsupportedMedia{})
	require.Equal(t, []Effect{Reply{Text: textPhotoOrVideo}}, effects)
}

func TestCaptionAdvancesToOptions(t *testing.T) {
	media := publish.Media{Photos: []string{"/p1"}}
	for _, from := range []Phase{CollectMedia{Media: media}, CollectText{Media: media}} {
		next, effects := Transition(from, Text{Text: "skip"})
		opts := next.(CollectOptions)
		require.Equal(t, "", opts.Request.Text)
		require.True(t, opts.Request.PublishPost)
		require.False(t, opts.Request.PublishStory)
		require.False(t, opts.Request.AddAudio)
		reply := effects[0].(Reply)
		require.Equal(t, &Menu{Post: true}, reply.Menu)

		next, _ = Transition(from, Text{Text: "see https://example.com"})
		require.Equal(t, "see https://example.com", next.(CollectOptions).Request.Text)
	}
}

func TestCollectTextRefusesMedia(t *testing.T) {
	p := CollectText{Media: publish.Media{Video: "/v"}}
	next, effects := Transition(p, photo())
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Reply{Text: textTextExpected}}, effects)
}

func TestStagedMediaOutsideCollectIsReleased(t *testing.T) {
	p := CollectText{Media: publish.Media{Video: "/v"}}
	next, effects := Transition(p, MediaStaged{Kind: publish.MediaPhoto, Path: "/late"})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Release{Paths: []string{"/late"}}}, effects)
}

func TestOptionToggles(t *testing.T) {
	p := CollectOptions{Request: publish.NewRequest(publish.Media{Photos: []string{"/p"}}, "")}

	once, _ := Transition(p, Choice{Option: OptBoth})
	twice, effects := Transition(once, Choice{Option: OptBoth})
	require.Equal(t, once, twice)
	require.Equal(t, RefreshMenu{Menu: Menu{Post: true, Story: true}}, effects[1])

	story, _ := Transition(p, Choice{Option: OptStory})
	require.False(t, story.(CollectOptions).Request.PublishPost)
	require.True(t, story.(CollectOptions).Request.PublishStory)

	on, effects := Transition(p, Choice{Option: OptAudio})
	require.True(t, on.(CollectOptions).Request.AddAudio)
	require.Equal(t, Notice{Text: textAudioOn}, effects[0])
	off, _ := Transition(on, Choice{Option: OptAudio})
	require.Equal(t, p, off)
}

func TestPublishRequiresActionableRequest(t *testing.T) {
	p := CollectOptions{Request: publish.NewRequest(publish.Media{}, "  ")}
	next, effects := Transition(p, Choice{Option: OptPublish})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Notice{Text: textNotActionable, Alert: true}}, effects)

	_, effects = Transition(p, Command{Name: CmdPublishNow})
	require.Equal(t, []Effect{Reply{Text: textNotActionable}}, effects)
}

func TestPublishFromMenu(t *testing.T) {
	req := publish.NewRequest(publish.Media{}, "text only")
	next, effects := Transition(CollectOptions{Request: req}, Choice{Option: OptPublish})
	require.Equal(t, Publishing{Request: req}, next)
	require.Equal(t, []Effect{Notice{}, CloseMenu{}, Reply{Text: textPublishing}, Publish{Request: req}}, effects)
}

func TestAudioNoteFlow(t *testing.T) {
	req := publish.NewRequest(publish.Media{Video: "/v"}, "")
	req.ToggleAudio()
	p := CollectOptions{Request: req}

	next, effects := Transition(p, Choice{Option: OptPublish})
	require.Equal(t, CollectOptions{Request: req, AwaitingNote: true}, next)
	require.NotContains(t, effectNames(effects), "publish")

	next, effects = Transition(next, Text{Text: " Eminem - Lose Yourself "})
	opts := next.(CollectOptions)
	require.Equal(t, "Eminem - Lose Yourself", opts.Request.AudioNote)
	require.False(t, opts.AwaitingNote)
	require.Equal(t, []Effect{Reply{Text: textNoteSaved}}, effects)

	next, effects = Transition(next, Choice{Option: OptPublish})
	require.IsType(t, Publishing{}, next)
	require.Contains(t, effectNames(effects), "publish")
}

func TestPublishNowTakesNoteFromArgs(t *testing.T) {
	req := publish.NewRequest(publish.Media{Video: "/v"}, "")
	req.ToggleAudio()

	next, effects := Transition(CollectOptions{Request: req, AwaitingNote: true}, Command{Name: CmdPublishNow, Args: "track"})
	pub := next.(Publishing)
	require.Equal(t, "track", pub.Request.AudioNote)
	require.Equal(t, Publish{Request: pub.Request}, effects[len(effects)-1])

	next, _ = Transition(CollectOptions{Request: req}, Command{Name: CmdPublishNow})
	require.Equal(t, "", next.(Publishing).Request.AudioNote)
}

func TestTextWithoutAudioPointsAtMenu(t *testing.T) {
	p := CollectOptions{Request: publish.NewRequest(publish.Media{}, "x")}
	next, effects := Transition(p, Text{Text: "hello"})
	require.Equal(t, p, next)
	require.Equal(t, []Effect{Reply{Text: textUseMenu}}, effects)
}

func TestChoiceOutsideOptions(t *testing.T) {
	for _, p := range []Phase{Idle{}, SetupToken{}, CollectMedia{}, CollectText{}} {
		next, effects := Transition(p, Choice{Option: OptPublish})
		require.Equal(t, p, next)
		require.Equal(t, []Effect{Notice{Text: textNoActivePost, Alert: true}}, effects)
	}
	_, effects := Transition(Idle{}, Command{Name: CmdPublishNow})
	require.Equal(t, []Effect{Reply{Text: textNoActivePost}}, effects)
}

func TestPublishNowWhileCollectingRepeatsStepHint(t *testing.T) {
	media := publish.Media{Photos: []string{"/p"}}
	cases := []struct {
		phase Phase
		hint  string
	}{
		{CollectMedia{Media: media}, textPhotoOrVideo},
		{CollectText{Media: media}, textTextExpected},
	}
	for _, tc := range cases {
		next, effects := Transition(tc.phase, Command{Name: CmdPublishNow})
		require.Equal(t, tc.phase, next)
		require.Equal(t, []Effect{Reply{Text: tc.hint}}, effects)
	}
}

func TestPublishingOutcomes(t *testing.T) {
	req := publish.NewRequest(publish.Media{Photos: []string{"/p"}}, "x")
	req.SelectBoth()
	p := Publishing{Request: req}

	next, effects := Transition(p, Published{Result: publish.Result{PostIDs: []int64{7}, PostsAttempted: 2, StoryAttempted: true}})
	require.Equal(t, Idle{}, next)
	text := effects[0].(Reply).Text
	require.Contains(t, text, "1 из 2")
	require.Contains(t, text, "История: ошибка публикации.")

	next, effects = Transition(p, CredentialMissing{})
	require.Equal(t, Idle{}, next)
	require.Equal(t, []Effect{Reply{Text: textNoCredential}}, effects)

	next, effects = Transition(p, PublishFailed{Err: errors.New("boom")})
	require.Equal(t, Idle{}, next)
	require.Equal(t, []Effect{Reply{Text: textPublishFailed}}, effects)
}

func TestSummaryEscapesNote(t *testing.T) {
	req := publish.NewRequest(publish.Media{}, "x")
	req.PublishPost = false
	req.AddAudio = true
	req.AudioNote = "<b>track</b>"
	require.Contains(t, summary(req, publish.Result{}), "&lt;b&gt;track&lt;/b&gt;")

	req.AddAudio = false
	require.Equal(t, textDone, summary(req, publish.Result{}))
}

func effectNames(effects []Effect) []string {
	names := make([]string, 0, len(effects))
	for _, e := range effects {
		names = append(names, e.effect())
	}
	return names
}
