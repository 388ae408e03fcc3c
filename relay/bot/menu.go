package bot

import (
	"github.com/m3rciful/vkrelay/core/telegram/keyboard"
	"github.com/m3rciful/vkrelay/relay/conversation"

	tele "gopkg.in/telebot.v4"
)

const checkMark = "✓ "

var optionLabels = map[conversation.Option]string{
	conversation.OptPost:    "Только пост",
	conversation.OptStory:   "Только история",
	conversation.OptBoth:    "Пост + история",
	conversation.OptAudio:   "Музыка/аудио",
	conversation.OptPublish: "Опубликовать",
}

// MenuMarkup renders the option menu, marking the current selection.
func MenuMarkup(m conversation.Menu) *tele.ReplyMarkup {
	selected := map[conversation.Option]bool{
		conversation.OptPost:  m.Post && !m.Story,
		conversation.OptStory: m.Story && !m.Post,
		conversation.OptBoth:  m.Post && m.Story,
		conversation.OptAudio: m.Audio,
	}
	btn := func(opt conversation.Option) keyboard.Button {
		label := optionLabels[opt]
		if selected[opt] {
			label = checkMark + label
		}
		return keyboard.Button{Text: label, Unique: string(opt)}
	}
	return keyboard.Rows(
		[]keyboard.Button{btn(conversation.OptPost), btn(conversation.OptStory)},
		[]keyboard.Button{btn(conversation.OptBoth)},
		[]keyboard.Button{btn(conversation.OptAudio)},
		[]keyboard.Button{btn(conversation.OptPublish)},
	)
}
