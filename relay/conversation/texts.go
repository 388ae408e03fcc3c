package conversation

import (
	"fmt"
	"strings"

	"github.com/m3rciful/vkrelay/core/telegram/format"
	"github.com/m3rciful/vkrelay/relay/publish"
)

// Replies are sent with HTML parse mode; user content goes through
// format.EscapeHTML.
const (
	textSetupHint = "Перед первым постом выполни /setup и введи свой VK-токен и ID групп.\n\n"
	textUsage     = "Как пользоваться:\n" +
		"1. Отправь фото или видео (можно несколько фото).\n" +
		"2. Отправь текст поста (можно со ссылками).\n" +
		"3. Выбери: только пост, только история или оба, и укажи, нужно ли добавлять музыку/аудио во ВК.\n\n" +
		"Команды:\n" +
		"/setup — указать свой VK-токен и группы\n" +
		"/post — начать новый пост\n" +
		"/cancel — отменить текущий пост"

	textSetupIntro = "Настройка VK. Данные привязаны к твоему Telegram.\n\n" +
		"Отправь свой <b>VK Access Token</b> одним сообщением.\n" +
		"Нужные права: wall, photos, stories, offline, groups."
	textTokenEmpty    = "Отправь токен текстом."
	textTokenChecking = "Проверяю токен…"
	textTokenRejected = "Токен не прошёл проверку ВК. Проверь права и скопируй токен заново."
	textVKUnavailable = "ВКонтакте сейчас недоступен. Попробуй отправить токен ещё раз чуть позже."
	textAskGroups     = "Токен принят. Теперь отправь <b>ID групп ВК</b> через запятую.\n" +
		"Например: <code>-123456789, -987654321</code> или <code>123456789, 987654321</code>."
	textGroupsInvalid = "Укажи хотя бы один ID группы через запятую, например: <code>-123456789, -987654321</code>"
	textAskStories    = "Группы сохранены. Отправь <b>ID группы для историй</b> (одно число) или напиши <b>Пропустить</b>, " +
		"чтобы использовать первую группу из списка."
	textStoriesInvalid = "Отправь одно число (ID группы для историй) или «Пропустить»."
	textSetupDone      = "Готово. Твои VK-данные сохранены. Можешь использовать /post для публикации."
	textSaveFailed     = "Не удалось сохранить настройки. Отправь ID группы для историй или «Пропустить» ещё раз."

	textAskMedia = "Отправь фото или видео для поста. Можно несколько фото подряд. " +
		"Когда закончишь, отправь текст поста (можно со ссылками) или «Пропустить»."
	textVideoReceived  = "Видео получено. Теперь отправь текст поста (можно со ссылками) или «Пропустить»."
	textDownloadFailed = "Не удалось скачать файл. Отправь его ещё раз."
	textPhotoOrVideo   = "Отправь, пожалуйста, фото или видео."
	textTextExpected   = "Медиа уже получено. Отправь текст поста или «Пропустить»."
	textIdleHint       = "Нет активного поста. Напиши /post чтобы начать или /setup для настройки."
	textOptionsPrompt  = "Выбери, куда публиковать, и нужно ли добавлять музыку/аудио во ВК. " +
		"Затем нажми «Опубликовать»."
	textUseMenu   = "Выбери параметры в меню выше и нажми «Опубликовать»."
	textSetupBusy = "Сейчас идёт настройка. Отправь запрошенные данные или /cancel."
	textAskNote   = "Напиши уточнение по музыке/аудио для ВК (например, название трека или «из аудиозаписей группы»). " +
		"Или отправь /publish_now чтобы опубликовать без него."
	textNoteSaved      = "Уточнение сохранено. Нажми «Опубликовать» ещё раз или отправь /publish_now."
	textNotActionable  = "Нужно хотя бы фото, видео или текст."
	textNoActivePost   = "Нет сохранённого поста. Начни с /post"
	textPublishing     = "Публикую…"
	textPublishBusy    = "Публикация уже идёт, подожди немного."
	textNoCredential   = "Сначала выполни /setup и введи свой VK-токен и ID групп."
	textPublishFailed  = "Ошибка публикации. Попробуй ещё раз позже."
	textCancelled      = "Отменено. Напиши /post или /setup чтобы начать заново."
	textAudioOn        = "Музыка/аудио во ВК: да"
	textAudioOff       = "Музыка/аудио во ВК: нет"
	textDone           = "Готово."
)

const maxNoteRunes = 200

func greeting(configured bool) string {
	hint := ""
	if !configured {
		hint = textSetupHint
	}
	return "Привет! Я публикую посты и истории во ВКонтакте.\n\n" + hint + textUsage
}

func photoAdded(n int) string {
	return fmt.Sprintf("Добавлено фото. Всего фото: %d. Отправь ещё или текст поста.", n)
}

// summary reports per-target outcomes; posts and story are independent.
func summary(req publish.PublishRequest, res publish.Result) string {
	var lines []string
	if req.PublishPost {
		line := fmt.Sprintf("Посты: опубликовано %d из %d", len(res.PostIDs), res.PostsAttempted)
		if len(res.PostIDs) > 0 {
			ids := make([]string, 0, len(res.PostIDs))
			for _, id := range res.PostIDs {
				ids = append(ids, fmt.Sprint(id))
			}
			line += " (id: " + strings.Join(ids, ", ") + ")"
		}
		lines = append(lines, line+".")
	}
	if req.PublishStory {
		switch {
		case !res.StoryAttempted:
			lines = append(lines, "История: пропущена, нет фото или видео.")
		case res.StoryOK:
			lines = append(lines, "История: опубликована.")
		default:
			lines = append(lines, "История: ошибка публикации.")
		}
	}
	if req.AddAudio {
		note := strings.TrimSpace(req.AudioNote)
		if note == "" {
			note = "—"
		}
		lines = append(lines, "Музыка/аудио: учтено (уточнение: "+format.EscapeHTML(format.TruncateRunes(note, maxNoteRunes))+"). "+
			"Трек во ВК добавляется к записи вручную.")
	}
	if len(lines) == 0 {
		return textDone
	}
	return strings.Join(lines, "\n")
}
