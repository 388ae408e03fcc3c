package bot

import (
	"context"
	"io"

	"github.com/m3rciful/vkrelay/relay/staging"

	tele "gopkg.in/telebot.v4"
)

// FileGetter downloads files from the Telegram Bot API.
type FileGetter interface {
	File(file *tele.File) (io.ReadCloser, error)
}

type fileSource struct {
	files FileGetter
	file  tele.File
	name  string
	mime  string
}

var _ staging.Source = (*fileSource)(nil)

func (s *fileSource) Open(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	file := s.file
	return s.files.File(&file)
}

func (s *fileSource) FileName() string { return s.name }

func (s *fileSource) MIME() string { return s.mime }
