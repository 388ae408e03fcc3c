// Package staging downloads conversation media into a local directory and
// releases the files once a publish attempt or a conversation ends.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/relay/publish"
)

const component = "service.staging"

// Source yields the bytes of one incoming attachment.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	// FileName is the original file name if the transport knows it.
	FileName() string
	MIME() string
}

// Stager owns the downloads directory.
type Stager struct {
	dir    string
	newID  func() string
	remove func(string) error
}

// New prepares dir for staged downloads.
func New(dir string) (*Stager, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("staging: empty downloads dir")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("staging: resolve %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("staging: create %s: %w", abs, err)
	}
	return &Stager{
		dir:    abs,
		newID:  func() string { return uuid.NewString() },
		remove: os.Remove,
	}, nil
}

// Dir returns the absolute downloads directory.
func (s *Stager) Dir() string {
	return s.dir
}

// Stage copies src into the user's directory and returns the file path.
// Partially written files are removed on failure.
func (s *Stager) Stage(ctx context.Context, userID int64, kind publish.MediaKind, src Source) (string, error) {
	if src == nil {
		return "", errors.New("staging: nil source")
	}
	start := time.Now()
	userDir := filepath.Join(s.dir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return "", fmt.Errorf("staging: create user dir: %w", err)
	}

	name := fmt.Sprintf("%s_%s.%s", kind, s.newID(), Extension(kind, src.FileName(), src.MIME()))
	dest := filepath.Join(userDir, name)

	rc, err := src.Open(ctx)
	if err != nil {
		return "", fmt.Errorf("staging: open %s: %w", kind, err)
	}
	defer rc.Close()

	f, err := os.OpenFile(dest, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("staging: create %s: %w", dest, err)
	}
	n, copyErr := io.Copy(f, rc)
	closeErr := f.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("staging: write %s: %w", kind, err)
	}

	logger.Debug(ctx, component, "media.staged",
		slog.String("status", "ok"),
		slog.Int64("user_id", userID),
		slog.String("kind", string(kind)),
		slog.Int64("bytes", n),
		slog.Duration("duration", logger.Took(start)),
	)
	return dest, nil
}

// Release deletes the given files. Errors are logged and swallowed; paths
// outside the downloads directory are ignored.
func (s *Stager) Release(ctx context.Context, paths []string) {
	if len(paths) == 0 {
		return
	}
	removed, failed := 0, 0
	for _, p := range paths {
		if !s.owns(p) {
			logger.Warn(ctx, component, "media.release",
				slog.String("status", "skip"),
				slog.String("reason", "outside_dir"),
			)
			continue
		}
		if err := s.remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			failed++
			logger.Warn(ctx, component, "media.release",
				slog.String("status", "fail"),
				slog.String("err", err.Error()),
			)
			continue
		}
		removed++
	}
	logger.Debug(ctx, component, "media.release",
		slog.String("status", "ok"),
		slog.Int("count", removed),
		slog.Int("failed", failed),
	)
}

// Lease binds a set of files to a scope; Release on the lease deletes them
// once no matter how many times it is called.
func (s *Stager) Lease(paths []string) *Lease {
	return NewLease(paths, s.Release)
}

func (s *Stager) owns(path string) bool {
	rel, err := filepath.Rel(s.dir, filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && !strings.HasPrefix(rel, "..")
}

// Lease is a scope guard over staged files.
type Lease struct {
	release func(context.Context, []string)
	paths   []string
	once    sync.Once
}

// NewLease guards paths with an arbitrary release func.
func NewLease(paths []string, release func(context.Context, []string)) *Lease {
	return &Lease{release: release, paths: append([]string(nil), paths...)}
}

// Release deletes the leased files on the first call.
func (l *Lease) Release(ctx context.Context) {
	if l == nil || l.release == nil {
		return
	}
	l.once.Do(func() {
		l.release(ctx, l.paths)
	})
}

var (
	photoExts = map[string]struct{}{"jpg": {}, "jpeg": {}, "png": {}, "webp": {}}
	videoExts = map[string]struct{}{"mp4": {}, "mov": {}, "avi": {}, "webm": {}}
)

// Extension picks the staged file extension from the original name, then
// the MIME type, falling back to jpg for photos and mp4 for videos.
func Extension(kind publish.MediaKind, fileName, mimeType string) string {
	allowed, fallback := photoExts, "jpg"
	if kind == publish.MediaVideo {
		allowed, fallback = videoExts, "mp4"
	}
	if ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(fileName), ".")); ext != "" {
		if _, ok := allowed[ext]; ok {
			return ext
		}
	}
	if mimeType != "" {
		exts, _ := mime.ExtensionsByType(strings.ToLower(mimeType))
		for _, e := range exts {
			e = strings.TrimPrefix(e, ".")
			if _, ok := allowed[e]; ok {
				return e
			}
		}
	}
	return fallback
}

// IsVideoMIME reports whether a document MIME type denotes a video.
func IsVideoMIME(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "video")
}

// IsImageMIME reports whether a document MIME type denotes a still image.
func IsImageMIME(mimeType string) bool {
	return strings.HasPrefix(strings.ToLower(mimeType), "image/")
}
