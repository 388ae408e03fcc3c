package vk

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/SevereCloud/vksdk/v3/api"
	"github.com/SevereCloud/vksdk/v3/object"
	"github.com/google/uuid"

	"github.com/m3rciful/vkrelay/core/logger"
	"github.com/m3rciful/vkrelay/relay/credentials"
	"github.com/m3rciful/vkrelay/relay/publish"
)

const component = "service.publish"

// storyUpload is the body returned by a stories upload URL.
type storyUpload struct {
	Response *struct {
		UploadResult string `json:"upload_result"`
	} `json:"response"`
}

// ValidateToken performs a cheap authenticated call. A VK API error means
// the token was rejected; transport failures are returned unchanged.
func (c *Client) ValidateToken(ctx context.Context, token string) error {
	start := time.Now()
	_, err := c.session(token).UsersGet(api.Params{}.WithContext(ctx))
	code, rejected := apiCode(err)
	switch {
	case err == nil:
		logger.Debug(ctx, component, "vk.validate",
			slog.String("status", "ok"),
			slog.Duration("duration", logger.Took(start)),
		)
		return nil
	case rejected:
		logger.Info(ctx, component, "vk.validate",
			slog.String("status", "rejected"),
			slog.Int("code", code),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("%w: %w", ErrInvalidToken, err)
	default:
		logger.Warn(ctx, component, "vk.validate",
			slog.String("status", "error"),
			slog.String("err", logger.Sanitize(err.Error())),
			slog.Duration("duration", logger.Took(start)),
		)
		return fmt.Errorf("vk: users.get: %w", err)
	}
}

// PublishPost creates a wall post in the community groupID (negative owner
// id). Photos are uploaded in order and attached; a staged video is not
// attached to wall posts.
func (c *Client) PublishPost(ctx context.Context, token string, req publish.PublishRequest, groupID int64) (int64, error) {
	vk := c.session(token)
	attachments := make([]string, 0, len(req.Photos))
	for _, path := range req.Photos {
		att, err := uploadWallPhoto(ctx, vk, groupID, path)
		if err != nil {
			return 0, err
		}
		attachments = append(attachments, att)
	}
	if req.Video != "" {
		logger.Warn(ctx, component, "vk.wall.video_skipped",
			slog.Int64("group_id", groupID),
		)
	}

	params := api.Params{
		"owner_id":   strconv.FormatInt(-abs(groupID), 10),
		"from_group": "1",
	}
	if req.HasText() {
		params["message"] = req.Text
	}
	if len(attachments) > 0 {
		params["attachments"] = strings.Join(attachments, ",")
	}

	out, err := vk.WallPost(params.WithContext(ctx))
	if err != nil {
		return 0, fmt.Errorf("vk: wall.post: %w", err)
	}
	if out.PostID == 0 {
		return 0, errors.New("vk: wall.post returned no post_id")
	}
	return int64(out.PostID), nil
}

func uploadWallPhoto(ctx context.Context, vk *api.VK, groupID int64, path string) (string, error) {
	gid := strconv.FormatInt(abs(groupID), 10)

	server, err := vk.PhotosGetWallUploadServer(api.Params{"group_id": gid}.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("vk: photos.getWallUploadServer: %w", err)
	}
	if server.UploadURL == "" {
		return "", &UploadError{Stage: "wall_server", Err: errors.New("missing upload_url")}
	}

	var up object.PhotosWallUploadResponse
	if err := uploadFile(vk, "wall_photo", server.UploadURL, "photo", path, &up); err != nil {
		return "", err
	}
	if up.Photo == "" || up.Photo == "[]" {
		return "", &UploadError{Stage: "wall_photo", Err: errors.New("empty photo field")}
	}

	saved, err := vk.PhotosSaveWallPhoto(api.Params{
		"group_id": gid,
		"server":   strconv.Itoa(up.Server),
		"photo":    up.Photo,
		"hash":     up.Hash,
	}.WithContext(ctx))
	if err != nil {
		return "", fmt.Errorf("vk: photos.saveWallPhoto: %w", err)
	}
	if len(saved) == 0 {
		return "", &UploadError{Stage: "wall_save", Err: errors.New("no photos saved")}
	}
	return saved[0].ToAttachment(), nil
}

// uploadFile sends path to an upload URL handed out by VK and decodes the
// JSON reply into out.
func uploadFile(vk *api.VK, stage, uploadURL, field, path string, out any) error {
	f, err := os.Open(path)
	if err != nil {
		return &UploadError{Stage: stage, Err: err}
	}
	defer func() { _ = f.Close() }()

	raw, err := vk.UploadFile(uploadURL, f, field, filepath.Base(path))
	if err != nil {
		return &UploadError{Stage: stage, Err: err}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &UploadError{Stage: stage, Err: err}
	}
	return nil
}

// PublishStory publishes a single-media story in community groupID. The
// first photo wins over the video.
func (c *Client) PublishStory(ctx context.Context, token string, req publish.PublishRequest, groupID int64) error {
	path, kind, ok := req.StoryMedia()
	if !ok {
		return errors.New("vk: story needs a photo or a video")
	}
	vk := c.session(token)
	params := api.Params{
		"add_to_news": "1",
		"group_id":    strconv.FormatInt(abs(groupID), 10),
	}.WithContext(ctx)

	var (
		uploadURL string
		field     string
		err       error
	)
	if kind == publish.MediaVideo {
		var server api.StoriesGetVideoUploadServerResponse
		server, err = vk.StoriesGetVideoUploadServer(params)
		uploadURL, field = server.UploadURL, "video_file"
	} else {
		var server api.StoriesGetPhotoUploadServerResponse
		server, err = vk.StoriesGetPhotoUploadServer(params)
		uploadURL, field = server.UploadURL, "file"
	}
	if err != nil {
		return fmt.Errorf("vk: stories upload server: %w", err)
	}
	if uploadURL == "" {
		return &UploadError{Stage: "story_server", Err: errors.New("missing upload_url")}
	}

	stage := "story_" + string(kind)
	var up storyUpload
	if err := uploadFile(vk, stage, uploadURL, field, path, &up); err != nil {
		return err
	}
	if up.Response == nil || up.Response.UploadResult == "" {
		return &UploadError{Stage: stage, Err: errors.New("missing upload_result")}
	}

	saved, err := vk.StoriesSave(api.Params{"upload_results": up.Response.UploadResult}.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("vk: stories.save: %w", err)
	}
	if len(saved.Items) == 0 {
		return errors.New("vk: stories.save returned no items")
	}
	return nil
}

// Publish fans the request out to every configured group and, when asked
// and media is present, one story at the stories target. Failures are
// logged and reflected in the result; they never abort other targets.
func (c *Client) Publish(ctx context.Context, cred credentials.Credential, req publish.PublishRequest) publish.Result {
	ctx = logger.WithAttempt(ctx, uuid.NewString())
	start := time.Now()
	var res publish.Result

	if req.PublishPost {
		for _, gid := range cred.GroupIDs {
			res.PostsAttempted++
			postStart := time.Now()
			postID, err := c.PublishPost(ctx, cred.Token, req, gid)
			if err != nil {
				logger.Error(ctx, component, "vk.wall.post",
					slog.Int64("group_id", gid),
					slog.String("status", "error"),
					slog.String("err", logger.Sanitize(err.Error())),
					slog.Duration("duration", logger.Took(postStart)),
				)
				continue
			}
			res.PostIDs = append(res.PostIDs, postID)
			logger.Info(ctx, component, "vk.wall.post",
				slog.Int64("group_id", gid),
				slog.Int64("post_id", postID),
				slog.String("status", "ok"),
				slog.Duration("duration", logger.Took(postStart)),
			)
		}
	}

	if req.PublishStory && req.HasMedia() {
		res.StoryAttempted = true
		storyStart := time.Now()
		if err := c.PublishStory(ctx, cred.Token, req, cred.StoriesGroupID); err != nil {
			logger.Error(ctx, component, "vk.story",
				slog.Int64("group_id", cred.StoriesGroupID),
				slog.String("status", "error"),
				slog.String("err", logger.Sanitize(err.Error())),
				slog.Duration("duration", logger.Took(storyStart)),
			)
		} else {
			res.StoryOK = true
			logger.Info(ctx, component, "vk.story",
				slog.Int64("group_id", cred.StoriesGroupID),
				slog.String("status", "ok"),
				slog.Duration("duration", logger.Took(storyStart)),
			)
		}
	}

	logger.Info(ctx, component, "vk.publish",
		slog.Int("posts_ok", len(res.PostIDs)),
		slog.Int("posts_failed", res.PostsFailed()),
		slog.Bool("story", res.StoryOK),
		slog.Duration("duration", logger.Took(start)),
	)
	return res
}
