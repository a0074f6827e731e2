package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"clipforge/internal/media"
	"clipforge/internal/queue"
)

// Submission describes one clip to cut from a media source.
type Submission struct {
	ClipID    string `json:"clipId"`
	ProjectID string `json:"projectId"`
	MediaID   string `json:"mediaId"`
	StartMS   int64  `json:"startMs"`
	EndMS     int64  `json:"endMs"`
	Profile   string `json:"profile"`
}

// Submitter hands a clip to the rendering backend and returns an opaque
// handle for the produced artifact.
type Submitter interface {
	Submit(ctx context.Context, sub Submission) (string, error)
}

// NullSubmitter accepts every submission without doing work. It stands in
// for the external transcoder in tests and minimal deployments.
type NullSubmitter struct{}

// Submit returns a handle derived from the clip id.
func (NullSubmitter) Submit(_ context.Context, sub Submission) (string, error) {
	return "clip://" + sub.ClipID, nil
}

// JobResult is the structured payload a finished render job records.
type JobResult struct {
	ClipID string `json:"clipId"`
	Handle string `json:"handle"`
}

// Executor drains render jobs from the queue.
type Executor struct {
	submitter Submitter
	catalog   *media.Store
	logger    *slog.Logger
}

// NewExecutor builds the render job handler.
func NewExecutor(submitter Submitter, catalog *media.Store, logger *slog.Logger) *Executor {
	return &Executor{submitter: submitter, catalog: catalog, logger: logger}
}

// Kind returns the job kind this executor handles.
func (e *Executor) Kind() queue.Kind {
	return queue.KindRender
}

// Execute submits the clip to the backend. The first clip completed for a
// project becomes its thumbnail fallback.
func (e *Executor) Execute(ctx context.Context, job *queue.Job) (string, error) {
	var sub Submission
	if err := json.Unmarshal([]byte(job.Payload), &sub); err != nil {
		return "", fmt.Errorf("decode render payload: %w", err)
	}
	if sub.ClipID == "" || sub.MediaID == "" {
		return "", fmt.Errorf("render payload missing clip or media id")
	}

	handle, err := e.submitter.Submit(ctx, sub)
	if err != nil {
		return "", fmt.Errorf("submit render: %w", err)
	}

	if e.catalog != nil && sub.ProjectID != "" {
		if err := e.catalog.SetThumbnailSource(ctx, sub.ProjectID, handle); err != nil && e.logger != nil {
			e.logger.Warn("thumbnail fallback not recorded",
				slog.String("project_id", sub.ProjectID),
				slog.Any("error", err))
		}
	}

	result, err := json.Marshal(JobResult{ClipID: sub.ClipID, Handle: handle})
	if err != nil {
		return "", fmt.Errorf("encode render result: %w", err)
	}
	if e.logger != nil {
		e.logger.Info("render submitted",
			slog.String("clip_id", sub.ClipID),
			slog.String("handle", handle))
	}
	return string(result), nil
}
