package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"clipforge/internal/media"
	"clipforge/internal/queue"
	"clipforge/internal/scoring"
)

// JobPayload is the detect job's queue payload.
type JobPayload struct {
	MediaID        string  `json:"mediaId"`
	Lang           string  `json:"lang,omitempty"`
	Provider       string  `json:"provider,omitempty"`
	SceneThreshold float64 `json:"sceneThreshold,omitempty"`
	TargetDuration int     `json:"targetDurationSec"`
}

// JobResult is the structured payload a finished detect job records.
type JobResult struct {
	MediaID string           `json:"mediaId"`
	Windows []scoring.Window `json:"windows"`
}

// Executor computes candidate windows for detect jobs. Transcription itself
// is an upstream concern; the executor works from whatever segments the
// catalog already holds.
type Executor struct {
	catalog *media.Store
	logger  *slog.Logger
}

// NewExecutor builds the detect job handler.
func NewExecutor(catalog *media.Store, logger *slog.Logger) *Executor {
	return &Executor{catalog: catalog, logger: logger}
}

// Kind returns the job kind this executor handles.
func (e *Executor) Kind() queue.Kind {
	return queue.KindDetect
}

// Execute loads the media's transcript, builds candidate windows, and
// returns them as the job result.
func (e *Executor) Execute(ctx context.Context, job *queue.Job) (string, error) {
	var payload JobPayload
	if err := json.Unmarshal([]byte(job.Payload), &payload); err != nil {
		return "", fmt.Errorf("decode detect payload: %w", err)
	}
	if payload.MediaID == "" {
		return "", fmt.Errorf("detect payload missing mediaId")
	}

	segments, err := e.catalog.Segments(ctx, payload.MediaID)
	if err != nil {
		return "", fmt.Errorf("load segments: %w", err)
	}

	targetMS := int64(payload.TargetDuration) * 1000
	windows := BuildWindows(segments, targetMS)
	if e.logger != nil {
		e.logger.Info("detection complete",
			slog.String("media_id", payload.MediaID),
			slog.Int("segments", len(segments)),
			slog.Int("windows", len(windows)))
	}

	result, err := json.Marshal(JobResult{MediaID: payload.MediaID, Windows: windows})
	if err != nil {
		return "", fmt.Errorf("encode detect result: %w", err)
	}
	return string(result), nil
}
