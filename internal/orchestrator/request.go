package orchestrator

import (
	"strings"

	"clipforge/internal/services"
)

// Options tunes one orchestration run. Zero values fall back to system
// defaults; a non-positive TopN is a deliberate leniency, not an error.
type Options struct {
	Lang           string   `json:"lang,omitempty"`
	Provider       string   `json:"provider,omitempty"`
	SceneThreshold float64  `json:"sceneThreshold,omitempty"`
	TopN           int      `json:"topN,omitempty"`
	EnqueueRender  *bool    `json:"enqueueRender,omitempty"`
	BoostKeywords  []string `json:"boostKeywords,omitempty"`
}

// Request is the one-click orchestration input.
type Request struct {
	OwnerSubject   string  `json:"ownerSubject"`
	URL            string  `json:"url,omitempty"`
	MediaID        string  `json:"mediaId,omitempty"`
	Title          string  `json:"title,omitempty"`
	IdempotencyKey string  `json:"idempotencyKey"`
	Options        Options `json:"options"`
}

// Validate enforces the caller contract: an owner, an idempotency key, and
// exactly one content source.
func (r *Request) Validate() error {
	if strings.TrimSpace(r.OwnerSubject) == "" {
		return services.Wrap(services.ErrValidation, "orchestrator", "validate", "ownerSubject is required", nil)
	}
	if strings.TrimSpace(r.IdempotencyKey) == "" {
		return services.Wrap(services.ErrValidation, "orchestrator", "validate", "idempotencyKey is required", nil)
	}
	hasURL := strings.TrimSpace(r.URL) != ""
	hasMedia := strings.TrimSpace(r.MediaID) != ""
	if hasURL == hasMedia {
		return services.Wrap(services.ErrValidation, "orchestrator", "validate", "exactly one of url or mediaId is required", nil)
	}
	return nil
}
