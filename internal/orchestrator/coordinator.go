package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"clipforge/internal/config"
	"clipforge/internal/detect"
	"clipforge/internal/media"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/scoring"
	"clipforge/internal/services"
)

// Catalog is the project/media collaborator the coordinator consumes.
type Catalog interface {
	ResolveOrCreate(ctx context.Context, owner, sourceURL, title string) (*media.Project, *media.Media, bool, error)
	GetOwnedMedia(ctx context.Context, owner, mediaID string) (*media.Project, *media.Media, error)
	Segments(ctx context.Context, mediaID string) ([]media.Segment, error)
}

// ThumbnailRegistrar marks a project for deferred thumbnail assignment once
// its first render completes.
type ThumbnailRegistrar interface {
	RegisterFallback(ctx context.Context, projectID, source string) error
}

// NopRegistrar ignores registrations.
type NopRegistrar struct{}

// RegisterFallback implements ThumbnailRegistrar.
func (NopRegistrar) RegisterFallback(context.Context, string, string) error { return nil }

// Coordinator drives the one-click orchestration state machine.
type Coordinator struct {
	cfg       *config.Config
	jobs      *queue.Store
	catalog   Catalog
	ledger    *Ledger
	registrar ThumbnailRegistrar
	logger    *slog.Logger
	inflight  *keyLock
}

// New assembles a coordinator. registrar may be nil.
func New(cfg *config.Config, jobs *queue.Store, catalog Catalog, ledger *Ledger, registrar ThumbnailRegistrar, logger *slog.Logger) *Coordinator {
	if registrar == nil {
		registrar = NopRegistrar{}
	}
	return &Coordinator{
		cfg:       cfg,
		jobs:      jobs,
		catalog:   catalog,
		ledger:    ledger,
		registrar: registrar,
		logger:    logger,
		inflight:  newKeyLock(),
	}
}

// Orchestrate executes one run: idempotency lookup, project/media
// resolution, detection enqueue, recommendation scoring, render enqueue, and
// the single ledger write. Any failure before the ledger write aborts the
// attempt without persisting, so the client can safely retry with the same
// idempotency key.
func (c *Coordinator) Orchestrate(ctx context.Context, req Request) (*Record, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	release := c.inflight.acquire(req.OwnerSubject + "\x00" + req.IdempotencyKey)
	defer release()

	// Idempotency check first: a stored record short-circuits everything,
	// even when the retried request body differs.
	if existing, err := c.ledger.Find(ctx, req.OwnerSubject, req.IdempotencyKey); err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "ledger lookup", "", err)
	} else if existing != nil {
		c.refreshJobStatuses(ctx, existing)
		return existing, nil
	}

	project, mediaRec, createdProject, err := c.resolveContent(ctx, req)
	if err != nil {
		return nil, err
	}

	detectJob, err := c.enqueueDetection(ctx, req, mediaRec)
	if err != nil {
		return nil, err
	}

	topN := req.Options.TopN
	if topN <= 0 {
		topN = c.cfg.Workflow.OrchestrationTopN
	}

	ranked, err := c.computeRecommendations(ctx, req, mediaRec, topN)
	if err != nil {
		return nil, err
	}

	var renderRefs []RenderRef
	if c.shouldEnqueueRender(req) && len(ranked) > 0 {
		renderRefs, err = c.enqueueRenders(ctx, project, mediaRec, ranked)
		if err != nil {
			return nil, err
		}
	}

	record := &Record{
		ID:              uuid.NewString(),
		OwnerSubject:    req.OwnerSubject,
		IdempotencyKey:  req.IdempotencyKey,
		ProjectID:       project.ID,
		MediaID:         mediaRec.ID,
		CreatedProject:  createdProject,
		DetectJob:       JobRef{JobID: detectJob.ID, Status: detectJob.Status},
		Requested:       topN,
		Computed:        len(ranked),
		RenderJobs:      renderRefs,
		ThumbnailSource: project.ThumbnailSource,
		CreatedAt:       time.Now(),
	}

	if err := c.ledger.Insert(ctx, record); err != nil {
		if errors.Is(err, ErrDuplicateKey) {
			// A concurrent duplicate won the persist race. Its record is
			// authoritative; ours is discarded.
			winner, findErr := c.ledger.Find(ctx, req.OwnerSubject, req.IdempotencyKey)
			if findErr != nil {
				return nil, services.Wrap(services.ErrTransient, "orchestrator", "reread after conflict", "", findErr)
			}
			if winner == nil {
				return nil, services.Wrap(services.ErrConflict, "orchestrator", "persist", "winning record not visible", nil)
			}
			c.refreshJobStatuses(ctx, winner)
			return winner, nil
		}
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "persist record", "", err)
	}

	if err := c.registrar.RegisterFallback(ctx, project.ID, mediaRec.SourceURL); err != nil && c.logger != nil {
		c.logger.Warn("thumbnail registration failed",
			slog.String("project_id", project.ID),
			slog.Any("error", err))
	}

	if c.logger != nil {
		c.logger.Info("orchestration complete",
			slog.String("owner", req.OwnerSubject),
			slog.String("project_id", project.ID),
			slog.Int64("detect_job", detectJob.ID),
			slog.Int("requested", topN),
			slog.Int("computed", len(ranked)))
	}
	return record, nil
}

func (c *Coordinator) resolveContent(ctx context.Context, req Request) (*media.Project, *media.Media, bool, error) {
	if req.URL != "" {
		project, mediaRec, created, err := c.catalog.ResolveOrCreate(ctx, req.OwnerSubject, req.URL, req.Title)
		if err != nil {
			if errors.Is(err, media.ErrBadSourceURL) {
				return nil, nil, false, services.Wrap(services.ErrValidation, "orchestrator", "resolve url", "", err)
			}
			return nil, nil, false, services.Wrap(services.ErrTransient, "orchestrator", "resolve url", "", err)
		}
		return project, mediaRec, created, nil
	}

	project, mediaRec, err := c.catalog.GetOwnedMedia(ctx, req.OwnerSubject, req.MediaID)
	if err != nil {
		if errors.Is(err, media.ErrMediaNotFound) {
			return nil, nil, false, services.Wrap(services.ErrNotFound, "orchestrator", "resolve media", req.MediaID, nil)
		}
		return nil, nil, false, services.Wrap(services.ErrTransient, "orchestrator", "resolve media", "", err)
	}
	return project, mediaRec, false, nil
}

func (c *Coordinator) enqueueDetection(ctx context.Context, req Request, mediaRec *media.Media) (*queue.Job, error) {
	payload, err := json.Marshal(detect.JobPayload{
		MediaID:        mediaRec.ID,
		Lang:           req.Options.Lang,
		Provider:       req.Options.Provider,
		SceneThreshold: req.Options.SceneThreshold,
		TargetDuration: c.cfg.Scoring.TargetDurationSec,
	})
	if err != nil {
		return nil, fmt.Errorf("encode detect payload: %w", err)
	}
	job, err := c.jobs.Enqueue(ctx, queue.KindDetect, string(payload))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "enqueue detection", "", err)
	}
	return job, nil
}

// computeRecommendations scores windows synchronously when a transcript is
// already available (reused media). With no transcript yet the computation
// is deferred: the detect job will produce windows later and computed stays
// zero for this run.
func (c *Coordinator) computeRecommendations(ctx context.Context, req Request, mediaRec *media.Media, topN int) ([]scoring.ScoredWindow, error) {
	segments, err := c.catalog.Segments(ctx, mediaRec.ID)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "orchestrator", "load transcript", "", err)
	}
	if len(segments) == 0 {
		return nil, nil
	}

	selCfg := scoring.SelectorConfig{
		TargetDurationSec: c.cfg.Scoring.TargetDurationSec,
		MinSpeechDensity:  c.cfg.Scoring.MinSpeechDensity,
		MaxSilencePenalty: c.cfg.Scoring.MaxSilencePenalty,
		BoostKeywords:     append(append([]string{}, c.cfg.Scoring.BoostKeywords...), req.Options.BoostKeywords...),
		Weights:           scoring.DefaultWeights(),
	}
	windows := detect.BuildWindows(segments, int64(c.cfg.Scoring.TargetDurationSec)*1000)
	result := scoring.SelectTop(windows, topN, selCfg)
	return result.Windows, nil
}

func (c *Coordinator) shouldEnqueueRender(req Request) bool {
	if req.Options.EnqueueRender != nil {
		return *req.Options.EnqueueRender
	}
	return c.cfg.Workflow.EnqueueRenderByDefault
}

func (c *Coordinator) enqueueRenders(ctx context.Context, project *media.Project, mediaRec *media.Media, ranked []scoring.ScoredWindow) ([]RenderRef, error) {
	refs := make([]RenderRef, 0, len(ranked))
	for _, scored := range ranked {
		clipID := uuid.NewString()
		payload, err := json.Marshal(render.Submission{
			ClipID:    clipID,
			ProjectID: project.ID,
			MediaID:   mediaRec.ID,
			StartMS:   scored.Window.StartMS,
			EndMS:     scored.Window.EndMS,
			Profile:   c.cfg.Render.Profile,
		})
		if err != nil {
			return nil, fmt.Errorf("encode render payload: %w", err)
		}
		job, err := c.jobs.Enqueue(ctx, queue.KindRender, string(payload))
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "orchestrator", "enqueue render", "", err)
		}
		refs = append(refs, RenderRef{ClipID: clipID, JobID: job.ID, Status: job.Status})
	}
	return refs, nil
}

// refreshJobStatuses lazily re-reads job statuses for a stored record. It
// never re-executes side effects; a refresh failure leaves the stored
// statuses in place.
func (c *Coordinator) refreshJobStatuses(ctx context.Context, record *Record) {
	changed := false
	if job, err := c.jobs.GetByID(ctx, record.DetectJob.JobID); err == nil && job != nil && job.Status != record.DetectJob.Status {
		record.DetectJob.Status = job.Status
		changed = true
	}
	for i := range record.RenderJobs {
		if job, err := c.jobs.GetByID(ctx, record.RenderJobs[i].JobID); err == nil && job != nil && job.Status != record.RenderJobs[i].Status {
			record.RenderJobs[i].Status = job.Status
			changed = true
		}
	}
	if changed {
		if err := c.ledger.RefreshStatuses(ctx, record); err != nil && c.logger != nil {
			c.logger.Warn("status refresh not persisted",
				slog.String("record_id", record.ID),
				slog.Any("error", err))
		}
	}
}
