package orchestrator

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"clipforge/internal/db"
	"clipforge/internal/queue"
)

// ErrDuplicateKey reports that another orchestration already persisted a
// record for the same (owner, idempotency key).
var ErrDuplicateKey = errors.New("idempotency key already recorded")

// JobRef reports a job handle plus its last-known status.
type JobRef struct {
	JobID  int64        `json:"jobId"`
	Status queue.Status `json:"status"`
}

// RenderRef ties a render job back to the clip it produces.
type RenderRef struct {
	ClipID string       `json:"clipId"`
	JobID  int64        `json:"jobId"`
	Status queue.Status `json:"status"`
}

// Record is the durable result of one orchestration run. It is written at
// most once per (owner, idempotency key); only job status fields are ever
// refreshed afterwards.
type Record struct {
	ID              string      `json:"-"`
	OwnerSubject    string      `json:"-"`
	IdempotencyKey  string      `json:"-"`
	ProjectID       string      `json:"projectId"`
	MediaID         string      `json:"mediaId"`
	CreatedProject  bool        `json:"createdProject"`
	DetectJob       JobRef      `json:"detectJob"`
	Requested       int         `json:"requested"`
	Computed        int         `json:"computed"`
	RenderJobs      []RenderRef `json:"renderJobs"`
	ThumbnailSource string      `json:"thumbnailSource,omitempty"`
	CreatedAt       time.Time   `json:"-"`
}

// Ledger persists orchestration records in the shared database.
type Ledger struct {
	handle *db.Handle
}

// NewLedger wraps the shared database handle.
func NewLedger(handle *db.Handle) *Ledger {
	return &Ledger{handle: handle}
}

const recordColumns = `id, owner_subject, idempotency_key, project_id, media_id, created_project,
    detect_job_id, detect_job_status, requested, computed, render_jobs_json, thumbnail_source, created_at`

// Find returns the record for (owner, key), or nil when absent.
func (l *Ledger) Find(ctx context.Context, owner, key string) (*Record, error) {
	row := l.handle.DB().QueryRowContext(
		ctx,
		`SELECT `+recordColumns+` FROM orchestrations WHERE owner_subject = ? AND idempotency_key = ?`,
		owner,
		key,
	)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find orchestration: %w", err)
	}
	return record, nil
}

// Insert persists a record exactly once. A uniqueness conflict on
// (owner, idempotency key) is reported as ErrDuplicateKey so the caller can
// re-read the winning record.
func (l *Ledger) Insert(ctx context.Context, record *Record) error {
	renderJSON, err := json.Marshal(record.RenderJobs)
	if err != nil {
		return fmt.Errorf("marshal render refs: %w", err)
	}

	_, err = l.handle.Exec(
		ctx,
		`INSERT INTO orchestrations (`+recordColumns+`)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID,
		record.OwnerSubject,
		record.IdempotencyKey,
		record.ProjectID,
		record.MediaID,
		boolToInt(record.CreatedProject),
		record.DetectJob.JobID,
		record.DetectJob.Status,
		record.Requested,
		record.Computed,
		string(renderJSON),
		db.NullableString(record.ThumbnailSource),
		db.FormatTime(record.CreatedAt),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return fmt.Errorf("orchestration %s/%s: %w", record.OwnerSubject, record.IdempotencyKey, ErrDuplicateKey)
		}
		return fmt.Errorf("insert orchestration: %w", err)
	}
	return nil
}

// RefreshStatuses persists lazily-read job statuses back onto a stored
// record. Only status fields change; everything else is immutable.
func (l *Ledger) RefreshStatuses(ctx context.Context, record *Record) error {
	renderJSON, err := json.Marshal(record.RenderJobs)
	if err != nil {
		return fmt.Errorf("marshal render refs: %w", err)
	}
	_, err = l.handle.Exec(
		ctx,
		`UPDATE orchestrations SET detect_job_status = ?, render_jobs_json = ? WHERE id = ?`,
		record.DetectJob.Status,
		string(renderJSON),
		record.ID,
	)
	if err != nil {
		return fmt.Errorf("refresh orchestration statuses: %w", err)
	}
	return nil
}

func scanRecord(scanner interface{ Scan(dest ...any) error }) (*Record, error) {
	var (
		id           string
		owner        string
		key          string
		projectID    string
		mediaID      string
		createdProj  int
		detectJobID  int64
		detectStatus string
		requested    int
		computed     int
		renderJSON   sql.NullString
		thumbnail    sql.NullString
		createdRaw   sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&owner,
		&key,
		&projectID,
		&mediaID,
		&createdProj,
		&detectJobID,
		&detectStatus,
		&requested,
		&computed,
		&renderJSON,
		&thumbnail,
		&createdRaw,
	); err != nil {
		return nil, err
	}

	record := &Record{
		ID:              id,
		OwnerSubject:    owner,
		IdempotencyKey:  key,
		ProjectID:       projectID,
		MediaID:         mediaID,
		CreatedProject:  createdProj != 0,
		DetectJob:       JobRef{JobID: detectJobID, Status: queue.Status(detectStatus)},
		Requested:       requested,
		Computed:        computed,
		ThumbnailSource: thumbnail.String,
	}
	if renderJSON.Valid && renderJSON.String != "" {
		if err := json.Unmarshal([]byte(renderJSON.String), &record.RenderJobs); err != nil {
			return nil, fmt.Errorf("unmarshal render refs: %w", err)
		}
	}
	if created, err := db.ParseTime(createdRaw.String); err == nil {
		record.CreatedAt = created
	}
	return record, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
