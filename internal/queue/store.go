package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"clipforge/internal/db"
)

// ErrNotRunning is reported when a terminal transition targets a job that is
// not currently running. Marking an already-terminal job is a conflict, not a
// silent no-op, so executors notice double completions.
var ErrNotRunning = errors.New("job is not running")

// Store manages job persistence backed by the shared SQLite handle.
type Store struct {
	handle *db.Handle
	lease  time.Duration
}

// NewStore wraps the shared database handle. leaseDuration bounds how long a
// claimed job may run before ReclaimExpired returns it to the queue.
func NewStore(handle *db.Handle, leaseDuration time.Duration) *Store {
	return &Store{handle: handle, lease: leaseDuration}
}

const jobColumns = "id, kind, status, attempts, payload, result, error_message, created_at, updated_at, lease_expires_at"

// Enqueue inserts a new queued job and returns it.
func (s *Store) Enqueue(ctx context.Context, kind Kind, payload string) (*Job, error) {
	if strings.TrimSpace(string(kind)) == "" {
		return nil, errors.New("job kind is required")
	}
	timestamp := db.FormatTime(time.Now())

	res, err := s.handle.Exec(
		ctx,
		`INSERT INTO jobs (kind, status, attempts, payload, created_at, updated_at)
         VALUES (?, ?, 0, ?, ?, ?)`,
		string(kind),
		StatusQueued,
		db.NullableString(payload),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.GetByID(ctx, id)
}

// ClaimNext atomically claims the oldest queued job: it transitions the row
// to running, increments attempts, and stamps the lease deadline, all in one
// UPDATE. The subquery only ever sees queued rows, so a job claimed by a
// concurrent worker has already left the candidate set — callers skip claimed
// work instead of waiting behind it. Returns (nil, nil) when the queue is
// empty.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	now := time.Now()
	leaseExpiry := db.FormatTime(now.Add(s.lease))

	var job *Job
	err := db.RetryOnBusy(ctx, func() error {
		row := s.handle.DB().QueryRowContext(
			ctx,
			`UPDATE jobs
             SET status = ?, attempts = attempts + 1, updated_at = ?, lease_expires_at = ?
             WHERE id = (
                 SELECT id FROM jobs WHERE status = ? ORDER BY created_at, id LIMIT 1
             ) AND status = ?
             RETURNING `+jobColumns,
			StatusRunning,
			db.FormatTime(now),
			leaseExpiry,
			StatusQueued,
			StatusQueued,
		)
		claimed, scanErr := scanJob(row)
		if scanErr != nil {
			return scanErr
		}
		job = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	return job, nil
}

// MarkDone records a successful result for a running job.
func (s *Store) MarkDone(ctx context.Context, id int64, result string) error {
	return s.finish(ctx, id, StatusDone, result, "")
}

// MarkError records a structured failure for a running job. The queue does
// not retry; any retry policy lives with the caller.
func (s *Store) MarkError(ctx context.Context, id int64, message string) error {
	return s.finish(ctx, id, StatusError, "", message)
}

func (s *Store) finish(ctx context.Context, id int64, status Status, result, message string) error {
	res, err := s.handle.Exec(
		ctx,
		`UPDATE jobs
         SET status = ?, result = ?, error_message = ?, updated_at = ?, lease_expires_at = NULL
         WHERE id = ? AND status = ?`,
		status,
		db.NullableString(result),
		db.NullableString(message),
		db.FormatTime(time.Now()),
		id,
		StatusRunning,
	)
	if err != nil {
		return fmt.Errorf("mark job %s: %w", status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("mark job %d %s: %w", id, status, ErrNotRunning)
	}
	return nil
}

// GetByID fetches a job by identifier. Returns (nil, nil) when absent.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.handle.DB().QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// CountByStatus returns how many jobs currently hold the given status.
func (s *Store) CountByStatus(ctx context.Context, status Status) (int, error) {
	var count int
	err := s.handle.DB().QueryRowContext(
		ctx, `SELECT COUNT(1) FROM jobs WHERE status = ?`, status,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count by status: %w", err)
	}
	return count, nil
}

// List returns jobs filtered by status set (or all jobs when no status is
// provided), oldest first.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at, id`

	var (
		rows *sql.Rows
		err  error
	)
	if len(statuses) == 0 {
		rows, err = s.handle.DB().QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		rows, err = s.handle.DB().QueryContext(ctx, baseQuery+` WHERE status IN (`+placeholders+`)`+orderClause, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.handle.DB().QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job state for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusRunning:
			health.Running += count
		case StatusDone:
			health.Done += count
		case StatusError:
			health.Errored += count
		}
	}
	return health, nil
}

// ReclaimExpired returns running jobs whose lease deadline passed back to
// queued so another worker can claim them. Attempts are preserved; the next
// claim increments them again.
func (s *Store) ReclaimExpired(ctx context.Context) (int64, error) {
	now := time.Now()
	res, err := s.handle.Exec(
		ctx,
		`UPDATE jobs
         SET status = ?, updated_at = ?, lease_expires_at = NULL
         WHERE status = ? AND lease_expires_at IS NOT NULL AND lease_expires_at < ?`,
		StatusQueued,
		db.FormatTime(now),
		StatusRunning,
		db.FormatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("reclaim expired jobs: %w", err)
	}
	return res.RowsAffected()
}

// RetryErrored returns errored jobs (optionally a subset of ids) to queued.
// The error message is cleared; attempts carry over as history.
func (s *Store) RetryErrored(ctx context.Context, ids ...int64) (int64, error) {
	timestamp := db.FormatTime(time.Now())

	query := `UPDATE jobs SET status = ?, error_message = NULL, updated_at = ? WHERE status = ?`
	args := []any{StatusQueued, timestamp, StatusError}
	if len(ids) > 0 {
		query += ` AND id IN (` + makePlaceholders(len(ids)) + `)`
		for _, id := range ids {
			args = append(args, id)
		}
	}

	res, err := s.handle.Exec(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("retry errored jobs: %w", err)
	}
	return res.RowsAffected()
}

// ClearTerminal removes done and errored jobs from the queue.
func (s *Store) ClearTerminal(ctx context.Context) (int64, error) {
	res, err := s.handle.Exec(ctx, `DELETE FROM jobs WHERE status IN (?, ?)`, StatusDone, StatusError)
	if err != nil {
		return 0, fmt.Errorf("clear terminal jobs: %w", err)
	}
	return res.RowsAffected()
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		kind         string
		statusStr    string
		attempts     int
		payload      sql.NullString
		result       sql.NullString
		errorMessage sql.NullString
		createdRaw   sql.NullString
		updatedRaw   sql.NullString
		leaseRaw     sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&kind,
		&statusStr,
		&attempts,
		&payload,
		&result,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&leaseRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:           id,
		Kind:         Kind(kind),
		Status:       Status(statusStr),
		Attempts:     attempts,
		Payload:      payload.String,
		Result:       result.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := db.ParseTime(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := db.ParseTime(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if leaseRaw.Valid {
		if lease, err := db.ParseTime(leaseRaw.String); err == nil {
			job.LeaseExpiresAt = &lease
		}
	}
	return job, nil
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
