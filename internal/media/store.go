package media

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"clipforge/internal/db"
)

// ErrMediaNotFound is returned when a media id does not exist or belongs to
// another owner.
var ErrMediaNotFound = errors.New("media not found")

// ErrBadSourceURL is returned when a source URL cannot be normalized and so
// cannot identify a project. Callers treat it as a bad request, unlike
// storage failures which are retryable.
var ErrBadSourceURL = errors.New("bad source url")

// Project groups the media and clips produced for one source.
type Project struct {
	ID              string
	OwnerSubject    string
	Title           string
	SourceURL       string
	NormalizedURL   string
	ThumbnailSource string
	CreatedAt       time.Time
}

// Media is one ingested source file or stream within a project.
type Media struct {
	ID         string
	ProjectID  string
	SourceURL  string
	Lang       string
	DurationMS int64
	CreatedAt  time.Time
}

// Segment is one transcript span attached to a media record.
type Segment struct {
	StartMS    int64
	EndMS      int64
	Text       string
	Confidence float64
}

// Store manages the project/media catalog over the shared SQLite handle.
type Store struct {
	handle *db.Handle
}

// NewStore wraps the shared database handle.
func NewStore(handle *db.Handle) *Store {
	return &Store{handle: handle}
}

var titleCaser = cases.Title(language.English)

// ResolveOrCreate finds the owner's project for a source URL or creates one,
// along with its media record. The operation is idempotent: the
// (owner, normalized URL) uniqueness constraint decides insert races, and a
// loser re-reads the winner's rows. Returns whether a new project was made.
func (s *Store) ResolveOrCreate(ctx context.Context, owner, sourceURL, title string) (*Project, *Media, bool, error) {
	normalized := NormalizeURL(sourceURL)
	if normalized == "" {
		return nil, nil, false, fmt.Errorf("source url %q does not parse: %w", sourceURL, ErrBadSourceURL)
	}

	if project, media, err := s.findByNormalizedURL(ctx, owner, normalized); err != nil {
		return nil, nil, false, err
	} else if project != nil {
		return project, media, false, nil
	}

	if strings.TrimSpace(title) == "" {
		title = inferTitleFromURL(sourceURL)
	}
	now := time.Now()
	project := &Project{
		ID:            uuid.NewString(),
		OwnerSubject:  owner,
		Title:         title,
		SourceURL:     sourceURL,
		NormalizedURL: normalized,
		CreatedAt:     now,
	}

	_, err := s.handle.Exec(
		ctx,
		`INSERT INTO projects (id, owner_subject, title, source_url, normalized_url, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		project.ID,
		owner,
		db.NullableString(title),
		db.NullableString(sourceURL),
		normalized,
		db.FormatTime(now),
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			// Lost the race; the winner's project is now visible.
			project, media, findErr := s.findByNormalizedURL(ctx, owner, normalized)
			if findErr != nil {
				return nil, nil, false, findErr
			}
			if project == nil {
				return nil, nil, false, fmt.Errorf("project vanished after unique conflict for %q", normalized)
			}
			return project, media, false, nil
		}
		return nil, nil, false, fmt.Errorf("insert project: %w", err)
	}

	media, err := s.createMedia(ctx, project.ID, sourceURL)
	if err != nil {
		return nil, nil, false, err
	}
	return project, media, true, nil
}

// GetOwnedMedia fetches a media record and its project, verifying ownership.
func (s *Store) GetOwnedMedia(ctx context.Context, owner, mediaID string) (*Project, *Media, error) {
	row := s.handle.DB().QueryRowContext(
		ctx,
		`SELECT p.id, p.owner_subject, p.title, p.source_url, p.normalized_url, p.thumbnail_source, p.created_at,
                m.id, m.project_id, m.source_url, m.lang, m.duration_ms, m.created_at
         FROM media m JOIN projects p ON p.id = m.project_id
         WHERE m.id = ? AND p.owner_subject = ?`,
		mediaID,
		owner,
	)
	project, media, err := scanProjectMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, fmt.Errorf("media %s: %w", mediaID, ErrMediaNotFound)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get media: %w", err)
	}
	return project, media, nil
}

// Segments returns the transcript spans recorded for a media id, in time
// order. An empty result means detection has not produced a transcript yet.
func (s *Store) Segments(ctx context.Context, mediaID string) ([]Segment, error) {
	rows, err := s.handle.DB().QueryContext(
		ctx,
		`SELECT start_ms, end_ms, text, confidence FROM segments WHERE media_id = ? ORDER BY start_ms`,
		mediaID,
	)
	if err != nil {
		return nil, fmt.Errorf("query segments: %w", err)
	}
	defer rows.Close()

	var segments []Segment
	for rows.Next() {
		var seg Segment
		if err := rows.Scan(&seg.StartMS, &seg.EndMS, &seg.Text, &seg.Confidence); err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// ReplaceSegments swaps the stored transcript for a media id.
func (s *Store) ReplaceSegments(ctx context.Context, mediaID string, segments []Segment) error {
	tx, err := s.handle.DB().BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin segments tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM segments WHERE media_id = ?`, mediaID); err != nil {
		return fmt.Errorf("clear segments: %w", err)
	}
	for _, seg := range segments {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO segments (media_id, start_ms, end_ms, text, confidence) VALUES (?, ?, ?, ?, ?)`,
			mediaID, seg.StartMS, seg.EndMS, seg.Text, seg.Confidence,
		); err != nil {
			return fmt.Errorf("insert segment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit segments: %w", err)
	}
	return nil
}

// SetThumbnailSource records the deferred thumbnail fallback for a project.
// The first completed render overwrites an empty value only.
func (s *Store) SetThumbnailSource(ctx context.Context, projectID, source string) error {
	_, err := s.handle.Exec(
		ctx,
		`UPDATE projects SET thumbnail_source = ?
         WHERE id = ? AND (thumbnail_source IS NULL OR thumbnail_source = '')`,
		source,
		projectID,
	)
	if err != nil {
		return fmt.Errorf("set thumbnail source: %w", err)
	}
	return nil
}

func (s *Store) findByNormalizedURL(ctx context.Context, owner, normalized string) (*Project, *Media, error) {
	row := s.handle.DB().QueryRowContext(
		ctx,
		`SELECT p.id, p.owner_subject, p.title, p.source_url, p.normalized_url, p.thumbnail_source, p.created_at,
                m.id, m.project_id, m.source_url, m.lang, m.duration_ms, m.created_at
         FROM projects p LEFT JOIN media m ON m.project_id = p.id
         WHERE p.owner_subject = ? AND p.normalized_url = ?
         ORDER BY m.created_at LIMIT 1`,
		owner,
		normalized,
	)
	project, media, err := scanProjectMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("find project by url: %w", err)
	}
	if media == nil {
		// Project row without media (earlier partial run); backfill.
		media, err = s.createMedia(ctx, project.ID, project.SourceURL)
		if err != nil {
			return nil, nil, err
		}
	}
	return project, media, nil
}

func (s *Store) createMedia(ctx context.Context, projectID, sourceURL string) (*Media, error) {
	now := time.Now()
	media := &Media{
		ID:        uuid.NewString(),
		ProjectID: projectID,
		SourceURL: sourceURL,
		CreatedAt: now,
	}
	_, err := s.handle.Exec(
		ctx,
		`INSERT INTO media (id, project_id, source_url, created_at) VALUES (?, ?, ?, ?)`,
		media.ID,
		projectID,
		db.NullableString(sourceURL),
		db.FormatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("insert media: %w", err)
	}
	return media, nil
}

func scanProjectMedia(scanner interface{ Scan(dest ...any) error }) (*Project, *Media, error) {
	var (
		pID        string
		pOwner     string
		pTitle     sql.NullString
		pSource    sql.NullString
		pNorm      sql.NullString
		pThumb     sql.NullString
		pCreated   sql.NullString
		mID        sql.NullString
		mProjectID sql.NullString
		mSource    sql.NullString
		mLang      sql.NullString
		mDuration  sql.NullInt64
		mCreated   sql.NullString
	)

	if err := scanner.Scan(
		&pID, &pOwner, &pTitle, &pSource, &pNorm, &pThumb, &pCreated,
		&mID, &mProjectID, &mSource, &mLang, &mDuration, &mCreated,
	); err != nil {
		return nil, nil, err
	}

	project := &Project{
		ID:              pID,
		OwnerSubject:    pOwner,
		Title:           pTitle.String,
		SourceURL:       pSource.String,
		NormalizedURL:   pNorm.String,
		ThumbnailSource: pThumb.String,
	}
	if created, err := db.ParseTime(pCreated.String); err == nil {
		project.CreatedAt = created
	}

	if !mID.Valid {
		return project, nil, nil
	}
	media := &Media{
		ID:         mID.String,
		ProjectID:  mProjectID.String,
		SourceURL:  mSource.String,
		Lang:       mLang.String,
		DurationMS: mDuration.Int64,
	}
	if created, err := db.ParseTime(mCreated.String); err == nil {
		media.CreatedAt = created
	}
	return project, media, nil
}

func inferTitleFromURL(sourceURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(sourceURL))
	if err != nil || parsed.Path == "" || parsed.Path == "/" {
		return "Untitled Project"
	}
	base := path.Base(parsed.Path)
	base = strings.TrimSuffix(base, path.Ext(base))
	base = strings.NewReplacer("-", " ", "_", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Untitled Project"
	}
	return titleCaser.String(base)
}
