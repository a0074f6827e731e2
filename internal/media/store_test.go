package media_test

import (
	"context"
	"errors"
	"testing"

	"clipforge/internal/media"
	"clipforge/internal/testsupport"
)

func openStore(t *testing.T) *media.Store {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	return media.NewStore(testsupport.MustOpenDB(t, cfg))
}

func TestResolveOrCreateDeduplicatesByNormalizedURL(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	project, mediaRec, created, err := store.ResolveOrCreate(ctx, "user-1", "https://example.com/talk?v=1", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if !created {
		t.Fatal("expected first resolution to create the project")
	}
	if project.ID == "" || mediaRec.ID == "" {
		t.Fatalf("expected ids assigned: %#v %#v", project, mediaRec)
	}

	// A messier spelling of the same URL resolves to the same rows.
	again, mediaAgain, createdAgain, err := store.ResolveOrCreate(ctx, "user-1", "HTTPS://EXAMPLE.com/talk/?v=1&utm_source=mail", "")
	if err != nil {
		t.Fatalf("second ResolveOrCreate failed: %v", err)
	}
	if createdAgain {
		t.Fatal("expected dedup, not a second project")
	}
	if again.ID != project.ID || mediaAgain.ID != mediaRec.ID {
		t.Fatalf("expected same rows, got project %s media %s", again.ID, mediaAgain.ID)
	}
}

func TestResolveOrCreateIsolatesOwners(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	first, _, _, err := store.ResolveOrCreate(ctx, "user-1", "https://example.com/talk", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	second, _, created, err := store.ResolveOrCreate(ctx, "user-2", "https://example.com/talk", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate for second owner failed: %v", err)
	}
	if !created || second.ID == first.ID {
		t.Fatal("different owners must get distinct projects for the same URL")
	}
}

func TestResolveOrCreateInfersTitle(t *testing.T) {
	store := openStore(t)

	project, _, _, err := store.ResolveOrCreate(context.Background(), "user-1", "https://example.com/videos/launch-day.mp4", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if project.Title != "Launch Day" {
		t.Fatalf("expected inferred title, got %q", project.Title)
	}
}

func TestGetOwnedMediaEnforcesOwnership(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, mediaRec, _, err := store.ResolveOrCreate(ctx, "user-1", "https://example.com/talk", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	if _, _, err := store.GetOwnedMedia(ctx, "user-1", mediaRec.ID); err != nil {
		t.Fatalf("owner lookup failed: %v", err)
	}
	if _, _, err := store.GetOwnedMedia(ctx, "user-2", mediaRec.ID); !errors.Is(err, media.ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound for foreign owner, got %v", err)
	}
	if _, _, err := store.GetOwnedMedia(ctx, "user-1", "nope"); !errors.Is(err, media.ErrMediaNotFound) {
		t.Fatalf("expected ErrMediaNotFound for unknown id, got %v", err)
	}
}

func TestReplaceAndReadSegments(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	_, mediaRec, _, err := store.ResolveOrCreate(ctx, "user-1", "https://example.com/talk", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}

	segments := []media.Segment{
		{StartMS: 0, EndMS: 4000, Text: "welcome everyone", Confidence: 0.92},
		{StartMS: 4000, EndMS: 9000, Text: "today we launch", Confidence: 0.88},
	}
	if err := store.ReplaceSegments(ctx, mediaRec.ID, segments); err != nil {
		t.Fatalf("ReplaceSegments failed: %v", err)
	}

	got, err := store.Segments(ctx, mediaRec.ID)
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	if len(got) != 2 || got[1].Text != "today we launch" {
		t.Fatalf("unexpected segments: %#v", got)
	}

	// Replacement swaps, never appends.
	if err := store.ReplaceSegments(ctx, mediaRec.ID, segments[:1]); err != nil {
		t.Fatalf("second ReplaceSegments failed: %v", err)
	}
	got, err = store.Segments(ctx, mediaRec.ID)
	if err != nil {
		t.Fatalf("Segments failed: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 segment after replacement, got %d", len(got))
	}
}

func TestSetThumbnailSourceKeepsFirstValue(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	project, mediaRec, _, err := store.ResolveOrCreate(ctx, "user-1", "https://example.com/talk", "")
	if err != nil {
		t.Fatalf("ResolveOrCreate failed: %v", err)
	}
	if err := store.SetThumbnailSource(ctx, project.ID, "clip-1.jpg"); err != nil {
		t.Fatalf("SetThumbnailSource failed: %v", err)
	}
	if err := store.SetThumbnailSource(ctx, project.ID, "clip-2.jpg"); err != nil {
		t.Fatalf("second SetThumbnailSource failed: %v", err)
	}

	refreshed, _, err := store.GetOwnedMedia(ctx, "user-1", mediaRec.ID)
	if err != nil {
		t.Fatalf("GetOwnedMedia failed: %v", err)
	}
	if refreshed.ThumbnailSource != "clip-1.jpg" {
		t.Fatalf("expected first thumbnail kept, got %q", refreshed.ThumbnailSource)
	}
}
