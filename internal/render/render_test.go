package render_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"clipforge/internal/media"
	"clipforge/internal/queue"
	"clipforge/internal/render"
	"clipforge/internal/testsupport"
)

type recordingSubmitter struct {
	subs []render.Submission
	err  error
}

func (r *recordingSubmitter) Submit(_ context.Context, sub render.Submission) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.subs = append(r.subs, sub)
	return "artifact://" + sub.ClipID, nil
}

func TestNullSubmitterHandle(t *testing.T) {
	handle, err := render.NullSubmitter{}.Submit(context.Background(), render.Submission{ClipID: "abc"})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if handle != "clip://abc" {
		t.Fatalf("handle = %q", handle)
	}
}

func TestExecutorSubmitsAndRecordsThumbnail(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	handle := testsupport.MustOpenDB(t, cfg)
	catalog := media.NewStore(handle)
	ctx := context.Background()

	project, med, _, err := catalog.ResolveOrCreate(ctx, "user-1", "https://videos.example.com/talk", "")
	if err != nil {
		t.Fatalf("seed project: %v", err)
	}

	submitter := &recordingSubmitter{}
	exec := render.NewExecutor(submitter, catalog, nil)
	if exec.Kind() != queue.KindRender {
		t.Fatalf("kind = %s", exec.Kind())
	}

	payload, _ := json.Marshal(render.Submission{
		ClipID:    "clip-1",
		ProjectID: project.ID,
		MediaID:   med.ID,
		StartMS:   5000,
		EndMS:     25000,
		Profile:   "vertical-1080",
	})
	result, err := exec.Execute(ctx, &queue.Job{Payload: string(payload)})
	if err != nil {
		t.Fatalf("execute: %v", err)
	}

	var out render.JobResult
	if err := json.Unmarshal([]byte(result), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if out.ClipID != "clip-1" || out.Handle != "artifact://clip-1" {
		t.Fatalf("unexpected result %+v", out)
	}
	if len(submitter.subs) != 1 || submitter.subs[0].Profile != "vertical-1080" {
		t.Fatalf("unexpected submissions %+v", submitter.subs)
	}

	// First clip becomes the project thumbnail fallback; later clips do not
	// overwrite it.
	refreshed, _, err := catalog.GetOwnedMedia(ctx, "user-1", med.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if refreshed.ThumbnailSource != "artifact://clip-1" {
		t.Fatalf("thumbnail = %q", refreshed.ThumbnailSource)
	}

	payload2, _ := json.Marshal(render.Submission{
		ClipID:    "clip-2",
		ProjectID: project.ID,
		MediaID:   med.ID,
		StartMS:   30000,
		EndMS:     50000,
		Profile:   "vertical-1080",
	})
	if _, err := exec.Execute(ctx, &queue.Job{Payload: string(payload2)}); err != nil {
		t.Fatalf("execute second: %v", err)
	}
	refreshed, _, err = catalog.GetOwnedMedia(ctx, "user-1", med.ID)
	if err != nil {
		t.Fatalf("reload project: %v", err)
	}
	if refreshed.ThumbnailSource != "artifact://clip-1" {
		t.Fatalf("thumbnail overwritten to %q", refreshed.ThumbnailSource)
	}
}

func TestExecutorRejectsBadPayload(t *testing.T) {
	exec := render.NewExecutor(render.NullSubmitter{}, nil, nil)
	if _, err := exec.Execute(context.Background(), &queue.Job{Payload: "{not json"}); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := exec.Execute(context.Background(), &queue.Job{Payload: "{}"}); err == nil {
		t.Fatal("expected missing-id error")
	}
}

func TestExecutorPropagatesSubmitError(t *testing.T) {
	boom := errors.New("backend down")
	exec := render.NewExecutor(&recordingSubmitter{err: boom}, nil, nil)
	payload, _ := json.Marshal(render.Submission{ClipID: "c", MediaID: "m"})
	if _, err := exec.Execute(context.Background(), &queue.Job{Payload: string(payload)}); !errors.Is(err, boom) {
		t.Fatalf("expected submit error, got %v", err)
	}
}
