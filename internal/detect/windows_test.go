package detect

import (
	"testing"

	"clipforge/internal/media"
)

func contiguousSegments() []media.Segment {
	return []media.Segment{
		{StartMS: 0, EndMS: 5000, Text: "welcome to the product launch event", Confidence: 0.9},
		{StartMS: 5000, EndMS: 10000, Text: "the launch brings growth to every market", Confidence: 0.8},
		{StartMS: 10000, EndMS: 15000, Text: "questions about launch timing follow", Confidence: 0.7},
		{StartMS: 15000, EndMS: 20000, Text: "thanks for joining", Confidence: 0.95},
	}
}

func TestBuildWindowsCoversTranscript(t *testing.T) {
	windows := BuildWindows(contiguousSegments(), 10000)
	if len(windows) == 0 {
		t.Fatal("expected windows from contiguous transcript")
	}
	first := windows[0]
	if first.StartMS != 0 || first.EndMS != 10000 {
		t.Fatalf("unexpected first window: %d-%d", first.StartMS, first.EndMS)
	}
	if first.SpeechDensity != 1.0 {
		t.Fatalf("contiguous speech should have density 1, got %v", first.SpeechDensity)
	}
	if first.SilencePenalty != 0 {
		t.Fatalf("contiguous speech should have no silence penalty, got %v", first.SilencePenalty)
	}
	// Duration-weighted mean of 0.9 and 0.8 over equal halves.
	if diff := first.AvgConfidence - 0.85; diff > 1e-9 || diff < -1e-9 {
		t.Fatalf("expected avg confidence 0.85, got %v", first.AvgConfidence)
	}
}

func TestBuildWindowsMeasuresSilence(t *testing.T) {
	segments := []media.Segment{
		{StartMS: 0, EndMS: 2000, Text: "short intro", Confidence: 0.9},
		// 6s gap.
		{StartMS: 8000, EndMS: 10000, Text: "late remark", Confidence: 0.9},
	}
	windows := BuildWindows(segments, 10000)
	if len(windows) == 0 {
		t.Fatal("expected a window")
	}
	w := windows[0]
	if w.SpeechDensity != 0.4 {
		t.Fatalf("expected density 0.4, got %v", w.SpeechDensity)
	}
	if w.SilencePenalty != 0.6 {
		t.Fatalf("expected silence penalty 0.6, got %v", w.SilencePenalty)
	}
}

func TestBuildWindowsExtractsRepeatedKeywords(t *testing.T) {
	windows := BuildWindows(contiguousSegments(), 20000)
	if len(windows) == 0 {
		t.Fatal("expected windows")
	}
	found := false
	for _, kw := range windows[0].Keywords {
		if kw == "launch" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected repeated token 'launch' as keyword, got %v", windows[0].Keywords)
	}
}

func TestBuildWindowsDropsShortTail(t *testing.T) {
	segments := []media.Segment{
		{StartMS: 0, EndMS: 10000, Text: "main body of the talk", Confidence: 0.9},
		{StartMS: 9000, EndMS: 10000, Text: "bye", Confidence: 0.9},
	}
	windows := BuildWindows(segments, 10000)
	for _, w := range windows {
		if w.EndMS-w.StartMS < 5000 {
			t.Fatalf("window shorter than half target survived: %d-%d", w.StartMS, w.EndMS)
		}
	}
}

func TestBuildWindowsEmptyInput(t *testing.T) {
	if got := BuildWindows(nil, 10000); got != nil {
		t.Fatalf("expected nil for empty transcript, got %v", got)
	}
}
