package detect

import (
	"sort"
	"strings"

	"clipforge/internal/media"
	"clipforge/internal/scoring"
)

const (
	minKeywordLength  = 5
	minKeywordRepeats = 2
)

// BuildWindows derives candidate windows from transcript segments. One
// window starts at each segment boundary and spans targetDurationMS; windows
// shorter than half the target (transcript tail) are dropped. Output order
// follows start time, so downstream stable sorting stays reproducible.
func BuildWindows(segments []media.Segment, targetDurationMS int64) []scoring.Window {
	if len(segments) == 0 || targetDurationMS <= 0 {
		return nil
	}

	transcriptEnd := segments[len(segments)-1].EndMS
	var windows []scoring.Window
	for _, anchor := range segments {
		start := anchor.StartMS
		end := start + targetDurationMS
		if end > transcriptEnd {
			end = transcriptEnd
		}
		if end-start < targetDurationMS/2 {
			continue
		}
		windows = append(windows, buildWindow(segments, start, end))
	}
	return windows
}

func buildWindow(segments []media.Segment, start, end int64) scoring.Window {
	length := end - start
	var (
		speechMS   int64
		confSum    float64
		confWeight float64
		longestGap int64
		lastEnd    = start
		words      []string
	)

	for _, seg := range segments {
		if seg.EndMS <= start || seg.StartMS >= end {
			continue
		}
		overlapStart := max64(seg.StartMS, start)
		overlapEnd := min64(seg.EndMS, end)
		overlap := overlapEnd - overlapStart
		if overlap <= 0 {
			continue
		}

		if gap := overlapStart - lastEnd; gap > longestGap {
			longestGap = gap
		}
		if overlapEnd > lastEnd {
			lastEnd = overlapEnd
		}

		speechMS += overlap
		confSum += seg.Confidence * float64(overlap)
		confWeight += float64(overlap)
		words = append(words, tokenize(seg.Text)...)
	}
	if gap := end - lastEnd; gap > longestGap {
		longestGap = gap
	}

	window := scoring.Window{
		StartMS:        start,
		EndMS:          end,
		SpeechDensity:  float64(speechMS) / float64(length),
		SilencePenalty: float64(longestGap) / float64(length),
		Keywords:       extractKeywords(words),
	}
	if confWeight > 0 {
		window.AvgConfidence = confSum / confWeight
	}
	if len(words) > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, word := range words {
			unique[word] = struct{}{}
		}
		window.TextEnergy = float64(len(unique)) / float64(len(words))
	}
	return window
}

// extractKeywords picks words long enough and repeated often enough to name
// the window's topic. Sorted output keeps results deterministic.
func extractKeywords(words []string) []string {
	counts := make(map[string]int, len(words))
	for _, word := range words {
		if len(word) >= minKeywordLength {
			counts[word]++
		}
	}
	var keywords []string
	for word, count := range counts {
		if count >= minKeywordRepeats {
			keywords = append(keywords, word)
		}
	}
	sort.Strings(keywords)
	return keywords
}

func tokenize(text string) []string {
	fields := strings.Fields(strings.ToLower(text))
	tokens := make([]string, 0, len(fields))
	for _, field := range fields {
		token := strings.Trim(field, ".,!?;:\"'()[]")
		if token != "" {
			tokens = append(tokens, token)
		}
	}
	return tokens
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
