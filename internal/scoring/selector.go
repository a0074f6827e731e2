package scoring

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Window is one candidate highlight span produced by detection. Signal fields
// are nominally in [0,1] but producers are not trusted to clamp them.
type Window struct {
	StartMS        int64    `json:"startMs"`
	EndMS          int64    `json:"endMs"`
	SpeechDensity  float64  `json:"speechDensity"`
	AvgConfidence  float64  `json:"avgConfidence"`
	TextEnergy     float64  `json:"textEnergy"`
	SilencePenalty float64  `json:"silencePenalty"`
	Keywords       []string `json:"keywords,omitempty"`
}

// Key returns the "{startMs}-{endMs}" identifier used for explanations.
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.StartMS, w.EndMS)
}

// DurationMS returns the window length in milliseconds.
func (w Window) DurationMS() int64 {
	return w.EndMS - w.StartMS
}

// Weights maps each scoring signal to its contribution.
type Weights struct {
	Speech  float64
	Conf    float64
	Energy  float64
	Silence float64
	Keyword float64
}

// DefaultWeights returns the stock weight mapping.
func DefaultWeights() Weights {
	return Weights{
		Speech:  0.35,
		Conf:    0.25,
		Energy:  0.25,
		Silence: -0.15,
		Keyword: 0.10,
	}
}

// SelectorConfig controls filtering and weighting.
type SelectorConfig struct {
	TargetDurationSec int
	MinSpeechDensity  float64
	MaxSilencePenalty float64
	BoostKeywords     []string
	Weights           Weights
}

// DefaultSelectorConfig returns the stock selector configuration.
func DefaultSelectorConfig() SelectorConfig {
	return SelectorConfig{
		TargetDurationSec: 20,
		MinSpeechDensity:  0.35,
		MaxSilencePenalty: 0.60,
		Weights:           DefaultWeights(),
	}
}

// ScoredWindow pairs a window with its computed score. Scores are not bounded
// to [0,1]: the silence weight is negative and the keyword boost is additive.
type ScoredWindow struct {
	Window Window  `json:"window"`
	Score  float64 `json:"score"`
}

// Result carries the ranked selection and the explanation for every window
// that survived filtering, including windows cut by the top-N truncation.
type Result struct {
	Windows      []ScoredWindow    `json:"windows"`
	Explanations map[string]string `json:"explanations"`
}

const keywordBoostCap = 0.15

// SelectTop ranks windows and returns the best max(1, topN) of them.
//
// Sorting is stable: windows with equal scores keep their input order, so
// fixtures with ties reproduce exactly. The numeric result is independent of
// keyword iteration order.
func SelectTop(windows []Window, topN int, cfg SelectorConfig) Result {
	if topN <= 0 {
		topN = 1
	}

	boosted := make(map[string]struct{}, len(cfg.BoostKeywords))
	for _, kw := range cfg.BoostKeywords {
		boosted[strings.ToLower(strings.TrimSpace(kw))] = struct{}{}
	}

	scored := make([]ScoredWindow, 0, len(windows))
	explanations := make(map[string]string, len(windows))

	for _, w := range windows {
		if w.SpeechDensity < cfg.MinSpeechDensity {
			continue
		}
		if w.SilencePenalty > cfg.MaxSilencePenalty {
			continue
		}

		normSpeech := clamp01(w.SpeechDensity)
		normConf := clamp01(w.AvgConfidence)
		normEnergy := clamp01(w.TextEnergy)
		normSilence := clamp01(1 - w.SilencePenalty)

		keywordMatches := len(w.Keywords)
		userMatches := 0
		for _, kw := range w.Keywords {
			if _, ok := boosted[strings.ToLower(strings.TrimSpace(kw))]; ok {
				userMatches++
			}
		}
		boost := 0.03*float64(keywordMatches) + 0.01*float64(userMatches)
		if boost > keywordBoostCap {
			boost = keywordBoostCap
		}

		// The negative silence weight multiplies the clamped silence
		// fraction (1 - normSilence): a fully quiet window loses the
		// whole 0.15, a fully dense one loses nothing.
		wts := cfg.Weights
		score := wts.Speech*normSpeech +
			wts.Conf*normConf +
			wts.Energy*normEnergy +
			wts.Silence*(1-normSilence) +
			wts.Keyword*boost

		scored = append(scored, ScoredWindow{Window: w, Score: score})
		explanations[w.Key()] = fmt.Sprintf(
			"speech=%.3f conf=%.3f energy=%.3f silence=%.3f keywords=%d user_keywords=%d boost=%.3f score=%.4f",
			normSpeech, normConf, normEnergy, normSilence,
			keywordMatches, userMatches, boost, score,
		)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})
	if len(scored) > topN {
		scored = scored[:topN]
	}

	return Result{Windows: scored, Explanations: explanations}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
