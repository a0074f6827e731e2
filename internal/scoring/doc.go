// Package scoring ranks candidate highlight windows with a deterministic
// weighted heuristic.
//
// SelectTop filters windows against density and silence thresholds, normalizes
// the remaining signals into [0,1], applies a capped keyword boost, and returns
// the top-N windows by score together with a per-window explanation of the
// breakdown. The result is a single value so concurrent callers never observe
// each other's explanations.
//
// Scoring never fails: malformed inputs are clamped or filtered, and the
// caller simply receives fewer results.
package scoring
