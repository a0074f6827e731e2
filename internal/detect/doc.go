// Package detect turns transcript segments into candidate highlight windows.
//
// BuildWindows slides a fixed-duration window across the transcript and
// derives the signals the scorer consumes: speech density, mean confidence,
// text energy, silence penalty, and candidate keywords. The Executor runs the
// same computation asynchronously as the daemon's handler for detect jobs.
package detect
