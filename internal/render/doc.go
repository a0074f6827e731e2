// Package render submits selected clips to a rendering backend.
//
// Actual transcoding lives outside this process; the Submitter contract is
// the narrow seam to it. The Executor drains render jobs from the queue,
// submits them, and records the first completed clip as the project's
// thumbnail fallback.
package render
