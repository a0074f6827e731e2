// Package media is the project and media catalog.
//
// Projects deduplicate by owner plus normalized source URL, so resolving the
// same URL twice is idempotent regardless of how many callers race: the
// uniqueness constraint decides the winner and losers re-read the stored row.
// Media rows hang off projects, and transcript segments hang off media once
// detection has run.
package media
