// Package orchestrator sequences the one-click highlight workflow: resolve a
// project and media record, enqueue detection, rank candidate windows, and
// enqueue render jobs, all behind a durable idempotency ledger.
//
// A repeated request with the same (owner, idempotency key) returns the
// stored record without re-executing any side effect. Concurrent duplicates
// are resolved by the ledger's uniqueness constraint at persist time: the
// losing writer re-reads and returns the winner's record. Every step before
// the final persist is itself safe to repeat, so a crashed attempt retries
// cleanly under the same key.
package orchestrator
