// Package queue persists asynchronous jobs in SQLite and exposes the claim
// protocol workers drive them through.
//
// Jobs move queued -> running -> done|error. ClaimNext performs the whole
// queued-to-running transition in one atomic UPDATE so concurrent workers can
// never claim the same job and never wait behind a row another worker already
// holds. The queue itself never retries: a job marked error stays there until
// an external policy enqueues fresh work. Running jobs carry a lease deadline
// so a crashed worker's job can be returned to the queue by ReclaimExpired.
//
// Treat this package as the single source of truth for job semantics; when
// you add statuses or columns, update schema.sql and bump the schema version.
package queue
