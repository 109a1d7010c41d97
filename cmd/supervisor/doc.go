// Package main hosts the supervisor service entrypoint.
//
// Architecture overview:
//   - HTTP API: internal/api.Server exposes health, metrics, fetch,
//     summarize, and schedule management endpoints. Every request carries a
//     correlation id (X-Request-ID) that follows the run through upstream
//     calls and persisted rows.
//   - Fetch pipeline: internal/fetch.Service scrapes raw items, groups them
//     into categories via the remote linker, ranks the categories, and fans
//     the per-category story rounds out to a bounded worker pool
//     (internal/pipeline.Fanout). A single finalizer reassembles the results
//     in the order fixed by ranking, so concurrency never leaks into the
//     response.
//   - Scheduler: internal/scheduler.Scheduler sweeps the schedule table,
//     evaluates cron due-ness per entry, and publishes due entries to a
//     Redis broadcast channel, gated on subscriber presence so events are
//     never dropped into the void.
//   - Persistence: stories, their source membership, requests, summaries,
//     and schedules live in Postgres via pgx; in-memory twins back the
//     tests.
//   - Configuration & plumbing: Viper populates config from env/files; zap
//     provides structured logging; Prometheus metrics are exported via the
//     /metrics handler.
//
// Operational notes:
//   - Concurrency model: per-request fan-out with a fixed-size worker pool
//     and one finalizer; the scheduler is a single long-lived goroutine.
//     Shutdown is coordinated via context cancellation from main, with a
//     bounded wait for the scheduler to drain.
//   - Failure handling: a refusing upstream component surfaces as 503 with
//     the component named in the body; an upstream 204 short-circuits the
//     run as the canonical empty outcome. The fan-out failure policy
//     (cancel or isolate) is configurable.
//
// Run locally: go run ./cmd/supervisor -config config.yaml (or rely solely
// on SUPERVISOR_* env overrides).
package main
