// Package schema exposes schema reconciliation as a service, an HTTP feature and the
// backing for the CLI commands.
//
// The service loads the target definition, resolves the webhook secret placeholder and
// runs the reconciler. Writes are serialised: a second apply or ensure while one is running
// fails with ErrBusy. Reports are recorded in the run history when a database is configured.
//
// # HTTP Endpoints
//
//   - GET /schema/plan : Dry-run reconcile of the definition.
//   - POST /schema/apply : Reconcile (supports ?backup=false and ?snapshot=true).
//   - POST /schema/ensure : Apply additive adjustments (supports ?dry_run=true).
//   - GET /schema/dump : Remote schema in definition form, secrets redacted.
//   - GET /schema/runs : Recent runs (supports ?limit=n).
//   - GET /schema/runs/:id : One run with per-collection results.
//   - GET /schema/snapshots : Stored snapshots.
//   - POST /schema/snapshots : Upload a snapshot (supports ?name=).
package schema
