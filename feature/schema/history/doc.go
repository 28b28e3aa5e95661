// Package history persists reconcile and ensure reports.
//
// Each run is stored in schema_runs with one schema_run_collections row per collection,
// in run order. Storage is GORM on MySQL or SQLite; history is optional and callers skip
// it when no database is configured.
package history
