// Package integrity provides health checks for the infrastructure the schema manager
// depends on.
//
// # Checks Provided
//
//   - Remote: Authenticates against PocketBase and lists declared collections it lacks.
//   - Storage: Checks that the snapshot bucket exists and counts stored snapshots.
//   - History: Validates that the run history tables carry every model column.
//
// # HTTP Endpoints
//
//   - GET /integrity : Runs all checks.
//   - GET /integrity/remote : Runs the remote check.
//   - GET /integrity/storage : Runs the storage check (supports ?fix=true).
//   - GET /integrity/history : Runs the history check.
package integrity
