// Package database handles the optional run history database connection.
//
// It wraps GORM to open either MySQL (shared deployments) or SQLite (local runs and
// tests) based on the configured driver. Run history is optional: when the connection
// fails the caller logs a warning and carries on without it.
//
// # Schema Inspection
//
// GetTableColumns and MissingColumns read a table's live columns so callers can verify
// that migrated tables match the models they expect.
//
// # Usage
//
//	db, err := database.Connect(cfg.Database)
//	if err != nil {
//	    logger.Warn("History disabled", zap.Error(err))
//	}
package database
