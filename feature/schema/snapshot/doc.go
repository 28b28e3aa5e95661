// Package snapshot dumps the remote schema in definition form and keeps copies in
// object storage.
//
// A dump lists every collection, drops remote identifiers and timestamps, and redacts
// webhook secrets found in API rules so the file can be committed. Snapshots are stored
// as <prefix>/<name>.json and can be loaded back as a definition.
//
// # Usage
//
//	def, err := snapshot.Dump(ctx, client, false)
//	store := snapshot.NewStore(storageClient, cfg.Storage, cfg.Schema.SnapshotPrefix, logger)
//	key, err := store.Upload(ctx, snapshot.Name(time.Now()), def)
package snapshot
