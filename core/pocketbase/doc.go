// Package pocketbase is a small client for the collections API of a PocketBase instance.
//
// It authenticates as a superuser once per Client and reuses the session token for
// every later call. Concurrent callers share one in-flight authentication.
//
// Every call is bounded by the configured timeout. Non-2xx answers are returned as
// *APIError; a missing collection is reported as ErrNotFound.
//
// # Usage
//
//	client, err := pocketbase.NewClient(cfg.PocketBase, logger)
//	if err != nil {
//	    return err
//	}
//	remote, err := client.GetCollection(ctx, "products")
//	if errors.Is(err, pocketbase.ErrNotFound) {
//	    // create it
//	}
package pocketbase
