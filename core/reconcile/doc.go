// Package reconcile converges a remote collection store towards a target schema definition.
//
// Each target collection is handled on its own, in definition order:
//
//  1. Plan: look the collection up remotely. An absent collection (or one whose lookup
//     failed) is planned for creation with its full definition. A present collection is
//     diffed, and only the dirty sections (fields, individual rules, indexes) are staged.
//  2. Apply: create, patch or do nothing. A collection's write completes before the next
//     collection is looked up, so a later collection can rely on an earlier one existing.
//
// Failures are captured per collection in the Report and never stop the run. There is no
// rollback; callers that need one take a remote backup first.
//
// # Ensure
//
// Ensure applies additive Adjustments to collections that already exist: it appends
// missing fields, sets required flags, upserts indexes and sets declared rules. It never
// creates, overwrites or removes anything else.
//
// # Usage
//
//	r := reconcile.New(client, logger, reconcile.Options{DryRun: dryRun})
//	report := r.Reconcile(ctx, def)
//	if report.Failed() > 0 {
//	    os.Exit(1)
//	}
package reconcile
