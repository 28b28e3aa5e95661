package reconcile

import (
	"context"

	"schema-manager/core/schema"
	"schema-manager/core/schema/diff"
)

// Store is the remote side of a reconciliation. pocketbase.Client implements it.
type Store interface {
	// GetCollection fetches the current definition of a collection by name.
	// A missing collection should be reported as pocketbase.ErrNotFound.
	GetCollection(ctx context.Context, name string) (schema.Collection, error)

	// CreateCollection creates a collection from its full definition.
	CreateCollection(ctx context.Context, c schema.Collection) (schema.Collection, error)

	// UpdateCollection sends a sparse patch to the collection addressed by idOrName.
	UpdateCollection(ctx context.Context, idOrName string, patch diff.Patch) (schema.Collection, error)
}
