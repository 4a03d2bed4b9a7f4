package model

import (
	"context"

	"github.com/appgrid-io/appgrid/core/storage"
)

// Accessor provides filtered access to one entity collection, scoped to the
// resolving context's tenant.
type Accessor interface {
	Find(ctx context.Context, filter map[string]any) (storage.Rows, error)
	Create(ctx context.Context, item map[string]any) error
	Update(ctx context.Context, filter, changes map[string]any) error
	Delete(ctx context.Context, filter map[string]any) error
}

// Resolver constructs entity accessors by name. Resolve returns nil for an
// unknown entity; callers must check.
type Resolver interface {
	Resolve(name, tenantID string) Accessor
}
