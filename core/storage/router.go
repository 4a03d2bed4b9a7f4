package storage

import (
	"fmt"

	"github.com/appgrid-io/appgrid/core/infra/config"
	"github.com/appgrid-io/appgrid/core/infra/logging"
	"github.com/appgrid-io/appgrid/core/relay"
)

// Connection table keys. Tenant-scoped work runs against the tenant
// cluster; everything else shares the site connection.
const (
	ConnTenant = "appbuilder"
	ConnSite   = "site"
)

// Router chooses the storage connection definition that applies to a
// context, based on tenant presence.
type Router struct {
	ctrl *config.Controller
}

// NewRouter borrows the shared controller; the router never mutates it.
func NewRouter(ctrl *config.Controller) *Router {
	return &Router{ctrl: ctrl}
}

// Key returns the connection table key for the tenant state.
func (r *Router) Key(tenantID string) string {
	if tenantID != "" && tenantID != relay.Sentinel {
		return ConnTenant
	}
	return ConnSite
}

// Route resolves the connection definition for the tenant state. A missing
// table entry is a fatal configuration error, not a retryable one.
func (r *Router) Route(tenantID string) (config.ConnectionDef, error) {
	key := r.Key(tenantID)
	def, ok := r.ctrl.Connection(key)
	if !ok {
		logging.Error("storage", "connection definition missing", "key", key, "tenant", tenantID)
		return config.ConnectionDef{}, fmt.Errorf("%w: %s", ErrNoConnection, key)
	}
	return def, nil
}
