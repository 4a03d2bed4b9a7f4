package jobctx

import (
	"fmt"

	"github.com/appgrid-io/appgrid/core/broadcast"
	"github.com/appgrid-io/appgrid/core/infra/bus"
	"github.com/appgrid-io/appgrid/core/infra/config"
	"github.com/appgrid-io/appgrid/core/infra/logging"
	"github.com/appgrid-io/appgrid/core/infra/metrics"
	"github.com/appgrid-io/appgrid/core/infra/notify"
	"github.com/appgrid-io/appgrid/core/model"
	"github.com/appgrid-io/appgrid/core/relay"
	"github.com/appgrid-io/appgrid/core/storage"
)

const (
	systemUsername  = "_system_"
	defaultLanguage = "en"
)

// JobSpec carries the raw fields of one inbound job.
type JobSpec struct {
	JobID      string
	TenantID   string
	ServiceKey string
	User       *relay.UserRef
	Data       map[string]any
}

// Deps are the injected process-wide collaborators. Constructor injection
// keeps them swappable in tests without mutating shared state.
type Deps struct {
	Driver   storage.Driver
	Models   model.Resolver
	Bus      bus.Bus
	Notifier notify.Notifier
	Metrics  metrics.Observer
}

// Request is the per-job facade: it owns the job's identity, exposes
// tenant-scoped storage, proxies calls to sibling services, and republishes
// state changes to connected clients. Identity fields are immutable after
// construction; the controller is borrowed read-only for the context's
// lifetime.
type Request struct {
	jobID      string
	tenantID   string
	serviceKey string
	user       *relay.UserRef
	data       map[string]any
	ctrl       *config.Controller
	deps       Deps

	executor   *storage.Executor
	dispatcher *relay.Dispatcher
	publisher  *broadcast.Publisher
}

// New builds a request context from raw job fields and the shared
// controller. Absent job or tenant identifiers take the wire sentinel.
func New(spec JobSpec, ctrl *config.Controller, deps Deps) *Request {
	if spec.JobID == "" {
		spec.JobID = relay.Sentinel
	}
	if spec.TenantID == "" {
		spec.TenantID = relay.Sentinel
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.Noop{}
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Noop{}
	}

	data := make(map[string]any, len(spec.Data))
	for k, v := range spec.Data {
		data[k] = v
	}

	dispatcher := relay.NewDispatcher(deps.Bus)
	return &Request{
		jobID:      spec.JobID,
		tenantID:   spec.TenantID,
		serviceKey: spec.ServiceKey,
		user:       spec.User,
		data:       data,
		ctrl:       ctrl,
		deps:       deps,
		executor:   storage.NewExecutor(storage.NewRouter(ctrl), deps.Driver, deps.Metrics),
		dispatcher: dispatcher,
		publisher:  broadcast.NewPublisher(dispatcher, deps.Notifier, deps.Metrics),
	}
}

// JobID returns the correlation id for everything this job does.
func (r *Request) JobID() string {
	return r.jobID
}

// ServiceKey identifies the owning service instance.
func (r *Request) ServiceKey() string {
	return r.serviceKey
}

// Identity is the job/tenant/user triple stamped on outbound envelopes.
func (r *Request) Identity() relay.Identity {
	return relay.Identity{JobID: r.jobID, TenantID: r.tenantID, User: r.user}
}

// Param reads one field from the job's input payload.
func (r *Request) Param(key string) any {
	return r.data[key]
}

// Params shallow-copies the input payload, excluding the ignored keys.
func (r *Request) Params(ignore ...string) map[string]any {
	skip := make(map[string]struct{}, len(ignore))
	for _, key := range ignore {
		skip[key] = struct{}{}
	}
	out := make(map[string]any, len(r.data))
	for k, v := range r.data {
		if _, omit := skip[k]; omit {
			continue
		}
		out[k] = v
	}
	return out
}

// TenantID returns the tenant identifier, or "" for site scope.
func (r *Request) TenantID() string {
	if r.tenantID == relay.Sentinel {
		return ""
	}
	return r.tenantID
}

// HasTenant reports whether the context is scoped to a real tenant.
func (r *Request) HasTenant() bool {
	return r.Identity().HasTenant()
}

// SocketKey namespaces a broadcast room name by tenant, so two tenants
// never share a room for the same key.
func (r *Request) SocketKey(key string) string {
	return broadcast.Room(r.tenantID, key)
}

// UserDefaults is the resolved actor identity with fallbacks applied.
type UserDefaults struct {
	LanguageCode string
	Username     string
}

// UserDefaults resolves the acting user's language and name. A missing
// language falls back to the site default and is logged; a missing user is
// the system actor.
func (r *Request) UserDefaults() UserDefaults {
	out := UserDefaults{LanguageCode: defaultLanguage, Username: systemUsername}
	if r.user != nil && r.user.Username != "" {
		out.Username = r.user.Username
	}
	if r.user != nil && r.user.LanguageCode != "" {
		out.LanguageCode = r.user.LanguageCode
	} else {
		logging.Warn("jobctx", "no language code on actor, defaulting", "job", r.jobID, "username", out.Username)
	}
	return out
}

// Config reads through to the controller's service config.
func (r *Request) Config() config.ServiceConfig {
	if r.ctrl == nil {
		return config.ServiceConfig{}
	}
	return r.ctrl.Service
}

// Connections reads through to the controller's connection table.
func (r *Request) Connections() map[string]config.ConnectionDef {
	if r.ctrl == nil {
		return nil
	}
	return r.ctrl.Connections
}

// TenantDatabase resolves the tenant's database name. Site-scoped contexts
// get ErrNoTenant so callers can branch on "no tenant" explicitly.
func (r *Request) TenantDatabase() (string, error) {
	if !r.HasTenant() {
		return "", storage.ErrNoTenant
	}
	def, ok := r.ctrl.Connection(storage.ConnTenant)
	if !ok {
		return "", fmt.Errorf("%w: %s", storage.ErrNoConnection, storage.ConnTenant)
	}
	return def.Database, nil
}

// FactoryContext derives a tenant-scoped context for maintenance work
// outside any single job. The tenant, controller, and injected bindings
// carry over by reference; per-job data and user do not.
func (r *Request) FactoryContext() *Request {
	return New(JobSpec{
		JobID:      fmt.Sprintf("factory(%s)", r.tenantID),
		TenantID:   r.tenantID,
		ServiceKey: r.serviceKey,
	}, r.ctrl, r.deps)
}
