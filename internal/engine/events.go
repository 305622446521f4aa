package engine

// Cached aggregate views derived from occupancy and capacity. The
// engine invalidates them on every successful mutation; it never
// writes into the cache itself, so a stale entry can only live until
// its TTL.
const (
	ViewUserLots  = "user:parking_lots"
	ViewAdminLots = "admin:lots_summary"
	ViewDashboard = "admin:dashboard_summary"
)

// Invalidator receives invalidation events for named views. The cache
// is an injected collaborator, never authoritative.
type Invalidator interface {
	Invalidate(views ...string)
}

// NopInvalidator discards invalidation events. Used when no cache is
// wired, e.g. in tests.
type NopInvalidator struct{}

func (NopInvalidator) Invalidate(views ...string) {}

func (e *Engine) invalidateSummaries() {
	e.cache.Invalidate(ViewUserLots, ViewAdminLots, ViewDashboard)
}
