package mirror

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/docstore"
)

// How long an unreferenced mirror keeps its subscriptions open. Without
// this grace period every short-lived HTTP read would open a fresh set
// of subscriptions, read an empty mirror, and tear it all down again.
const idleTTL = 2 * time.Minute

// Manager owns one Mirror per tenant as an explicitly scoped resource:
// the first Acquire for a tenant opens its subscriptions, the matching
// last Release schedules teardown after idleTTL of no new consumers.
type Manager struct {
	backend docstore.Backend
	logger  *logrus.Logger
	idleTTL time.Duration

	mu      sync.Mutex
	mirrors map[string]*Mirror
	refs    map[string]int
	idle    map[string]*time.Timer
}

func NewManager(backend docstore.Backend, logger *logrus.Logger) *Manager {
	return &Manager{
		backend: backend,
		logger:  logger,
		idleTTL: idleTTL,
		mirrors: make(map[string]*Mirror),
		refs:    make(map[string]int),
		idle:    make(map[string]*time.Timer),
	}
}

// Acquire returns the tenant's mirror, opening its subscriptions on
// first use. Every Acquire must be paired with one Release.
func (g *Manager) Acquire(tenantId string) *Mirror {
	g.mu.Lock()
	defer g.mu.Unlock()
	if timer, ok := g.idle[tenantId]; ok {
		timer.Stop()
		delete(g.idle, tenantId)
	}
	m, ok := g.mirrors[tenantId]
	if !ok {
		m = New(g.backend, g.logger)
		m.SetTenant(tenantId)
		g.mirrors[tenantId] = m
	}
	g.refs[tenantId]++
	return m
}

// Release drops one reference. When the last one goes, the mirror stays
// warm for idleTTL before its subscriptions close, so consecutive reads
// reuse the already-populated state.
func (g *Manager) Release(tenantId string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.mirrors[tenantId]; !ok {
		return
	}
	if g.refs[tenantId] > 0 {
		g.refs[tenantId]--
	}
	if g.refs[tenantId] > 0 {
		return
	}
	if timer, ok := g.idle[tenantId]; ok {
		timer.Stop()
	}
	g.idle[tenantId] = time.AfterFunc(g.idleTTL, func() { g.reap(tenantId) })
}

// reap closes the mirror if no consumer re-acquired it while idle.
func (g *Manager) reap(tenantId string) {
	g.mu.Lock()
	m, ok := g.mirrors[tenantId]
	if !ok || g.refs[tenantId] > 0 {
		g.mu.Unlock()
		return
	}
	delete(g.mirrors, tenantId)
	delete(g.refs, tenantId)
	delete(g.idle, tenantId)
	g.mu.Unlock()
	m.Close()
}

// Close tears down every tenant's subscriptions, for shutdown.
func (g *Manager) Close() {
	g.mu.Lock()
	mirrors := make([]*Mirror, 0, len(g.mirrors))
	for _, m := range g.mirrors {
		mirrors = append(mirrors, m)
	}
	for _, timer := range g.idle {
		timer.Stop()
	}
	g.mirrors = make(map[string]*Mirror)
	g.refs = make(map[string]int)
	g.idle = make(map[string]*time.Timer)
	g.mu.Unlock()
	for _, m := range mirrors {
		m.Close()
	}
}
