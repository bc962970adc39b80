// Package mirror keeps a live, eventually-consistent local copy of every
// mirrored collection for the active tenant. Each remote notification
// replaces the collection's document set wholesale (copy-on-write); old
// slices handed to consumers stay valid and stale, never mutated.
package mirror

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/config"
	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/models"
)

const snapshotCacheTTL = 24 * time.Hour

// Update is one change notification fanned out to mirror consumers.
// Docs is nil for pure status changes (errors, tenant transitions).
type Update struct {
	Collection string
	Docs       []docstore.Document
	Status     models.ConnectionStatus
}

type Mirror struct {
	backend     docstore.Backend
	logger      *logrus.Logger
	collections []string

	mu          sync.RWMutex
	tenant      string
	gen         int
	status      models.ConnectionStatus
	snapshots   map[string][]docstore.Document
	subscribers map[int]chan Update
	nextSub     int
	cancel      context.CancelFunc
	wg          sync.WaitGroup
}

// New builds a mirror over the given backend. With no explicit
// collection names it mirrors models.MirroredCollections.
func New(backend docstore.Backend, logger *logrus.Logger, collections ...string) *Mirror {
	if len(collections) == 0 {
		collections = models.MirroredCollections
	}
	return &Mirror{
		backend:     backend,
		logger:      logger,
		collections: collections,
		status:      models.ConnectionStatusNoTenant,
		snapshots:   make(map[string][]docstore.Document),
		subscribers: make(map[int]chan Update),
	}
}

// SetTenant switches the mirror to a new tenant identity. Outstanding
// subscriptions are torn down before any new one opens, so no duplicate
// streams exist across the change. An empty tenant is a logout: all
// subscriptions end and status becomes NoTenant.
func (m *Mirror) SetTenant(tenantId string) {
	m.mu.Lock()
	if m.tenant == tenantId && (tenantId == "" || m.cancel != nil) {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	m.gen++
	gen := m.gen
	m.tenant = tenantId
	m.snapshots = make(map[string][]docstore.Document)
	if tenantId == "" {
		m.status = models.ConnectionStatusNoTenant
		m.broadcastLocked(Update{Status: models.ConnectionStatusNoTenant})
		m.mu.Unlock()
		return
	}
	m.status = models.ConnectionStatusConnecting
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	for _, coll := range m.collections {
		m.wg.Add(1)
		go func(c string) {
			defer m.wg.Done()
			m.run(ctx, gen, tenantId, c)
		}(coll)
	}
	m.broadcastLocked(Update{Status: models.ConnectionStatusConnecting})
	m.mu.Unlock()
}

// Close tears down all subscriptions. Equivalent to a logout.
func (m *Mirror) Close() {
	m.SetTenant("")
}

func (m *Mirror) Tenant() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.tenant
}

func (m *Mirror) Status() models.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Snapshot returns the current document set of one collection, in the
// order the backend delivered it. The returned slice is shared and must
// be treated as read-only.
func (m *Mirror) Snapshot(collection string) []docstore.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshots[collection]
}

// Snapshots returns the current state of every mirrored collection.
func (m *Mirror) Snapshots() map[string][]docstore.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]docstore.Document, len(m.snapshots))
	for k, v := range m.snapshots {
		out[k] = v
	}
	return out
}

// Subscribe registers a reactive consumer. The cancel function removes
// the consumer synchronously: after it returns, no further updates are
// dispatched to the channel.
func (m *Mirror) Subscribe() (<-chan Update, func()) {
	ch := make(chan Update, 16)
	m.mu.Lock()
	m.nextSub++
	id := m.nextSub
	m.subscribers[id] = ch
	m.mu.Unlock()
	cancel := func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
	return ch, cancel
}

// WaitReady blocks until every mirrored collection holds a snapshot
// (live or warm) or the mirror has left the Connecting state, so
// read-side derivations are not computed against a still-empty mirror.
// Bounded by ctx; returns the status observed on exit.
func (m *Mirror) WaitReady(ctx context.Context) models.ConnectionStatus {
	updates, cancel := m.Subscribe()
	defer cancel()
	for {
		status, ready := m.readiness()
		if ready {
			return status
		}
		select {
		case <-ctx.Done():
			return m.Status()
		case <-updates:
		}
	}
}

func (m *Mirror) readiness() (models.ConnectionStatus, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.status != models.ConnectionStatusConnecting && m.status != models.ConnectionStatusConnected {
		return m.status, true
	}
	for _, c := range m.collections {
		if _, ok := m.snapshots[c]; !ok {
			return m.status, false
		}
	}
	return m.status, true
}

func (m *Mirror) run(ctx context.Context, gen int, tenantId, collection string) {
	path := models.TenantCollectionPath(tenantId, collection)

	// Warm start: serve the last cached snapshot while Connecting.
	var cached []docstore.Document
	if ok, err := config.GetRedisObject(cacheKey(tenantId, collection), &cached); err == nil && ok {
		m.applyWarm(gen, collection, cached)
	}

	ch, err := m.backend.Subscribe(ctx, path)
	if err != nil {
		config.LogError(m.logger, "mirror", "run", "subscribe "+path, nil, err)
		m.applyError(gen, collection, err)
		return
	}
	for snap := range ch {
		if snap.Err != nil {
			// Degrade to status; the subscription stays open and the
			// backend may recover on the same stream.
			config.LogError(m.logger, "mirror", "run", "notification "+path, nil, snap.Err)
			m.applyError(gen, collection, snap.Err)
			continue
		}
		m.applySnapshot(gen, tenantId, collection, snap.Docs)
	}
}

// applySnapshot replaces the collection's document set wholesale.
// Re-delivering an identical snapshot is an observable no-op.
func (m *Mirror) applySnapshot(gen int, tenantId, collection string, docs []docstore.Document) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.snapshots[collection] = docs
	m.status = statusAfterSuccess(m.status)
	m.broadcastLocked(Update{Collection: collection, Docs: docs, Status: m.status})
	m.mu.Unlock()

	if err := config.SetRedisObject(cacheKey(tenantId, collection), docs, snapshotCacheTTL); err != nil {
		config.LogError(m.logger, "mirror", "applySnapshot", "cache "+collection, nil, err)
	}
}

func (m *Mirror) applyWarm(gen int, collection string, docs []docstore.Document) {
	m.mu.Lock()
	if gen != m.gen || m.status != models.ConnectionStatusConnecting {
		m.mu.Unlock()
		return
	}
	if _, ok := m.snapshots[collection]; ok {
		m.mu.Unlock()
		return
	}
	m.snapshots[collection] = docs
	m.broadcastLocked(Update{Collection: collection, Docs: docs, Status: m.status})
	m.mu.Unlock()
}

func (m *Mirror) applyError(gen int, collection string, err error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.status = statusAfterError(m.status)
	m.broadcastLocked(Update{Collection: collection, Status: m.status})
	m.mu.Unlock()
}

// broadcastLocked dispatches under m.mu so a cancelled subscriber can
// never receive a later update: Subscribe's cancel removes the entry
// under the same lock. Sends are non-blocking; a consumer that cannot
// keep up loses intermediate updates but sees the latest state on its
// next read. Caller must hold m.mu.
func (m *Mirror) broadcastLocked(u Update) {
	for _, ch := range m.subscribers {
		select {
		case ch <- u:
		default:
		}
	}
}

func cacheKey(tenantId, collection string) string {
	return fmt.Sprintf("mirror:%s:%s", tenantId, collection)
}
