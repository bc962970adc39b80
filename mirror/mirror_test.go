package mirror

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"bitbucket.org/mmdatafocus/crm_backend/docstore"
	"bitbucket.org/mmdatafocus/crm_backend/models"
)

// NOTE: These tests are intentionally backend-free. The fake below
// stands in for the remote document database: one controllable stream
// per collection path, honoring context cancellation the way the real
// adapter does.

type fakeStream struct {
	in     chan docstore.Snapshot
	opened int
}

type fakeBackend struct {
	mu      sync.Mutex
	streams map[string]*fakeStream
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{streams: map[string]*fakeStream{}}
}

func (f *fakeBackend) Subscribe(ctx context.Context, path string) (<-chan docstore.Snapshot, error) {
	f.mu.Lock()
	st := f.streams[path]
	if st == nil {
		st = &fakeStream{in: make(chan docstore.Snapshot, 16)}
		f.streams[path] = st
	} else {
		st.in = make(chan docstore.Snapshot, 16)
	}
	st.opened++
	in := st.in
	f.mu.Unlock()

	out := make(chan docstore.Snapshot)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case s, ok := <-in:
				if !ok {
					return
				}
				select {
				case out <- s:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

func (f *fakeBackend) emit(path string, snap docstore.Snapshot) {
	f.mu.Lock()
	st := f.streams[path]
	f.mu.Unlock()
	if st == nil {
		panic("emit on unopened path " + path)
	}
	st.in <- snap
}

func (f *fakeBackend) openedCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if st := f.streams[path]; st != nil {
		return st.opened
	}
	return 0
}

func (f *fakeBackend) Create(ctx context.Context, path string, fields map[string]any) (string, error) {
	return "", errors.New("not supported")
}

func (f *fakeBackend) Update(ctx context.Context, path, id string, fields map[string]any) error {
	return errors.New("not supported")
}

func (f *fakeBackend) Get(ctx context.Context, path, id string) (docstore.Document, error) {
	return docstore.Document{}, errors.New("not supported")
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not reached in time")
}

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func docs(ids ...string) []docstore.Document {
	out := make([]docstore.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, docstore.Document{ID: id, Fields: map[string]any{"name": "doc-" + id}})
	}
	return out
}

func TestSnapshotReplaceIsIdempotent(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	m.SetTenant("t1")
	path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })

	fb.emit(path, docstore.Snapshot{Docs: docs("a", "b", "c")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 3 })

	afterFirst := m.Snapshot(models.CollectionCustomers)
	statusAfterFirst := m.Status()
	if statusAfterFirst != models.ConnectionStatusConnected {
		t.Fatalf("expected Connected after first snapshot, got %s", statusAfterFirst)
	}

	// Re-deliver the identical snapshot; once it has replaced the slice
	// (fresh backing array), the observable state must be unchanged.
	fb.emit(path, docstore.Snapshot{Docs: docs("a", "b", "c")})
	waitFor(t, func() bool {
		cur := m.Snapshot(models.CollectionCustomers)
		return len(cur) == 3 && &cur[0] != &afterFirst[0]
	})

	afterSecond := m.Snapshot(models.CollectionCustomers)
	if !reflect.DeepEqual(afterFirst, afterSecond) {
		t.Fatalf("identical re-delivery changed state: %+v vs %+v", afterFirst, afterSecond)
	}
	if got := m.Status(); got != statusAfterFirst {
		t.Fatalf("identical re-delivery changed status: %s vs %s", got, statusAfterFirst)
	}
}

func TestSnapshotPreservesDeliveryOrder(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionOrders)
	defer m.Close()

	m.SetTenant("t1")
	path := models.TenantCollectionPath("t1", models.CollectionOrders)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })

	fb.emit(path, docstore.Snapshot{Docs: docs("z", "a", "m")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionOrders)) == 3 })

	got := m.Snapshot(models.CollectionOrders)
	want := []string{"z", "a", "m"}
	for i, d := range got {
		if d.ID != want[i] {
			t.Fatalf("order not preserved: got %s at %d, want %s", d.ID, i, want[i])
		}
	}
}

func TestOneFailingCollectionReportsSingleError(t *testing.T) {
	// Scenario: {customers, orders} subscribed; customers errors while
	// orders keeps succeeding -> aggregate is Error, no per-collection
	// health surfaces.
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers, models.CollectionOrders)
	defer m.Close()

	m.SetTenant("t1")
	custPath := models.TenantCollectionPath("t1", models.CollectionCustomers)
	orderPath := models.TenantCollectionPath("t1", models.CollectionOrders)
	waitFor(t, func() bool { return fb.openedCount(custPath) == 1 && fb.openedCount(orderPath) == 1 })

	fb.emit(orderPath, docstore.Snapshot{Docs: docs("o1")})
	waitFor(t, func() bool { return m.Status() == models.ConnectionStatusConnected })

	fb.emit(custPath, docstore.Snapshot{Err: errors.New("permission denied")})
	waitFor(t, func() bool { return m.Status() == models.ConnectionStatusError })

	// Error is sticky: further successes on the healthy collection do
	// not clear it while the failing one is unresolved.
	fb.emit(orderPath, docstore.Snapshot{Docs: docs("o1", "o2")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionOrders)) == 2 })
	if got := m.Status(); got != models.ConnectionStatusError {
		t.Fatalf("expected sticky Error, got %s", got)
	}

	// The failed collection's previous snapshot, if any, is retained;
	// the error never terminates the subscription loop.
	fb.emit(custPath, docstore.Snapshot{Docs: docs("c1")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 1 })
}

func TestStatusTransitions(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	if got := m.Status(); got != models.ConnectionStatusNoTenant {
		t.Fatalf("expected NoTenant before any tenant, got %s", got)
	}

	m.SetTenant("t1")
	if got := m.Status(); got != models.ConnectionStatusConnecting {
		t.Fatalf("expected Connecting after tenant set, got %s", got)
	}

	path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })
	fb.emit(path, docstore.Snapshot{Docs: docs("a")})
	waitFor(t, func() bool { return m.Status() == models.ConnectionStatusConnected })

	fb.emit(path, docstore.Snapshot{Err: errors.New("transport reset")})
	waitFor(t, func() bool { return m.Status() == models.ConnectionStatusError })

	// Logout absorbs everything back to NoTenant and clears state.
	m.SetTenant("")
	if got := m.Status(); got != models.ConnectionStatusNoTenant {
		t.Fatalf("expected NoTenant after logout, got %s", got)
	}
	if got := m.Snapshot(models.CollectionCustomers); got != nil {
		t.Fatalf("expected cleared snapshot after logout, got %+v", got)
	}
}

func TestTenantChangeReopensSubscriptions(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	m.SetTenant("t1")
	t1Path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(t1Path) == 1 })
	fb.emit(t1Path, docstore.Snapshot{Docs: docs("a", "b")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 2 })

	// Same tenant again: no duplicate stream.
	m.SetTenant("t1")
	if got := fb.openedCount(t1Path); got != 1 {
		t.Fatalf("expected no reopen for unchanged tenant, got %d streams", got)
	}

	m.SetTenant("t2")
	t2Path := models.TenantCollectionPath("t2", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(t2Path) == 1 })

	// Old tenant's data must be gone immediately after the switch.
	if got := m.Snapshot(models.CollectionCustomers); got != nil {
		t.Fatalf("expected stale tenant snapshot cleared, got %+v", got)
	}
	if got := m.Tenant(); got != "t2" {
		t.Fatalf("expected tenant t2, got %s", got)
	}
}

func TestSubscribeCancelStopsDispatchSynchronously(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	updates, cancel := m.Subscribe()
	m.SetTenant("t1")
	path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })

	fb.emit(path, docstore.Snapshot{Docs: docs("a")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 1 })

	cancel()
	drained := 0
	for {
		select {
		case <-updates:
			drained++
			continue
		default:
		}
		break
	}

	// After cancel returns, no further updates may be dispatched.
	fb.emit(path, docstore.Snapshot{Docs: docs("a", "b")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 2 })
	select {
	case u := <-updates:
		t.Fatalf("received update after cancel: %+v", u)
	default:
	}
	_ = drained
}

func TestCancelledSubscriberNeverReceivesLaterUpdates(t *testing.T) {
	// Dispatch and cancel are serialized on the mirror lock, so any
	// update applied after cancel() returns must never reach the
	// channel, no matter how the deliveries interleave.
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	m.SetTenant("t1")
	path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })

	updates, cancel := m.Subscribe()
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 50; i++ {
			fb.emit(path, docstore.Snapshot{Docs: docs("a")})
		}
	}()
	time.Sleep(time.Millisecond)
	cancel()

	// Anything buffered now was dispatched before cancel; drain it.
	for {
		select {
		case <-updates:
			continue
		default:
		}
		break
	}

	<-done
	fb.emit(path, docstore.Snapshot{Docs: docs("final")})
	waitFor(t, func() bool {
		cur := m.Snapshot(models.CollectionCustomers)
		return len(cur) == 1 && cur[0].ID == "final"
	})
	select {
	case u := <-updates:
		t.Fatalf("received update after cancel: %+v", u)
	default:
	}
}

func TestWaitReadyBlocksUntilAllCollectionsLoaded(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers, models.CollectionOrders)
	defer m.Close()

	m.SetTenant("t1")
	custPath := models.TenantCollectionPath("t1", models.CollectionCustomers)
	orderPath := models.TenantCollectionPath("t1", models.CollectionOrders)
	waitFor(t, func() bool { return fb.openedCount(custPath) == 1 && fb.openedCount(orderPath) == 1 })

	ready := make(chan models.ConnectionStatus, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		ready <- m.WaitReady(ctx)
	}()

	// One loaded collection is not enough; the mirror is Connected but
	// reads over the other collection would still see nothing.
	fb.emit(custPath, docstore.Snapshot{Docs: docs("c1")})
	select {
	case st := <-ready:
		t.Fatalf("WaitReady returned with a collection still unloaded: %s", st)
	case <-time.After(50 * time.Millisecond):
	}

	fb.emit(orderPath, docstore.Snapshot{Docs: docs("o1")})
	select {
	case st := <-ready:
		if st != models.ConnectionStatusConnected {
			t.Fatalf("expected Connected, got %s", st)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("WaitReady did not return after all collections loaded")
	}

	// With no tenant there is nothing to wait for.
	m.SetTenant("")
	if st := m.WaitReady(context.Background()); st != models.ConnectionStatusNoTenant {
		t.Fatalf("expected immediate NoTenant, got %s", st)
	}
}

func TestCopyOnWriteKeepsOldReferencesValid(t *testing.T) {
	fb := newFakeBackend()
	m := New(fb, testLogger(), models.CollectionCustomers)
	defer m.Close()

	m.SetTenant("t1")
	path := models.TenantCollectionPath("t1", models.CollectionCustomers)
	waitFor(t, func() bool { return fb.openedCount(path) == 1 })

	fb.emit(path, docstore.Snapshot{Docs: docs("a", "b")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 2 })
	old := m.Snapshot(models.CollectionCustomers)

	fb.emit(path, docstore.Snapshot{Docs: docs("c")})
	waitFor(t, func() bool { return len(m.Snapshot(models.CollectionCustomers)) == 1 })

	// The old reference is stale but intact; never mutated in place.
	if len(old) != 2 || old[0].ID != "a" || old[1].ID != "b" {
		t.Fatalf("old snapshot mutated: %+v", old)
	}
}
