package autosave

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/formloom/formloom/internal/entity"
)

type fakeStore struct {
	mu      sync.Mutex
	calls   []entity.Snapshot
	err     error
	delay   time.Duration
	inCalls int
}

func (f *fakeStore) PersistForm(ctx context.Context, formID string, snap entity.Snapshot) error {
	f.mu.Lock()
	f.inCalls++
	delay, err := f.delay, f.err
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		return err
	}
	f.calls = append(f.calls, snap)
	return nil
}

func (f *fakeStore) persisted() []entity.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.Snapshot, len(f.calls))
	copy(out, f.calls)
	return out
}

func (f *fakeStore) attempts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inCalls
}

func (f *fakeStore) setErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

type fakeCache struct {
	mu     sync.Mutex
	drafts map[string][]byte
	puts   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{drafts: make(map[string][]byte)}
}

func (f *fakeCache) PutDraft(ctx context.Context, formID string, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drafts[formID] = payload
	f.puts++
	return nil
}

func (f *fakeCache) putCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.puts
}

func snapWithTitle(title string) entity.Snapshot {
	return entity.Snapshot{Title: title}
}

func testPipeline(store *fakeStore, cache *fakeCache) *Pipeline {
	return NewPipeline(context.Background(), "form-1", store, cache, Options{
		Debounce: 20 * time.Millisecond,
		Coalesce: 30 * time.Millisecond,
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met in time")
}

func TestPipeline_BurstCollapsesToOnePersist(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	// Three rapid edits, well inside the debounce window.
	p.Notify(snapWithTitle("a"))
	p.Notify(snapWithTitle("ab"))
	p.Notify(snapWithTitle("abc"))

	waitFor(t, func() bool { return len(store.persisted()) == 1 })

	persisted := store.persisted()
	require.Len(t, persisted, 1)
	assert.Equal(t, "abc", persisted[0].Title, "the final snapshot wins")

	// No further writes after the burst settled.
	time.Sleep(100 * time.Millisecond)
	assert.Len(t, store.persisted(), 1)
}

func TestPipeline_EveryChangeMirrorsDraft(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	p.Notify(snapWithTitle("a"))
	p.Notify(snapWithTitle("ab"))

	// The draft mirror is synchronous, one write per change.
	assert.Equal(t, 2, cache.putCount())
}

func TestPipeline_UnchangedSnapshotDoesNotPersist(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	snap := snapWithTitle("same")
	p.Prime(snap)
	p.Notify(snap)

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, store.persisted())
}

func TestPipeline_FailureSurfacedAndRetriedOnNextEdit(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	store.setErr(errors.New("store down"))
	p.Notify(snapWithTitle("a"))

	var reported error
	select {
	case reported = <-p.Errors():
	case <-time.After(2 * time.Second):
		t.Fatal("no error reported")
	}
	assert.ErrorContains(t, reported, "store down")
	assert.Empty(t, store.persisted(), "failed write records nothing")

	// The next edit retries; no timer-based retry happens on its own.
	store.setErr(nil)
	p.Notify(snapWithTitle("b"))

	waitFor(t, func() bool { return len(store.persisted()) == 1 })
	assert.Equal(t, "b", store.persisted()[0].Title)
}

func TestPipeline_SingleFlight(t *testing.T) {
	store := &fakeStore{delay: 80 * time.Millisecond}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	p.Notify(snapWithTitle("first"))
	waitFor(t, func() bool { return store.attempts() == 1 })

	// Edits landing while the first write is in flight never launch a
	// second concurrent write; they re-enter the coalesce stage after.
	p.Notify(snapWithTitle("second"))
	p.Notify(snapWithTitle("third"))
	assert.Equal(t, 1, store.attempts())

	waitFor(t, func() bool { return len(store.persisted()) == 2 })
	persisted := store.persisted()
	assert.Equal(t, "first", persisted[0].Title)
	assert.Equal(t, "third", persisted[1].Title)
}

func TestPipeline_FlushForcesPendingWrite(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	p.Notify(snapWithTitle("pending"))

	// Flush before any timer fires.
	require.NoError(t, p.Flush(context.Background()))

	persisted := store.persisted()
	require.Len(t, persisted, 1)
	assert.Equal(t, "pending", persisted[0].Title)

	// Nothing left to write afterwards.
	require.NoError(t, p.Flush(context.Background()))
	assert.Len(t, store.persisted(), 1)
}

func TestPipeline_FlushWithoutChangesIsNoop(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	require.NoError(t, p.Flush(context.Background()))
	assert.Empty(t, store.persisted())
}

func TestPipeline_LastSavedAtAdvances(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)
	defer p.Close()

	assert.True(t, p.LastSavedAt().IsZero())

	p.Notify(snapWithTitle("a"))
	waitFor(t, func() bool { return !p.LastSavedAt().IsZero() })
}

func TestPipeline_CloseStopsScheduledWork(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	p := testPipeline(store, cache)

	p.Notify(snapWithTitle("a"))
	p.Close()

	time.Sleep(150 * time.Millisecond)
	assert.Empty(t, store.persisted())
}
