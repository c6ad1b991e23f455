// Package autosave keeps the durable store eventually consistent with
// the builder session while collapsing edit bursts into few writes.
//
// Two timer stages sit between a mutation and the persist call: a short
// debounce collapses per-keystroke churn, a longer coalesce stage merges
// distinct fields edited seconds apart. At most one persist is in flight
// per form; a failed persist is surfaced and retried by the next edit,
// never by a timer.
package autosave

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/formloom/formloom/internal/entity"
	"github.com/formloom/formloom/pkg/logger"
)

// Store is the external persistence collaborator.
type Store interface {
	PersistForm(ctx context.Context, formID string, snap entity.Snapshot) error
}

// DraftCache mirrors every state change synchronously so a reload after
// a lost connection can recover unsynced edits.
type DraftCache interface {
	PutDraft(ctx context.Context, formID string, payload []byte) error
}

const (
	DefaultDebounce = 300 * time.Millisecond
	DefaultCoalesce = time.Second
)

type state int

const (
	stateIdle state = iota
	stateDebouncing
	stateCoalescing
	stateSaving
)

// Options tunes the pipeline timers; zero values take the defaults.
type Options struct {
	Debounce time.Duration
	Coalesce time.Duration
}

// Pipeline drives autosave for one form.
type Pipeline struct {
	formID string
	store  Store
	cache  DraftCache
	logger *logger.Logger

	debounce time.Duration
	coalesce time.Duration

	mu          sync.Mutex
	state       state
	pending     entity.Snapshot
	hasPending  bool
	baseline    []byte // canonical bytes of the last persisted snapshot
	dirty       bool   // mutation arrived while a save was in flight
	timer       *time.Timer
	flightDone  chan struct{}
	lastSavedAt time.Time
	closed      bool

	ctx  context.Context
	errs chan error
}

// NewPipeline wires a pipeline for one form. ctx bounds every persist
// and draft write the pipeline issues.
func NewPipeline(ctx context.Context, formID string, store Store, cache DraftCache, opts Options) *Pipeline {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	if opts.Coalesce <= 0 {
		opts.Coalesce = DefaultCoalesce
	}

	return &Pipeline{
		formID:   formID,
		store:    store,
		cache:    cache,
		logger:   logger.Get(),
		debounce: opts.Debounce,
		coalesce: opts.Coalesce,
		ctx:      ctx,
		errs:     make(chan error, 1),
	}
}

// Prime records a snapshot as the persisted baseline without scheduling
// anything. Called right after loading a form so the load itself never
// triggers a write.
func (p *Pipeline) Prime(snap entity.Snapshot) {
	raw, err := snap.Canonical()
	if err != nil {
		p.logger.Error("error serializing baseline snapshot",
			zap.String("form_id", p.formID),
			zap.Error(err))
		return
	}

	p.mu.Lock()
	p.baseline = raw
	p.mu.Unlock()
}

// Notify observes one builder mutation: mirrors the draft synchronously
// and (re)arms the debounce stage. Safe to call at any rate.
func (p *Pipeline) Notify(snap entity.Snapshot) {
	raw, err := snap.Canonical()
	if err != nil {
		p.report(fmt.Errorf("serialize snapshot: %w", err))
		return
	}

	if err := p.cache.PutDraft(p.ctx, p.formID, raw); err != nil {
		// The fallback mirror is best-effort; the authoritative
		// state stays in memory.
		p.logger.Error("error mirroring draft",
			zap.String("form_id", p.formID),
			zap.Error(err))
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	p.pending = snap
	p.hasPending = true

	if p.state == stateSaving {
		p.dirty = true
		return
	}

	p.stopTimer()
	p.state = stateDebouncing
	p.timer = time.AfterFunc(p.debounce, p.onDebounceFired)
}

func (p *Pipeline) onDebounceFired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || p.state != stateDebouncing {
		return
	}

	if !p.changedLocked() {
		p.state = stateIdle
		return
	}

	p.state = stateCoalescing
	p.timer = time.AfterFunc(p.coalesce, p.onCoalesceFired)
}

func (p *Pipeline) onCoalesceFired() {
	p.mu.Lock()

	if p.closed || p.state != stateCoalescing {
		p.mu.Unlock()
		return
	}

	snap := p.pending
	p.state = stateSaving
	p.flightDone = make(chan struct{})
	p.mu.Unlock()

	p.persist(snap)
}

// persist issues the single-flight write and settles the state machine
// afterwards. Runs on the timer goroutine or the Flush caller.
func (p *Pipeline) persist(snap entity.Snapshot) {
	err := p.store.PersistForm(p.ctx, p.formID, snap)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.flightDone != nil {
		close(p.flightDone)
		p.flightDone = nil
	}
	p.state = stateIdle

	if err != nil {
		p.logger.Error("error persisting form",
			zap.String("form_id", p.formID),
			zap.Error(err))
		p.reportLocked(err)
	} else {
		if raw, cerr := snap.Canonical(); cerr == nil {
			p.baseline = raw
		}
		p.lastSavedAt = time.Now()
	}

	// Edits that landed mid-flight go straight back to the coalescing
	// stage; single-flight already spaced them from this write.
	if p.dirty {
		p.dirty = false
		p.state = stateCoalescing
		p.timer = time.AfterFunc(p.coalesce, p.onCoalesceFired)
	}
}

// Flush cancels pending timers and persists any unsaved changes now.
// Used when the editing session closes.
func (p *Pipeline) Flush(ctx context.Context) error {
	p.mu.Lock()

	if p.closed {
		p.mu.Unlock()
		return nil
	}

	p.stopTimer()

	if p.state == stateSaving {
		done := p.flightDone
		p.mu.Unlock()
		if done != nil {
			select {
			case <-done:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		p.mu.Lock()
		// The flight may have re-armed the coalesce stage for edits
		// that landed mid-save; Flush takes those over too.
		p.stopTimer()
		p.dirty = false
	}

	if !p.changedLocked() {
		p.state = stateIdle
		p.mu.Unlock()
		return nil
	}

	snap := p.pending
	p.state = stateSaving
	p.mu.Unlock()

	err := p.store.PersistForm(ctx, p.formID, snap)

	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = stateIdle
	if err != nil {
		return err
	}
	if raw, cerr := snap.Canonical(); cerr == nil {
		p.baseline = raw
	}
	p.lastSavedAt = time.Now()
	return nil
}

// Close stops the timers. In-flight persists are not cancelled.
func (p *Pipeline) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopTimer()
	p.closed = true
	p.state = stateIdle
}

// Errors exposes persist failures. The channel holds the latest failure
// only; local state is never rolled back and the next edit retries.
func (p *Pipeline) Errors() <-chan error {
	return p.errs
}

// LastSavedAt returns when the last successful persist finished.
func (p *Pipeline) LastSavedAt() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastSavedAt
}

func (p *Pipeline) changedLocked() bool {
	if !p.hasPending {
		return false
	}
	raw, err := p.pending.Canonical()
	if err != nil {
		return false
	}
	return !bytes.Equal(raw, p.baseline)
}

func (p *Pipeline) stopTimer() {
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
}

func (p *Pipeline) report(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reportLocked(err)
}

func (p *Pipeline) reportLocked(err error) {
	select {
	case p.errs <- err:
	default:
		select {
		case <-p.errs:
		default:
		}
		select {
		case p.errs <- err:
		default:
		}
	}
}
