package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"hotelflow-core/config"
	"hotelflow-core/internal/entity"
	"hotelflow-core/internal/queue"
	"hotelflow-core/internal/remote"
	"hotelflow-core/internal/store"
)

// State is the sync engine's connectivity state.
type State int32

const (
	StateOffline State = iota
	StateConnecting
	StateSyncing
	StateIdle
)

func (s State) String() string {
	switch s {
	case StateOffline:
		return "OFFLINE"
	case StateConnecting:
		return "CONNECTING"
	case StateSyncing:
		return "SYNCING"
	case StateIdle:
		return "IDLE"
	}
	return "UNKNOWN"
}

// Dispatcher is the remote-authority surface the engine drains against.
type Dispatcher interface {
	Dispatch(ctx context.Context, m *entity.Mutation) ([]byte, error)
	FetchCollection(ctx context.Context, kind entity.Kind) ([]json.RawMessage, error)
}

// RejectedAction records a mutation the server refused, for a one-time
// user-visible alert naming the action that failed.
type RejectedAction struct {
	Sequence uint64      `json:"sequence"`
	Kind     entity.Kind `json:"entity_kind"`
	EntityID string      `json:"entity_id"`
	Message  string      `json:"message"`
}

// Status is the engine state exposed to the UI.
type Status struct {
	State    string           `json:"state"`
	Queued   int              `json:"queued"`
	AtRisk   int              `json:"at_risk"`
	LastErr  string           `json:"last_error,omitempty"`
	Rejected []RejectedAction `json:"rejected,omitempty"`
}

// RefreshKinds are the collections a full refresh pulls by default. The
// roster kinds are included so availability and rostered shifts reach the
// forecast without a dedicated pull.
var RefreshKinds = []entity.Kind{
	entity.KindRoom,
	entity.KindStaff,
	entity.KindIncident,
	entity.KindAnnouncement,
	entity.KindCleaningType,
	entity.KindInventory,
	entity.KindAsset,
	entity.KindAvailability,
	entity.KindShift,
}

// Engine drains the offline mutation queue against the remote authority and
// reconciles responses back into the entity store. All dispatch is
// serialized: mutations for the same entity are never reordered, and the
// design stays auditable.
type Engine struct {
	cfg    *config.SyncConfig
	store  *store.EntityStore
	queue  queue.Queue
	client Dispatcher

	state atomic.Int32
	kick  chan struct{}

	mu        sync.Mutex
	lastErr   string
	rejected  []RejectedAction
	atRisk    int
	seenAnnID map[string]bool
	announce  func(entity.Announcement)
}

// NewEngine creates an engine in the offline state.
func NewEngine(cfg *config.SyncConfig, st *store.EntityStore, q queue.Queue, client Dispatcher) *Engine {
	return &Engine{
		cfg:       cfg,
		store:     st,
		queue:     q,
		client:    client,
		kick:      make(chan struct{}, 1),
		seenAnnID: make(map[string]bool),
	}
}

// OnAnnouncement installs a hook invoked for each announcement first seen
// during a refresh.
func (e *Engine) OnAnnouncement(fn func(entity.Announcement)) {
	e.mu.Lock()
	e.announce = fn
	e.mu.Unlock()
}

// State returns the current connectivity state.
func (e *Engine) State() State {
	return State(e.state.Load())
}

func (e *Engine) setState(s State) {
	e.state.Store(int32(s))
}

// Kick requests an immediate drain attempt, e.g. on reconnection detection
// or right after a local mutation was enqueued.
func (e *Engine) Kick() {
	select {
	case e.kick <- struct{}{}:
	default:
	}
}

// Submit is the single write pipeline: the mutation is persisted to the
// queue, applied optimistically to the entity store, and a drain is kicked.
// When durable persistence fails the optimistic apply still happens so the
// UI stays responsive, but the error is returned loudly and the write is
// flagged as at risk.
func (e *Engine) Submit(ctx context.Context, m *entity.Mutation) error {
	enqueueErr := e.queue.Enqueue(ctx, m)
	if enqueueErr != nil {
		m.AtRisk = true
		// The write exists only in memory; count it so the status
		// indicator shows it until the process restarts or it is re-tried.
		e.mu.Lock()
		e.atRisk++
		e.mu.Unlock()
	}
	if err := e.store.Apply(m); err != nil {
		return fmt.Errorf("failed to apply mutation locally: %w", err)
	}
	if enqueueErr != nil {
		return fmt.Errorf("action applied locally but not persisted (at risk): %w", enqueueErr)
	}
	e.Kick()
	return nil
}

// Run drives the drain loop until the context is cancelled: an immediate
// attempt on startup, then on every kick, plus a periodic timer to catch
// missed connectivity transitions.
func (e *Engine) Run(ctx context.Context) {
	log.Println("sync engine starting")
	e.DrainOnce(ctx)

	timer := time.NewTimer(e.cfg.Interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("sync engine shutting down")
			return
		case <-e.kick:
			e.DrainOnce(ctx)
		case <-timer.C:
			e.DrainOnce(ctx)
			if err := e.RefreshStale(ctx); err != nil {
				log.Printf("sync: stale refresh failed: %v", err)
			}
			timer.Reset(e.cfg.Interval)
		}
	}
}

// DrainOnce dispatches queued mutations in FIFO order until the queue is
// empty (state becomes IDLE) or a transient failure interrupts the batch
// (state returns to OFFLINE for a later retry). Rejected mutations are
// dropped, recorded for the UI, and flag their entity kind for a forced
// refresh.
func (e *Engine) DrainOnce(ctx context.Context) {
	e.setState(StateConnecting)

	for {
		batch, err := e.queue.PeekBatch(ctx, e.cfg.BatchSize)
		if err != nil {
			e.recordError(fmt.Sprintf("queue read failed: %v", err))
			e.setState(StateOffline)
			return
		}
		if len(batch) == 0 {
			e.setState(StateIdle)
			e.clearError()
			return
		}

		e.setState(StateSyncing)
		for i := range batch {
			m := &batch[i]
			body, err := e.client.Dispatch(ctx, m)
			switch {
			case err == nil:
				if m.Op != entity.OpDelete {
					if err := e.store.Confirm(m.Kind, m.EntityID, body, m.Sequence); err != nil {
						log.Printf("sync: failed to apply server echo for %s: %v", m.StreamKey(), err)
					}
				}
				if err := e.queue.Acknowledge(ctx, m.Sequence); err != nil {
					e.recordError(fmt.Sprintf("acknowledge failed: %v", err))
					e.setState(StateOffline)
					return
				}
			case remote.IsTransient(err):
				// Connectivity lost mid-batch; keep the mutation queued.
				e.recordError(err.Error())
				e.setState(StateOffline)
				return
			default:
				// Rejected: drop it, tell the user, schedule a refresh of
				// the affected kind so the optimistic discrepancy heals.
				log.Printf("sync: mutation %d for %s rejected: %v", m.Sequence, m.StreamKey(), err)
				if ackErr := e.queue.Acknowledge(ctx, m.Sequence); ackErr != nil {
					e.recordError(fmt.Sprintf("drop of rejected mutation failed: %v", ackErr))
					e.setState(StateOffline)
					return
				}
				e.recordRejected(RejectedAction{
					Sequence: m.Sequence,
					Kind:     m.Kind,
					EntityID: m.EntityID,
					Message:  err.Error(),
				})
				e.store.MarkStale(m.Kind)
			}
		}
	}
}

// Refresh pulls the authoritative collections and applies them into the
// store. Entities with queued local writes are left alone so a concurrent
// refresh never clobbers an unsynced edit.
func (e *Engine) Refresh(ctx context.Context, kinds ...entity.Kind) error {
	if len(kinds) == 0 {
		kinds = RefreshKinds
	}

	pending, err := e.queue.PendingStreams(ctx)
	if err != nil {
		return fmt.Errorf("failed to determine pending streams: %w", err)
	}

	for _, kind := range kinds {
		items, err := e.client.FetchCollection(ctx, kind)
		if err != nil {
			if remote.IsTransient(err) {
				e.setState(StateOffline)
			}
			return fmt.Errorf("refresh of %s failed: %w", kind, err)
		}

		present := make(map[string]bool, len(items))
		for _, raw := range items {
			id, err := extractID(raw)
			if err != nil {
				log.Printf("refresh: skipping %s item without id: %v", kind, err)
				continue
			}
			present[id] = true
			if pending[string(kind)+"/"+id] {
				continue
			}
			if err := e.store.ApplyServer(kind, id, raw); err != nil {
				return fmt.Errorf("refresh apply of %s/%s failed: %w", kind, id, err)
			}
			if kind == entity.KindAnnouncement {
				e.fanOutAnnouncement(id)
			}
		}
		e.store.RemoveMissing(kind, present, pending)
	}
	return nil
}

// RefreshStale refreshes only the kinds flagged after rejected mutations.
func (e *Engine) RefreshStale(ctx context.Context) error {
	kinds := e.store.TakeStale()
	if len(kinds) == 0 {
		return nil
	}
	return e.Refresh(ctx, kinds...)
}

func (e *Engine) fanOutAnnouncement(id string) {
	e.mu.Lock()
	seen := e.seenAnnID[id]
	e.seenAnnID[id] = true
	fn := e.announce
	e.mu.Unlock()
	if seen || fn == nil {
		return
	}
	if item, ok := e.store.Get(entity.KindAnnouncement, id); ok {
		fn(*item.(*entity.Announcement))
	}
}

// Status reports the engine state, queue depth and pending user-visible
// errors. Rejected actions are drained: each is reported exactly once.
func (e *Engine) Status(ctx context.Context) Status {
	size, err := e.queue.Size(ctx)
	if err != nil {
		size = -1
	}
	atRisk, err := e.queue.AtRiskCount(ctx)
	if err != nil {
		atRisk = 0
	}

	e.mu.Lock()
	atRisk += e.atRisk
	rejected := e.rejected
	e.rejected = nil
	lastErr := e.lastErr
	e.mu.Unlock()

	return Status{
		State:    e.State().String(),
		Queued:   size,
		AtRisk:   atRisk,
		LastErr:  lastErr,
		Rejected: rejected,
	}
}

func (e *Engine) recordError(msg string) {
	e.mu.Lock()
	e.lastErr = msg
	e.mu.Unlock()
}

func (e *Engine) clearError() {
	e.mu.Lock()
	e.lastErr = ""
	e.mu.Unlock()
}

func (e *Engine) recordRejected(r RejectedAction) {
	e.mu.Lock()
	e.rejected = append(e.rejected, r)
	e.mu.Unlock()
}

// extractID pulls the stable identifier out of a server document. The
// backend serializes ids as numbers or strings depending on the entity.
func extractID(raw json.RawMessage) (string, error) {
	var probe map[string]any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&probe); err != nil {
		return "", err
	}
	switch v := probe["id"].(type) {
	case string:
		if v != "" {
			return v, nil
		}
	case json.Number:
		return v.String(), nil
	}
	return "", fmt.Errorf("document has no id field")
}
