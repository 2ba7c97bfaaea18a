package optimistic

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/taskdeck/taskdeck/internal/instrumentation"
	"github.com/taskdeck/taskdeck/internal/logging"
)

// TempIDPrefix marks client-generated ids for entities created optimistically
// before the server assigned a real one.
const TempIDPrefix = "tmp-"

// ErrStillCreating is returned for a dependent action on an entity whose
// optimistic create has not resolved yet. Callers retry once the create's
// Pending settles; dispatching against a temporary id would operate on a
// nonexistent entity.
var ErrStillCreating = errors.New("entity is still being created")

// Status is the lifecycle state of an optimistic operation.
type Status int

const (
	// StatusApplied means the local state carries the proposed value and
	// the network call has not settled.
	StatusApplied Status = iota
	// StatusCommitted means the server confirmed; the snapshot is discarded
	// and the authoritative server value adopted.
	StatusCommitted
	// StatusRolledBack means the call failed; the pre-mutation snapshot was
	// restored exactly.
	StatusRolledBack
	// StatusSuperseded means a later mutation on the same entity took over
	// before this one settled; its response lost the right to write back.
	StatusSuperseded
)

func (s Status) String() string {
	switch s {
	case StatusApplied:
		return "applied"
	case StatusCommitted:
		return "committed"
	case StatusRolledBack:
		return "rolled_back"
	case StatusSuperseded:
		return "superseded"
	default:
		return "unknown"
	}
}

// Mutation describes one optimistic local change and the network call that
// confirms it.
type Mutation struct {
	EntityKind string

	// EntityID is empty for creates; the coordinator fabricates a temporary
	// id until the server assigns a real one.
	EntityID string

	// Proposed is the entity value to show immediately. Nil means the
	// mutation removes the entity locally (a delete).
	Proposed []byte

	// Dispatch performs the corresponding domain service call and returns
	// the authoritative server value, or nil when the server returns none.
	Dispatch func(ctx context.Context) ([]byte, error)
}

// Pending tracks one in-flight optimistic operation.
type Pending struct {
	EntityKind string
	EntityID   string

	token uint64

	mu         sync.Mutex
	status     Status
	err        error
	resolvedID string
	done       chan struct{}
}

// Wait blocks until the operation settles or the context ends.
func (p *Pending) Wait(ctx context.Context) (Status, error) {
	select {
	case <-p.done:
		return p.Status(), p.Err()
	case <-ctx.Done():
		return p.Status(), ctx.Err()
	}
}

// Status returns the current lifecycle state.
func (p *Pending) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Err returns the settled error, if any.
func (p *Pending) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.err
}

// ResolvedID returns the server-assigned id after a committed create; for
// other operations it returns the entity id unchanged.
func (p *Pending) ResolvedID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resolvedID != "" {
		return p.resolvedID
	}
	return p.EntityID
}

func (p *Pending) resolve(status Status, err error, resolvedID string) {
	p.mu.Lock()
	p.status = status
	p.err = err
	p.resolvedID = resolvedID
	p.mu.Unlock()
	close(p.done)
}

type queuedOp struct {
	ctx         context.Context
	pending     *Pending
	dispatch    func(ctx context.Context) ([]byte, error)
	previous    []byte
	hadPrevious bool
	isCreate    bool
}

// entityState serializes the operations of one entity. seq is the token of
// the latest issued mutation; an op whose token is older has been
// superseded by the time it settles.
type entityState struct {
	seq     uint64
	queue   []*queuedOp
	running bool
}

// Config holds the coordinator dependencies.
type Config struct {
	Store   Store
	Logger  *slog.Logger
	Metrics *instrumentation.Metrics

	// NewID generates temporary ids. Defaults to uuid.
	NewID func() string
}

// Coordinator applies mutations to local state immediately, confirms them
// against the backend in the background, and rolls back to the pre-mutation
// snapshot when the confirmation fails.
//
// Operations on the same entity are dispatched strictly in the order the
// caller issued them. When a later mutation on an entity is issued before an
// earlier one settles, the later one wins: the earlier operation's response
// loses the right to write back (last-dispatched-wins).
type Coordinator struct {
	store   Store
	logger  *slog.Logger
	metrics *instrumentation.Metrics
	newID   func() string

	mu       sync.Mutex
	entities map[string]*entityState
}

// NewCoordinator creates a coordinator over the given local store.
func NewCoordinator(cfg Config) *Coordinator {
	if cfg.Store == nil {
		cfg.Store = NewMemoryStore()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}

	return &Coordinator{
		store:    cfg.Store,
		logger:   logging.WithService(cfg.Logger, "optimistic"),
		metrics:  cfg.Metrics,
		newID:    cfg.NewID,
		entities: make(map[string]*entityState),
	}
}

// Store returns the local entity store the coordinator mutates.
func (c *Coordinator) Store() Store {
	return c.store
}

// Apply snapshots the entity, applies the proposed value locally, and
// queues the dispatch. It returns immediately; the returned Pending settles
// when the network call does.
func (c *Coordinator) Apply(ctx context.Context, m Mutation) (*Pending, error) {
	if m.EntityKind == "" {
		return nil, errors.New("mutation needs an entity kind")
	}
	if m.Dispatch == nil {
		return nil, errors.New("mutation needs a dispatch function")
	}

	isCreate := m.EntityID == ""
	id := m.EntityID
	if isCreate {
		id = TempIDPrefix + c.newID()
	}

	c.mu.Lock()
	key := m.EntityKind + "/" + id

	// A dependent action addressing a temporary id means the create has not
	// resolved; dispatching it would hit a nonexistent entity.
	if !isCreate && strings.HasPrefix(id, TempIDPrefix) {
		c.mu.Unlock()
		return nil, ErrStillCreating
	}

	state := c.entities[key]
	if state == nil {
		state = &entityState{}
		c.entities[key] = state
	}

	previous, hadPrevious := c.store.Get(m.EntityKind, id)
	if m.Proposed == nil {
		c.store.Delete(m.EntityKind, id)
	} else {
		c.store.Put(m.EntityKind, id, m.Proposed)
	}

	state.seq++
	pending := &Pending{
		EntityKind: m.EntityKind,
		EntityID:   id,
		token:      state.seq,
		status:     StatusApplied,
		done:       make(chan struct{}),
	}

	state.queue = append(state.queue, &queuedOp{
		ctx:         ctx,
		pending:     pending,
		dispatch:    m.Dispatch,
		previous:    previous,
		hadPrevious: hadPrevious,
		isCreate:    isCreate,
	})
	if !state.running {
		state.running = true
		go c.drain(key, state)
	}
	c.mu.Unlock()

	return pending, nil
}

// drain runs the entity's queued operations one at a time, preserving the
// order the user issued them.
func (c *Coordinator) drain(key string, state *entityState) {
	for {
		c.mu.Lock()
		if len(state.queue) == 0 {
			state.running = false
			c.mu.Unlock()
			return
		}
		op := state.queue[0]
		state.queue = state.queue[1:]
		c.mu.Unlock()

		result, err := op.dispatch(op.ctx)
		c.settle(key, state, op, result, err)
	}
}

func (c *Coordinator) settle(key string, state *entityState, op *queuedOp, result []byte, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	pending := op.pending
	kind, id := pending.EntityKind, pending.EntityID
	latest := pending.token == state.seq

	if err != nil {
		if !latest {
			pending.resolve(StatusSuperseded, err, "")
			return
		}

		if op.hadPrevious {
			c.store.Put(kind, id, op.previous)
		} else {
			c.store.Delete(kind, id)
		}
		c.logger.Warn("optimistic mutation rolled back",
			logging.EntityKind(kind),
			logging.Entity(id),
			logging.Err(err))
		c.metrics.RecordRollback(op.ctx, kind)
		pending.resolve(StatusRolledBack, err, "")
		return
	}

	if !latest {
		pending.resolve(StatusSuperseded, nil, "")
		return
	}

	resolvedID := ""
	if op.isCreate {
		resolvedID = serverID(result)
		c.store.Delete(kind, id)
		if resolvedID != "" && result != nil {
			c.store.Put(kind, resolvedID, result)
		}
	} else if result != nil {
		c.store.Put(kind, id, result)
	}

	pending.resolve(StatusCommitted, nil, resolvedID)
}

// serverID extracts the id field from an authoritative server value.
func serverID(value []byte) string {
	if value == nil {
		return ""
	}
	var entity struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(value, &entity); err != nil {
		return ""
	}
	return entity.ID
}
