package game

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dare-wheel/internal/monitor"
	"dare-wheel/internal/store"
)

// Engine bundles one client's instance of the coordination logic. There is
// no dedicated server role in the protocol: every participant runs the same
// engine against the shared store and correctness comes from the store's
// conditional writes, not from any instance being special.
type Engine struct {
	Store       store.Store
	Lifecycle   *Lifecycle
	Pool        *Pool
	Jokers      *Jokers
	Coordinator *Coordinator
	Broadcaster *Broadcaster
}

type Options struct {
	Store            store.Store
	DB               *gorm.DB // nil disables the Postgres mirror
	Log              *zap.SugaredLogger
	Metrics          *monitor.Metrics
	ActionsPerPlayer int
}

func NewEngine(opts Options) *Engine {
	rec := NewRecorder(opts.DB, opts.Log)
	jokers := NewJokers(opts.Store, rec, opts.Metrics, opts.Log)
	pool := NewPool(opts.Store, rec, opts.Log, opts.ActionsPerPlayer)
	lifecycle := NewLifecycle(opts.Store, jokers, pool, rec, opts.Metrics, opts.Log)
	coordinator := NewCoordinator(opts.Store, pool, lifecycle, opts.Metrics, opts.Log)
	broadcaster := NewBroadcaster(opts.Store, lifecycle, coordinator, opts.Log)

	return &Engine{
		Store:       opts.Store,
		Lifecycle:   lifecycle,
		Pool:        pool,
		Jokers:      jokers,
		Coordinator: coordinator,
		Broadcaster: broadcaster,
	}
}

// Snapshot is the read model handed to presentation layers.
type Snapshot struct {
	Room      Room
	Players   []Player
	State     GameState
	Remaining int
	Phase     Phase
}

func (e *Engine) Snapshot(roomID string) (Snapshot, error) {
	room, _, err := getRoom(e.Store, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	players, err := listPlayers(e.Store, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	state, _, err := getGameState(e.Store, roomID)
	if err != nil {
		return Snapshot{}, err
	}
	remaining, err := listActions(e.Store, roomID, false, true)
	if err != nil {
		return Snapshot{}, err
	}
	phase, err := e.Coordinator.CurrentPhase(roomID)
	if err != nil {
		return Snapshot{}, err
	}
	return Snapshot{
		Room:      room,
		Players:   players,
		State:     state,
		Remaining: len(remaining),
		Phase:     phase,
	}, nil
}

// Action exposes a single prompt for display once it has been committed.
func (e *Engine) Action(actionID string) (ActionItem, error) {
	action, _, err := getAction(e.Store, actionID)
	return action, err
}
