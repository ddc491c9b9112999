package game

import (
	"sync"

	"go.uber.org/zap"

	"dare-wheel/internal/store"
)

// Broadcaster is the thin adapter between the store's change feed and the
// rest of the system. It forwards every change to registered sinks (the
// websocket relay lives there) and reacts to a small set of transitions
// itself. Handlers run on the writer's goroutine and must stay idempotent:
// the feed is at-least-once and unordered across tables.
type Broadcaster struct {
	store       store.Store
	lifecycle   *Lifecycle
	coordinator *Coordinator
	log         *zap.SugaredLogger

	mu      sync.Mutex
	sinks   []func(store.Change)
	cancels []func()
}

func NewBroadcaster(st store.Store, lifecycle *Lifecycle, coordinator *Coordinator, log *zap.SugaredLogger) *Broadcaster {
	return &Broadcaster{store: st, lifecycle: lifecycle, coordinator: coordinator, log: log}
}

// Start subscribes to the four game tables. Stop undoes it.
func (b *Broadcaster) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.cancels) > 0 {
		return
	}
	for _, table := range []string{tableRooms, tablePlayers, tableActions, tableGameState} {
		b.cancels = append(b.cancels, b.store.Subscribe(table, b.dispatch))
	}
}

func (b *Broadcaster) Stop() {
	b.mu.Lock()
	cancels := b.cancels
	b.cancels = nil
	b.mu.Unlock()
	for _, cancel := range cancels {
		cancel()
	}
}

// AddSink registers an observer for raw change events.
func (b *Broadcaster) AddSink(sink func(store.Change)) {
	b.mu.Lock()
	b.sinks = append(b.sinks, sink)
	b.mu.Unlock()
}

func (b *Broadcaster) dispatch(change store.Change) {
	b.react(change)

	b.mu.Lock()
	sinks := make([]func(store.Change), len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.Unlock()
	for _, sink := range sinks {
		sink(change)
	}
}

// react closes the reactive loop: player submissions advance the lifecycle,
// and a quorum observed on game_state triggers a commit attempt. Both paths
// tolerate losing to another client.
func (b *Broadcaster) react(change store.Change) {
	if change.Type != store.EventUpdate {
		return
	}
	switch change.Table {
	case tablePlayers:
		player, ok := change.New.(Player)
		if !ok || !player.HasSubmitted {
			return
		}
		if err := b.lifecycle.AdvanceToPlaying(player.RoomID); err != nil && err != ErrInvalidTransition && err != ErrConflict && err != ErrNotFound {
			b.log.Warnw("advance to playing failed", "room", player.RoomID, "err", err)
		}
	case tableGameState:
		state, ok := change.New.(GameState)
		if !ok || state.ReadyCount == 0 || state.CurrentActionID != "" {
			return
		}
		players, err := listPlayers(b.store, state.RoomID)
		if err != nil || len(players) == 0 {
			return
		}
		if state.ReadyCount < len(players) {
			return
		}
		if err := b.coordinator.CommitSelection(state.RoomID); err != nil && err != ErrConflict && err != ErrNotFound {
			b.log.Warnw("commit after quorum failed", "room", state.RoomID, "err", err)
		}
	}
}
