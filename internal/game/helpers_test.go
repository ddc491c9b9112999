package game

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"dare-wheel/internal/monitor"
	"dare-wheel/internal/store"
)

const testActionsPerPlayer = 5

// newTestEngine wires a full engine against a fresh in-memory store, with
// the change feed running, no postgres mirror and a throwaway metrics
// registry.
func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	engine, _ := newTestEngineWithMetrics(t)
	return engine
}

func newTestEngineWithMetrics(t *testing.T) (*Engine, *monitor.Metrics) {
	t.Helper()
	metrics := monitor.New(prometheus.NewRegistry(), "test")
	engine := NewEngine(Options{
		Store:            store.NewMemory(),
		Log:              zap.NewNop().Sugar(),
		Metrics:          metrics,
		ActionsPerPlayer: testActionsPerPlayer,
	})
	engine.Broadcaster.Start()
	t.Cleanup(engine.Broadcaster.Stop)
	return engine, metrics
}

func sampleActions(owner string) []string {
	texts := make([]string, testActionsPerPlayer)
	for i := range texts {
		texts[i] = fmt.Sprintf("%s dare %d", owner, i+1)
	}
	return texts
}

// waitingRoom creates a room with the given usernames, first one hosting.
func waitingRoom(t *testing.T, engine *Engine, usernames ...string) (Room, []Player) {
	t.Helper()
	require.NotEmpty(t, usernames)

	room, host, err := engine.Lifecycle.CreateRoom(usernames[0])
	require.NoError(t, err)
	players := []Player{host}
	for _, name := range usernames[1:] {
		player, err := engine.Lifecycle.JoinRoom(room.Code, name)
		require.NoError(t, err)
		players = append(players, player)
	}
	return room, players
}

// playingRoom takes a fresh room all the way to Playing: everyone submits
// their actions, and the change feed advances the lifecycle.
func playingRoom(t *testing.T, engine *Engine, usernames ...string) (Room, []Player) {
	t.Helper()
	room, players := waitingRoom(t, engine, usernames...)

	require.NoError(t, engine.Lifecycle.BeginSubmission(room.ID))
	for _, player := range players {
		require.NoError(t, engine.Pool.Submit(player.ID, sampleActions(player.Username)))
	}

	current, _, err := getRoom(engine.Store, room.ID)
	require.NoError(t, err)
	require.Equal(t, RoomPlaying, current.Status)
	return current, players
}
