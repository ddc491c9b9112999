package game

import (
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomSeedsStateAndHost(t *testing.T) {
	engine := newTestEngine(t)

	room, host, err := engine.Lifecycle.CreateRoom("alice")
	require.NoError(t, err)
	require.Len(t, room.Code, 6)
	require.Equal(t, strings.ToUpper(room.Code), room.Code)
	require.Equal(t, RoomWaiting, room.Status)

	require.True(t, host.IsHost)
	require.Equal(t, "alice", host.Username)
	require.Equal(t, 1, host.JokersCount) // sober default

	state, _, err := getGameState(engine.Store, room.ID)
	require.NoError(t, err)
	require.Equal(t, DifficultySober, state.Difficulty)
	require.Equal(t, PenaltyNone, state.JokerPenalty)
	require.Equal(t, AnimationIdle, state.AnimationState)
	require.Empty(t, state.CurrentActionID)
}

func TestJoinRoomNormalizesCode(t *testing.T) {
	engine := newTestEngine(t)
	room, _, err := engine.Lifecycle.CreateRoom("alice")
	require.NoError(t, err)

	player, err := engine.Lifecycle.JoinRoom("  "+strings.ToLower(room.Code)+" ", "bob")
	require.NoError(t, err)
	require.Equal(t, room.ID, player.RoomID)
	require.False(t, player.IsHost)

	players, err := listPlayers(engine.Store, room.ID)
	require.NoError(t, err)
	require.Len(t, players, 2)
}

func TestJoinRoomUnknownCode(t *testing.T) {
	engine := newTestEngine(t)
	_, err := engine.Lifecycle.JoinRoom("NOSUCH", "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJoinRoomAfterTerminate(t *testing.T) {
	engine := newTestEngine(t)
	room, _, err := engine.Lifecycle.CreateRoom("alice")
	require.NoError(t, err)
	require.NoError(t, engine.Lifecycle.Terminate(room.ID))

	_, err = engine.Lifecycle.JoinRoom(room.Code, "bob")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestAdvanceWaitsForAllSubmissions(t *testing.T) {
	engine := newTestEngine(t)
	room, players := waitingRoom(t, engine, "alice", "bob")

	require.NoError(t, engine.Lifecycle.BeginSubmission(room.ID))
	require.NoError(t, engine.Pool.Submit(players[0].ID, sampleActions("alice")))

	// One submission outstanding, the room must hold in Submitting.
	current, _, err := getRoom(engine.Store, room.ID)
	require.NoError(t, err)
	require.Equal(t, RoomSubmitting, current.Status)
	require.ErrorIs(t, engine.Lifecycle.AdvanceToPlaying(room.ID), ErrInvalidTransition)

	require.NoError(t, engine.Pool.Submit(players[1].ID, sampleActions("bob")))
	current, _, err = getRoom(engine.Store, room.ID)
	require.NoError(t, err)
	require.Equal(t, RoomPlaying, current.Status)

	// Duplicate delivery of the advance is a no-op.
	require.NoError(t, engine.Lifecycle.AdvanceToPlaying(room.ID))
}

func TestBeginSubmissionOnlyFromWaiting(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice", "bob")
	require.ErrorIs(t, engine.Lifecycle.BeginSubmission(room.ID), ErrInvalidTransition)
}

func TestTerminateCascades(t *testing.T) {
	engine := newTestEngine(t)
	room, players := playingRoom(t, engine, "alice", "bob")

	require.NoError(t, engine.Lifecycle.Terminate(room.ID))

	_, _, err := getRoom(engine.Store, room.ID)
	require.ErrorIs(t, err, ErrNotFound)
	_, _, err = getGameState(engine.Store, room.ID)
	require.ErrorIs(t, err, ErrNotFound)
	for _, player := range players {
		_, _, err := getPlayer(engine.Store, player.ID)
		require.ErrorIs(t, err, ErrNotFound)
	}
	actions, err := listActions(engine.Store, room.ID, false, false)
	require.NoError(t, err)
	require.Empty(t, actions)

	// Terminating an already gone room stays quiet.
	require.NoError(t, engine.Lifecycle.Terminate(room.ID))
}

func TestConcurrentTerminateSettlesOnce(t *testing.T) {
	engine, metrics := newTestEngineWithMetrics(t)
	room, _, err := engine.Lifecycle.CreateRoom("alice")
	require.NoError(t, err)
	require.Equal(t, 1.0, testutil.ToFloat64(metrics.RoomsActive))

	const callers = 4
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- engine.Lifecycle.Terminate(room.ID)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	// Exactly one caller owned the teardown: the gauge returns to zero
	// instead of going negative.
	require.Equal(t, 0.0, testutil.ToFloat64(metrics.RoomsActive))
	_, _, err = getRoom(engine.Store, room.ID)
	require.ErrorIs(t, err, ErrNotFound)
}
