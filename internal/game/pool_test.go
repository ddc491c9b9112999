package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSubmitValidatesInput(t *testing.T) {
	engine := newTestEngine(t)
	room, players := waitingRoom(t, engine, "alice")
	require.NoError(t, engine.Lifecycle.BeginSubmission(room.ID))

	err := engine.Pool.Submit(players[0].ID, []string{"only one"})
	require.Error(t, err)

	texts := sampleActions("alice")
	texts[2] = ""
	err = engine.Pool.Submit(players[0].ID, texts)
	require.Error(t, err)

	// Nothing was persisted by the rejected submissions.
	actions, err := listActions(engine.Store, room.ID, false, false)
	require.NoError(t, err)
	require.Empty(t, actions)
}

func TestSubmitOnlyDuringSubmissionWindow(t *testing.T) {
	engine := newTestEngine(t)
	room, players := waitingRoom(t, engine, "alice")

	// Too early: the room is still gathering players.
	require.ErrorIs(t, engine.Pool.Submit(players[0].ID, sampleActions("alice")), ErrInvalidTransition)

	actions, err := listActions(engine.Store, room.ID, false, false)
	require.NoError(t, err)
	require.Empty(t, actions)
}

func TestLateJoinerCannotSubmitIntoRunningGame(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice", "bob")

	// Prime the draw order before the late joiner shows up.
	_, err := engine.Pool.LoadAvailable(room.ID)
	require.NoError(t, err)

	late, err := engine.Lifecycle.JoinRoom(room.Code, "carol")
	require.NoError(t, err)
	require.ErrorIs(t, engine.Pool.Submit(late.ID, sampleActions("carol")), ErrInvalidTransition)

	actions, err := listActions(engine.Store, room.ID, false, false)
	require.NoError(t, err)
	require.Len(t, actions, 2*testActionsPerPlayer)

	// Every stored prompt still plays out before the room ends.
	for round := 0; round < 2*testActionsPerPlayer; round++ {
		exhausted, err := engine.Pool.Exhausted(room.ID)
		require.NoError(t, err)
		require.False(t, exhausted)
		require.NoError(t, engine.Coordinator.CommitSelection(room.ID))
		require.NoError(t, engine.Coordinator.Acknowledge(room.ID))
	}
	_, _, err = getRoom(engine.Store, room.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSubmitTwiceRejected(t *testing.T) {
	engine := newTestEngine(t)
	room, players := waitingRoom(t, engine, "alice", "bob")
	require.NoError(t, engine.Lifecycle.BeginSubmission(room.ID))

	require.NoError(t, engine.Pool.Submit(players[0].ID, sampleActions("alice")))
	require.ErrorIs(t, engine.Pool.Submit(players[0].ID, sampleActions("again")), ErrAlreadySubmitted)

	actions, err := listActions(engine.Store, room.ID, false, false)
	require.NoError(t, err)
	require.Len(t, actions, testActionsPerPlayer)
}

func TestDrawOrderIsSticky(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice", "bob")

	first, err := engine.Pool.LoadAvailable(room.ID)
	require.NoError(t, err)
	require.Len(t, first, 2*testActionsPerPlayer)

	second, err := engine.Pool.LoadAvailable(room.ID)
	require.NoError(t, err)
	require.Equal(t, first, second)

	head, ok, err := engine.Pool.Head(room.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first[0].ID, head.ID)

	// Peeking does not consume.
	again, ok, err := engine.Pool.Head(room.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, head.ID, again.ID)

	engine.Pool.Consume(room.ID, head.ID)
	next, ok, err := engine.Pool.Head(room.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, first[1].ID, next.ID)
}

func TestHeadSkipsItemsUsedElsewhere(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice", "bob")

	queued, err := engine.Pool.LoadAvailable(room.ID)
	require.NoError(t, err)

	// Another client marks the front item used behind our back.
	item, version, err := getAction(engine.Store, queued[0].ID)
	require.NoError(t, err)
	item.Used = true
	_, err = engine.Store.Update(tableActions, item.ID, version, item)
	require.NoError(t, err)

	head, ok, err := engine.Pool.Head(room.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, queued[1].ID, head.ID)
}

func TestExhausted(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice")

	exhausted, err := engine.Pool.Exhausted(room.ID)
	require.NoError(t, err)
	require.False(t, exhausted)

	for {
		head, ok, err := engine.Pool.Head(room.ID)
		require.NoError(t, err)
		if !ok {
			break
		}
		item, version, err := getAction(engine.Store, head.ID)
		require.NoError(t, err)
		item.Used = true
		_, err = engine.Store.Update(tableActions, item.ID, version, item)
		require.NoError(t, err)
		engine.Pool.Consume(room.ID, head.ID)
	}

	exhausted, err = engine.Pool.Exhausted(room.ID)
	require.NoError(t, err)
	require.True(t, exhausted)
}
