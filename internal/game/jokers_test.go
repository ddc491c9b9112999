package game

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyDifficultyResetsEveryBalance(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := waitingRoom(t, engine, "alice", "bob", "carol", "dave")

	require.NoError(t, engine.Lifecycle.SetDifficulty(room.ID, DifficultyHard))

	state, _, err := getGameState(engine.Store, room.ID)
	require.NoError(t, err)
	require.Equal(t, DifficultyHard, state.Difficulty)
	require.Equal(t, PenaltyShot, state.JokerPenalty)
	require.NotEmpty(t, state.JokerInfo)
	require.NotEmpty(t, state.HealthWarning)

	players, err := listPlayers(engine.Store, room.ID)
	require.NoError(t, err)
	require.Len(t, players, 4)
	for _, player := range players {
		require.Equal(t, 3, player.JokersCount)
	}
}

func TestSetDifficultyOnlyWhileWaiting(t *testing.T) {
	engine := newTestEngine(t)
	room, _ := playingRoom(t, engine, "alice", "bob")
	require.ErrorIs(t, engine.Lifecycle.SetDifficulty(room.ID, DifficultyEasy), ErrInvalidTransition)
}

func TestLateJoinerGetsCurrentDifficultyBalance(t *testing.T) {
	engine := newTestEngine(t)
	room, _, err := engine.Lifecycle.CreateRoom("alice")
	require.NoError(t, err)
	require.NoError(t, engine.Lifecycle.SetDifficulty(room.ID, DifficultyEasy))

	joiner, err := engine.Lifecycle.JoinRoom(room.Code, "bob")
	require.NoError(t, err)
	require.Equal(t, 3, joiner.JokersCount)
}

func TestUseJokerStopsAtZero(t *testing.T) {
	engine := newTestEngine(t)
	_, players := waitingRoom(t, engine, "alice") // sober: one joker, no penalty

	penalty, err := engine.Jokers.UseJoker(players[0].ID)
	require.NoError(t, err)
	require.NotEmpty(t, penalty)

	player, _, err := getPlayer(engine.Store, players[0].ID)
	require.NoError(t, err)
	require.Equal(t, 0, player.JokersCount)

	_, err = engine.Jokers.UseJoker(players[0].ID)
	require.ErrorIs(t, err, ErrNoJokersRemaining)

	player, _, err = getPlayer(engine.Store, players[0].ID)
	require.NoError(t, err)
	require.Equal(t, 0, player.JokersCount)
}

func TestUseJokerPenaltyFollowsDifficulty(t *testing.T) {
	engine := newTestEngine(t)
	room, players := waitingRoom(t, engine, "alice", "bob")
	require.NoError(t, engine.Lifecycle.SetDifficulty(room.ID, DifficultyHard))

	penalty, err := engine.Jokers.UseJoker(players[1].ID)
	require.NoError(t, err)
	require.Equal(t, difficultyPresets[DifficultyHard].penaltyText, penalty)

	player, _, err := getPlayer(engine.Store, players[1].ID)
	require.NoError(t, err)
	require.Equal(t, 2, player.JokersCount)
}
