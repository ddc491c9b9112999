package game

import (
	"fmt"

	"go.uber.org/zap"

	"dare-wheel/internal/monitor"
	"dare-wheel/internal/store"
)

// casRetries bounds every read-modify-write loop in the package. The loops
// only retry on version conflicts, so contention this deep means something
// is wrong and the caller gets ErrConflict.
const casRetries = 16

type difficultyPreset struct {
	jokers        int
	penalty       Penalty
	penaltyText   string
	jokerInfo     string
	healthWarning string
}

var difficultyPresets = map[Difficulty]difficultyPreset{
	DifficultySober: {
		jokers:      1,
		penalty:     PenaltyNone,
		penaltyText: "No penalty, enjoy your free pass.",
		jokerInfo:   "One joker per player, skipping is free.",
	},
	DifficultyEasy: {
		jokers:        3,
		penalty:       PenaltySips,
		penaltyText:   "Take 3 sips.",
		jokerInfo:     "Three jokers per player, each costs 3 sips.",
		healthWarning: "Drink responsibly and look out for each other.",
	},
	DifficultyHard: {
		jokers:        3,
		penalty:       PenaltyShot,
		penaltyText:   "Down a shot.",
		jokerInfo:     "Three jokers per player, each costs a shot.",
		healthWarning: "Drink responsibly and look out for each other.",
	},
}

// Jokers manages the per-player skip resource governed by the room-wide
// difficulty setting.
type Jokers struct {
	store   store.Store
	rec     *Recorder
	metrics *monitor.Metrics
	log     *zap.SugaredLogger
}

func NewJokers(st store.Store, rec *Recorder, metrics *monitor.Metrics, log *zap.SugaredLogger) *Jokers {
	return &Jokers{store: st, rec: rec, metrics: metrics, log: log}
}

// JokersForDifficulty returns the starting balance for a difficulty.
func JokersForDifficulty(difficulty Difficulty) int {
	return difficultyPresets[difficulty].jokers
}

// ApplyDifficulty writes the preset penalty to the room state and resets
// every player's balance to the preset count. Each write is a CAS loop so
// concurrent difficulty changes converge on a single preset with no player
// left holding a stale count.
func (j *Jokers) ApplyDifficulty(roomID string, difficulty Difficulty) error {
	preset, ok := difficultyPresets[difficulty]
	if !ok {
		return fmt.Errorf("unknown difficulty %q", difficulty)
	}

	for attempt := 0; ; attempt++ {
		state, version, err := getGameState(j.store, roomID)
		if err != nil {
			return err
		}
		state.Difficulty = difficulty
		state.JokerPenalty = preset.penalty
		state.JokerInfo = preset.jokerInfo
		state.HealthWarning = preset.healthWarning
		if _, err := j.store.Update(tableGameState, roomID, version, state); err == nil {
			break
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}

	players, err := listPlayers(j.store, roomID)
	if err != nil {
		return err
	}
	for _, player := range players {
		if err := j.resetBalance(player.ID, preset.jokers); err != nil {
			return err
		}
	}

	j.rec.DifficultySet(roomID, string(difficulty))
	j.log.Infow("difficulty applied", "room", roomID, "difficulty", difficulty, "jokers", preset.jokers)
	return nil
}

func (j *Jokers) resetBalance(playerID string, jokers int) error {
	for attempt := 0; ; attempt++ {
		player, version, err := getPlayer(j.store, playerID)
		if err != nil {
			return err
		}
		player.JokersCount = jokers
		_, err = j.store.Update(tablePlayers, playerID, version, player)
		if err == nil {
			return nil
		}
		if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}
}

// UseJoker decrements the player's balance and returns the penalty text for
// the room's current setting. It never drives the balance below zero and it
// does not touch the active turn: the caller still has to acknowledge.
func (j *Jokers) UseJoker(playerID string) (string, error) {
	var player Player
	for attempt := 0; ; attempt++ {
		var version uint64
		var err error
		player, version, err = getPlayer(j.store, playerID)
		if err != nil {
			return "", err
		}
		if player.JokersCount <= 0 {
			return "", ErrNoJokersRemaining
		}
		player.JokersCount--
		if _, err := j.store.Update(tablePlayers, playerID, version, player); err == nil {
			break
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return "", mapStoreErr(err)
		}
	}

	state, _, err := getGameState(j.store, player.RoomID)
	if err != nil {
		return "", err
	}
	preset := difficultyPresets[state.Difficulty]

	j.metrics.JokersUsed.Inc()
	j.rec.JokerUsed(player.RoomID, playerID)
	j.log.Infow("joker used", "room", player.RoomID, "player", playerID, "remaining", player.JokersCount)
	return preset.penaltyText, nil
}
