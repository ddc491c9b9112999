package game

import (
	"math/rand"

	"go.uber.org/zap"

	"dare-wheel/internal/monitor"
	"dare-wheel/internal/store"
)

// Phase is the coordinator's view of a room's turn cycle, derived from the
// shared game state so every client computes the same answer.
type Phase string

const (
	PhaseIdle            Phase = "idle"
	PhaseReadyCollecting Phase = "ready-collecting"
	PhaseSpinning        Phase = "spinning"
	PhaseRevealed        Phase = "revealed"
)

// Coordinator drives the spin protocol. Every connected client runs one
// instance against the same store; correctness never depends on which
// instance acts first because all shared writes are version-guarded.
type Coordinator struct {
	store     store.Store
	pool      *Pool
	lifecycle *Lifecycle
	metrics   *monitor.Metrics
	log       *zap.SugaredLogger
}

func NewCoordinator(st store.Store, pool *Pool, lifecycle *Lifecycle, metrics *monitor.Metrics, log *zap.SugaredLogger) *Coordinator {
	return &Coordinator{store: st, pool: pool, lifecycle: lifecycle, metrics: metrics, log: log}
}

// SignalReady records that a player wants the next spin. The player's
// ready_for_next_round flag is the dedup guard: it flips false->true under
// CAS, so a duplicate signal in the same round never double-counts. The
// increment only lands in the round the flag was set for: if the round
// moves underneath (an acknowledge swept the flags between the two writes),
// the signal is withdrawn instead of leaking into the next round's count.
// When the increment brings the count to quorum the caller attempts the
// commit itself; a lost commit race is expected and swallowed.
func (c *Coordinator) SignalReady(roomID, playerID string) error {
	room, _, err := getRoom(c.store, roomID)
	if err != nil {
		return err
	}
	if room.Status != RoomPlaying {
		return ErrInvalidTransition
	}
	state, _, err := getGameState(c.store, roomID)
	if err != nil {
		return err
	}
	if state.CurrentActionID != "" {
		// A turn is still revealed; this round's count is settled.
		return ErrConflict
	}
	round := state.Round

	counted := false
	for attempt := 0; ; attempt++ {
		player, version, err := getPlayer(c.store, playerID)
		if err != nil {
			return err
		}
		if player.RoomID != roomID {
			return ErrNotFound
		}
		if player.ReadyForNextRound {
			break // already counted this round
		}
		player.ReadyForNextRound = true
		if _, err := c.store.Update(tablePlayers, playerID, version, player); err == nil {
			counted = true
			break
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}
	if !counted {
		return nil
	}

	readyCount := 0
	for attempt := 0; ; attempt++ {
		state, version, err := getGameState(c.store, roomID)
		if err != nil {
			return err
		}
		if state.Round != round || state.CurrentActionID != "" {
			return c.withdrawReady(playerID)
		}
		state.ReadyCount++
		readyCount = state.ReadyCount
		if _, err := c.store.Update(tableGameState, roomID, version, state); err == nil {
			break
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}

	players, err := listPlayers(c.store, roomID)
	if err != nil {
		return err
	}
	c.log.Debugw("ready signal counted", "room", roomID, "player", playerID, "ready", readyCount, "quorum", len(players))
	if readyCount >= len(players) {
		if err := c.CommitSelection(roomID); err != nil && err != ErrConflict {
			return err
		}
	}
	return nil
}

// CommitSelection resolves the round: it pairs the head of the pre-shuffled
// pool with a player drawn uniformly from the roster and publishes both.
// The CAS on the game-state version with the current_action_id==empty
// precondition guarantees a single winner per round; losers get ErrConflict
// and must discard, never retry-and-overwrite. An empty pool ends the game.
func (c *Coordinator) CommitSelection(roomID string) error {
	state, version, err := getGameState(c.store, roomID)
	if err != nil {
		return err
	}
	if state.CurrentActionID != "" {
		c.metrics.CommitConflicts.Inc()
		return ErrConflict
	}

	action, ok, err := c.pool.Head(roomID)
	if err != nil {
		return err
	}
	if !ok {
		c.log.Infow("action pool exhausted, ending game", "room", roomID)
		return c.lifecycle.Terminate(roomID)
	}

	players, err := listPlayers(c.store, roomID)
	if err != nil {
		return err
	}
	if len(players) == 0 {
		return c.lifecycle.Terminate(roomID)
	}
	chosen := players[rand.Intn(len(players))]

	state.CurrentPlayerID = chosen.ID
	state.CurrentActionID = action.ID
	state.DialogOpen = true
	state.ReadyCount = 0
	state.AnimationState = AnimationSpinning
	if _, err := c.store.Update(tableGameState, roomID, version, state); err != nil {
		// Another coordinator committed this round first.
		c.metrics.CommitConflicts.Inc()
		return mapStoreErr(err)
	}

	c.pool.Consume(roomID, action.ID)
	if err := c.markActionUsed(action.ID); err != nil {
		return err
	}
	if err := c.updateSelectionFlags(players, chosen.ID); err != nil {
		return err
	}

	c.metrics.SpinsTotal.Inc()
	c.rec().TurnCommitted(roomID, chosen.ID, action.ID)
	c.log.Infow("turn committed", "room", roomID, "player", chosen.Username, "action", action.ID)
	return nil
}

// Acknowledge closes the revealed turn and re-arms the room for the next
// round. It is open to the whole room, not just the selected player, because
// shared-device play is normal. When the pool ran dry the room terminates
// instead of going idle.
func (c *Coordinator) Acknowledge(roomID string) error {
	for attempt := 0; ; attempt++ {
		state, version, err := getGameState(c.store, roomID)
		if err != nil {
			return err
		}
		if state.CurrentActionID == "" && state.CurrentPlayerID == "" {
			return nil // already acknowledged
		}
		state.CurrentPlayerID = ""
		state.CurrentActionID = ""
		state.DialogOpen = false
		state.ReadyCount = 0
		state.Round++
		state.AnimationState = AnimationIdle
		if _, err := c.store.Update(tableGameState, roomID, version, state); err == nil {
			break
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}

	players, err := listPlayers(c.store, roomID)
	if err != nil {
		return err
	}
	if err := c.updateSelectionFlags(players, ""); err != nil {
		return err
	}

	c.rec().TurnAcknowledged(roomID)

	exhausted, err := c.pool.Exhausted(roomID)
	if err != nil {
		return err
	}
	if exhausted {
		c.log.Infow("all actions done", "room", roomID)
		return c.lifecycle.Terminate(roomID)
	}
	return nil
}

// CurrentPhase derives the turn phase from shared state.
func (c *Coordinator) CurrentPhase(roomID string) (Phase, error) {
	state, _, err := getGameState(c.store, roomID)
	if err != nil {
		return "", err
	}
	players, err := listPlayers(c.store, roomID)
	if err != nil {
		return "", err
	}
	switch {
	case state.DialogOpen:
		return PhaseRevealed, nil
	case state.CurrentActionID != "":
		return PhaseSpinning, nil
	case state.ReadyCount >= len(players) && len(players) > 0:
		return PhaseSpinning, nil
	case state.ReadyCount > 0:
		return PhaseReadyCollecting, nil
	default:
		return PhaseIdle, nil
	}
}

// withdrawReady clears a ready flag whose round ended before the count
// caught up, so the player can re-signal cleanly in the new round.
func (c *Coordinator) withdrawReady(playerID string) error {
	for attempt := 0; ; attempt++ {
		player, version, err := getPlayer(c.store, playerID)
		if err == ErrNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		if !player.ReadyForNextRound {
			return nil
		}
		player.ReadyForNextRound = false
		if _, err := c.store.Update(tablePlayers, playerID, version, player); err == nil {
			return nil
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}
}

// markActionUsed flips the monotonic used bit on the committed action.
// Only the commit winner reaches this point, so a conflict here means a
// duplicate delivery already did the work.
func (c *Coordinator) markActionUsed(actionID string) error {
	for attempt := 0; ; attempt++ {
		action, version, err := getAction(c.store, actionID)
		if err != nil {
			return err
		}
		if action.Used {
			return nil
		}
		action.Used = true
		if _, err := c.store.Update(tableActions, actionID, version, action); err == nil {
			return nil
		} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
			return mapStoreErr(err)
		}
	}
}

// updateSelectionFlags sets is_selected on the chosen player and clears any
// stale flag left by the previous round. Pass an empty id to clear all.
func (c *Coordinator) updateSelectionFlags(players []Player, chosenID string) error {
	for _, player := range players {
		want := player.ID == chosenID
		clearReady := chosenID == "" // acknowledge also re-arms ready flags
		if player.IsSelected == want && !(clearReady && player.ReadyForNextRound) {
			continue
		}
		for attempt := 0; ; attempt++ {
			current, version, err := getPlayer(c.store, player.ID)
			if err == ErrNotFound {
				break
			}
			if err != nil {
				return err
			}
			current.IsSelected = current.ID == chosenID
			if clearReady {
				current.ReadyForNextRound = false
			}
			if _, err := c.store.Update(tablePlayers, player.ID, version, current); err == nil {
				break
			} else if mapStoreErr(err) != ErrConflict || attempt >= casRetries {
				return mapStoreErr(err)
			}
		}
	}
	return nil
}

func (c *Coordinator) rec() *Recorder {
	return c.lifecycle.rec
}
