package game

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dare-wheel/internal/monitor"
	"dare-wheel/internal/store"
)

// Lifecycle drives the room state machine:
// Waiting -> Submitting -> Playing -> Terminated.
type Lifecycle struct {
	store   store.Store
	jokers  *Jokers
	pool    *Pool
	rec     *Recorder
	metrics *monitor.Metrics
	log     *zap.SugaredLogger
}

func NewLifecycle(st store.Store, jokers *Jokers, pool *Pool, rec *Recorder, metrics *monitor.Metrics, log *zap.SugaredLogger) *Lifecycle {
	return &Lifecycle{store: st, jokers: jokers, pool: pool, rec: rec, metrics: metrics, log: log}
}

// CreateRoom inserts a Waiting room with a fresh join code, its singleton
// game state, and the host player.
func (l *Lifecycle) CreateRoom(hostUsername string) (Room, Player, error) {
	hostUsername = strings.TrimSpace(hostUsername)
	now := time.Now().UTC()

	room := Room{
		ID:        uuid.NewString(),
		Status:    RoomWaiting,
		CreatedAt: now,
	}
	for attempt := 0; ; attempt++ {
		room.Code = newRoomCode()
		if _, _, err := findRoomByCode(l.store, room.Code); err == ErrNotFound {
			break
		} else if err != nil {
			return Room{}, Player{}, err
		}
		if attempt >= casRetries {
			return Room{}, Player{}, ErrStoreUnavailable
		}
	}
	if err := l.store.Insert(tableRooms, room.ID, room); err != nil {
		return Room{}, Player{}, mapStoreErr(err)
	}

	preset := difficultyPresets[DifficultySober]
	state := GameState{
		RoomID:         room.ID,
		Difficulty:     DifficultySober,
		JokerPenalty:   preset.penalty,
		JokerInfo:      preset.jokerInfo,
		AnimationState: AnimationIdle,
	}
	if err := l.store.Insert(tableGameState, room.ID, state); err != nil {
		return Room{}, Player{}, mapStoreErr(err)
	}

	host := Player{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		Username:    hostUsername,
		IsHost:      true,
		JokersCount: preset.jokers,
		JoinedAt:    now,
	}
	if err := l.store.Insert(tablePlayers, host.ID, host); err != nil {
		return Room{}, Player{}, mapStoreErr(err)
	}

	l.metrics.RoomsActive.Inc()
	l.rec.RoomCreated(room, host)
	l.log.Infow("room created", "room", room.ID, "code", room.Code, "host", host.Username)
	return room, host, nil
}

// JoinRoom adds a non-host player to the room behind the code. The joiner
// starts with the joker balance of the room's current difficulty.
func (l *Lifecycle) JoinRoom(code, username string) (Player, error) {
	room, _, err := findRoomByCode(l.store, code)
	if err != nil {
		return Player{}, err
	}
	if room.Status == RoomTerminated {
		return Player{}, ErrRoomClosed
	}
	state, _, err := getGameState(l.store, room.ID)
	if err != nil {
		return Player{}, err
	}

	player := Player{
		ID:          uuid.NewString(),
		RoomID:      room.ID,
		Username:    strings.TrimSpace(username),
		JokersCount: JokersForDifficulty(state.Difficulty),
		JoinedAt:    time.Now().UTC(),
	}
	if err := l.store.Insert(tablePlayers, player.ID, player); err != nil {
		return Player{}, mapStoreErr(err)
	}

	l.rec.PlayerJoined(room.ID, player)
	l.log.Infow("player joined", "room", room.ID, "player", player.Username)
	return player, nil
}

// SetDifficulty is only legal while the room is still gathering players.
func (l *Lifecycle) SetDifficulty(roomID string, difficulty Difficulty) error {
	room, _, err := getRoom(l.store, roomID)
	if err != nil {
		return err
	}
	if room.Status != RoomWaiting {
		return ErrInvalidTransition
	}
	return l.jokers.ApplyDifficulty(roomID, difficulty)
}

// BeginSubmission moves Waiting -> Submitting.
func (l *Lifecycle) BeginSubmission(roomID string) error {
	return l.transition(roomID, RoomWaiting, RoomSubmitting)
}

// AdvanceToPlaying moves Submitting -> Playing once every player has
// submitted. Calling it when already Playing is a no-op, which keeps the
// change-feed handler safe under duplicate delivery.
func (l *Lifecycle) AdvanceToPlaying(roomID string) error {
	room, _, err := getRoom(l.store, roomID)
	if err != nil {
		return err
	}
	if room.Status == RoomPlaying {
		return nil
	}
	if room.Status != RoomSubmitting {
		return ErrInvalidTransition
	}
	players, err := listPlayers(l.store, roomID)
	if err != nil {
		return err
	}
	for _, player := range players {
		if !player.HasSubmitted {
			return ErrInvalidTransition
		}
	}
	err = l.transition(roomID, RoomSubmitting, RoomPlaying)
	if err == ErrConflict {
		// Another client advanced first; idempotent from the caller's view.
		if room, _, getErr := getRoom(l.store, roomID); getErr == nil && room.Status == RoomPlaying {
			return nil
		}
	}
	return err
}

// Terminate tears the room down from any state. Dependent records go first
// so the mirror's referential constraints hold: game_state, player_actions,
// players, then the room itself. The room delete is the settlement point:
// whichever caller removes the row owns the audit event and the gauge
// decrement, so concurrent terminations settle once.
func (l *Lifecycle) Terminate(roomID string) error {
	room, _, err := getRoom(l.store, roomID)
	if err == ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	_ = l.store.Delete(tableGameState, roomID)
	l.store.DeleteWhere(tableActions, func(rec any) bool {
		return rec.(ActionItem).RoomID == roomID
	})
	l.store.DeleteWhere(tablePlayers, func(rec any) bool {
		return rec.(Player).RoomID == roomID
	})

	err = l.store.Delete(tableRooms, roomID)
	l.pool.Forget(roomID)
	if err != nil {
		if mapStoreErr(err) == ErrNotFound {
			return nil // another client finished the teardown
		}
		return mapStoreErr(err)
	}

	l.rec.RoomTerminated(room)
	l.metrics.RoomsActive.Dec()
	l.log.Infow("room terminated", "room", roomID, "code", room.Code)
	return nil
}

func (l *Lifecycle) transition(roomID string, from, to RoomStatus) error {
	room, version, err := getRoom(l.store, roomID)
	if err != nil {
		return err
	}
	if room.Status != from {
		return ErrInvalidTransition
	}
	room.Status = to
	if _, err := l.store.Update(tableRooms, roomID, version, room); err != nil {
		return mapStoreErr(err)
	}
	l.rec.StatusChanged(roomID, string(to))
	l.log.Infow("room status changed", "room", roomID, "from", from, "to", to)
	return nil
}
