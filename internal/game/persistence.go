package game

import (
	"encoding/json"
	"errors"

	"github.com/jackc/pgconn"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"dare-wheel/internal/db"
)

// Recorder mirrors accepted mutations into Postgres and appends an audit
// event per logical change. The in-memory store stays authoritative for
// live play; the mirror is best-effort, so a failed write is logged and the
// game carries on. A nil *gorm.DB disables the mirror entirely (tests).
type Recorder struct {
	db  *gorm.DB
	log *zap.SugaredLogger
}

func NewRecorder(conn *gorm.DB, log *zap.SugaredLogger) *Recorder {
	return &Recorder{db: conn, log: log}
}

type eventPayload struct {
	Code       string `json:"code,omitempty"`
	Username   string `json:"username,omitempty"`
	Status     string `json:"status,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	ActionID   string `json:"action_id,omitempty"`
	Count      int    `json:"count,omitempty"`
}

func (r *Recorder) RoomCreated(room Room, host Player) {
	if r.db == nil {
		return
	}
	record := db.Room{
		ID:        room.ID,
		Code:      room.Code,
		Status:    string(room.Status),
		CreatedAt: room.CreatedAt,
	}
	if err := r.db.Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			r.log.Warnw("mirror room insert failed", "room", room.ID, "err", err)
		}
		return
	}
	state := db.GameState{
		RoomID:         room.ID,
		Difficulty:     string(DifficultySober),
		JokerPenalty:   string(PenaltyNone),
		AnimationState: AnimationIdle,
	}
	if err := r.db.Create(&state).Error; err != nil {
		r.log.Warnw("mirror game state insert failed", "room", room.ID, "err", err)
	}
	r.PlayerJoined(room.ID, host)
	r.event(room.ID, nil, "room_created", eventPayload{Code: room.Code})
}

func (r *Recorder) PlayerJoined(roomID string, player Player) {
	if r.db == nil {
		return
	}
	record := db.Player{
		ID:          player.ID,
		RoomID:      roomID,
		Username:    player.Username,
		IsHost:      player.IsHost,
		JokersCount: player.JokersCount,
		JoinedAt:    player.JoinedAt,
	}
	if err := r.db.Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			r.log.Warnw("mirror player insert failed", "player", player.ID, "err", err)
		}
		return
	}
	r.event(roomID, &player.ID, "player_joined", eventPayload{Username: player.Username})
}

func (r *Recorder) ActionsSubmitted(roomID, playerID string, items []ActionItem) {
	if r.db == nil {
		return
	}
	for _, item := range items {
		record := db.ActionItem{
			ID:        item.ID,
			RoomID:    roomID,
			PlayerID:  playerID,
			Text:      item.Text,
			CreatedAt: item.CreatedAt,
		}
		if err := r.db.Create(&record).Error; err != nil && !isUniqueViolation(err) {
			r.log.Warnw("mirror action insert failed", "action", item.ID, "err", err)
		}
	}
	if err := r.db.Model(&db.Player{}).Where("id = ?", playerID).
		Update("has_submitted", true).Error; err != nil {
		r.log.Warnw("mirror player update failed", "player", playerID, "err", err)
	}
	r.event(roomID, &playerID, "actions_submitted", eventPayload{Count: len(items)})
}

func (r *Recorder) DifficultySet(roomID, difficulty string) {
	if r.db == nil {
		return
	}
	preset := difficultyPresets[Difficulty(difficulty)]
	if err := r.db.Model(&db.GameState{}).Where("room_id = ?", roomID).Updates(map[string]any{
		"difficulty":    difficulty,
		"joker_penalty": string(preset.penalty),
	}).Error; err != nil {
		r.log.Warnw("mirror difficulty update failed", "room", roomID, "err", err)
	}
	if err := r.db.Model(&db.Player{}).Where("room_id = ?", roomID).
		Update("jokers_count", preset.jokers).Error; err != nil {
		r.log.Warnw("mirror joker reset failed", "room", roomID, "err", err)
	}
	r.event(roomID, nil, "difficulty_set", eventPayload{Difficulty: difficulty})
}

func (r *Recorder) StatusChanged(roomID, status string) {
	if r.db == nil {
		return
	}
	if err := r.db.Model(&db.Room{}).Where("id = ?", roomID).
		Update("status", status).Error; err != nil {
		r.log.Warnw("mirror status update failed", "room", roomID, "err", err)
	}
	r.event(roomID, nil, "room_status_changed", eventPayload{Status: status})
}

func (r *Recorder) TurnCommitted(roomID, playerID, actionID string) {
	if r.db == nil {
		return
	}
	if err := r.db.Model(&db.ActionItem{}).Where("id = ?", actionID).
		Update("used", true).Error; err != nil {
		r.log.Warnw("mirror action update failed", "action", actionID, "err", err)
	}
	if err := r.db.Model(&db.GameState{}).Where("room_id = ?", roomID).Updates(map[string]any{
		"current_player_id": playerID,
		"current_action_id": actionID,
		"dialog_open":       true,
		"ready_count":       0,
	}).Error; err != nil {
		r.log.Warnw("mirror game state update failed", "room", roomID, "err", err)
	}
	r.event(roomID, &playerID, "turn_committed", eventPayload{ActionID: actionID})
}

func (r *Recorder) TurnAcknowledged(roomID string) {
	if r.db == nil {
		return
	}
	if err := r.db.Model(&db.GameState{}).Where("room_id = ?", roomID).Updates(map[string]any{
		"current_player_id": nil,
		"current_action_id": nil,
		"dialog_open":       false,
		"ready_count":       0,
		"round":             gorm.Expr("round + 1"),
	}).Error; err != nil {
		r.log.Warnw("mirror game state update failed", "room", roomID, "err", err)
	}
	r.event(roomID, nil, "turn_acknowledged", eventPayload{})
}

func (r *Recorder) JokerUsed(roomID, playerID string) {
	if r.db == nil {
		return
	}
	if err := r.db.Model(&db.Player{}).Where("id = ?", playerID).
		Update("jokers_count", gorm.Expr("GREATEST(jokers_count - 1, 0)")).Error; err != nil {
		r.log.Warnw("mirror joker update failed", "player", playerID, "err", err)
	}
	r.event(roomID, &playerID, "joker_used", eventPayload{})
}

// RoomTerminated removes the mirrored room. The audit events stay behind;
// they reference the room by id only.
func (r *Recorder) RoomTerminated(room Room) {
	if r.db == nil {
		return
	}
	r.event(room.ID, nil, "room_terminated", eventPayload{Code: room.Code})
	for _, step := range []error{
		r.db.Where("room_id = ?", room.ID).Delete(&db.GameState{}).Error,
		r.db.Where("room_id = ?", room.ID).Delete(&db.ActionItem{}).Error,
		r.db.Where("room_id = ?", room.ID).Delete(&db.Player{}).Error,
		r.db.Where("id = ?", room.ID).Delete(&db.Room{}).Error,
	} {
		if step != nil {
			r.log.Warnw("mirror room cleanup failed", "room", room.ID, "err", step)
		}
	}
}

func (r *Recorder) event(roomID string, playerID *string, eventType string, payload eventPayload) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	record := db.Event{
		RoomID:   roomID,
		PlayerID: playerID,
		Type:     eventType,
		Payload:  datatypes.JSON(data),
	}
	if err := r.db.Create(&record).Error; err != nil {
		r.log.Warnw("audit event insert failed", "room", roomID, "type", eventType, "err", err)
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
