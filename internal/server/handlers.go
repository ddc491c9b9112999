package server

import (
	"net/http"
	"strings"

	"dare-wheel/internal/game"
)

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "username is required")
		return
	}
	room, host, err := s.engine.Lifecycle.CreateRoom(req.Username)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"room":   roomPayload(room),
		"player": playerPayload(host),
	})
}

func (s *Server) handleJoinRoom(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code     string `json:"code"`
		Username string `json:"username"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Code) == "" || strings.TrimSpace(req.Username) == "" {
		writeError(w, http.StatusBadRequest, "code and username are required")
		return
	}
	player, err := s.engine.Lifecycle.JoinRoom(req.Code, req.Username)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"player": playerPayload(player),
	})
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot, err := s.engine.Snapshot(r.PathValue("id"))
	if err != nil {
		writeGameError(w, err)
		return
	}
	payload := snapshotPayload(snapshot)
	// Reveal the committed prompt's text; authorship stays hidden.
	if snapshot.State.CurrentActionID != "" {
		if action, err := s.engine.Action(snapshot.State.CurrentActionID); err == nil {
			payload["current_action_text"] = action.Text
		}
	}
	writeJSON(w, http.StatusOK, payload)
}

func (s *Server) handleSetDifficulty(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID   string `json:"player_id"`
		Difficulty string `json:"difficulty"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	difficulty, ok := game.ParseDifficulty(req.Difficulty)
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown difficulty")
		return
	}
	if !s.requireHost(w, r.PathValue("id"), req.PlayerID) {
		return
	}
	if err := s.engine.Lifecycle.SetDifficulty(r.PathValue("id"), difficulty); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleBeginSubmission(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !s.requireHost(w, r.PathValue("id"), req.PlayerID) {
		return
	}
	if err := s.engine.Lifecycle.BeginSubmission(r.PathValue("id")); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSubmitActions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string   `json:"player_id"`
		Actions  []string `json:"actions"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	for i := range req.Actions {
		req.Actions[i] = strings.TrimSpace(req.Actions[i])
	}
	if err := s.engine.Pool.Submit(req.PlayerID, req.Actions); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSignalReady(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	err := s.engine.Coordinator.SignalReady(r.PathValue("id"), req.PlayerID)
	if err == game.ErrConflict {
		// Lost a benign race; the round is proceeding either way.
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		return
	}
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleAcknowledge(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Coordinator.Acknowledge(r.PathValue("id")); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleUseJoker(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PlayerID string `json:"player_id"`
	}
	if err := readJSON(r.Body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	penalty, err := s.engine.Jokers.UseJoker(req.PlayerID)
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"penalty": penalty,
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Lifecycle.Terminate(r.PathValue("id")); err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

// requireHost rejects host-only commands from non-host players.
func (s *Server) requireHost(w http.ResponseWriter, roomID, playerID string) bool {
	snapshot, err := s.engine.Snapshot(roomID)
	if err != nil {
		writeGameError(w, err)
		return false
	}
	for _, player := range snapshot.Players {
		if player.ID == playerID && player.IsHost {
			return true
		}
	}
	writeError(w, http.StatusForbidden, "host only")
	return false
}

func roomPayload(room game.Room) map[string]any {
	return map[string]any{
		"id":     room.ID,
		"code":   room.Code,
		"status": string(room.Status),
	}
}

func playerPayload(player game.Player) map[string]any {
	return map[string]any{
		"id":                   player.ID,
		"room_id":              player.RoomID,
		"username":             player.Username,
		"is_host":              player.IsHost,
		"has_submitted":        player.HasSubmitted,
		"is_selected":          player.IsSelected,
		"ready_for_next_round": player.ReadyForNextRound,
		"jokers_count":         player.JokersCount,
	}
}

func statePayload(state game.GameState) map[string]any {
	return map[string]any{
		"room_id":           state.RoomID,
		"current_player_id": state.CurrentPlayerID,
		"current_action_id": state.CurrentActionID,
		"ready_count":       state.ReadyCount,
		"round":             state.Round,
		"dialog_open":       state.DialogOpen,
		"difficulty":        string(state.Difficulty),
		"joker_penalty":     string(state.JokerPenalty),
		"animation_state":   state.AnimationState,
		"joker_info":        state.JokerInfo,
		"health_warning":    state.HealthWarning,
	}
}

func snapshotPayload(snapshot game.Snapshot) map[string]any {
	players := make([]map[string]any, 0, len(snapshot.Players))
	for _, player := range snapshot.Players {
		players = append(players, playerPayload(player))
	}
	payload := map[string]any{
		"room":              roomPayload(snapshot.Room),
		"players":           players,
		"state":             statePayload(snapshot.State),
		"remaining_actions": snapshot.Remaining,
		"phase":             string(snapshot.Phase),
	}
	return payload
}
