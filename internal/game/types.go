package game

import "time"

// Store table names. The same four tables back the Postgres mirror.
const (
	tableRooms     = "rooms"
	tablePlayers   = "players"
	tableActions   = "player_actions"
	tableGameState = "game_state"
)

type RoomStatus string

const (
	RoomWaiting    RoomStatus = "waiting"
	RoomSubmitting RoomStatus = "submitting"
	RoomPlaying    RoomStatus = "playing"
	RoomTerminated RoomStatus = "terminated"
)

type Difficulty string

const (
	DifficultySober Difficulty = "sober"
	DifficultyEasy  Difficulty = "easy"
	DifficultyHard  Difficulty = "hard"
)

type Penalty string

const (
	PenaltyNone Penalty = "none"
	PenaltySips Penalty = "sips"
	PenaltyShot Penalty = "shot"
)

// Animation hints published for clients. The core only flips the value on
// discrete transitions; the actual wheel/slot rendering is client business.
const (
	AnimationIdle     = "idle"
	AnimationSpinning = "spinning"
)

// Room is an isolated game session joined through a short code.
type Room struct {
	ID        string
	Code      string
	Status    RoomStatus
	CreatedAt time.Time
}

type Player struct {
	ID                string
	RoomID            string
	Username          string
	IsHost            bool
	HasSubmitted      bool
	IsSelected        bool
	ReadyForNextRound bool
	JokersCount       int
	JoinedAt          time.Time
}

// ActionItem is a single dare/question prompt. Used flips false→true exactly
// once and never back; exhausted items stay in the table for the audit trail.
type ActionItem struct {
	ID        string
	PlayerID  string
	RoomID    string
	Text      string
	Used      bool
	CreatedAt time.Time
}

// GameState is the per-room singleton every connected client contends on.
// Its store id is the room id. CurrentPlayerID/CurrentActionID empty means
// no turn is active. Round increments on every acknowledgment so ready
// signals can tell which round they belong to.
type GameState struct {
	RoomID          string
	CurrentPlayerID string
	CurrentActionID string
	ReadyCount      int
	Round           int
	DialogOpen      bool
	Difficulty      Difficulty
	JokerPenalty    Penalty
	AnimationState  string
	JokerInfo       string
	HealthWarning   string
}

func ParseDifficulty(raw string) (Difficulty, bool) {
	switch Difficulty(raw) {
	case DifficultySober, DifficultyEasy, DifficultyHard:
		return Difficulty(raw), true
	}
	return "", false
}
