package db

import (
	"time"

	"gorm.io/datatypes"
)

type Room struct {
	ID        string    `gorm:"primaryKey;size:36"`
	Code      string    `gorm:"size:12;uniqueIndex;not null"`
	Status    string    `gorm:"size:32;not null"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Players   []Player  `gorm:"constraint:OnDelete:CASCADE"`
	Events    []Event   `gorm:"constraint:OnDelete:CASCADE"`
}

type Player struct {
	ID           string    `gorm:"primaryKey;size:36"`
	RoomID       string    `gorm:"size:36;index;not null"`
	Username     string    `gorm:"size:64;not null"`
	IsHost       bool      `gorm:"not null;default:false"`
	HasSubmitted bool      `gorm:"not null;default:false"`
	IsSelected   bool      `gorm:"not null;default:false"`
	JokersCount  int       `gorm:"not null;default:0"`
	JoinedAt     time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

type ActionItem struct {
	ID        string    `gorm:"primaryKey;size:36"`
	RoomID    string    `gorm:"size:36;index;not null"`
	PlayerID  string    `gorm:"size:36;index;not null"`
	Text      string    `gorm:"size:280;not null"`
	Used      bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type GameState struct {
	RoomID          string    `gorm:"primaryKey;size:36"`
	CurrentPlayerID *string   `gorm:"size:36"`
	CurrentActionID *string   `gorm:"size:36"`
	ReadyCount      int       `gorm:"not null;default:0"`
	Round           int       `gorm:"not null;default:0"`
	DialogOpen      bool      `gorm:"not null;default:false"`
	Difficulty      string    `gorm:"size:16;not null;default:sober"`
	JokerPenalty    string    `gorm:"size:16;not null;default:none"`
	AnimationState  string    `gorm:"size:16;not null;default:idle"`
	CreatedAt       time.Time `gorm:"not null"`
	UpdatedAt       time.Time `gorm:"not null"`
}

type Event struct {
	ID        uint           `gorm:"primaryKey"`
	RoomID    string         `gorm:"size:36;index;not null"`
	PlayerID  *string        `gorm:"size:36;index"`
	Type      string         `gorm:"size:64;not null"`
	Payload   datatypes.JSON `gorm:"type:jsonb;not null"`
	CreatedAt time.Time      `gorm:"not null"`
}
