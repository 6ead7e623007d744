package models

import "github.com/google/uuid"

// RoomStatus tracks the lifecycle of a room: Open accepts joins, InProgress
// runs the turn loop, and a finished round flips the room back to Open so the
// same table can start again.
type RoomStatus string

const (
	RoomOpen       RoomStatus = "open"
	RoomInProgress RoomStatus = "in_progress"
	RoomCompleted  RoomStatus = "completed"
)

// Room is the durable room record. Code is the 6-char join code shared with
// other players; membership lives on Player.RoomID.
type Room struct {
	ID         uuid.UUID  `json:"id"`
	Code       string     `json:"code"`
	Status     RoomStatus `json:"status"`
	CreatorID  uuid.UUID  `json:"creator_id"`
	MaxPlayers int        `json:"max_players"`
}

// RoomCodeLength is the length of generated join codes.
const RoomCodeLength = 6

// DefaultMaxPlayers caps the seats at a table.
const DefaultMaxPlayers = 4
