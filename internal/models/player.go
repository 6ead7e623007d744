package models

import "github.com/google/uuid"

// Player is the durable player record. Hand and RoomID are nil whenever the
// player is not seated at a table; both are mutated only through the game
// engine. Username is fixed at registration (3-30 chars, unique).
type Player struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Password string    `json:"-"` // argon2id hash, owned by the auth package

	RoomID *uuid.UUID `json:"room_id,omitempty"`
	Hand   []Card     `json:"hand,omitempty"`
}
