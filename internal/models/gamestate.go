package models

import "github.com/google/uuid"

// TurnEntry is one seat in the turn order. At most one entry has
// IsPlayerTurn set; while a draw-four challenge is pending nobody does and
// exactly one entry has AwaitingChallengeDecision instead.
type TurnEntry struct {
	Username                  string `json:"username"`
	IsPlayerTurn              bool   `json:"isPlayerTurn"`
	HasDrawnThisTurn          bool   `json:"hasDrawnThisTurn"`
	AwaitingChallengeDecision bool   `json:"awaitingChallengeDecision"`
}

// GameState is the durable state of one in-progress round, 1:1 with a room.
// Deck is a stack drawn from the tail; DiscardPile index 0 is the top (most
// recently played) card. Whenever a round is active,
// len(Deck)+len(DiscardPile)+sum of hand lengths == DeckSize.
type GameState struct {
	ID          uuid.UUID   `json:"id"`
	RoomID      uuid.UUID   `json:"room_id"`
	Deck        []Card      `json:"deck"`
	DiscardPile []Card      `json:"discard_pile"`
	TurnOrder   []TurnEntry `json:"turn_order"`
	Forward     bool        `json:"forward"`
}

// DeckSize is the total number of cards in a full pack.
const DeckSize = 108

// CurrentIndex returns the index of the current-turn seat, or -1 if none
// (a challenge is pending).
func (gs *GameState) CurrentIndex() int {
	for i, e := range gs.TurnOrder {
		if e.IsPlayerTurn {
			return i
		}
	}
	return -1
}

// ChallengeIndex returns the index of the seat holding a pending challenge
// decision, or -1 if none.
func (gs *GameState) ChallengeIndex() int {
	for i, e := range gs.TurnOrder {
		if e.AwaitingChallengeDecision {
			return i
		}
	}
	return -1
}

// IndexOf returns the seat index of username in the turn order, or -1.
func (gs *GameState) IndexOf(username string) int {
	for i, e := range gs.TurnOrder {
		if e.Username == username {
			return i
		}
	}
	return -1
}

// TopDiscard returns the top card of the discard pile. Valid only while the
// round is active; the pile is never empty after the deal.
func (gs *GameState) TopDiscard() Card {
	return gs.DiscardPile[0]
}
