// internal/handlers/events.go
package handlers

import (
	"github.com/cardtable/unoserv/internal/game"
	"github.com/cardtable/unoserv/internal/models"
)

// Outbound event types (server -> client). Every payload is personalized per
// recipient: a player only ever sees their own hand.
const (
	EventRoomCreated     = "room-created"
	EventJoinResult      = "join-result"
	EventLeaveResult     = "leave-result"
	EventRoundStarted    = "round-started"
	EventPlayResult      = "play-result"
	EventDrawResult      = "draw-result"
	EventRoundResult     = "round-result"
	EventPaused          = "paused"
	EventVoteResult      = "vote-result"
	EventChallengePrompt = "challenge-prompt"
	EventError           = "error"
)

// OpponentView is what a player learns about another seat: a count, never
// the cards.
type OpponentView struct {
	Username   string `json:"username"`
	CardsCount int    `json:"cardsCount"`
}

// RoundView is one player's view of the table, rebuilt after every accepted
// intent.
type RoundView struct {
	Hand          []models.Card      `json:"hand"`
	PlayedCard    models.Card        `json:"playedCard"`
	PlayableCards []models.Card      `json:"playableCards"`
	Players       []OpponentView     `json:"players"`
	TurnOrder     []models.TurnEntry `json:"turnOrder"`
	Direction     bool               `json:"direction"`
}

// VoteView carries the resume/wait tally while a round is paused.
type VoteView struct {
	Resume   int  `json:"resume"`
	Wait     int  `json:"wait"`
	Resolved bool `json:"resolved"`
	Resumed  bool `json:"resumed"`
}

// Event is the single outbound envelope; unused fields stay omitted.
type Event struct {
	Type    string `json:"type"`
	Status  string `json:"status,omitempty"` // "success" or "error"
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"` // room code

	Round *RoundView `json:"round,omitempty"`
	Votes *VoteView  `json:"votes,omitempty"`

	Card       models.Card `json:"card,omitempty"`       // drawn or contested card
	Challenger string      `json:"challenger,omitempty"` // who played the contested draw-four
	Winner     string      `json:"winner,omitempty"`
	Win        *bool       `json:"win,omitempty"`

	Players []string `json:"players,omitempty"` // connected roster for paused events
}

// buildRoundView assembles viewer's personalized view. Opponents are listed
// clockwise in seat order starting from the seat after the viewer, matching
// how clients lay the table out around themselves. Viewers outside the turn
// order (not seated this round) get counts only.
func buildRoundView(gs *models.GameState, hands map[string][]models.Card, viewer string) *RoundView {
	top := gs.TopDiscard()
	hand := hands[viewer]

	view := &RoundView{
		Hand:          hand,
		PlayedCard:    top,
		PlayableCards: game.LegalPlays(hand, top),
		TurnOrder:     gs.TurnOrder,
		Direction:     gs.Forward,
	}

	n := len(gs.TurnOrder)
	self := gs.IndexOf(viewer)
	for i := 1; i <= n; i++ {
		var e models.TurnEntry
		if self >= 0 {
			if i == n {
				break
			}
			e = gs.TurnOrder[(self+i)%n]
		} else {
			e = gs.TurnOrder[i-1]
		}
		view.Players = append(view.Players, OpponentView{
			Username:   e.Username,
			CardsCount: len(hands[e.Username]),
		})
	}
	return view
}
