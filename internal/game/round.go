// internal/game/round.go
package game

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/cardtable/unoserv/internal/models"
)

// Domain-rule violations surfaced to the orchestrator. They carry no state
// change: a rejected intent leaves the GameState and hands untouched.
var (
	ErrNotSeated          = errors.New("player is not in the turn order")
	ErrNotYourTurn        = errors.New("not your turn")
	ErrInvalidCard        = errors.New("unrecognized card code")
	ErrColorNotChosen     = errors.New("wild card requires a color choice")
	ErrCardNotInHand      = errors.New("card is not in your hand")
	ErrIllegalPlay        = errors.New("card is not playable on the current discard")
	ErrAlreadyDrew        = errors.New("already drew a card this turn")
	ErrNoChallengePending = errors.New("no challenge decision is pending")
	ErrTooFewPlayers      = errors.New("at least two seated players are required")
)

// HandSize is the number of cards dealt to each seat.
const HandSize = 7

// NewRound shuffles a fresh pack, deals HandSize cards to every username in
// seat order and opens the discard pile. A drawn colorless wild cannot open
// the round; it is buried at the bottom of the deck and redrawn. The first
// seat holds the opening turn and direction starts forward.
func NewRound(roomID uuid.UUID, usernames []string) (*models.GameState, map[string][]models.Card, error) {
	if len(usernames) < 2 {
		return nil, nil, ErrTooFewPlayers
	}

	deck := NewDeck()
	Shuffle(deck)

	hands := make(map[string][]models.Card, len(usernames))
	for _, name := range usernames {
		hands[name] = make([]models.Card, 0, HandSize)
	}
	for i := 0; i < HandSize; i++ {
		for _, name := range usernames {
			last := len(deck) - 1
			hands[name] = append(hands[name], deck[last])
			deck = deck[:last]
		}
	}

	// Opening discard: redraw while the flip is a colorless wild, burying the
	// rejected card at the bottom so the count stays intact.
	var top models.Card
	for {
		last := len(deck) - 1
		top = deck[last]
		deck = deck[:last]
		if !top.IsWildRank() {
			break
		}
		deck = append([]models.Card{top}, deck...)
	}

	order := make([]models.TurnEntry, len(usernames))
	for i, name := range usernames {
		order[i] = models.TurnEntry{Username: name, IsPlayerTurn: i == 0}
	}

	gs := &models.GameState{
		ID:          uuid.New(),
		RoomID:      roomID,
		Deck:        deck,
		DiscardPile: []models.Card{top},
		TurnOrder:   order,
		Forward:     true,
	}
	return gs, hands, nil
}

// AdvanceTurn moves the turn marker from currentIdx to nextIdx, clearing the
// per-turn flags on the seat being left. With challenge set, nextIdx is
// instead flagged AwaitingChallengeDecision and the turn does not pass until
// the challenge resolves.
func AdvanceTurn(gs *models.GameState, currentIdx, nextIdx int, challenge bool) {
	cur := &gs.TurnOrder[currentIdx]
	cur.IsPlayerTurn = false
	cur.HasDrawnThisTurn = false
	cur.AwaitingChallengeDecision = false

	next := &gs.TurnOrder[nextIdx]
	if challenge {
		next.AwaitingChallengeDecision = true
	} else {
		next.IsPlayerTurn = true
	}
}

// CheckCount verifies the pack conservation invariant. A failure means state
// corruption and is fatal for the room's session.
func CheckCount(gs *models.GameState, hands map[string][]models.Card) error {
	total := len(gs.Deck) + len(gs.DiscardPile)
	for _, h := range hands {
		total += len(h)
	}
	if total != models.DeckSize {
		return fmt.Errorf("card count invariant broken: %d cards accounted for, want %d", total, models.DeckSize)
	}
	return nil
}
