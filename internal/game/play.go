// internal/game/play.go
//
// Pure state transitions for the turn loop. Each function validates the
// intent against the current GameState, then mutates the state and the hands
// map in place, or returns an error leaving both untouched. Persistence and
// broadcasting are the orchestrator's concern.
package game

import (
	"github.com/cardtable/unoserv/internal/models"
)

// PlayResult reports what applying a play-card intent did.
type PlayResult struct {
	Card models.Card

	// Winner is set when the actor's hand emptied and the round is over.
	Winner string

	// ChallengedUsername is set when a draw-four left the turn suspended on a
	// pending challenge decision by that player.
	ChallengedUsername string

	// Drawn holds cards forced onto other players (draw-two victims).
	Drawn map[string][]models.Card

	Recycled bool
}

// ApplyPlay resolves a play-card intent for username. handIdx points at the
// card in the player's hand, or -1 to match by code. Wild cards must arrive
// with a chosen color ("draw4R"), while the hand stores them colorless.
func ApplyPlay(gs *models.GameState, hands map[string][]models.Card, username string, card models.Card, handIdx int) (*PlayResult, error) {
	idx := gs.IndexOf(username)
	if idx < 0 {
		return nil, ErrNotSeated
	}
	if !gs.TurnOrder[idx].IsPlayerTurn {
		return nil, ErrNotYourTurn
	}
	if !card.Valid() {
		return nil, ErrInvalidCard
	}
	if card.IsWildRank() && card.Color() == models.ColorWild {
		return nil, ErrColorNotChosen
	}

	hand := hands[username]
	held := card.Normalize()
	pos := -1
	if handIdx >= 0 && handIdx < len(hand) && hand[handIdx] == held {
		pos = handIdx
	} else {
		for i, c := range hand {
			if c == held {
				pos = i
				break
			}
		}
	}
	if pos < 0 {
		return nil, ErrCardNotInHand
	}
	if !IsLegalPlay(card, gs.TopDiscard()) {
		return nil, ErrIllegalPlay
	}

	hand = append(hand[:pos:pos], hand[pos+1:]...)
	hands[username] = hand
	gs.DiscardPile = append([]models.Card{card}, gs.DiscardPile...)

	res := &PlayResult{Card: card, Drawn: map[string][]models.Card{}}
	if len(hand) == 0 {
		res.Winner = username
	}

	eff := EffectOf(card)
	n := len(gs.TurnOrder)
	switch {
	case eff.DrawCount == 4:
		// A winning draw-four ends the round outright; nobody is left to
		// contest it.
		if res.Winner == "" {
			victim := NextIndex(idx, gs.Forward, n)
			AdvanceTurn(gs, idx, victim, true)
			res.ChallengedUsername = gs.TurnOrder[victim].Username
		}
	case eff.DrawCount == 2:
		victim := NextIndex(idx, gs.Forward, n)
		drawn, recycled := DrawCards(gs, 2)
		victimName := gs.TurnOrder[victim].Username
		hands[victimName] = append(hands[victimName], drawn...)
		res.Drawn[victimName] = drawn
		res.Recycled = recycled
		if res.Winner == "" {
			AdvanceTurn(gs, idx, NextIndex(victim, gs.Forward, n), false)
		}
	case eff.ReversesOrder:
		gs.Forward = !gs.Forward
		if res.Winner == "" {
			next := NextIndex(idx, gs.Forward, n)
			if n == 2 {
				// Head to head a reverse acts as a skip: the turn comes
				// straight back to the player who reversed.
				next = idx
			}
			AdvanceTurn(gs, idx, next, false)
		}
	case eff.SkipsNext:
		if res.Winner == "" {
			skipped := NextIndex(idx, gs.Forward, n)
			AdvanceTurn(gs, idx, NextIndex(skipped, gs.Forward, n), false)
		}
	default:
		if res.Winner == "" {
			AdvanceTurn(gs, idx, NextIndex(idx, gs.Forward, n), false)
		}
	}
	return res, nil
}

// DrawResult reports what applying a draw-card intent did.
type DrawResult struct {
	Card         models.Card
	Playable     bool
	AutoAdvanced bool
	Recycled     bool
}

// ApplyDraw resolves a draw-card intent. One draw per turn: if the drawn card
// leaves the player without a legal play, the turn passes automatically.
func ApplyDraw(gs *models.GameState, hands map[string][]models.Card, username string) (*DrawResult, error) {
	idx := gs.IndexOf(username)
	if idx < 0 {
		return nil, ErrNotSeated
	}
	entry := &gs.TurnOrder[idx]
	if !entry.IsPlayerTurn {
		return nil, ErrNotYourTurn
	}
	if entry.HasDrawnThisTurn {
		return nil, ErrAlreadyDrew
	}

	drawn, recycled := DrawCards(gs, 1)
	if len(drawn) == 0 {
		// Hands hold the whole pack and the discard is a lone top card:
		// nothing to draw, the turn is a forced pass.
		AdvanceTurn(gs, idx, NextIndex(idx, gs.Forward, len(gs.TurnOrder)), false)
		return &DrawResult{AutoAdvanced: true}, nil
	}
	hands[username] = append(hands[username], drawn...)
	entry.HasDrawnThisTurn = true

	res := &DrawResult{Card: drawn[0], Recycled: recycled}
	res.Playable = len(LegalPlays(hands[username], gs.TopDiscard())) > 0
	if !res.Playable {
		AdvanceTurn(gs, idx, NextIndex(idx, gs.Forward, len(gs.TurnOrder)), false)
		res.AutoAdvanced = true
	}
	return res, nil
}

// ChallengeResult reports how a draw-four challenge resolved.
type ChallengeResult struct {
	// Challenged is false when the responder declined and took the cards.
	Challenged bool
	// Succeeded is true when the offender held another playable card and
	// draws the penalty instead.
	Succeeded bool
	Offender  string
	Drawn     map[string][]models.Card
	Recycled  bool
}

// ResolveChallenge settles a pending draw-four challenge for username.
// Declining draws 4 and passes the turn onward. Challenging reveals whether
// the offender held any other card playable on the pre-draw-four top: if so
// the offender draws 4 and the turn returns to the responder, otherwise the
// responder draws 6 and the turn passes onward.
func ResolveChallenge(gs *models.GameState, hands map[string][]models.Card, username string, challenge bool) (*ChallengeResult, error) {
	idx := gs.IndexOf(username)
	if idx < 0 {
		return nil, ErrNotSeated
	}
	if !gs.TurnOrder[idx].AwaitingChallengeDecision {
		return nil, ErrNoChallengePending
	}

	n := len(gs.TurnOrder)
	offenderIdx := NextIndex(idx, !gs.Forward, n)
	offender := gs.TurnOrder[offenderIdx].Username
	res := &ChallengeResult{
		Challenged: challenge,
		Offender:   offender,
		Drawn:      map[string][]models.Card{},
	}

	if !challenge {
		drawn, recycled := DrawCards(gs, 4)
		hands[username] = append(hands[username], drawn...)
		res.Drawn[username] = drawn
		res.Recycled = recycled
		AdvanceTurn(gs, idx, NextIndex(idx, gs.Forward, n), false)
		return res, nil
	}

	// The card under the draw-four is what the offender's hand is judged
	// against.
	priorTop := gs.DiscardPile[1]
	guilty := len(LegalPlays(hands[offender], priorTop)) > 0

	if guilty {
		res.Succeeded = true
		drawn, recycled := DrawCards(gs, 4)
		hands[offender] = append(hands[offender], drawn...)
		res.Drawn[offender] = drawn
		res.Recycled = recycled
		AdvanceTurn(gs, idx, idx, false)
	} else {
		drawn, recycled := DrawCards(gs, 6)
		hands[username] = append(hands[username], drawn...)
		res.Drawn[username] = drawn
		res.Recycled = recycled
		AdvanceTurn(gs, idx, NextIndex(idx, gs.Forward, n), false)
	}
	return res, nil
}

// RemoveSeats drops the given usernames from the turn order, folding their
// hands back into the deck. If the current turn belonged to a removed seat,
// the turn moves to the next surviving seat in direction order. A pending
// challenge is voided by any roster change and the responder takes the turn.
func RemoveSeats(gs *models.GameState, hands map[string][]models.Card, usernames []string) {
	removed := make(map[string]bool, len(usernames))
	for _, name := range usernames {
		removed[name] = true
	}

	refIdx := gs.CurrentIndex()
	if refIdx < 0 {
		refIdx = gs.ChallengeIndex()
	}
	n := len(gs.TurnOrder)

	// Walk from the reference seat in play direction to the first survivor.
	successor := ""
	if refIdx >= 0 {
		for i, at := 0, refIdx; i < n; i, at = i+1, NextIndex(at, gs.Forward, n) {
			if !removed[gs.TurnOrder[at].Username] {
				successor = gs.TurnOrder[at].Username
				break
			}
		}
	}

	survivors := make([]models.TurnEntry, 0, n)
	dropped := false
	for _, e := range gs.TurnOrder {
		if removed[e.Username] {
			dropped = true
			for _, c := range hands[e.Username] {
				gs.Deck = append(gs.Deck, c.Normalize())
			}
			delete(hands, e.Username)
			continue
		}
		survivors = append(survivors, e)
	}
	Shuffle(gs.Deck)
	gs.TurnOrder = survivors

	// The seats around the responder may have shifted, so the responder simply
	// takes the turn.
	if ci := gs.ChallengeIndex(); ci >= 0 && dropped {
		gs.TurnOrder[ci].AwaitingChallengeDecision = false
		gs.TurnOrder[ci].IsPlayerTurn = true
	}

	if gs.CurrentIndex() < 0 && gs.ChallengeIndex() < 0 && successor != "" {
		for i := range gs.TurnOrder {
			if gs.TurnOrder[i].Username == successor {
				gs.TurnOrder[i].IsPlayerTurn = true
				gs.TurnOrder[i].HasDrawnThisTurn = false
				break
			}
		}
	}
}
