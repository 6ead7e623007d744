// internal/game/deck.go
package game

import (
	"math/rand"

	"github.com/cardtable/unoserv/internal/models"
)

// NewDeck builds the full 108-card pack, unshuffled: per color one 0, two of
// each 1-9, two skips, two reverses, two draw-twos, plus four wild draw-fours
// and four wild color-changers.
func NewDeck() []models.Card {
	deck := make([]models.Card, 0, models.DeckSize)
	for _, color := range models.Colors {
		deck = append(deck, models.Card("0"+color))
		for _, rank := range []string{
			"1", "2", "3", "4", "5", "6", "7", "8", "9",
			models.RankSkip, models.RankReverse, models.RankDraw2,
		} {
			deck = append(deck, models.Card(rank+color), models.Card(rank+color))
		}
	}
	for i := 0; i < 4; i++ {
		deck = append(deck,
			models.Card(models.RankDraw4+models.ColorWild),
			models.Card(models.RankChangeColor+models.ColorWild))
	}
	return deck
}

// Shuffle permutes the deck in place.
func Shuffle(deck []models.Card) {
	rand.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})
}

// RecycleDiscard rebuilds the deck from the discard pile, keeping the top
// discard in place. Played wilds go back colorless. The new deck is shuffled.
// Returns false if there is nothing to recycle.
func RecycleDiscard(gs *models.GameState) bool {
	if len(gs.DiscardPile) <= 1 {
		return false
	}
	for _, c := range gs.DiscardPile[1:] {
		gs.Deck = append(gs.Deck, c.Normalize())
	}
	gs.DiscardPile = gs.DiscardPile[:1]
	Shuffle(gs.Deck)
	return true
}

// DrawCards pops n cards off the deck tail, recycling the discard pile
// whenever the deck runs dry mid-draw. The second return reports whether a
// recycle happened. Fewer than n cards come back only when hands hold the
// whole pack, which a legal game cannot reach.
func DrawCards(gs *models.GameState, n int) ([]models.Card, bool) {
	drawn := make([]models.Card, 0, n)
	recycled := false
	for len(drawn) < n {
		if len(gs.Deck) == 0 {
			if !RecycleDiscard(gs) {
				break
			}
			recycled = true
		}
		last := len(gs.Deck) - 1
		drawn = append(drawn, gs.Deck[last])
		gs.Deck = gs.Deck[:last]
	}
	return drawn, recycled
}
