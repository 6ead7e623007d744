// internal/game/deck_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/unoserv/internal/models"
)

func TestNewDeckComposition(t *testing.T) {
	deck := NewDeck()
	require.Len(t, deck, models.DeckSize)

	counts := map[models.Card]int{}
	for _, c := range deck {
		assert.True(t, c.Valid(), "deck contains invalid card %s", c)
		counts[c]++
	}

	for _, color := range models.Colors {
		assert.Equal(t, 1, counts[models.Card("0"+color)], "one 0 per color")
		assert.Equal(t, 2, counts[models.Card("7"+color)], "two of each numeral 1-9")
		assert.Equal(t, 2, counts[models.Card(models.RankSkip+color)])
		assert.Equal(t, 2, counts[models.Card(models.RankReverse+color)])
		assert.Equal(t, 2, counts[models.Card(models.RankDraw2+color)])
	}
	assert.Equal(t, 4, counts[models.Card("draw4W")])
	assert.Equal(t, 4, counts[models.Card("changeColorW")])
}

func TestRecycleDiscardKeepsTopAndNormalizesWilds(t *testing.T) {
	gs := &models.GameState{
		Deck:        nil,
		DiscardPile: []models.Card{"5R", "draw4G", "9B", "changeColorY"},
	}

	require.True(t, RecycleDiscard(gs))

	assert.Equal(t, []models.Card{"5R"}, gs.DiscardPile, "top discard stays in place")
	assert.Len(t, gs.Deck, 3)
	counts := map[models.Card]int{}
	for _, c := range gs.Deck {
		counts[c]++
	}
	// Played wilds return colorless.
	assert.Equal(t, 1, counts["draw4W"])
	assert.Equal(t, 1, counts["changeColorW"])
	assert.Equal(t, 1, counts["9B"])
}

func TestRecycleDiscardNothingToRecycle(t *testing.T) {
	gs := &models.GameState{DiscardPile: []models.Card{"5R"}}
	assert.False(t, RecycleDiscard(gs))
	assert.Empty(t, gs.Deck)
}

func TestDrawCardsRecyclesMidDraw(t *testing.T) {
	gs := &models.GameState{
		Deck:        []models.Card{"1R"},
		DiscardPile: []models.Card{"5R", "2G", "3B"},
	}

	drawn, recycled := DrawCards(gs, 3)

	assert.True(t, recycled)
	require.Len(t, drawn, 3)
	assert.Equal(t, models.Card("1R"), drawn[0], "deck tail drawn before recycling")
	assert.Equal(t, []models.Card{"5R"}, gs.DiscardPile)
	assert.Empty(t, gs.Deck)
	assert.ElementsMatch(t, []models.Card{"2G", "3B"}, drawn[1:])
}

func TestDrawCardsSimple(t *testing.T) {
	gs := &models.GameState{
		Deck:        []models.Card{"1R", "2R", "3R"},
		DiscardPile: []models.Card{"5R"},
	}

	drawn, recycled := DrawCards(gs, 2)

	assert.False(t, recycled)
	assert.Equal(t, []models.Card{"3R", "2R"}, drawn, "cards pop from the tail")
	assert.Equal(t, []models.Card{"1R"}, gs.Deck)
}
