// internal/game/rules_test.go
package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cardtable/unoserv/internal/models"
)

func TestIsLegalPlay(t *testing.T) {
	cases := []struct {
		card  models.Card
		top   models.Card
		legal bool
	}{
		{"5R", "5G", true},     // rank match
		{"5R", "9R", true},     // color match
		{"skipY", "5R", false}, // neither
		{"skipY", "skipR", true},
		{"draw2B", "draw2G", true},
		{"draw4R", "5G", true},       // wild is always legal
		{"changeColorB", "9Y", true}, // wild is always legal
		{"7B", "draw4R", true},       // plays on a wild's chosen color
		{"7B", "draw4G", false},
	}
	for _, c := range cases {
		assert.Equal(t, c.legal, IsLegalPlay(c.card, c.top), "%s on %s", c.card, c.top)
	}
}

func TestLegalPlays(t *testing.T) {
	hand := []models.Card{"5R", "skipY", "draw4W", "9G"}
	legal := LegalPlays(hand, "9R")
	assert.ElementsMatch(t, []models.Card{"5R", "draw4W", "9G"}, legal)

	assert.Empty(t, LegalPlays([]models.Card{"skipY", "2B"}, "5R"))
}

func TestEffectOf(t *testing.T) {
	assert.Equal(t, CardEffect{DrawCount: 4, ForcesColorChoice: true, SkipsNext: true}, EffectOf("draw4W"))
	assert.Equal(t, CardEffect{DrawCount: 2, SkipsNext: true}, EffectOf("draw2R"))
	assert.Equal(t, CardEffect{ForcesColorChoice: true}, EffectOf("changeColorW"))
	assert.Equal(t, CardEffect{SkipsNext: true}, EffectOf("skipB"))
	assert.Equal(t, CardEffect{ReversesOrder: true}, EffectOf("reverseY"))
	assert.Equal(t, CardEffect{}, EffectOf("5G"))
}

func TestNextIndex(t *testing.T) {
	assert.Equal(t, 1, NextIndex(0, true, 4))
	assert.Equal(t, 0, NextIndex(3, true, 4))
	assert.Equal(t, 3, NextIndex(0, false, 4))
	assert.Equal(t, 2, NextIndex(3, false, 4))

	// Stepping forward then backward lands back home, for every seat.
	for n := 2; n <= 6; n++ {
		for i := 0; i < n; i++ {
			assert.Equal(t, i, NextIndex(NextIndex(i, true, n), false, n))
		}
	}
}
