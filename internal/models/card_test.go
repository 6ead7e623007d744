// internal/models/card_test.go
package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCardRankAndColor(t *testing.T) {
	cases := []struct {
		card  Card
		rank  string
		color string
	}{
		{"5R", "5", "R"},
		{"0G", "0", "G"},
		{"skipY", "skip", "Y"},
		{"reverseB", "reverse", "B"},
		{"draw2B", "draw2", "B"},
		{"draw4W", "draw4", "W"},
		{"draw4R", "draw4", "R"},
		{"changeColorW", "changeColor", "W"},
	}
	for _, c := range cases {
		assert.Equal(t, c.rank, c.card.Rank(), "rank of %s", c.card)
		assert.Equal(t, c.color, c.card.Color(), "color of %s", c.card)
	}
}

func TestCardNormalize(t *testing.T) {
	// A wild played with a chosen color goes back to colorless.
	assert.Equal(t, Card("draw4W"), Card("draw4G").Normalize())
	assert.Equal(t, Card("changeColorW"), Card("changeColorR").Normalize())

	// Non-wilds and unchosen wilds are untouched.
	assert.Equal(t, Card("7B"), Card("7B").Normalize())
	assert.Equal(t, Card("draw4W"), Card("draw4W").Normalize())
}

func TestCardValid(t *testing.T) {
	valid := []Card{"0R", "9Y", "skipG", "reverseR", "draw2Y", "draw4W", "draw4B", "changeColorW", "changeColorG"}
	for _, c := range valid {
		assert.True(t, c.Valid(), "%s should be valid", c)
	}

	invalid := []Card{"", "R", "10R", "5W", "skipW", "draw2W", "banana", "5r", "draw3R"}
	for _, c := range invalid {
		assert.False(t, c.Valid(), "%s should be invalid", c)
	}
}

func TestCardIsWildRank(t *testing.T) {
	assert.True(t, Card("draw4W").IsWildRank())
	assert.True(t, Card("draw4R").IsWildRank())
	assert.True(t, Card("changeColorY").IsWildRank())
	assert.False(t, Card("draw2R").IsWildRank())
	assert.False(t, Card("5B").IsWildRank())
}
