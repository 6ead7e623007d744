// internal/game/rules.go
package game

import "github.com/cardtable/unoserv/internal/models"

// CardEffect describes what playing a card does to the table.
type CardEffect struct {
	DrawCount         int
	ForcesColorChoice bool
	SkipsNext         bool
	ReversesOrder     bool
}

// effects maps rank to its fixed effect. Numeric ranks are absent and zero.
var effects = map[string]CardEffect{
	models.RankDraw4:       {DrawCount: 4, ForcesColorChoice: true, SkipsNext: true},
	models.RankDraw2:       {DrawCount: 2, SkipsNext: true},
	models.RankChangeColor: {ForcesColorChoice: true},
	models.RankSkip:        {SkipsNext: true},
	models.RankReverse:     {ReversesOrder: true},
}

// EffectOf returns the effect record for a card's rank.
func EffectOf(card models.Card) CardEffect {
	return effects[card.Rank()]
}

// IsLegalPlay reports whether card may be played on top. Wild ranks are
// always legal; everything else must match the top card's rank or color.
func IsLegalPlay(card, top models.Card) bool {
	if card.IsWildRank() {
		return true
	}
	return card.Rank() == top.Rank() || card.Color() == top.Color()
}

// LegalPlays filters hand down to the cards playable on top.
func LegalPlays(hand []models.Card, top models.Card) []models.Card {
	legal := make([]models.Card, 0, len(hand))
	for _, c := range hand {
		if IsLegalPlay(c, top) {
			legal = append(legal, c)
		}
	}
	return legal
}

// NextIndex steps one seat from current in the given direction, wrapping
// around n seats.
func NextIndex(current int, forward bool, n int) int {
	if forward {
		return (current + 1) % n
	}
	return (current - 1 + n) % n
}
