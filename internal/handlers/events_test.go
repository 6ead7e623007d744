// internal/handlers/events_test.go
package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/unoserv/internal/models"
)

func tableState() (*models.GameState, map[string][]models.Card) {
	gs := &models.GameState{
		DiscardPile: []models.Card{"5R"},
		TurnOrder: []models.TurnEntry{
			{Username: "alice", IsPlayerTurn: true},
			{Username: "bob"},
			{Username: "carol"},
		},
		Forward: true,
	}
	hands := map[string][]models.Card{
		"alice": {"5G", "9B"},
		"bob":   {"1R", "2R", "3R"},
		"carol": {"skipY"},
	}
	return gs, hands
}

func TestBuildRoundViewPersonalized(t *testing.T) {
	gs, hands := tableState()

	view := buildRoundView(gs, hands, "bob")

	assert.Equal(t, []models.Card{"1R", "2R", "3R"}, view.Hand)
	assert.Equal(t, models.Card("5R"), view.PlayedCard)
	assert.ElementsMatch(t, []models.Card{"1R", "2R", "3R"}, view.PlayableCards)
	assert.True(t, view.Direction)

	// Opponents run clockwise from the seat after the viewer; the viewer is
	// not in their own opponent list.
	require.Len(t, view.Players, 2)
	assert.Equal(t, "carol", view.Players[0].Username)
	assert.Equal(t, 1, view.Players[0].CardsCount)
	assert.Equal(t, "alice", view.Players[1].Username)
	assert.Equal(t, 2, view.Players[1].CardsCount)
}

func TestBuildRoundViewNeverLeaksHands(t *testing.T) {
	gs, hands := tableState()

	view := buildRoundView(gs, hands, "alice")
	for _, opp := range view.Players {
		assert.NotEqual(t, "alice", opp.Username)
	}
	// Counts only for opponents.
	assert.Equal(t, 3, view.Players[0].CardsCount)
	assert.Equal(t, "bob", view.Players[0].Username)
}

func TestBuildRoundViewUnseatedViewer(t *testing.T) {
	gs, hands := tableState()

	// A spectator (seated in the room but not in this round) sees every seat
	// as an opponent and holds no cards.
	view := buildRoundView(gs, hands, "dave")
	assert.Empty(t, view.Hand)
	require.Len(t, view.Players, 3)
	assert.Equal(t, "alice", view.Players[0].Username)
}
