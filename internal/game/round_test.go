// internal/game/round_test.go
package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/unoserv/internal/models"
)

func TestNewRoundDeal(t *testing.T) {
	names := []string{"alice", "bob", "carol"}
	gs, hands, err := NewRound(uuid.New(), names)
	require.NoError(t, err)

	for _, name := range names {
		assert.Len(t, hands[name], HandSize)
	}
	require.Len(t, gs.DiscardPile, 1)
	top := gs.TopDiscard()
	assert.True(t, top.Valid())
	assert.NotEqual(t, models.ColorWild, top.Color(), "opening discard must have a color")

	require.NoError(t, CheckCount(gs, hands))

	// First seat holds the opening turn, direction forward.
	require.Len(t, gs.TurnOrder, 3)
	assert.Equal(t, "alice", gs.TurnOrder[0].Username)
	assert.True(t, gs.TurnOrder[0].IsPlayerTurn)
	assert.False(t, gs.TurnOrder[1].IsPlayerTurn)
	assert.False(t, gs.TurnOrder[2].IsPlayerTurn)
	assert.True(t, gs.Forward)
}

func TestNewRoundTooFewPlayers(t *testing.T) {
	_, _, err := NewRound(uuid.New(), []string{"alice"})
	assert.ErrorIs(t, err, ErrTooFewPlayers)
}

// Dealing many rounds exercises the wild-redraw loop for the opening discard.
func TestNewRoundNeverOpensOnColorlessWild(t *testing.T) {
	for i := 0; i < 50; i++ {
		gs, hands, err := NewRound(uuid.New(), []string{"a", "b"})
		require.NoError(t, err)
		assert.NotEqual(t, models.ColorWild, gs.TopDiscard().Color())
		require.NoError(t, CheckCount(gs, hands))
	}
}

func TestAdvanceTurn(t *testing.T) {
	gs := &models.GameState{
		TurnOrder: []models.TurnEntry{
			{Username: "a", IsPlayerTurn: true, HasDrawnThisTurn: true},
			{Username: "b"},
		},
	}

	AdvanceTurn(gs, 0, 1, false)
	assert.False(t, gs.TurnOrder[0].IsPlayerTurn)
	assert.False(t, gs.TurnOrder[0].HasDrawnThisTurn, "per-turn flag clears on leaving the seat")
	assert.True(t, gs.TurnOrder[1].IsPlayerTurn)

	// Challenge handoff: nobody holds the turn, the target holds the decision.
	AdvanceTurn(gs, 1, 0, true)
	assert.Equal(t, -1, gs.CurrentIndex())
	assert.True(t, gs.TurnOrder[0].AwaitingChallengeDecision)
	assert.Equal(t, 0, gs.ChallengeIndex())
}

func TestCheckCount(t *testing.T) {
	gs := &models.GameState{
		Deck:        make([]models.Card, 100),
		DiscardPile: make([]models.Card, 4),
	}
	hands := map[string][]models.Card{
		"a": make([]models.Card, 2),
		"b": make([]models.Card, 2),
	}
	assert.NoError(t, CheckCount(gs, hands))

	hands["a"] = hands["a"][:1]
	assert.Error(t, CheckCount(gs, hands))
}
