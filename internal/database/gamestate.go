package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cardtable/unoserv/internal/models"
)

// ErrGameStateNotFound reports a lookup for a room with no active round.
var ErrGameStateNotFound = errors.New("game state not found")

// CreateGameState persists a freshly dealt round together with the players'
// opening hands in one transaction, so a partial write never leaves a round
// half-dealt.
func CreateGameState(ctx context.Context, gs *models.GameState, hands map[uuid.UUID][]models.Card) error {
	q := `
	INSERT INTO game_states (id, room_id, deck, discard_pile, turn_order, forward)
	VALUES ($1, $2, $3, $4, $5, $6)
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q,
			gs.ID, gs.RoomID, gs.Deck, gs.DiscardPile, gs.TurnOrder, gs.Forward); err != nil {
			return err
		}
		for playerID, hand := range hands {
			if _, err := tx.Exec(ctx,
				`UPDATE players SET hand=$1 WHERE id=$2`, hand, playerID); err != nil {
				return err
			}
		}
		return nil
	})
}

// GetGameStateByRoom loads the active round for a room.
func GetGameStateByRoom(ctx context.Context, roomID uuid.UUID) (*models.GameState, error) {
	q := `SELECT id, room_id, deck, discard_pile, turn_order, forward FROM game_states WHERE room_id=$1`
	var gs models.GameState
	err := DB.QueryRow(ctx, q, roomID).Scan(
		&gs.ID, &gs.RoomID, &gs.Deck, &gs.DiscardPile, &gs.TurnOrder, &gs.Forward)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return &gs, nil
}

// SaveGameState writes the round state and any touched hands atomically.
// Callers persist here first and refresh the in-memory session only after
// the commit succeeds.
func SaveGameState(ctx context.Context, gs *models.GameState, hands map[uuid.UUID][]models.Card) error {
	q := `
	UPDATE game_states
	SET deck=$1, discard_pile=$2, turn_order=$3, forward=$4
	WHERE id=$5
	`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, q,
			gs.Deck, gs.DiscardPile, gs.TurnOrder, gs.Forward, gs.ID); err != nil {
			return err
		}
		for playerID, hand := range hands {
			if _, err := tx.Exec(ctx,
				`UPDATE players SET hand=$1 WHERE id=$2`, hand, playerID); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveTurnOrder updates only the turn marker columns: the atomic turn switch.
func SaveTurnOrder(ctx context.Context, gs *models.GameState) error {
	q := `UPDATE game_states SET turn_order=$1, forward=$2 WHERE id=$3`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, gs.TurnOrder, gs.Forward, gs.ID)
		return err
	})
}

// DeleteGameState removes a finished round and clears every seated hand.
func DeleteGameState(ctx context.Context, id uuid.UUID, roomID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM game_states WHERE id=$1`, id); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `UPDATE players SET hand=NULL WHERE room_id=$1`, roomID)
		return err
	})
}
