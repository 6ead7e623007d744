package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/cardtable/unoserv/internal/models"
)

// Domain failures surfaced to the orchestrator as join rejections.
var (
	ErrRoomNotFound = errors.New("room not found")
	ErrRoomNotOpen  = errors.New("room is not joinable")
	ErrRoomFull     = errors.New("room is already full")
)

// codeAlphabet is the room-code character set.
const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// generateRoomCode produces a unique 6-char join code, retrying on the rare
// collision against an existing room.
func generateRoomCode(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 10; attempt++ {
		code, err := gonanoid.Generate(codeAlphabet, models.RoomCodeLength)
		if err != nil {
			return "", fmt.Errorf("failed to generate room code: %w", err)
		}
		var exists bool
		err = DB.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM rooms WHERE code=$1)`, code).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
	return "", fmt.Errorf("exhausted room code generation attempts")
}

// CreateRoom inserts an Open room with a fresh code and seats the creator.
func CreateRoom(ctx context.Context, creatorID uuid.UUID) (*models.Room, error) {
	code, err := generateRoomCode(ctx)
	if err != nil {
		return nil, err
	}

	room := &models.Room{
		ID:         uuid.New(),
		Code:       code,
		Status:     models.RoomOpen,
		CreatorID:  creatorID,
		MaxPlayers: models.DefaultMaxPlayers,
	}

	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx,
			`INSERT INTO rooms (id, code, status, creator_id, max_players) VALUES ($1, $2, $3, $4, $5)`,
			room.ID, room.Code, room.Status, room.CreatorID, room.MaxPlayers)
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx,
			`UPDATE players SET room_id=$1, seated_at=now() WHERE id=$2`,
			room.ID, creatorID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var r models.Room
	err := row.Scan(&r.ID, &r.Code, &r.Status, &r.CreatorID, &r.MaxPlayers)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

func GetRoomByCode(ctx context.Context, code string) (*models.Room, error) {
	q := `SELECT id, code, status, creator_id, max_players FROM rooms WHERE code=$1`
	return scanRoom(DB.QueryRow(ctx, q, code))
}

// JoinRoom seats a player in the room identified by code. The row is locked
// for the status and capacity checks so concurrent joins cannot overfill it.
func JoinRoom(ctx context.Context, code string, playerID uuid.UUID) (*models.Room, error) {
	var room *models.Room
	err := pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		r, err := scanRoom(tx.QueryRow(ctx,
			`SELECT id, code, status, creator_id, max_players FROM rooms WHERE code=$1 FOR UPDATE`, code))
		if err != nil {
			return err
		}
		if r.Status != models.RoomOpen {
			return ErrRoomNotOpen
		}

		var seated int
		if err := tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM players WHERE room_id=$1`, r.ID).Scan(&seated); err != nil {
			return err
		}
		if seated >= r.MaxPlayers {
			return ErrRoomFull
		}

		if _, err := tx.Exec(ctx,
			`UPDATE players SET room_id=$1, seated_at=now() WHERE id=$2`, r.ID, playerID); err != nil {
			return err
		}
		room = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return room, nil
}

// LeaveRoom clears the player's seat and hand.
func LeaveRoom(ctx context.Context, playerID uuid.UUID) error {
	q := `UPDATE players SET room_id=NULL, hand=NULL, seated_at=NULL WHERE id=$1`
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, q, playerID)
		return err
	})
}

// SetRoomStatus performs a room lifecycle transition.
func SetRoomStatus(ctx context.Context, roomID uuid.UUID, status models.RoomStatus) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `UPDATE rooms SET status=$1 WHERE id=$2`, status, roomID)
		return err
	})
}

// DeleteRoom removes an abandoned room.
func DeleteRoom(ctx context.Context, roomID uuid.UUID) error {
	return pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM rooms WHERE id=$1`, roomID)
		return err
	})
}
