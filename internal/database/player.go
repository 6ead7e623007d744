package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/cardtable/unoserv/internal/auth"
	"github.com/cardtable/unoserv/internal/models"
)

// ErrUsernameTaken reports a registration against an existing username.
var ErrUsernameTaken = errors.New("username already taken")

// ErrPlayerNotFound reports a lookup miss.
var ErrPlayerNotFound = errors.New("player not found")

// CreatePlayer hashes the password and inserts a new player record.
func CreatePlayer(ctx context.Context, player *models.Player) error {
	if player.ID == uuid.Nil {
		id, err := uuid.NewRandom()
		if err != nil {
			return fmt.Errorf("failed to generate player id: %w", err)
		}
		player.ID = id
	}

	hash, err := auth.CreateHash(player.Password, auth.Params)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	player.Password = hash

	q := `INSERT INTO players (id, username, password) VALUES ($1, $2, $3)`
	err = pgx.BeginTxFunc(ctx, DB, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, execErr := tx.Exec(ctx, q, player.ID, player.Username, player.Password)
		return execErr
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrUsernameTaken
		}
		return fmt.Errorf("failed to insert player: %w", err)
	}
	return nil
}

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	err := row.Scan(&p.ID, &p.Username, &p.Password, &p.RoomID, &p.Hand)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func GetPlayerByID(ctx context.Context, id uuid.UUID) (*models.Player, error) {
	q := `SELECT id, username, password, room_id, hand FROM players WHERE id=$1`
	return scanPlayer(DB.QueryRow(ctx, q, id))
}

func GetPlayerByUsername(ctx context.Context, username string) (*models.Player, error) {
	q := `SELECT id, username, password, room_id, hand FROM players WHERE username=$1`
	return scanPlayer(DB.QueryRow(ctx, q, username))
}

// AuthenticatePlayer checks credentials and returns a signed bearer token.
func AuthenticatePlayer(ctx context.Context, username, password string) (string, error) {
	player, err := GetPlayerByUsername(ctx, username)
	if err != nil {
		return "", fmt.Errorf("player not found or db error: %w", err)
	}

	match, err := auth.ComparePasswordAndHash(password, player.Password)
	if err != nil || !match {
		return "", fmt.Errorf("invalid credentials")
	}

	token, err := auth.CreateJWT(player.ID.String())
	if err != nil {
		return "", fmt.Errorf("failed to create jwt: %w", err)
	}
	return token, nil
}

// GetRoomMembers returns the players seated in a room, in seat order.
func GetRoomMembers(ctx context.Context, roomID uuid.UUID) ([]*models.Player, error) {
	q := `
	SELECT id, username, password, room_id, hand
	FROM players
	WHERE room_id=$1
	ORDER BY seated_at
	`
	rows, err := DB.Query(ctx, q, roomID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Player
	for rows.Next() {
		var p models.Player
		if err := rows.Scan(&p.ID, &p.Username, &p.Password, &p.RoomID, &p.Hand); err != nil {
			return nil, err
		}
		members = append(members, &p)
	}
	return members, rows.Err()
}
