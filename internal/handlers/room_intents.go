// internal/handlers/room_intents.go
package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/cardtable/unoserv/internal/cache"
	"github.com/cardtable/unoserv/internal/database"
	"github.com/cardtable/unoserv/internal/game"
	"github.com/cardtable/unoserv/internal/models"
	"github.com/cardtable/unoserv/internal/session"
)

// roundData is the canonical state loaded fresh from the durable store at the
// start of each intent: the room, the active game state (nil between rounds)
// and every seated player's hand.
type roundData struct {
	room  *models.Room
	gs    *models.GameState
	hands map[string][]models.Card
	ids   map[string]uuid.UUID
}

// loadRound pulls the authoritative room state. The session cache is only
// refreshed from here after a successful write, never the other way around.
func (s *Server) loadRound(ctx context.Context, code string) (*roundData, error) {
	room, err := database.GetRoomByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	members, err := database.GetRoomMembers(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	rd := &roundData{
		room:  room,
		hands: make(map[string][]models.Card, len(members)),
		ids:   make(map[string]uuid.UUID, len(members)),
	}
	for _, m := range members {
		rd.hands[m.Username] = m.Hand
		rd.ids[m.Username] = m.ID
	}

	gs, err := database.GetGameStateByRoom(ctx, room.ID)
	if err != nil && !errors.Is(err, database.ErrGameStateNotFound) {
		return nil, err
	}
	rd.gs = gs
	return rd, nil
}

// refreshCaches rebuilds the session's cached hands from the just-committed
// round data.
func (s *Server) refreshCaches(sess *session.Session, rd *roundData) {
	for _, p := range sess.Players {
		p.CachedHand = rd.hands[p.Username]
	}
}

// broadcastRound fans a personalized table view out to every connection in
// the room.
func (s *Server) broadcastRound(sess *session.Session, rd *roundData, evType, message string) {
	for _, p := range sess.Players {
		ev := Event{
			Type:    evType,
			Status:  "success",
			Message: message,
			Round:   buildRoundView(rd.gs, rd.hands, p.Username),
		}
		s.send(p.Conn, ev)
	}
}

// publishIntent queues an accepted intent for the historian. Best effort.
func (s *Server) publishIntent(ctx context.Context, code, username, intentType string, payload map[string]interface{}) {
	rec := cache.IntentRecord{
		RoomCode:  code,
		Username:  username,
		Intent:    intentType,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
	if err := cache.PublishIntent(ctx, rec); err != nil {
		s.Logger.Warnf("failed to publish intent record: %v", err)
	}
}

func (s *Server) handleCreateRoom(ctx context.Context, cl *client) {
	if cl.roomCode != "" {
		s.sendError(ctx, cl, "already in a room")
		return
	}

	room, err := database.CreateRoom(ctx, cl.playerID)
	if err != nil {
		s.Logger.Errorf("create room failed for %s: %v", cl.username, err)
		s.sendError(ctx, cl, "failed to create room, please retry")
		return
	}

	sess := s.Registry.GetOrCreate(room.Code)
	sess.Mu.Lock()
	sess.AddOrUpdate(cl.connID, cl.playerID, cl.username, true, nil, cl.conn)
	sess.Mu.Unlock()

	cl.roomCode = room.Code
	s.send(cl.conn, Event{Type: EventRoomCreated, Status: "success", Code: room.Code, Message: "Game room created"})
	s.publishIntent(ctx, room.Code, cl.username, "create-room", nil)
}

func (s *Server) handleJoinRoom(ctx context.Context, cl *client, code string) {
	if len(code) != models.RoomCodeLength {
		s.send(cl.conn, Event{Type: EventJoinResult, Status: "error", Message: "room code must be 6 characters"})
		return
	}
	if cl.roomCode != "" && cl.roomCode != code {
		s.send(cl.conn, Event{Type: EventJoinResult, Status: "error", Message: "already in a room"})
		return
	}

	room, err := database.GetRoomByCode(ctx, code)
	if errors.Is(err, database.ErrRoomNotFound) {
		s.send(cl.conn, Event{Type: EventJoinResult, Status: "error", Message: "Room with this code does not exist!"})
		return
	}
	if err != nil {
		s.sendError(ctx, cl, "failed to look up room, please retry")
		return
	}

	player, err := database.GetPlayerByID(ctx, cl.playerID)
	if err != nil {
		s.sendError(ctx, cl, "failed to load player, please retry")
		return
	}

	// A player whose seat already references this room is reconnecting under
	// a fresh socket, which is allowed even mid-round.
	if player.RoomID != nil && *player.RoomID == room.ID {
		s.handleReconnect(ctx, cl, room, player)
		return
	}

	if _, err := database.JoinRoom(ctx, code, cl.playerID); err != nil {
		switch {
		case errors.Is(err, database.ErrRoomNotOpen):
			s.send(cl.conn, Event{Type: EventJoinResult, Status: "error", Message: "Room is not joinable!"})
		case errors.Is(err, database.ErrRoomFull):
			s.send(cl.conn, Event{Type: EventJoinResult, Status: "error", Message: "Room is already full!"})
		default:
			s.sendError(ctx, cl, "failed to join room, please retry")
		}
		return
	}

	sess := s.Registry.GetOrCreate(code)
	sess.Mu.Lock()
	sess.AddOrUpdate(cl.connID, cl.playerID, cl.username, room.CreatorID == cl.playerID, nil, cl.conn)
	peers := append([]*session.Player(nil), sess.Players...)
	sess.Mu.Unlock()

	cl.roomCode = code
	for _, p := range peers {
		if p.Username == cl.username {
			s.send(p.Conn, Event{Type: EventJoinResult, Status: "success", Code: code, Message: "You joined the game room"})
		} else {
			s.send(p.Conn, Event{Type: EventJoinResult, Status: "success", Message: cl.username + " joined"})
		}
	}
	s.publishIntent(ctx, code, cl.username, "join-room", nil)
}

// handleReconnect reattaches a seated player's new connection to the running
// session, replays their personalized state, and lifts the pause if every
// seat is live again.
func (s *Server) handleReconnect(ctx context.Context, cl *client, room *models.Room, player *models.Player) {
	sess := s.Registry.GetOrCreate(room.Code)
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	sess.AddOrUpdate(cl.connID, cl.playerID, cl.username, room.CreatorID == cl.playerID, player.Hand, cl.conn)
	cl.roomCode = room.Code

	if room.Status != models.RoomInProgress {
		s.send(cl.conn, Event{Type: EventJoinResult, Status: "success", Code: room.Code, Message: "You joined the game room"})
		return
	}

	rd, err := s.loadRound(ctx, room.Code)
	if err != nil || rd.gs == nil {
		s.sendError(ctx, cl, "failed to load game state, please retry")
		return
	}
	s.refreshCaches(sess, rd)

	s.send(cl.conn, Event{
		Type:   EventRoundStarted,
		Status: "success",
		Code:   room.Code,
		Round:  buildRoundView(rd.gs, rd.hands, cl.username),
	})

	if sess.Paused {
		allBack := true
		for _, e := range rd.gs.TurnOrder {
			if _, ok := sess.FindByUsername(e.Username); !ok {
				allBack = false
				break
			}
		}
		if allBack {
			sess.Paused = false
			sess.ResetVotes()
			s.broadcastRound(sess, rd, EventPlayResult, cl.username+" reconnected, round resumed")
			s.scheduleTurnTimer(sess, rd.gs)
		} else {
			for _, p := range sess.Players {
				s.send(p.Conn, Event{
					Type:    EventPaused,
					Message: cl.username + " reconnected",
					Players: sess.ConnectedUsernames(),
				})
			}
		}
	}
	s.publishIntent(ctx, room.Code, cl.username, "reconnect", nil)
}

func (s *Server) handleLeaveRoom(ctx context.Context, cl *client) {
	if cl.roomCode == "" {
		s.sendError(ctx, cl, "not in a room")
		return
	}
	code := cl.roomCode

	sess, ok := s.Registry.Get(code)
	if !ok {
		cl.roomCode = ""
		return
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	rd, err := s.loadRound(ctx, code)
	if err != nil {
		s.sendError(ctx, cl, "failed to load room, please retry")
		return
	}

	// Mid-round, leaving surrenders the seat: fold the hand back into the
	// deck and drop the player from the turn order before releasing the seat.
	if rd.gs != nil && rd.gs.IndexOf(cl.username) >= 0 {
		game.RemoveSeats(rd.gs, rd.hands, []string{cl.username})
		if len(rd.gs.TurnOrder) < 2 {
			if err := database.LeaveRoom(ctx, cl.playerID); err != nil {
				s.sendError(ctx, cl, "failed to leave room, please retry")
				return
			}
			delete(rd.hands, cl.username)
			winner := ""
			if len(rd.gs.TurnOrder) == 1 {
				winner = rd.gs.TurnOrder[0].Username
			}
			s.finishRound(ctx, sess, rd, winner)
		} else {
			if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
				s.sendError(ctx, cl, "failed to persist game state, please retry")
				return
			}
			if err := database.LeaveRoom(ctx, cl.playerID); err != nil {
				s.sendError(ctx, cl, "failed to leave room, please retry")
				return
			}
			delete(rd.hands, cl.username)
		}
	} else {
		if err := database.LeaveRoom(ctx, cl.playerID); err != nil {
			s.sendError(ctx, cl, "failed to leave room, please retry")
			return
		}
	}

	sess.RemoveConn(cl.connID)
	cl.roomCode = ""
	s.send(cl.conn, Event{Type: EventLeaveResult, Status: "success", Message: "You left the game room"})

	if rd.gs != nil && rd.gs.IndexOf(cl.username) < 0 && len(rd.gs.TurnOrder) >= 2 {
		s.refreshCaches(sess, rd)
		s.broadcastRound(sess, rd, EventPlayResult, cl.username+" left the room")
	} else {
		for _, p := range sess.Players {
			s.send(p.Conn, Event{Type: EventLeaveResult, Status: "success", Message: cl.username + " left the room"})
		}
	}

	s.teardownIfAbandoned(ctx, sess, code)
	s.publishIntent(ctx, code, cl.username, "leave-room", nil)
}

// idHands maps the loaded hands back to player ids for persistence.
func (s *Server) idHands(rd *roundData) map[uuid.UUID][]models.Card {
	out := make(map[uuid.UUID][]models.Card, len(rd.hands))
	for name, hand := range rd.hands {
		if id, ok := rd.ids[name]; ok {
			out[id] = hand
		}
	}
	return out
}

// teardownIfAbandoned tears the session down when no connections remain, and
// deletes the room (and any game state) once nobody holds a seat either.
// Caller holds sess.Mu.
func (s *Server) teardownIfAbandoned(ctx context.Context, sess *session.Session, code string) {
	if !sess.Empty() {
		return
	}
	s.Registry.Delete(code)

	room, err := database.GetRoomByCode(ctx, code)
	if err != nil {
		return
	}
	members, err := database.GetRoomMembers(ctx, room.ID)
	if err != nil || len(members) > 0 {
		return
	}
	if gs, err := database.GetGameStateByRoom(ctx, room.ID); err == nil {
		if err := database.DeleteGameState(ctx, gs.ID, room.ID); err != nil {
			s.Logger.Errorf("failed to delete game state for room %s: %v", code, err)
		}
	}
	if err := database.DeleteRoom(ctx, room.ID); err != nil {
		s.Logger.Errorf("failed to delete room %s: %v", code, err)
	}
	s.Logger.Infof("room %s torn down", code)
}

func (s *Server) handleStartRound(ctx context.Context, cl *client) {
	if cl.roomCode == "" {
		s.sendError(ctx, cl, "not in a room")
		return
	}
	sess, ok := s.Registry.Get(cl.roomCode)
	if !ok {
		s.sendError(ctx, cl, "no session for room")
		return
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	rd, err := s.loadRound(ctx, cl.roomCode)
	if err != nil {
		s.sendError(ctx, cl, "failed to load room, please retry")
		return
	}
	if rd.room.Status != models.RoomOpen {
		s.sendError(ctx, cl, "round already in progress")
		return
	}
	if rd.room.CreatorID != cl.playerID {
		s.sendError(ctx, cl, "only the room creator can start the round")
		return
	}

	members, err := database.GetRoomMembers(ctx, rd.room.ID)
	if err != nil {
		s.sendError(ctx, cl, "failed to load players, please retry")
		return
	}
	usernames := make([]string, 0, len(members))
	for _, m := range members {
		usernames = append(usernames, m.Username)
	}

	gs, hands, err := game.NewRound(rd.room.ID, usernames)
	if err != nil {
		s.sendError(ctx, cl, err.Error())
		return
	}

	byID := make(map[uuid.UUID][]models.Card, len(hands))
	for _, m := range members {
		byID[m.ID] = hands[m.Username]
	}
	if err := database.CreateGameState(ctx, gs, byID); err != nil {
		s.Logger.Errorf("failed to persist new round for %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to start round, please retry")
		return
	}
	if err := database.SetRoomStatus(ctx, rd.room.ID, models.RoomInProgress); err != nil {
		s.Logger.Errorf("failed to transition room %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to start round, please retry")
		return
	}

	rd.gs = gs
	rd.hands = hands
	s.refreshCaches(sess, rd)
	s.broadcastRound(sess, rd, EventRoundStarted, "Round started")
	s.scheduleTurnTimer(sess, gs)
	s.publishIntent(ctx, cl.roomCode, cl.username, "start-round", nil)
}

// handleDisconnect runs after the read loop exits: the connection's roster
// entry goes away, a mid-round room pauses, and an abandoned room is torn
// down.
func (s *Server) handleDisconnect(ctx context.Context, cl *client) {
	if cl.roomCode == "" {
		return
	}
	sess, ok := s.Registry.Get(cl.roomCode)
	if !ok {
		return
	}

	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	if _, ok := sess.RemoveConn(cl.connID); !ok {
		// A reconnect already replaced this connection.
		return
	}

	if sess.Empty() {
		s.teardownIfAbandoned(ctx, sess, cl.roomCode)
		return
	}

	room, err := database.GetRoomByCode(ctx, cl.roomCode)
	if err != nil {
		return
	}
	if room.Status != models.RoomInProgress {
		for _, p := range sess.Players {
			s.send(p.Conn, Event{Type: EventLeaveResult, Status: "success", Message: cl.username + " disconnected"})
		}
		return
	}

	// Mid-round: suspend play and open the resume/wait vote among whoever is
	// still connected.
	sess.Paused = true
	sess.ResetVotes()
	if sess.TurnTimer != nil {
		sess.TurnTimer.Stop()
	}
	for _, p := range sess.Players {
		s.send(p.Conn, Event{
			Type:    EventPaused,
			Message: cl.username + " disconnected, round paused",
			Players: sess.ConnectedUsernames(),
		})
	}
}
