// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/cardtable/unoserv/internal/auth"
	"github.com/cardtable/unoserv/internal/database"
)

// Intent is the inbound message envelope (client -> server).
type Intent struct {
	Type string `json:"type"`

	Code      string `json:"code,omitempty"`      // join-room
	Card      string `json:"card,omitempty"`      // play-card
	HandIndex *int   `json:"handIndex,omitempty"` // play-card, disambiguates duplicates
	Vote      string `json:"vote,omitempty"`      // "resume" or "wait"
	Decision  string `json:"decision,omitempty"`  // challenge: "accept" or "decline"
}

// client is the per-connection state owned by its read loop goroutine.
type client struct {
	connID   uuid.UUID
	playerID uuid.UUID
	username string
	conn     *websocket.Conn
	roomCode string // room this connection has joined, "" if none
}

// bearerToken pulls the credential from the auth_token cookie or an
// Authorization: Bearer header.
func bearerToken(r *http.Request) string {
	if c, err := r.Cookie("auth_token"); err == nil && c.Value != "" {
		return c.Value
	}
	h := r.Header.Get("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return ""
}

// WSHandler upgrades the connection, authenticates the bearer credential and
// runs the intent loop until the client goes away. All room and game
// mutations funnel through here.
func (s *Server) WSHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"uno"},
			OriginPatterns: []string{"*"}, // tighten for production
		})
		if err != nil {
			s.Logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler exit")

		if c.Subprotocol() != "uno" {
			c.Close(websocket.StatusPolicyViolation, "client must use the 'uno' subprotocol")
			return
		}

		token := bearerToken(r)
		if token == "" {
			c.Close(websocket.StatusPolicyViolation, "missing credential")
			return
		}
		sub, err := auth.AuthenticateJWT(token)
		if err != nil {
			s.Logger.Warnf("websocket auth failed: %v", err)
			c.Close(websocket.StatusPolicyViolation, "invalid credential")
			return
		}
		playerID, err := uuid.Parse(sub)
		if err != nil {
			c.Close(websocket.StatusPolicyViolation, "invalid credential subject")
			return
		}
		player, err := database.GetPlayerByID(r.Context(), playerID)
		if err != nil {
			c.Close(websocket.StatusPolicyViolation, "unknown player")
			return
		}

		cl := &client{
			connID:   uuid.New(),
			playerID: player.ID,
			username: player.Username,
			conn:     c,
		}
		s.Logger.Infof("player %s connected from %s", cl.username, r.RemoteAddr)

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		s.readIntents(ctx, cl)

		s.handleDisconnect(context.Background(), cl)
		s.Logger.Infof("player %s disconnected", cl.username)
	}
}

// readIntents reads and routes messages until the connection closes. Each
// intent is validated against the credential-derived identity; the client
// never names itself.
func (s *Server) readIntents(ctx context.Context, cl *client) {
	for {
		msgType, data, err := cl.conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				s.Logger.Infof("websocket closed normally for %s", cl.username)
			} else {
				s.Logger.Warnf("websocket read error for %s: %v", cl.username, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		var intent Intent
		if err := json.Unmarshal(data, &intent); err != nil {
			s.sendError(ctx, cl, "invalid JSON")
			continue
		}

		s.Logger.Debugf("intent '%s' from %s", intent.Type, cl.username)

		switch intent.Type {
		case "create-room":
			s.handleCreateRoom(ctx, cl)
		case "join-room":
			s.handleJoinRoom(ctx, cl, intent.Code)
		case "leave-room":
			s.handleLeaveRoom(ctx, cl)
		case "start-round":
			s.handleStartRound(ctx, cl)
		case "play-card":
			idx := -1
			if intent.HandIndex != nil {
				idx = *intent.HandIndex
			}
			s.handlePlayCard(ctx, cl, intent.Card, idx)
		case "draw-card":
			s.handleDrawCard(ctx, cl)
		case "vote":
			s.handleVote(ctx, cl, intent.Vote)
		case "challenge":
			s.handleChallenge(ctx, cl, intent.Decision)
		default:
			s.sendError(ctx, cl, "unknown intent type: "+intent.Type)
		}

		select {
		case <-ctx.Done():
			return
		default:
		}
	}
}

// send writes one event to a specific connection with a write deadline. Write
// failures are left to the read loop to detect as a closed connection.
func (s *Server) send(conn *websocket.Conn, ev Event) {
	if conn == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.Logger.Errorf("failed to marshal event %s: %v", ev.Type, err)
		return
	}
	writeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.Write(writeCtx, websocket.MessageText, data); err != nil {
		s.Logger.Warnf("failed to write event %s: %v", ev.Type, err)
	}
}

func (s *Server) sendError(_ context.Context, cl *client, msg string) {
	s.send(cl.conn, Event{Type: EventError, Status: "error", Message: msg})
}
