// internal/session/session.go
//
// The session layer is the ephemeral, in-process mirror of a room: which
// connections are live, whose hand is cached for broadcast building, and the
// resume/wait vote tally while a round is paused. It is never authoritative;
// hands are re-cached from the durable records after every committed
// mutation.
package session

import (
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"github.com/cardtable/unoserv/internal/models"
)

// Vote values for the paused-round resume protocol.
const (
	VoteResume = "resume"
	VoteWait   = "wait"
)

// Player is one live connection inside a session. A reconnecting player keeps
// their roster entry and gets a new ConnID and Conn.
type Player struct {
	ConnID     uuid.UUID
	PlayerID   uuid.UUID
	Username   string
	IsCreator  bool
	CachedHand []models.Card
	Conn       *websocket.Conn
}

// Session mirrors one room. Mu is the room's serialization point: every
// mutating intent for the room runs with Mu held, so concurrent socket
// events against the same room cannot interleave. Methods below assume the
// caller holds Mu.
type Session struct {
	Code   string
	Mu     sync.Mutex
	Paused bool

	Players []*Player
	votes   map[string]string

	// TurnTimer schedules the optional auto-draw on turn expiry. Owned by
	// the orchestrator; stored here so it is cancelled with the session.
	TurnTimer interface{ Stop() bool }
}

func newSession(code string) *Session {
	return &Session{
		Code:  code,
		votes: make(map[string]string),
	}
}

// AddOrUpdate registers a connection for username. A returning username keeps
// its roster slot and has its connection swapped, which is how reconnection
// under a fresh socket works.
func (s *Session) AddOrUpdate(connID, playerID uuid.UUID, username string, isCreator bool, hand []models.Card, conn *websocket.Conn) *Player {
	for _, p := range s.Players {
		if p.Username == username {
			p.ConnID = connID
			p.Conn = conn
			p.CachedHand = hand
			return p
		}
	}
	p := &Player{
		ConnID:     connID,
		PlayerID:   playerID,
		Username:   username,
		IsCreator:  isCreator,
		CachedHand: hand,
		Conn:       conn,
	}
	s.Players = append(s.Players, p)
	return p
}

// RemoveConn drops the roster entry owning connID. Stale connIDs (already
// replaced by a reconnect) remove nothing.
func (s *Session) RemoveConn(connID uuid.UUID) (*Player, bool) {
	for i, p := range s.Players {
		if p.ConnID == connID {
			s.Players = append(s.Players[:i], s.Players[i+1:]...)
			delete(s.votes, p.Username)
			return p, true
		}
	}
	return nil, false
}

// FindByUsername returns the roster entry for username.
func (s *Session) FindByUsername(username string) (*Player, bool) {
	for _, p := range s.Players {
		if p.Username == username {
			return p, true
		}
	}
	return nil, false
}

// ConnectedUsernames lists the roster in join order.
func (s *Session) ConnectedUsernames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Username
	}
	return names
}

// RefreshHand replaces the cached hand for username after a committed write.
func (s *Session) RefreshHand(username string, hand []models.Card) {
	if p, ok := s.FindByUsername(username); ok {
		p.CachedHand = hand
	}
}

// CastVote records (or changes) a player's vote; a changed vote replaces the
// old one so nobody counts twice.
func (s *Session) CastVote(username, vote string) {
	s.votes[username] = vote
}

// VoteCounts tallies the current votes.
func (s *Session) VoteCounts() (resume, wait int) {
	for _, v := range s.votes {
		switch v {
		case VoteResume:
			resume++
		case VoteWait:
			wait++
		}
	}
	return resume, wait
}

// VotesComplete reports whether every connected player has voted.
func (s *Session) VotesComplete() bool {
	return len(s.Players) > 0 && len(s.votes) == len(s.Players)
}

// ResetVotes clears the tally for the next voting round.
func (s *Session) ResetVotes() {
	s.votes = make(map[string]string)
}

// Empty reports whether no connections remain.
func (s *Session) Empty() bool {
	return len(s.Players) == 0
}
