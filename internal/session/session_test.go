// internal/session/session_test.go
package session

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardtable/unoserv/internal/models"
)

func TestAddOrUpdateReconnect(t *testing.T) {
	s := newSession("ABC123")
	playerID := uuid.New()
	firstConn := uuid.New()

	p := s.AddOrUpdate(firstConn, playerID, "alice", true, []models.Card{"5R"}, nil)
	require.Len(t, s.Players, 1)
	assert.True(t, p.IsCreator)

	// Same username on a new socket keeps the roster slot.
	secondConn := uuid.New()
	p2 := s.AddOrUpdate(secondConn, playerID, "alice", true, []models.Card{"5R", "9G"}, nil)
	assert.Same(t, p, p2)
	require.Len(t, s.Players, 1)
	assert.Equal(t, secondConn, p.ConnID)
	assert.Equal(t, []models.Card{"5R", "9G"}, p.CachedHand)
}

func TestRemoveConnStale(t *testing.T) {
	s := newSession("ABC123")
	oldConn := uuid.New()
	s.AddOrUpdate(oldConn, uuid.New(), "alice", false, nil, nil)

	// Reconnect replaces the connID; the old socket's teardown must not evict
	// the fresh connection.
	s.AddOrUpdate(uuid.New(), uuid.New(), "alice", false, nil, nil)
	_, removed := s.RemoveConn(oldConn)
	assert.False(t, removed)
	assert.Len(t, s.Players, 1)
}

func TestVoteTally(t *testing.T) {
	s := newSession("ABC123")
	s.AddOrUpdate(uuid.New(), uuid.New(), "alice", false, nil, nil)
	s.AddOrUpdate(uuid.New(), uuid.New(), "bob", false, nil, nil)
	s.AddOrUpdate(uuid.New(), uuid.New(), "carol", false, nil, nil)

	s.CastVote("alice", VoteResume)
	s.CastVote("bob", VoteWait)
	assert.False(t, s.VotesComplete())

	resume, wait := s.VoteCounts()
	assert.Equal(t, 1, resume)
	assert.Equal(t, 1, wait)

	// A changed vote replaces the old one.
	s.CastVote("alice", VoteWait)
	resume, wait = s.VoteCounts()
	assert.Equal(t, 0, resume)
	assert.Equal(t, 2, wait)

	s.CastVote("carol", VoteResume)
	assert.True(t, s.VotesComplete())

	s.ResetVotes()
	resume, wait = s.VoteCounts()
	assert.Zero(t, resume+wait)
	assert.False(t, s.VotesComplete())
}

func TestVoterLeavingDropsVote(t *testing.T) {
	s := newSession("ABC123")
	aliceConn := uuid.New()
	s.AddOrUpdate(aliceConn, uuid.New(), "alice", false, nil, nil)
	s.AddOrUpdate(uuid.New(), uuid.New(), "bob", false, nil, nil)

	s.CastVote("alice", VoteResume)
	s.RemoveConn(aliceConn)

	resume, _ := s.VoteCounts()
	assert.Zero(t, resume, "a departed player's vote no longer counts")
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("ABC123")
	assert.False(t, ok)

	s := r.GetOrCreate("ABC123")
	require.NotNil(t, s)
	assert.Equal(t, "ABC123", s.Code)
	assert.Same(t, s, r.GetOrCreate("ABC123"))
	assert.Equal(t, 1, r.Len())

	got, ok := r.Get("ABC123")
	assert.True(t, ok)
	assert.Same(t, s, got)

	r.Delete("ABC123")
	_, ok = r.Get("ABC123")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())
}
