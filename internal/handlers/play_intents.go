// internal/handlers/play_intents.go
package handlers

import (
	"context"
	"time"

	"github.com/cardtable/unoserv/internal/database"
	"github.com/cardtable/unoserv/internal/game"
	"github.com/cardtable/unoserv/internal/models"
	"github.com/cardtable/unoserv/internal/session"
)

// activeRound locks the sender's session and loads the canonical round
// state. On success the session lock is held and the caller must release it;
// on failure an error event has been sent and the lock is already released.
func (s *Server) activeRound(ctx context.Context, cl *client) (*session.Session, *roundData, bool) {
	if cl.roomCode == "" {
		s.sendError(ctx, cl, "not in a room")
		return nil, nil, false
	}
	sess, ok := s.Registry.Get(cl.roomCode)
	if !ok {
		s.sendError(ctx, cl, "no session for room")
		return nil, nil, false
	}

	sess.Mu.Lock()
	rd, err := s.loadRound(ctx, cl.roomCode)
	if err != nil {
		sess.Mu.Unlock()
		s.sendError(ctx, cl, "failed to load game state, please retry")
		return nil, nil, false
	}
	if rd.room.Status != models.RoomInProgress || rd.gs == nil {
		sess.Mu.Unlock()
		s.sendError(ctx, cl, "no round in progress")
		return nil, nil, false
	}
	return sess, rd, true
}

func (s *Server) handlePlayCard(ctx context.Context, cl *client, cardStr string, handIdx int) {
	sess, rd, ok := s.activeRound(ctx, cl)
	if !ok {
		return
	}
	defer sess.Mu.Unlock()

	if sess.Paused {
		s.sendError(ctx, cl, "round is paused")
		return
	}

	res, err := game.ApplyPlay(rd.gs, rd.hands, cl.username, models.Card(cardStr), handIdx)
	if err != nil {
		s.sendError(ctx, cl, err.Error())
		return
	}
	if err := game.CheckCount(rd.gs, rd.hands); err != nil {
		s.fatalReset(ctx, sess, rd, err)
		return
	}

	if res.Winner != "" {
		s.finishRound(ctx, sess, rd, res.Winner)
		s.publishIntent(ctx, cl.roomCode, cl.username, "play-card", map[string]interface{}{"card": cardStr, "winner": res.Winner})
		return
	}

	if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
		// Abandon the intent before touching the session cache; the client
		// re-issues it.
		s.Logger.Errorf("failed to persist play for %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to persist game state, please retry")
		return
	}
	s.refreshCaches(sess, rd)

	s.broadcastRound(sess, rd, EventPlayResult, cl.username+" played "+cardStr)
	if res.ChallengedUsername != "" {
		if p, ok := sess.FindByUsername(res.ChallengedUsername); ok {
			s.send(p.Conn, Event{
				Type:       EventChallengePrompt,
				Challenger: cl.username,
				Card:       res.Card,
				Message:    cl.username + " played a draw four: accept the challenge or decline and draw",
			})
		}
		// The turn is suspended on the challenge; no deadline runs.
		if sess.TurnTimer != nil {
			sess.TurnTimer.Stop()
		}
	} else {
		s.scheduleTurnTimer(sess, rd.gs)
	}
	s.publishIntent(ctx, cl.roomCode, cl.username, "play-card", map[string]interface{}{"card": cardStr})
}

func (s *Server) handleDrawCard(ctx context.Context, cl *client) {
	sess, rd, ok := s.activeRound(ctx, cl)
	if !ok {
		return
	}
	defer sess.Mu.Unlock()

	if sess.Paused {
		s.sendError(ctx, cl, "round is paused")
		return
	}

	res, err := game.ApplyDraw(rd.gs, rd.hands, cl.username)
	if err != nil {
		s.sendError(ctx, cl, err.Error())
		return
	}
	if err := game.CheckCount(rd.gs, rd.hands); err != nil {
		s.fatalReset(ctx, sess, rd, err)
		return
	}

	if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
		s.Logger.Errorf("failed to persist draw for %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to persist game state, please retry")
		return
	}
	s.refreshCaches(sess, rd)

	msg := cl.username + " drew a card"
	switch {
	case res.Card == "":
		msg = cl.username + " had nothing to draw and passed"
	case res.AutoAdvanced:
		msg += " and passed"
	}
	for _, p := range sess.Players {
		ev := Event{
			Type:    EventDrawResult,
			Status:  "success",
			Message: msg,
			Round:   buildRoundView(rd.gs, rd.hands, p.Username),
		}
		if p.Username == cl.username {
			ev.Card = res.Card
		}
		s.send(p.Conn, ev)
	}
	s.scheduleTurnTimer(sess, rd.gs)
	s.publishIntent(ctx, cl.roomCode, cl.username, "draw-card", nil)
}

func (s *Server) handleChallenge(ctx context.Context, cl *client, decision string) {
	if decision != "accept" && decision != "decline" {
		s.sendError(ctx, cl, "challenge decision must be accept or decline")
		return
	}

	sess, rd, ok := s.activeRound(ctx, cl)
	if !ok {
		return
	}
	defer sess.Mu.Unlock()

	if sess.Paused {
		s.sendError(ctx, cl, "round is paused")
		return
	}

	res, err := game.ResolveChallenge(rd.gs, rd.hands, cl.username, decision == "accept")
	if err != nil {
		s.sendError(ctx, cl, err.Error())
		return
	}
	if err := game.CheckCount(rd.gs, rd.hands); err != nil {
		s.fatalReset(ctx, sess, rd, err)
		return
	}

	if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
		s.Logger.Errorf("failed to persist challenge for %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to persist game state, please retry")
		return
	}
	s.refreshCaches(sess, rd)

	var msg string
	switch {
	case !res.Challenged:
		msg = cl.username + " declined the challenge and drew 4"
	case res.Succeeded:
		msg = cl.username + " challenged successfully: " + res.Offender + " drew 4"
	default:
		msg = cl.username + "'s challenge failed and they drew 6"
	}
	s.broadcastRound(sess, rd, EventPlayResult, msg)
	s.scheduleTurnTimer(sess, rd.gs)
	s.publishIntent(ctx, cl.roomCode, cl.username, "challenge", map[string]interface{}{"decision": decision})
}

func (s *Server) handleVote(ctx context.Context, cl *client, vote string) {
	if vote != session.VoteResume && vote != session.VoteWait {
		s.sendError(ctx, cl, "vote must be resume or wait")
		return
	}
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

	if !sess.Paused {
		s.sendError(ctx, cl, "no vote in progress")
		return
	}

	sess.CastVote(cl.username, vote)
	resume, wait := sess.VoteCounts()

	if !sess.VotesComplete() {
		for _, p := range sess.Players {
			s.send(p.Conn, Event{
				Type:  EventVoteResult,
				Votes: &VoteView{Resume: resume, Wait: wait},
			})
		}
		return
	}

	if resume <= wait {
		// Stay paused; tallies reset for the next voting round.
		sess.ResetVotes()
		for _, p := range sess.Players {
			s.send(p.Conn, Event{
				Type:    EventVoteResult,
				Message: "staying paused",
				Votes:   &VoteView{Resume: resume, Wait: wait, Resolved: true},
			})
		}
		s.publishIntent(ctx, cl.roomCode, cl.username, "vote", map[string]interface{}{"vote": vote, "resumed": false})
		return
	}

	rd, err := s.loadRound(ctx, cl.roomCode)
	if err != nil || rd.gs == nil {
		s.sendError(ctx, cl, "failed to load game state, please retry")
		return
	}

	// Resume won: drop every seated-but-disconnected player from the round
	// and fold their hands back into the deck.
	var gone []string
	for _, e := range rd.gs.TurnOrder {
		if _, connected := sess.FindByUsername(e.Username); !connected {
			gone = append(gone, e.Username)
		}
	}
	game.RemoveSeats(rd.gs, rd.hands, gone)

	if len(rd.gs.TurnOrder) < 2 {
		winner := ""
		if len(rd.gs.TurnOrder) == 1 {
			winner = rd.gs.TurnOrder[0].Username
		}
		for _, name := range gone {
			if err := database.LeaveRoom(ctx, rd.ids[name]); err != nil {
				s.Logger.Errorf("failed to unseat %s: %v", name, err)
			}
		}
		sess.Paused = false
		sess.ResetVotes()
		s.finishRound(ctx, sess, rd, winner)
		s.publishIntent(ctx, cl.roomCode, cl.username, "vote", map[string]interface{}{"vote": vote, "resumed": true})
		return
	}

	if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
		s.Logger.Errorf("failed to persist resumed round for %s: %v", cl.roomCode, err)
		s.sendError(ctx, cl, "failed to persist game state, please retry")
		return
	}
	for _, name := range gone {
		if err := database.LeaveRoom(ctx, rd.ids[name]); err != nil {
			s.Logger.Errorf("failed to unseat %s: %v", name, err)
		}
	}

	sess.Paused = false
	sess.ResetVotes()
	s.refreshCaches(sess, rd)
	for _, p := range sess.Players {
		s.send(p.Conn, Event{
			Type:    EventVoteResult,
			Message: "round resumed",
			Votes:   &VoteView{Resume: resume, Wait: wait, Resolved: true, Resumed: true},
			Round:   buildRoundView(rd.gs, rd.hands, p.Username),
		})
	}
	s.scheduleTurnTimer(sess, rd.gs)
	s.publishIntent(ctx, cl.roomCode, cl.username, "vote", map[string]interface{}{"vote": vote, "resumed": true})
}

// finishRound ends the round: the game state is deleted exactly once, hands
// clear, the room reopens and everyone learns the result. Caller holds the
// session lock.
func (s *Server) finishRound(ctx context.Context, sess *session.Session, rd *roundData, winner string) {
	if sess.TurnTimer != nil {
		sess.TurnTimer.Stop()
	}
	if err := database.DeleteGameState(ctx, rd.gs.ID, rd.room.ID); err != nil {
		s.Logger.Errorf("failed to delete game state for %s: %v", rd.room.Code, err)
	}
	if err := database.SetRoomStatus(ctx, rd.room.ID, models.RoomOpen); err != nil {
		s.Logger.Errorf("failed to reopen room %s: %v", rd.room.Code, err)
	}

	for _, p := range sess.Players {
		p.CachedHand = nil
		win := p.Username == winner
		msg := "Round over"
		switch {
		case winner == "":
			msg = "Round ended"
		case win:
			msg = "You win!"
		default:
			msg = winner + " wins the round"
		}
		s.send(p.Conn, Event{
			Type:    EventRoundResult,
			Status:  "success",
			Winner:  winner,
			Win:     &win,
			Message: msg,
		})
	}
}

// fatalReset handles a detected invariant violation: the round cannot be
// trusted, so the room force-resets to Open and everyone is told. Caller
// holds the session lock.
func (s *Server) fatalReset(ctx context.Context, sess *session.Session, rd *roundData, cause error) {
	s.Logger.Errorf("room %s: %v; force-resetting", rd.room.Code, cause)
	if sess.TurnTimer != nil {
		sess.TurnTimer.Stop()
	}
	if err := database.DeleteGameState(ctx, rd.gs.ID, rd.room.ID); err != nil {
		s.Logger.Errorf("failed to delete corrupt game state for %s: %v", rd.room.Code, err)
	}
	if err := database.SetRoomStatus(ctx, rd.room.ID, models.RoomOpen); err != nil {
		s.Logger.Errorf("failed to reopen room %s: %v", rd.room.Code, err)
	}
	sess.Paused = false
	sess.ResetVotes()
	for _, p := range sess.Players {
		p.CachedHand = nil
		s.send(p.Conn, Event{
			Type:    EventError,
			Status:  "error",
			Message: "round aborted due to an internal state error; the room has been reset",
		})
	}
}

// scheduleTurnTimer arms the optional per-turn deadline for the current
// player. Caller holds the session lock.
func (s *Server) scheduleTurnTimer(sess *session.Session, gs *models.GameState) {
	if s.TurnTimeout <= 0 {
		return
	}
	if sess.TurnTimer != nil {
		sess.TurnTimer.Stop()
	}
	idx := gs.CurrentIndex()
	if idx < 0 {
		return
	}
	code := sess.Code
	current := gs.TurnOrder[idx].Username
	sess.TurnTimer = time.AfterFunc(s.TurnTimeout, func() {
		s.onTurnTimeout(code, current)
	})
}

// onTurnTimeout fires when a player sat on their turn past the deadline:
// they auto-draw one card and the turn passes. The timer captures the
// player's name so a stale fire after the turn already moved is a no-op.
func (s *Server) onTurnTimeout(code, username string) {
	sess, ok := s.Registry.Get(code)
	if !ok {
		return
	}
	sess.Mu.Lock()
	defer sess.Mu.Unlock()

	if sess.Paused {
		return
	}
	ctx := context.Background()
	rd, err := s.loadRound(ctx, code)
	if err != nil || rd.gs == nil || rd.room.Status != models.RoomInProgress {
		return
	}
	idx := rd.gs.CurrentIndex()
	if idx < 0 || rd.gs.TurnOrder[idx].Username != username {
		return
	}

	markerOnly := false
	res, err := game.ApplyDraw(rd.gs, rd.hands, username)
	switch {
	case err == game.ErrAlreadyDrew:
		// Already drew but never played; just pass the turn.
		game.AdvanceTurn(rd.gs, idx, game.NextIndex(idx, rd.gs.Forward, len(rd.gs.TurnOrder)), false)
		markerOnly = true
	case err != nil:
		return
	case res.Card == "":
		// Forced pass with nothing left to draw; only the marker moved.
		markerOnly = true
	case !res.AutoAdvanced:
		game.AdvanceTurn(rd.gs, idx, game.NextIndex(idx, rd.gs.Forward, len(rd.gs.TurnOrder)), false)
	}

	if err := game.CheckCount(rd.gs, rd.hands); err != nil {
		s.fatalReset(ctx, sess, rd, err)
		return
	}
	if markerOnly {
		// Neither deck nor hands changed; the cheap turn-switch write suffices.
		if err := database.SaveTurnOrder(ctx, rd.gs); err != nil {
			s.Logger.Errorf("failed to persist turn timeout for %s: %v", code, err)
			return
		}
	} else if err := database.SaveGameState(ctx, rd.gs, s.idHands(rd)); err != nil {
		s.Logger.Errorf("failed to persist turn timeout for %s: %v", code, err)
		return
	}
	s.refreshCaches(sess, rd)
	s.broadcastRound(sess, rd, EventDrawResult, username+" ran out of time and passed")
	s.scheduleTurnTimer(sess, rd.gs)
}
