// internal/session/session.go
package session

import (
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/models"
	"github.com/quizgrid/quizgrid/internal/scoring"
)

// Session holds the entire state for one live game room in memory. All
// mutations go through methods that hold Mu; timer callbacks re-acquire it
// and verify the epoch so a stale expiry never races a newer phase.
type Session struct {
	ID       uuid.UUID
	RoomCode string
	Mode     models.GameMode

	QuestionSet *models.QuestionSet

	// HostConnID is the transport identifier of the host's current
	// connection; replaced on host reconnect.
	HostConnID string

	Phase                models.Phase
	CurrentQuestionIndex int
	QuestionStartedAt    time.Time

	Players []*models.Player

	RevealDuration time.Duration

	// timerEpoch increments on every phase transition. Timer callbacks
	// capture the epoch at arming time and bail if it moved.
	timerEpoch    int
	questionTimer Timer
	revealTimer   Timer

	lastActivity time.Time

	clock Clock

	// BroadcastFn fans an event out to every connection in the room. Nil is
	// tolerated (tests, rooms with nobody connected yet).
	BroadcastFn func(ev Event)

	// BroadcastToPlayerFn sends an event to a single player's connection.
	BroadcastToPlayerFn func(playerID string, ev Event)

	// OnSnapshot receives a persistable copy of the session after every
	// mutation, for the Redis mirror. Called outside I/O paths; the hook
	// must not block.
	OnSnapshot func(info models.SessionInfo)

	// OnCoinsAwarded is invoked once per player per reveal with the coin
	// delta, so the wallet store can be credited off the session lock.
	OnCoinsAwarded func(playerID string, coins int)

	// OnEnd runs when the session reaches END, letting the registry free
	// the room code.
	OnEnd func(s *Session)

	Mu sync.Mutex
}

// Start transitions LOBBY -> QUESTION for index 0. Only the host may start,
// and only from the lobby.
func (s *Session) Start(hostConnID string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if hostConnID != s.HostConnID {
		return ErrNotHost
	}
	switch s.Phase {
	case models.PhaseLobby:
	case models.PhaseEnd:
		return ErrSessionEnded
	default:
		return ErrAlreadyStarted
	}
	if len(s.activeRosterLocked()) == 0 {
		return ErrNoPlayers
	}
	s.startQuestionLocked(0)
	return nil
}

// startQuestionLocked begins the question at idx: stamps the start time,
// clears every player's answer, broadcasts the payload, and arms the expiry
// timer. Assumes lock is held.
func (s *Session) startQuestionLocked(idx int) {
	q := s.QuestionSet.Questions[idx]

	s.Phase = models.PhaseQuestion
	s.CurrentQuestionIndex = idx
	s.QuestionStartedAt = s.clock.Now()
	s.touchLocked()

	for _, p := range s.Players {
		p.LastAnswerIndex = nil
		p.AnswerTimeMs = 0
		p.PenaltyScored = false
	}

	s.timerEpoch++
	epoch := s.timerEpoch
	s.stopTimersLocked()
	limit := time.Duration(q.TimeLimitSec) * time.Second
	s.questionTimer = s.clock.AfterFunc(limit, func() {
		s.expireQuestion(epoch)
	})

	view := q.View(idx, len(s.QuestionSet.Questions))
	s.fireEventLocked(Event{Type: EventQuestionStart, Question: &view})
	s.snapshotLocked()
	log.Printf("session %s: question %d started (limit %ds)", s.RoomCode, idx, q.TimeLimitSec)
}

// SubmitAnswer records one player's choice for the in-flight question.
// Duplicates are rejected without overwriting, and any submission after the
// deadline or outside QUESTION is a protocol error distinguishable from a
// wrong answer.
func (s *Session) SubmitAnswer(playerID string, questionIndex, answerIndex int, penaltyScored bool) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase == models.PhaseEnd {
		return ErrSessionEnded
	}
	if s.Phase != models.PhaseQuestion {
		return ErrWrongPhase
	}
	if questionIndex != s.CurrentQuestionIndex {
		return ErrWrongQuestion
	}

	p := s.playerLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	if p.Kicked {
		return ErrPlayerKicked
	}
	if p.LastAnswerIndex != nil {
		return ErrAlreadyAnswered
	}

	q := s.QuestionSet.Questions[questionIndex]
	if answerIndex < 0 || answerIndex >= len(q.Options) {
		return ErrInvalidAnswer
	}

	elapsed := s.clock.Now().Sub(s.QuestionStartedAt)
	limit := time.Duration(q.TimeLimitSec) * time.Second
	if elapsed >= limit {
		// The expiry timer will transition shortly; this answer lost the
		// race deterministically.
		return ErrAnswerTooLate
	}

	idx := answerIndex
	p.LastAnswerIndex = &idx
	p.AnswerTimeMs = elapsed.Milliseconds()
	p.PenaltyScored = penaltyScored
	s.touchLocked()

	if s.allAnsweredLocked() {
		s.finishQuestionLocked()
	} else {
		s.snapshotLocked()
	}
	return nil
}

// expireQuestion is the timer callback for question deadlines. The epoch
// check discards stale fires after a force-advance or game end.
func (s *Session) expireQuestion(epoch int) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Phase != models.PhaseQuestion || s.timerEpoch != epoch {
		return
	}
	log.Printf("session %s: question %d expired", s.RoomCode, s.CurrentQuestionIndex)
	s.finishQuestionLocked()
}

// finishQuestionLocked scores every player for the current question,
// transitions to REVEAL, and arms the auto-advance timer. Unanswered players
// (including disconnected ones) score zero and lose their streak. Assumes
// lock is held.
func (s *Session) finishQuestionLocked() {
	q := s.QuestionSet.Questions[s.CurrentQuestionIndex]
	limitMs := int64(q.TimeLimitSec) * 1000

	results := make([]AnswerResult, 0, len(s.Players))
	for _, p := range s.Players {
		res := AnswerResult{PlayerID: p.ID, Nickname: p.Nickname}
		answered := p.LastAnswerIndex != nil
		correct := answered && *p.LastAnswerIndex == q.CorrectIndex

		var points, coins, newStreak int
		if s.Mode == models.ModeSoccer {
			sr := scoring.CalculateSoccerScore(correct, answered && p.PenaltyScored, p.AnswerTimeMs, limitMs, p.Streak)
			points, coins, newStreak = sr.Points, sr.Coins, sr.NewStreak
		} else {
			points = scoring.CalculateScore(correct, p.AnswerTimeMs, limitMs)
			coins = scoring.CalculateCoinsForQuestion(correct, p.Streak)
			if correct {
				newStreak = p.Streak + 1
			}
		}

		p.Score += points
		p.Coins += coins
		p.Streak = newStreak

		if coins > 0 && s.OnCoinsAwarded != nil {
			s.OnCoinsAwarded(p.ID, coins)
		}

		res.Answered = answered
		res.AnswerIndex = p.LastAnswerIndex
		res.Correct = correct
		res.PointsAwarded = points
		res.CoinsAwarded = coins
		res.Streak = newStreak
		results = append(results, res)
	}

	s.Phase = models.PhaseReveal
	s.QuestionStartedAt = time.Time{}
	s.touchLocked()

	s.timerEpoch++
	epoch := s.timerEpoch
	s.stopTimersLocked()
	s.revealTimer = s.clock.AfterFunc(s.RevealDuration, func() {
		s.autoAdvance(epoch)
	})

	s.fireEventLocked(Event{
		Type:        EventQuestionEnd,
		Leaderboard: s.leaderboardLocked(),
		Payload: map[string]interface{}{
			"questionIndex": s.CurrentQuestionIndex,
			"correctIndex":  q.CorrectIndex,
			"results":       results,
		},
	})
	s.snapshotLocked()
}

// autoAdvance is the reveal-duration timer callback.
func (s *Session) autoAdvance(epoch int) {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if s.Phase != models.PhaseReveal || s.timerEpoch != epoch {
		return
	}
	s.advanceLocked()
}

// Advance is the host's force-advance: from QUESTION it ends the question
// early, from REVEAL it skips the remaining reveal wait.
func (s *Session) Advance(hostConnID string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if hostConnID != s.HostConnID {
		return ErrNotHost
	}
	switch s.Phase {
	case models.PhaseQuestion:
		s.finishQuestionLocked()
	case models.PhaseReveal:
		s.advanceLocked()
	case models.PhaseEnd:
		return ErrSessionEnded
	default:
		return ErrWrongPhase
	}
	return nil
}

// advanceLocked moves REVEAL -> next QUESTION, or END past the last
// question. Assumes lock is held.
func (s *Session) advanceLocked() {
	next := s.CurrentQuestionIndex + 1
	if next >= len(s.QuestionSet.Questions) {
		s.endLocked()
		return
	}
	s.startQuestionLocked(next)
}

// End terminates the session immediately from any phase. Host-only.
func (s *Session) End(hostConnID string) error {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	if hostConnID != s.HostConnID {
		return ErrNotHost
	}
	if s.Phase == models.PhaseEnd {
		return ErrSessionEnded
	}
	s.endLocked()
	return nil
}

// endLocked transitions to END, cancels timers, broadcasts final standings,
// and notifies the registry. Assumes lock is held.
func (s *Session) endLocked() {
	s.Phase = models.PhaseEnd
	s.QuestionStartedAt = time.Time{}
	s.timerEpoch++
	s.stopTimersLocked()
	s.touchLocked()

	s.fireEventLocked(Event{
		Type:        EventGameEnd,
		Leaderboard: s.leaderboardLocked(),
		Payload: map[string]interface{}{
			"totalQuestions": len(s.QuestionSet.Questions),
		},
	})
	s.snapshotLocked()
	log.Printf("session %s: ended", s.RoomCode)

	if s.OnEnd != nil {
		s.OnEnd(s)
	}
}

// Join adds a new player in the lobby, or any phase for late joiners is
// rejected: joining mid-game goes through the reconnect path instead.
func (s *Session) Join(playerID, nickname, connID string) (*models.Player, error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if s.Phase == models.PhaseEnd {
		return nil, ErrSessionEnded
	}
	if existing := s.playerLocked(playerID); existing != nil {
		if existing.Kicked {
			return nil, ErrPlayerKicked
		}
		// Same identity rejoining through the join path: treat as a
		// reconnect so state is preserved.
		existing.ConnID = connID
		existing.Connected = true
		s.touchLocked()
		s.fireRosterLocked()
		s.snapshotLocked()
		return existing, nil
	}
	if s.Phase != models.PhaseLobby {
		return nil, ErrWrongPhase
	}
	for _, p := range s.Players {
		if !p.Kicked && p.Nickname == nickname {
			return nil, ErrNicknameTaken
		}
	}

	p := &models.Player{
		ID:        playerID,
		Nickname:  nickname,
		ConnID:    connID,
		Connected: true,
		JoinOrder: len(s.Players),
	}
	s.Players = append(s.Players, p)
	s.touchLocked()

	s.fireEventLocked(Event{
		Type:    EventPlayerJoined,
		Players: s.activeRosterLocked(),
		Payload: map[string]interface{}{
			"sessionId": s.ID.String(),
			"playerId":  playerID,
		},
	})
	s.snapshotLocked()
	log.Printf("session %s: player %s (%s) joined", s.RoomCode, playerID, nickname)
	return p, nil
}

// Kick removes a player from the active roster. The record survives with
// Kicked set, so the same id cannot rejoin; the returned connID lets the
// transport close the socket.
func (s *Session) Kick(hostConnID, playerID string) (connID string, err error) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	if hostConnID != s.HostConnID {
		return "", ErrNotHost
	}
	p := s.playerLocked(playerID)
	if p == nil {
		return "", ErrPlayerNotFound
	}
	connID = p.ConnID
	p.Kicked = true
	p.Connected = false
	p.ConnID = ""
	s.touchLocked()

	if s.BroadcastToPlayerFn != nil {
		s.BroadcastToPlayerFn(playerID, Event{
			Type:    EventPlayerKicked,
			Payload: map[string]interface{}{"playerId": playerID},
		})
	}
	s.fireRosterLocked()
	s.snapshotLocked()
	log.Printf("session %s: player %s kicked", s.RoomCode, playerID)
	return connID, nil
}

// HandleDisconnect marks a player disconnected. The game carries on; an
// unanswered question scores zero at reveal.
func (s *Session) HandleDisconnect(playerID string) {
	s.Mu.Lock()
	defer s.Mu.Unlock()

	p := s.playerLocked(playerID)
	if p == nil || !p.Connected {
		return
	}
	p.Connected = false
	p.ConnID = ""
	s.touchLocked()
	s.fireRosterLocked()
	s.snapshotLocked()
	log.Printf("session %s: player %s disconnected", s.RoomCode, playerID)
}

// Info returns a persistable copy of the session for mirroring.
func (s *Session) Info() models.SessionInfo {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.infoLocked()
}

func (s *Session) infoLocked() models.SessionInfo {
	info := models.SessionInfo{
		ID:                   s.ID,
		RoomCode:             s.RoomCode,
		QuestionSetID:        s.QuestionSet.ID,
		Mode:                 s.Mode,
		Phase:                s.Phase,
		CurrentQuestionIndex: s.CurrentQuestionIndex,
	}
	if !s.QuestionStartedAt.IsZero() {
		t := s.QuestionStartedAt
		info.QuestionStartedAt = &t
	}
	for _, p := range s.Players {
		info.Players = append(info.Players, *p)
	}
	return info
}

// --- helpers, all assume lock is held ---

func (s *Session) playerLocked(playerID string) *models.Player {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

// activeRosterLocked is the roster broadcast to clients: kicked players are
// invisible, disconnected ones stay listed with Connected=false.
func (s *Session) activeRosterLocked() []models.Player {
	roster := make([]models.Player, 0, len(s.Players))
	for _, p := range s.Players {
		if p.Kicked {
			continue
		}
		roster = append(roster, *p)
	}
	return roster
}

// allAnsweredLocked reports whether every connected, non-kicked player has
// submitted for the current question. Disconnected players never hold up
// the phase.
func (s *Session) allAnsweredLocked() bool {
	waiting := 0
	for _, p := range s.Players {
		if p.Kicked || !p.Connected {
			continue
		}
		waiting++
		if p.LastAnswerIndex == nil {
			return false
		}
	}
	return waiting > 0
}

// leaderboardLocked orders active players by score descending; ties go to
// whoever joined first.
func (s *Session) leaderboardLocked() []models.LeaderboardEntry {
	active := make([]*models.Player, 0, len(s.Players))
	for _, p := range s.Players {
		if !p.Kicked {
			active = append(active, p)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		if active[i].Score != active[j].Score {
			return active[i].Score > active[j].Score
		}
		return active[i].JoinOrder < active[j].JoinOrder
	})
	board := make([]models.LeaderboardEntry, 0, len(active))
	for _, p := range active {
		board = append(board, models.LeaderboardEntry{
			PlayerID: p.ID,
			Nickname: p.Nickname,
			Score:    p.Score,
			Coins:    p.Coins,
		})
	}
	return board
}

func (s *Session) fireEventLocked(ev Event) {
	if s.BroadcastFn != nil {
		s.BroadcastFn(ev)
	}
}

func (s *Session) fireRosterLocked() {
	roster := s.activeRosterLocked()
	s.fireEventLocked(Event{
		Type:    EventRosterUpdate,
		Players: roster,
		Payload: map[string]interface{}{"count": len(roster)},
	})
}

func (s *Session) snapshotLocked() {
	if s.OnSnapshot != nil {
		s.OnSnapshot(s.infoLocked())
	}
}

func (s *Session) stopTimersLocked() {
	if s.questionTimer != nil {
		s.questionTimer.Stop()
		s.questionTimer = nil
	}
	if s.revealTimer != nil {
		s.revealTimer.Stop()
		s.revealTimer = nil
	}
}

func (s *Session) touchLocked() {
	s.lastActivity = s.clock.Now()
}

// LastActivity reports the most recent mutation time, used by the idle
// sweeper.
func (s *Session) LastActivity() time.Time {
	s.Mu.Lock()
	defer s.Mu.Unlock()
	return s.lastActivity
}
