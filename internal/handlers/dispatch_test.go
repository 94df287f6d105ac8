// internal/handlers/dispatch_test.go
package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizgrid/quizgrid/internal/auth"
	"github.com/quizgrid/quizgrid/internal/catalog"
	"github.com/quizgrid/quizgrid/internal/models"
	"github.com/quizgrid/quizgrid/internal/session"
)

func TestMain(m *testing.M) {
	auth.Init()
	m.Run()
}

// recordingSender captures events and close calls instead of writing to a
// socket.
type recordingSender struct {
	mu        sync.Mutex
	events    []session.Event
	closed    bool
	closeCode int
}

func (r *recordingSender) Send(ev session.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recordingSender) CloseWithCode(code int, _ string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.closeCode = code
}

func (r *recordingSender) last() *session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return &r.events[len(r.events)-1]
}

func (r *recordingSender) ofType(t session.EventType) []session.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []session.Event
	for _, ev := range r.events {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}

func (r *recordingSender) lastErrorCode() string {
	errs := r.ofType(session.EventError)
	if len(errs) == 0 {
		return ""
	}
	code, _ := errs[len(errs)-1].Payload["code"].(string)
	return code
}

func newTestServer(t *testing.T) (*QuizServer, *catalog.Memory, *models.QuestionSet) {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	cat := catalog.NewMemory()
	set := &models.QuestionSet{ID: uuid.New(), Title: "capitals"}
	for i := 0; i < 2; i++ {
		set.Questions = append(set.Questions, models.Question{
			ID:           uuid.New(),
			Prompt:       "capital?",
			Options:      []string{"a", "b", "c", "d"},
			CorrectIndex: 1,
			TimeLimitSec: 30,
		})
	}
	cat.PutQuestionSet(set)

	store := session.NewStore(session.NewRealClock(), 5*time.Second)
	return NewQuizServer(store, cat, nil, logger), cat, set
}

func newTestClient() (*Client, *recordingSender) {
	rec := &recordingSender{}
	return &Client{ConnID: uuid.NewString(), Sender: rec}, rec
}

func createRoom(t *testing.T, qs *QuizServer, setID string) (*Client, *recordingSender, string) {
	t.Helper()
	host, rec := newTestClient()
	qs.Dispatch(context.Background(), host, Command{Type: CmdCreateRoom, QuestionSetID: setID})

	created := rec.ofType(session.EventRoomCreated)
	require.Len(t, created, 1)
	code, _ := created[0].Payload["roomCode"].(string)
	require.Len(t, code, 6)
	return host, rec, code
}

func joinRoom(t *testing.T, qs *QuizServer, code, nickname string) (*Client, *recordingSender) {
	t.Helper()
	c, rec := newTestClient()
	qs.Dispatch(context.Background(), c, Command{Type: CmdJoin, RoomCode: code, Nickname: nickname})
	require.NotNil(t, c.Session, "join should bind the session")
	require.NotEmpty(t, c.PlayerID)
	return c, rec
}

func TestCreateRoomErrors(t *testing.T) {
	qs, _, _ := newTestServer(t)
	c, rec := newTestClient()
	ctx := context.Background()

	qs.Dispatch(ctx, c, Command{Type: CmdCreateRoom, QuestionSetID: ""})
	assert.Equal(t, CodeInvalidQuestionSet, rec.lastErrorCode())

	qs.Dispatch(ctx, c, Command{Type: CmdCreateRoom, QuestionSetID: uuid.NewString()})
	assert.Equal(t, CodeQuestionSetNotFound, rec.lastErrorCode())
	assert.Nil(t, c.Session)
}

func TestCreateRoomIssuesCodeAndToken(t *testing.T) {
	qs, _, set := newTestServer(t)
	host, rec, _ := createRoom(t, qs, set.ID.String())

	assert.True(t, host.IsHost)
	created := rec.ofType(session.EventRoomCreated)[0]
	token, _ := created.Payload["token"].(string)
	require.NotEmpty(t, token)

	claims, err := auth.VerifySessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, auth.RoleHost, claims.Role)
	assert.Equal(t, host.Session.ID.String(), claims.SessionID)
}

func TestJoinUnknownRoom(t *testing.T) {
	qs, _, _ := newTestServer(t)
	c, rec := newTestClient()

	qs.Dispatch(context.Background(), c, Command{Type: CmdJoin, RoomCode: "NOPE11", Nickname: "zoe"})
	assert.Equal(t, CodeRoomNotFound, rec.lastErrorCode())
	assert.Nil(t, c.Session)
}

func TestJoinBroadcastsToRoom(t *testing.T) {
	qs, _, set := newTestServer(t)
	_, hostRec, code := createRoom(t, qs, set.ID.String())

	_, p1Rec := joinRoom(t, qs, code, "alice")

	// Host and the joining player both see player:joined.
	assert.NotEmpty(t, hostRec.ofType(session.EventPlayerJoined))
	assert.NotEmpty(t, p1Rec.ofType(session.EventPlayerJoined))

	// Duplicate nickname from a different connection is rejected.
	dup, dupRec := newTestClient()
	qs.Dispatch(context.Background(), dup, Command{Type: CmdJoin, RoomCode: code, Nickname: "alice"})
	assert.Equal(t, CodeNicknameTaken, dupRec.lastErrorCode())
	assert.Nil(t, dup.Session)
}

func TestGameFlowThroughDispatch(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	host, hostRec, code := createRoom(t, qs, set.ID.String())
	p1, p1Rec := joinRoom(t, qs, code, "alice")
	p2, p2Rec := joinRoom(t, qs, code, "bob")

	// A player cannot start the game.
	qs.Dispatch(ctx, p1, Command{Type: CmdStartGame})
	assert.Equal(t, CodeUnauthorized, p1Rec.lastErrorCode())

	qs.Dispatch(ctx, host, Command{Type: CmdStartGame})
	require.NotEmpty(t, hostRec.ofType(session.EventQuestionStart))
	require.NotEmpty(t, p1Rec.ofType(session.EventQuestionStart))

	zero, one := 0, 1
	qs.Dispatch(ctx, p1, Command{Type: CmdAnswer, QuestionIndex: &zero, AnswerIndex: &one})
	qs.Dispatch(ctx, p2, Command{Type: CmdAnswer, QuestionIndex: &zero, AnswerIndex: &zero})

	// Both answered: reveal broadcast with the leaderboard.
	ends := p1Rec.ofType(session.EventQuestionEnd)
	require.Len(t, ends, 1)
	require.NotEmpty(t, ends[0].Leaderboard)
	assert.Equal(t, p1.PlayerID, ends[0].Leaderboard[0].PlayerID)

	// Duplicate answer is acknowledged only to the offender.
	qs.Dispatch(ctx, p1, Command{Type: CmdAnswer, QuestionIndex: &zero, AnswerIndex: &one})
	assert.Equal(t, CodeWrongPhase, p1Rec.lastErrorCode())

	qs.Dispatch(ctx, host, Command{Type: CmdNextQuestion})
	qs.Dispatch(ctx, host, Command{Type: CmdEndGame})

	require.NotEmpty(t, p1Rec.ofType(session.EventGameEnd))
	assert.Nil(t, qs.Store.GetSessionByCode(code))

	// Everyone is cut loose once the final leaderboard is out.
	for _, rec := range []*recordingSender{hostRec, p1Rec, p2Rec} {
		require.True(t, rec.closed)
		assert.Equal(t, RoomEndedError, rec.closeCode)
	}
}

func TestKickClosesConnectionAndExcludes(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	host, _, code := createRoom(t, qs, set.ID.String())
	p1, p1Rec := joinRoom(t, qs, code, "alice")

	qs.Dispatch(ctx, host, Command{Type: CmdKickPlayer, PlayerID: p1.PlayerID})

	require.True(t, p1Rec.closed)
	assert.Equal(t, KickedByHostError, p1Rec.closeCode)
	assert.NotEmpty(t, p1Rec.ofType(session.EventPlayerKicked))

	// Rejoining with the same playerId is refused.
	again, againRec := newTestClient()
	qs.Dispatch(ctx, again, Command{Type: CmdJoin, RoomCode: code, Nickname: "alice2", PlayerID: p1.PlayerID})
	assert.Equal(t, CodePlayerKicked, againRec.lastErrorCode())
}

func TestPlayerReconnectByToken(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	host, _, code := createRoom(t, qs, set.ID.String())
	p1, p1Rec := joinRoom(t, qs, code, "alice")
	joinRoom(t, qs, code, "bob") // keeps the question open after alice answers

	joined := p1Rec.ofType(session.EventStateSync)
	require.NotEmpty(t, joined)
	token, _ := joined[0].Payload["token"].(string)
	require.NotEmpty(t, token)

	qs.Dispatch(ctx, host, Command{Type: CmdStartGame})
	zero, two := 0, 2
	qs.Dispatch(ctx, p1, Command{Type: CmdAnswer, QuestionIndex: &zero, AnswerIndex: &two})

	// Simulate the drop and a fresh socket presenting the stored credential.
	p1.Session.HandleDisconnect(p1.PlayerID)
	fresh, freshRec := newTestClient()
	qs.Dispatch(ctx, fresh, Command{Type: CmdReconnect, Token: token})

	require.Equal(t, p1.PlayerID, fresh.PlayerID)
	syncs := freshRec.ofType(session.EventStateSync)
	require.Len(t, syncs, 1)
	state, ok := syncs[0].Payload["state"].(*session.StateSync)
	require.True(t, ok)
	assert.Equal(t, models.PhaseQuestion, state.Phase)
	assert.True(t, state.HasAnswered)
	require.NotNil(t, state.SelectedAnswer)
	assert.Equal(t, 2, *state.SelectedAnswer)
}

func TestReconnectFailures(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	_, _, code := createRoom(t, qs, set.ID.String())
	sess := qs.Store.GetSessionByCode(code)
	require.NotNil(t, sess)

	// Garbage credential.
	c1, rec1 := newTestClient()
	qs.Dispatch(ctx, c1, Command{Type: CmdReconnect, Token: "garbage"})
	assert.Equal(t, CodeReconnectFailed, rec1.lastErrorCode())

	// Unknown player id on a real session.
	c2, rec2 := newTestClient()
	qs.Dispatch(ctx, c2, Command{Type: CmdReconnect, SessionID: sess.ID.String(), PlayerID: "ghost"})
	assert.Equal(t, CodePlayerNotFound, rec2.lastErrorCode())

	// Unknown session id.
	c3, rec3 := newTestClient()
	qs.Dispatch(ctx, c3, Command{Type: CmdReconnect, SessionID: uuid.NewString(), PlayerID: "ghost"})
	assert.Equal(t, CodeSessionNotFound, rec3.lastErrorCode())
}

func TestHostReconnectByToken(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	host, hostRec, code := createRoom(t, qs, set.ID.String())
	joinRoom(t, qs, code, "alice")

	created := hostRec.ofType(session.EventRoomCreated)[0]
	token, _ := created.Payload["token"].(string)

	fresh, freshRec := newTestClient()
	qs.Dispatch(ctx, fresh, Command{Type: CmdReconnect, Token: token})

	require.True(t, fresh.IsHost)
	recon := freshRec.ofType(session.EventHostReconnected)
	require.Len(t, recon, 1)
	assert.Equal(t, code, recon[0].Payload["roomCode"])
	require.Len(t, recon[0].Players, 1)

	// Control moved to the new connection.
	qs.Dispatch(ctx, host, Command{Type: CmdStartGame})
	assert.Equal(t, CodeUnauthorized, hostRec.lastErrorCode())
	qs.Dispatch(ctx, fresh, Command{Type: CmdStartGame})
	assert.NotEmpty(t, freshRec.ofType(session.EventQuestionStart))
}

func TestChatModeration(t *testing.T) {
	qs, _, set := newTestServer(t)
	ctx := context.Background()

	_, hostRec, code := createRoom(t, qs, set.ID.String())
	p1, p1Rec := joinRoom(t, qs, code, "alice")

	qs.Dispatch(ctx, p1, Command{Type: CmdChat, Message: "  hello   <b>world</b> "})
	msgs := hostRec.ofType(session.EventChat)
	require.Len(t, msgs, 1)
	assert.Equal(t, "hello &lt;b&gt;world&lt;/b&gt;", msgs[0].Payload["message"])
	assert.Equal(t, "alice", msgs[0].Payload["nickname"])

	// Blocked language goes only back to the sender as an error.
	qs.Dispatch(ctx, p1, Command{Type: CmdChat, Message: "you are a loser"})
	assert.Equal(t, CodeMessageRejected, p1Rec.lastErrorCode())
	assert.Len(t, hostRec.ofType(session.EventChat), 1)
}

func TestSpinWheelDailyGate(t *testing.T) {
	qs, cat, set := newTestServer(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC)
	qs.Now = func() time.Time { return now }

	_, _, code := createRoom(t, qs, set.ID.String())
	p1, p1Rec := joinRoom(t, qs, code, "alice")

	qs.Dispatch(ctx, p1, Command{Type: CmdSpinWheel})
	results := p1Rec.ofType(session.EventWheelResult)
	require.Len(t, results, 1)
	coins, ok := results[0].Payload["coins"].(int)
	require.True(t, ok)
	assert.Greater(t, coins, 0)

	w, err := cat.GetWallet(ctx, p1.PlayerID)
	require.NoError(t, err)
	assert.Equal(t, coins, w.Coins)
	require.NotNil(t, w.LastSpinAt)
	assert.Equal(t, 1, w.TotalSpins)

	// Second spin the same UTC day is refused.
	qs.Dispatch(ctx, p1, Command{Type: CmdSpinWheel})
	assert.Equal(t, CodeSpinNotAvailable, p1Rec.lastErrorCode())
	assert.Len(t, p1Rec.ofType(session.EventWheelResult), 1)

	// Past UTC midnight the gate opens again.
	now = time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	qs.Dispatch(ctx, p1, Command{Type: CmdSpinWheel})
	assert.Len(t, p1Rec.ofType(session.EventWheelResult), 2)
}

func TestUnknownCommand(t *testing.T) {
	qs, _, _ := newTestServer(t)
	c, rec := newTestClient()

	qs.Dispatch(context.Background(), c, Command{Type: "warp"})
	assert.Equal(t, CodeInvalidCommand, rec.lastErrorCode())

	qs.Dispatch(context.Background(), c, Command{Type: CmdPing})
	assert.Equal(t, session.EventPong, rec.last().Type)
}
