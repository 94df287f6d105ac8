// internal/handlers/recovery_test.go
package handlers

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quizgrid/quizgrid/internal/cache"
	"github.com/quizgrid/quizgrid/internal/catalog"
	"github.com/quizgrid/quizgrid/internal/models"
	"github.com/quizgrid/quizgrid/internal/session"
)

// newMirroredServer is newTestServer plus a live miniredis-backed mirror, so
// snapshot writes and the recovery read path run for real.
func newMirroredServer(t *testing.T, mr *miniredis.Miniredis, cat *catalog.Memory) *QuizServer {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	mirror := cache.NewMirror(rdb, time.Hour)

	store := session.NewStore(session.NewRealClock(), 5*time.Second)
	return NewQuizServer(store, cat, mirror, quietLogger())
}

func testCatalog(t *testing.T) (*catalog.Memory, *models.QuestionSet) {
	t.Helper()
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
	return cat, set
}

func TestRecoverSessionsRestoresRoomsAcrossRestart(t *testing.T) {
	mr := miniredis.RunT(t)
	cat, set := testCatalog(t)
	ctx := context.Background()

	// First process: create a room, let a player join, capture both tokens.
	qs1 := newMirroredServer(t, mr, cat)
	host, hostRec, code := createRoom(t, qs1, set.ID.String())
	created := hostRec.ofType(session.EventRoomCreated)
	hostToken, _ := created[0].Payload["token"].(string)
	require.NotEmpty(t, hostToken)

	player, playerRec := joinRoom(t, qs1, code, "alice")
	joined := playerRec.ofType(session.EventStateSync)
	require.NotEmpty(t, joined)
	playerToken, _ := joined[0].Payload["token"].(string)
	require.NotEmpty(t, playerToken)
	sessionID := host.Session.ID

	// Snapshots are written off the session lock; wait for the mirror to
	// catch up before "restarting".
	require.Eventually(t, func() bool {
		return mr.Exists("session:" + code)
	}, 2*time.Second, 10*time.Millisecond)

	// Second process: fresh store, same mirror and catalog.
	qs2 := newMirroredServer(t, mr, cat)
	n, err := qs2.RecoverSessions(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, n)

	sess := qs2.Store.GetSessionByCode(code)
	require.NotNil(t, sess, "room code must resolve after recovery")
	assert.Equal(t, sessionID, sess.ID, "session id survives so old tokens stay valid")

	// The pre-restart host token reclaims control of the room.
	host2, host2Rec := newTestClient()
	qs2.Dispatch(ctx, host2, Command{Type: CmdReconnect, Token: hostToken})
	require.Len(t, host2Rec.ofType(session.EventHostReconnected), 1)
	require.True(t, host2.IsHost)

	// And the pre-restart player token lands back in the same seat.
	player2, player2Rec := newTestClient()
	qs2.Dispatch(ctx, player2, Command{Type: CmdReconnect, Token: playerToken})
	syncs := player2Rec.ofType(session.EventStateSync)
	require.Len(t, syncs, 1)
	assert.Equal(t, player.PlayerID, player2.PlayerID)
	assert.Equal(t, "alice", player2.Nickname)

	// The reclaimed room is playable: the host starts the game.
	qs2.Dispatch(ctx, host2, Command{Type: CmdStartGame})
	assert.Empty(t, host2Rec.lastErrorCode())
	assert.Len(t, host2Rec.ofType(session.EventQuestionStart), 1)
}

func TestRecoverSessionsDropsSnapshotsWithoutQuestionSet(t *testing.T) {
	mr := miniredis.RunT(t)
	cat, _ := testCatalog(t)
	ctx := context.Background()

	qs := newMirroredServer(t, mr, cat)
	orphan := models.SessionInfo{
		ID:            uuid.New(),
		RoomCode:      "GONE01",
		QuestionSetID: uuid.New(), // deleted from the catalog since the snapshot
		Mode:          models.ModeClassic,
		Phase:         models.PhaseLobby,
	}
	require.NoError(t, qs.Mirror.SaveSnapshot(ctx, orphan))

	n, err := qs.RecoverSessions(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Nil(t, qs.Store.GetSessionByCode("GONE01"))
	assert.False(t, mr.Exists("session:GONE01"), "stale snapshot must be purged")
}

func TestRecoverSessionsNilMirrorIsNoop(t *testing.T) {
	qs, _, _ := newTestServer(t)
	n, err := qs.RecoverSessions(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}
