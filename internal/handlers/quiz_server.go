// internal/handlers/quiz_server.go
package handlers

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/quizgrid/quizgrid/internal/cache"
	"github.com/quizgrid/quizgrid/internal/catalog"
	"github.com/quizgrid/quizgrid/internal/models"
	"github.com/quizgrid/quizgrid/internal/session"
)

// QuizServer wires the session engine to its collaborators: the connection
// registry for broadcasts, the catalog for question sets and wallets, and
// the optional Redis mirror for snapshots.
type QuizServer struct {
	Store    *session.Store
	Rooms    *session.RoomManager
	Catalog  catalog.Store
	Registry *Registry
	Mirror   *cache.Mirror // nil disables snapshot mirroring
	Logger   *logrus.Logger

	// Now is the time source for wheel-spin gating; tests override it.
	Now func() time.Time
}

func NewQuizServer(store *session.Store, cat catalog.Store, mirror *cache.Mirror, logger *logrus.Logger) *QuizServer {
	return &QuizServer{
		Store:    store,
		Rooms:    session.NewRoomManager(store, cat),
		Catalog:  cat,
		Registry: NewRegistry(),
		Mirror:   mirror,
		Logger:   logger,
		Now:      time.Now,
	}
}

// RecoverSessions rebuilds in-memory sessions from the Redis mirror at boot,
// so rooms survive a process restart: room codes and session tokens stay
// valid and hosts pick their games back up by reconnecting. Snapshots whose
// question set has vanished, or that cannot be restored, are dropped from
// the mirror. Returns how many sessions came back.
func (qs *QuizServer) RecoverSessions(ctx context.Context) (int, error) {
	if qs.Mirror == nil {
		return 0, nil
	}
	infos, err := qs.Mirror.LoadAll(ctx)
	if err != nil {
		return 0, err
	}
	recovered := 0
	for _, info := range infos {
		set, err := qs.Catalog.GetQuestionSetWithQuestions(ctx, info.QuestionSetID)
		if err != nil {
			qs.Logger.Warnf("dropping snapshot for room %s: question set unavailable: %v", info.RoomCode, err)
			if delErr := qs.Mirror.DeleteSnapshot(ctx, info.RoomCode); delErr != nil {
				qs.Logger.Warnf("delete stale snapshot %s: %v", info.RoomCode, delErr)
			}
			continue
		}
		sess, err := qs.Store.Restore(info, set)
		if err != nil {
			qs.Logger.Warnf("dropping snapshot for room %s: %v", info.RoomCode, err)
			if delErr := qs.Mirror.DeleteSnapshot(ctx, info.RoomCode); delErr != nil {
				qs.Logger.Warnf("delete stale snapshot %s: %v", info.RoomCode, delErr)
			}
			continue
		}
		qs.wireSession(sess)
		recovered++
	}
	return recovered, nil
}

// wireSession installs the broadcast and persistence hooks on a freshly
// created session. Hooks fire with the session lock held, so they only
// snapshot data and hand I/O to goroutines.
func (qs *QuizServer) wireSession(sess *session.Session) {
	sessionID := sess.ID
	sess.BroadcastFn = func(ev session.Event) {
		qs.Registry.Broadcast(sessionID, ev)
	}
	sess.BroadcastToPlayerFn = func(playerID string, ev session.Event) {
		qs.Registry.SendToPlayer(sessionID, playerID, ev)
	}
	if qs.Mirror != nil {
		sess.OnSnapshot = func(info models.SessionInfo) {
			go func() {
				ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				if err := qs.Mirror.SaveSnapshot(ctx, info); err != nil {
					qs.Logger.Warnf("snapshot save failed for room %s: %v", info.RoomCode, err)
				}
			}()
		}
	}
	sess.OnCoinsAwarded = func(playerID string, coins int) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := qs.Catalog.AddCoins(ctx, playerID, coins); err != nil {
				qs.Logger.Warnf("coin credit failed for player %s: %v", playerID, err)
			}
		}()
	}

	prevOnEnd := sess.OnEnd
	sess.OnEnd = func(s *session.Session) {
		if prevOnEnd != nil {
			prevOnEnd(s)
		}
		// Each sender flushes its queue before honoring the close, so the
		// game:end broadcast reaches clients ahead of the close code.
		for _, sender := range qs.Registry.DropRoom(sessionID) {
			sender.CloseWithCode(RoomEndedError, "game over")
		}
	}
}
