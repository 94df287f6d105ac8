// internal/handlers/dispatch.go
package handlers

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quizgrid/quizgrid/internal/auth"
	"github.com/quizgrid/quizgrid/internal/models"
	"github.com/quizgrid/quizgrid/internal/moderation"
	"github.com/quizgrid/quizgrid/internal/session"
	"github.com/quizgrid/quizgrid/internal/wheel"
)

// Client is the per-connection state threaded through Dispatch. The WebSocket
// read loop owns one; tests construct them directly with a recording Sender.
type Client struct {
	ConnID string
	Sender Sender

	// Session and identity are bound by create_room, join, or reconnect.
	Session  *session.Session
	PlayerID string // empty for the host
	Nickname string
	IsHost   bool
}

// Dispatch routes one client command. All outcomes, including errors, are
// delivered through the client's Sender, so the transport layer only has to
// decode the envelope and call here.
func (qs *QuizServer) Dispatch(ctx context.Context, c *Client, cmd Command) {
	switch cmd.Type {
	case CmdCreateRoom:
		qs.handleCreateRoom(ctx, c, cmd)
	case CmdJoin:
		qs.handleJoin(c, cmd)
	case CmdStartGame:
		qs.handleHostAction(c, func(s *session.Session) error { return s.Start(c.ConnID) })
	case CmdNextQuestion:
		qs.handleHostAction(c, func(s *session.Session) error { return s.Advance(c.ConnID) })
	case CmdEndGame:
		qs.handleHostAction(c, func(s *session.Session) error { return s.End(c.ConnID) })
	case CmdAnswer:
		qs.handleAnswer(c, cmd)
	case CmdKickPlayer:
		qs.handleKick(c, cmd)
	case CmdReconnect:
		qs.handleReconnect(c, cmd)
	case CmdChat:
		qs.handleChat(c, cmd)
	case CmdSpinWheel:
		qs.handleSpinWheel(ctx, c)
	case CmdPing:
		c.Sender.Send(session.Event{Type: session.EventPong})
	default:
		c.Sender.Send(errorEvent(CodeInvalidCommand, "unknown command type: "+cmd.Type))
	}
}

func (qs *QuizServer) handleCreateRoom(ctx context.Context, c *Client, cmd Command) {
	mode := models.ModeClassic
	if strings.EqualFold(cmd.Mode, string(models.ModeSoccer)) {
		mode = models.ModeSoccer
	}

	sess, err := qs.Rooms.CreateRoom(ctx, c.ConnID, cmd.QuestionSetID, mode)
	if err != nil {
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
		return
	}
	qs.wireSession(sess)
	qs.Registry.Attach(sess.ID, c.ConnID, "", c.Sender)
	c.Session = sess
	c.IsHost = true

	token, err := auth.CreateSessionToken(sess.ID.String(), auth.RoleHost, "")
	if err != nil {
		qs.Logger.Errorf("failed to sign host token for session %s: %v", sess.ID, err)
	}
	c.Sender.Send(session.Event{
		Type: session.EventRoomCreated,
		Payload: map[string]interface{}{
			"sessionId": sess.ID.String(),
			"roomCode":  sess.RoomCode,
			"mode":      string(sess.Mode),
			"token":     token,
		},
	})
	qs.Logger.Infof("room %s created (session %s, mode %s)", sess.RoomCode, sess.ID, sess.Mode)
}

func (qs *QuizServer) handleJoin(c *Client, cmd Command) {
	sess := qs.resolveSession(cmd)
	if sess == nil {
		code := CodeRoomNotFound
		if cmd.RoomCode == "" {
			code = CodeSessionNotFound
		}
		c.Sender.Send(errorEvent(code, "room not found"))
		return
	}

	nickname := strings.TrimSpace(cmd.Nickname)
	if nickname == "" {
		c.Sender.Send(errorEvent(CodeInvalidCommand, "nickname is required"))
		return
	}
	playerID := cmd.PlayerID
	if playerID == "" {
		playerID = uuid.NewString()
	}

	// Attach before joining so the player:joined broadcast reaches this
	// client too.
	qs.Registry.Attach(sess.ID, c.ConnID, playerID, c.Sender)
	p, err := sess.Join(playerID, nickname, c.ConnID)
	if err != nil {
		qs.Registry.Detach(sess.ID, c.ConnID, playerID)
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
		return
	}
	c.Session = sess
	c.PlayerID = p.ID
	c.Nickname = p.Nickname

	token, err := auth.CreateSessionToken(sess.ID.String(), auth.RolePlayer, p.ID)
	if err != nil {
		qs.Logger.Errorf("failed to sign player token for session %s: %v", sess.ID, err)
	}
	c.Sender.Send(session.Event{
		Type: session.EventStateSync,
		Payload: map[string]interface{}{
			"sessionId": sess.ID.String(),
			"playerId":  p.ID,
			"roomCode":  sess.RoomCode,
			"token":     token,
		},
	})
}

// handleHostAction runs a session mutation on behalf of the bound host
// connection, mapping any failure to an error event.
func (qs *QuizServer) handleHostAction(c *Client, fn func(*session.Session) error) {
	if c.Session == nil {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "no session bound to this connection"))
		return
	}
	if err := fn(c.Session); err != nil {
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
	}
}

func (qs *QuizServer) handleAnswer(c *Client, cmd Command) {
	if c.Session == nil || c.PlayerID == "" {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "no session bound to this connection"))
		return
	}
	if cmd.QuestionIndex == nil || cmd.AnswerIndex == nil {
		c.Sender.Send(errorEvent(CodeInvalidCommand, "questionIndex and answerIndex are required"))
		return
	}
	err := c.Session.SubmitAnswer(c.PlayerID, *cmd.QuestionIndex, *cmd.AnswerIndex, cmd.PenaltyScored)
	if err != nil {
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
	}
}

func (qs *QuizServer) handleKick(c *Client, cmd Command) {
	if c.Session == nil {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "no session bound to this connection"))
		return
	}
	if cmd.PlayerID == "" {
		c.Sender.Send(errorEvent(CodeInvalidCommand, "playerId is required"))
		return
	}
	target := qs.Registry.PlayerSender(c.Session.ID, cmd.PlayerID)
	kickedConnID, err := c.Session.Kick(c.ConnID, cmd.PlayerID)
	if err != nil {
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
		return
	}
	qs.Registry.Detach(c.Session.ID, kickedConnID, cmd.PlayerID)
	if target != nil {
		target.CloseWithCode(KickedByHostError, "removed by host")
	}
}

func (qs *QuizServer) handleReconnect(c *Client, cmd Command) {
	sessionID := cmd.SessionID
	playerID := cmd.PlayerID
	role := auth.RolePlayer

	if cmd.Token != "" {
		claims, err := auth.VerifySessionToken(cmd.Token)
		if err != nil {
			c.Sender.Send(errorEvent(CodeReconnectFailed, "invalid session credential"))
			return
		}
		sessionID = claims.SessionID
		role = claims.Role
		if claims.PlayerID != "" {
			playerID = claims.PlayerID
		}
	} else if playerID == "" {
		// Host reconnection carries no playerId but must present the stored
		// credential.
		c.Sender.Send(errorEvent(CodeReconnectFailed, "host reconnect requires the session credential"))
		return
	}

	id, err := uuid.Parse(sessionID)
	if err != nil {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "invalid session id"))
		return
	}
	sess := qs.Store.GetSession(id)
	if sess == nil {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "session not found"))
		return
	}

	if role == auth.RoleHost {
		roster, err := sess.HandleHostReconnect(c.ConnID)
		if err != nil {
			c.Sender.Send(errorEvent(errorCode(err), err.Error()))
			return
		}
		qs.Registry.Attach(sess.ID, c.ConnID, "", c.Sender)
		c.Session = sess
		c.IsHost = true
		c.Sender.Send(session.Event{
			Type:    session.EventHostReconnected,
			Players: roster,
			Payload: map[string]interface{}{
				"sessionId": sess.ID.String(),
				"roomCode":  sess.RoomCode,
			},
		})
		return
	}

	// Attach first so the roster broadcast fired by the reconnect reaches
	// everyone, including this client.
	qs.Registry.Attach(sess.ID, c.ConnID, playerID, c.Sender)
	sync, err := sess.HandlePlayerReconnect(playerID, c.ConnID)
	if err != nil {
		qs.Registry.Detach(sess.ID, c.ConnID, playerID)
		c.Sender.Send(errorEvent(errorCode(err), err.Error()))
		return
	}
	c.Session = sess
	c.PlayerID = playerID
	for _, p := range sess.Info().Players {
		if p.ID == playerID {
			c.Nickname = p.Nickname
			break
		}
	}
	c.Sender.Send(session.Event{
		Type:    session.EventStateSync,
		Payload: map[string]interface{}{"state": sync},
	})
}

func (qs *QuizServer) handleChat(c *Client, cmd Command) {
	if c.Session == nil {
		c.Sender.Send(errorEvent(CodeSessionNotFound, "no session bound to this connection"))
		return
	}
	verdict := moderation.Moderate(cmd.Message)
	if !verdict.Allowed {
		c.Sender.Send(errorEvent(CodeMessageRejected, verdict.Reason))
		return
	}
	nickname := c.Nickname
	if c.IsHost {
		nickname = "host"
	}
	qs.Registry.Broadcast(c.Session.ID, session.Event{
		Type: session.EventChat,
		Payload: map[string]interface{}{
			"playerId":  c.PlayerID,
			"nickname":  nickname,
			"message":   verdict.Sanitized,
			"timestamp": qs.Now().UTC().Format(time.RFC3339),
		},
	})
}

func (qs *QuizServer) handleSpinWheel(ctx context.Context, c *Client) {
	if c.PlayerID == "" {
		c.Sender.Send(errorEvent(CodeUnauthorized, "only players can spin the wheel"))
		return
	}
	w, err := qs.Catalog.GetWallet(ctx, c.PlayerID)
	if err != nil {
		c.Sender.Send(errorEvent(CodeInternal, "wallet unavailable"))
		return
	}
	now := qs.Now()
	if !wheel.CanSpinToday(w.LastSpinAt, now) {
		c.Sender.Send(errorEvent(CodeSpinNotAvailable, "already spun today"))
		return
	}
	res := wheel.Spin()
	if err := qs.Catalog.RecordSpin(ctx, c.PlayerID, res.Prize.Coins, now); err != nil {
		c.Sender.Send(errorEvent(CodeInternal, "failed to record spin"))
		return
	}
	c.Sender.Send(session.Event{
		Type: session.EventWheelResult,
		Payload: map[string]interface{}{
			"index": res.Index,
			"coins": res.Prize.Coins,
			"label": res.Prize.Label,
		},
	})
	qs.Logger.Infof("player %s spun the wheel: %s", c.PlayerID, res.Prize.Label)
}

// resolveSession finds a session by room code first, falling back to an
// explicit session id.
func (qs *QuizServer) resolveSession(cmd Command) *session.Session {
	if cmd.RoomCode != "" {
		return qs.Store.GetSessionByCode(cmd.RoomCode)
	}
	if cmd.SessionID != "" {
		if id, err := uuid.Parse(cmd.SessionID); err == nil {
			return qs.Store.GetSession(id)
		}
	}
	return nil
}
