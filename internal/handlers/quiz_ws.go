// internal/handlers/quiz_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/quizgrid/quizgrid/internal/middleware"
)

// RateLimit bounds how fast one connection may issue commands. Zero values
// disable limiting (tests).
type RateLimit struct {
	PerSecond float64
	Burst     int
}

// maxRateLimitStrikes is how many commands in a row the limiter may reject
// before the connection is closed outright.
const maxRateLimitStrikes = 5

// QuizWSHandler upgrades the HTTP connection to WebSocket and runs the
// command read loop. A single socket serves the whole client lifecycle:
// create or join first, then game commands on the same connection.
func QuizWSHandler(logger *logrus.Logger, qs *QuizServer, limits RateLimit) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"quiz"},
			OriginPatterns: []string{"*"}, // Adjust for production security.
		})
		if err != nil {
			logger.Warnf("WebSocket accept error: %v", err)
			return
		}
		defer conn.Close(websocket.StatusInternalError, "internal error during handler exit")

		if conn.Subprotocol() != "quiz" {
			logger.Warnf("client connected with invalid subprotocol: %s", conn.Subprotocol())
			conn.Close(websocket.StatusCode(BadSubprotocolError), "client must use the 'quiz' subprotocol")
			return
		}
		middleware.LogSocketConnect(logger, r.RemoteAddr, "")

		snd := newWSSender(conn, logger)
		client := &Client{
			ConnID: uuid.NewString(),
			Sender: snd,
		}

		var limiter *rate.Limiter
		if limits.PerSecond > 0 {
			limiter = rate.NewLimiter(rate.Limit(limits.PerSecond), limits.Burst)
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		readErr := readCommands(ctx, conn, qs, client, limiter, logger)

		roomCode := ""
		if client.Session != nil {
			roomCode = client.Session.RoomCode
			if client.PlayerID != "" {
				client.Session.HandleDisconnect(client.PlayerID)
			}
			qs.Registry.Detach(client.Session.ID, client.ConnID, client.PlayerID)
		}

		// Flush whatever is still queued before the socket goes away. No-op
		// when the sender already closed (kick, room end, rate limit).
		snd.CloseWithCode(int(websocket.StatusNormalClosure), "")
		<-snd.done
		middleware.LogSocketDisconnect(logger, r.RemoteAddr, roomCode, readErr)
	}
}

// readCommands reads, decodes, and dispatches client commands until the
// connection drops or the context cancels. The returned error is the read
// failure that ended the loop, nil for a normal closure.
func readCommands(ctx context.Context, conn *websocket.Conn, qs *QuizServer, client *Client, limiter *rate.Limiter, logger *logrus.Logger) error {
	strikes := 0
	for {
		msgType, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			if strings.Contains(err.Error(), "context canceled") {
				return nil
			}
			return err
		}
		if msgType != websocket.MessageText {
			logger.Warnf("ignoring non-text message from conn %s", client.ConnID)
			continue
		}

		if limiter != nil && !limiter.Allow() {
			strikes++
			if strikes >= maxRateLimitStrikes {
				logger.Warnf("conn %s: closing after %d rate-limited commands", client.ConnID, strikes)
				client.Sender.CloseWithCode(RateLimitError, "rate limit exceeded")
				return nil
			}
			client.Sender.Send(errorEvent(CodeRateLimited, "too many commands, slow down"))
			continue
		}
		strikes = 0

		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil {
			logger.Warnf("invalid JSON from conn %s: %v", client.ConnID, err)
			client.Sender.Send(errorEvent(CodeInvalidCommand, "invalid JSON"))
			continue
		}

		logger.Debugf("conn %s: command %s", client.ConnID, cmd.Type)
		qs.Dispatch(ctx, client, cmd)

		select {
		case <-ctx.Done():
			return nil
		default:
		}
	}
}
