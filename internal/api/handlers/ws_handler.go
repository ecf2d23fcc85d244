package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/vidbrief/vidbrief/internal/api/middleware"
	"github.com/vidbrief/vidbrief/internal/services"
	"github.com/vidbrief/vidbrief/internal/utils"
)

type WSHandler struct {
	chat     services.ChatService
	upgrader websocket.Upgrader
}

func NewWSHandler(chat services.ChatService) *WSHandler {
	return &WSHandler{
		chat: chat,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true }, // TODO: restrict origin in prod
		},
	}
}

type wsAskMsg struct {
	Question string `json:"question"`
}

type wsAnswerMsg struct {
	Type      string    `json:"type"`
	Question  string    `json:"question"`
	Answer    string    `json:"answer"`
	Timestamp time.Time `json:"timestamp"`
}

type wsConn struct {
	c  *websocket.Conn
	mu sync.Mutex
}

func (w *wsConn) writeJSON(v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

func (w *wsConn) writeText(b []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.c.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.c.WriteMessage(websocket.TextMessage, b)
}

// SessionWS serves a chat session over one websocket. Browsers cannot set
// the Authorization header on websocket dials, so the token rides the
// query string; authorization happens before the upgrade.
func (h *WSHandler) SessionWS(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		writeError(c, utils.E(utils.CodeUnauthorized, "WSHandler.SessionWS", "missing token", nil))
		return
	}
	userID, err := middleware.ParseToken(token)
	if err != nil {
		writeError(c, utils.E(utils.CodeUnauthorized, "WSHandler.SessionWS", "invalid token", err))
		return
	}

	sessionID := c.Param("session_id")
	if sessionID == "" {
		writeError(c, utils.E(utils.CodeInvalidArgument, "WSHandler.SessionWS", "missing session_id", nil))
		return
	}

	// authorize session ownership
	if _, err := h.chat.Session(c.Request.Context(), userID, sessionID); err != nil {
		writeError(c, err)
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// upgrade already wrote response in most cases
		return
	}
	defer conn.Close()

	wc := &wsConn{c: conn}
	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))
		return nil
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, data, rerr := conn.ReadMessage()
		if rerr != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(120 * time.Second))

		var msg wsAskMsg
		if err := json.Unmarshal(data, &msg); err != nil {
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"invalid json"}`))
			continue
		}
		if msg.Question == "" {
			_ = wc.writeText([]byte(`{"type":"error","code":"INVALID_ARGUMENT","message":"question is required"}`))
			continue
		}

		res, err := h.chat.Ask(ctx, userID, sessionID, msg.Question)
		if err != nil {
			code := utils.CodeInternal
			var ae *utils.AppError
			if errors.As(err, &ae) {
				code = ae.Code
			}
			_ = wc.writeJSON(gin.H{"type": "error", "code": code, "message": utils.SafeMessage(err)})
			continue
		}

		if werr := wc.writeJSON(wsAnswerMsg{
			Type:      "answer",
			Question:  msg.Question,
			Answer:    res.Answer,
			Timestamp: res.Timestamp,
		}); werr != nil {
			return
		}
	}
}
