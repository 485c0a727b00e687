// README: Websocket stream of a user's live view and notifications.
package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"campusride/internal/http/middleware"
	"campusride/internal/modules/notify"
	"campusride/internal/modules/session"
)

const (
	frameState        = "state"
	frameNotification = "notification"
	frameDismiss      = "dismiss"

	writeWait = 10 * time.Second
)

type frame struct {
	Type          string                `json:"type"`
	View          *session.View         `json:"view,omitempty"`
	Notifications []notify.Notification `json:"notifications,omitempty"`
}

// clientFrame is what the client may send: dismissing a notification early.
type clientFrame struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

type StreamHandler struct {
	sessions     *session.Manager
	upgrader     websocket.Upgrader
	pingInterval time.Duration
	log          *slog.Logger
}

func NewStreamHandler(sessions *session.Manager, pingInterval time.Duration, log *slog.Logger) *StreamHandler {
	return &StreamHandler{
		sessions:     sessions,
		upgrader:     websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		pingInterval: pingInterval,
		log:          log,
	}
}

// conn serializes writes; gorilla allows one concurrent writer.
type conn struct {
	mu sync.Mutex
	ws *websocket.Conn
}

func (c *conn) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
	return c.ws.WriteJSON(v)
}

func (c *conn) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

func (h *StreamHandler) Serve(c *gin.Context) {
	user, _ := middleware.CallerUser(c)
	ws, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "uid", user.UID, "error", err)
		return
	}
	defer ws.Close()
	out := &conn{ws: ws}

	sess, release := h.sessions.Attach(middleware.CallerActor(c), user.DeviceToken)
	defer release()
	updates, stop := sess.Listen()
	defer stop()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go h.readLoop(ws, sess, cancel)

	if pending := sess.Notifications(); len(pending) > 0 {
		if err := out.writeJSON(frame{Type: frameNotification, Notifications: pending}); err != nil {
			return
		}
	}

	ticker := time.NewTicker(h.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case u, ok := <-updates:
			if !ok {
				return
			}
			view := u.View
			if err := out.writeJSON(frame{Type: frameState, View: &view}); err != nil {
				h.log.Debug("stream write failed", "uid", user.UID, "error", err)
				return
			}
			if len(u.New) > 0 {
				if err := out.writeJSON(frame{Type: frameNotification, Notifications: u.New}); err != nil {
					return
				}
			}
		case <-ticker.C:
			if err := out.ping(); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames until the connection drops.
func (h *StreamHandler) readLoop(ws *websocket.Conn, sess *session.Session, cancel context.CancelFunc) {
	defer cancel()
	ws.SetReadLimit(4096)
	_ = ws.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * h.pingInterval))
	})
	for {
		var msg clientFrame
		if err := ws.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == frameDismiss && msg.ID != "" {
			sess.Dismiss(msg.ID)
		}
	}
}
