package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/thywilljoshua/scholar-refine/internal/session"
)

const (
	writeWait  = 10 * time.Second
	pingPeriod = 30 * time.Second
)

// The zero CheckOrigin rejects cross-origin upgrades.
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket streams the session's state events. The first message is
// the current state so a reconnecting page can resync.
func (s *Server) handleWebSocket(c *gin.Context) {
	sess := currentSession(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	events, unsubscribe := sess.Subscribe()
	defer unsubscribe()

	snap := sess.Snapshot()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(session.Event{State: snap.State, Message: snap.Error, At: time.Now()}); err != nil {
		return
	}

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case e, ok := <-events:
			if !ok {
				conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"),
					time.Now().Add(writeWait))
				return
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-closed:
			return
		}
	}
}
