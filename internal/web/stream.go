package web

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

const pingPeriod = 30 * time.Second

// stream pushes a summary right away and then every StreamInterval until
// the client goes away.
func (s *Server) stream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.Logger.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	// Read messages (for pong and close).
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := conn.WriteJSON(s.summary()); err != nil {
		return
	}

	push := time.NewTicker(s.StreamInterval)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case <-ping.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-push.C:
			if err := conn.WriteJSON(s.summary()); err != nil {
				s.Logger.WithError(err).Debug("websocket write failed")
				return
			}
		}
	}
}
