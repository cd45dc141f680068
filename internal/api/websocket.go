package api

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/IsacDav66/Criptobot/internal/events"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsMessage tags the event stream so the dashboard can demultiplex
// status updates from cycle records on one connection.
type wsMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func (s *Server) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("ws upgrade error: %v", err)
		return
	}
	defer conn.Close()

	if s.Bus == nil {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"bus not ready"}`))
		return
	}

	statuses, unsubStatus := s.Bus.Subscribe(events.EventStatus, 100)
	defer unsubStatus()
	cycles, unsubCycles := s.Bus.Subscribe(events.EventCycle, 100)
	defer unsubCycles()

	// Seed the connection with the current state so the dashboard does
	// not wait a full cycle for its first paint.
	if snap, ok := s.Statuses.Latest(); ok {
		if err := conn.WriteJSON(wsMessage{Type: "status", Payload: snap}); err != nil {
			return
		}
	}

	for {
		select {
		case msg, ok := <-statuses:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "status", Payload: msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case msg, ok := <-cycles:
			if !ok {
				return
			}
			if err := conn.WriteJSON(wsMessage{Type: "cycle", Payload: msg}); err != nil {
				log.Printf("ws write error: %v", err)
				return
			}
		case <-c.Request.Context().Done():
			return
		}
	}
}
