package rpc

import (
	"context"
	"log"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/haptic_retargeting/internal/retargeting"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // tuning tools run from arbitrary local pages
	},
}

// WSMessage is a client request on the websocket.
type WSMessage struct {
	Action string   `json:"action"` // setMinThreshold, setMaxThreshold, setThresholds, removeOffset, status
	Group  string   `json:"group,omitempty"`
	Value  *float64 `json:"value,omitempty"`
	Min    *float64 `json:"min,omitempty"`
	Max    *float64 `json:"max,omitempty"`
}

// WSResponse is a server message on the websocket.
type WSResponse struct {
	Type    string                    `json:"type"` // session, result, status, error
	Session string                    `json:"session,omitempty"`
	Action  string                    `json:"action,omitempty"`
	OK      bool                      `json:"ok,omitempty"`
	Groups  []retargeting.GroupStatus `json:"groups,omitempty"`
	Message string                    `json:"message,omitempty"`
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("rpc: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	log.Printf("rpc: websocket session %s opened from %s", session, r.RemoteAddr)
	defer log.Printf("rpc: websocket session %s closed", session)

	if err := conn.WriteJSON(WSResponse{Type: "session", Session: session}); err != nil {
		return
	}

	for {
		var msg WSMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("rpc: websocket read error: %v", err)
			}
			return
		}
		if err := conn.WriteJSON(s.serveWS(r.Context(), session, msg)); err != nil {
			log.Printf("rpc: websocket write error: %v", err)
			return
		}
	}
}

func (s *Server) serveWS(parent context.Context, session string, msg WSMessage) WSResponse {
	ctx, cancel := context.WithTimeout(parent, s.timeout)
	defer cancel()

	if msg.Action == "status" {
		snap, err := s.ctrl.Snapshot(ctx)
		if err != nil {
			return WSResponse{Type: "error", Session: session, Action: msg.Action, Message: err.Error()}
		}
		return WSResponse{Type: "status", Session: session, Groups: snap}
	}

	ok, err := Invoke(ctx, s.ctrl, msg.Action, Params{Group: msg.Group, Value: msg.Value, Min: msg.Min, Max: msg.Max})
	if err != nil {
		return WSResponse{Type: "error", Session: session, Action: msg.Action, Message: err.Error()}
	}
	return WSResponse{Type: "result", Session: session, Action: msg.Action, OK: ok}
}
