package http

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"voice-order-service/internal/service/pipeline"
	"voice-order-service/internal/service/transcript"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsRequest is a client message on the session socket. Binary frames are
// raw audio and bypass this envelope.
type wsRequest struct {
	Type     string              `json:"type"` // fragment, snapshot
	Fragment transcript.Fragment `json:"fragment"`
}

type wsResponse struct {
	Type     string             `json:"type"` // ack, snapshot, error
	Applied  bool               `json:"applied,omitempty"`
	Snapshot *pipeline.Snapshot `json:"snapshot,omitempty"`
	Error    string             `json:"error,omitempty"`
}

// streamSession feeds fragments from a websocket and answers each message
// with the session's snapshot.
func (h *handler) streamSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	logger := log.With().Str("sessionId", s.ID()).Logger()
	logger.Debug().Msg("WebSocket client connected")

	for {
		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn().Err(err).Msg("WebSocket read error")
			}
			return
		}

		resp := h.handleMessage(r, s, mt, data)
		if err := conn.WriteJSON(resp); err != nil {
			logger.Warn().Err(err).Msg("WebSocket write error")
			return
		}
	}
}

func (h *handler) handleMessage(r *http.Request, s *pipeline.Session, mt int, data []byte) wsResponse {
	if mt == websocket.BinaryMessage {
		if err := s.SendAudio(r.Context(), data); err != nil {
			return wsResponse{Type: "error", Error: err.Error()}
		}
		return wsResponse{Type: "ack", Applied: true}
	}

	var req wsRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return wsResponse{Type: "error", Error: "invalid message: " + err.Error()}
	}

	switch req.Type {
	case "fragment":
		applied, err := s.Feed(req.Fragment)
		if err != nil {
			return wsResponse{Type: "error", Error: err.Error()}
		}
		snap := s.Snapshot()
		return wsResponse{Type: "ack", Applied: applied, Snapshot: &snap}
	case "snapshot":
		snap := s.Snapshot()
		return wsResponse{Type: "snapshot", Snapshot: &snap}
	default:
		return wsResponse{Type: "error", Error: "unknown message type " + req.Type}
	}
}
