package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"solace/internal/chat"
	"solace/internal/protocol"
)

const (
	wsWriteTimeout = 10 * time.Second
	wsReadTimeout  = 120 * time.Second
	wsReadLimit    = 64 << 10
)

// handleChatWS carries the process_text operation over a persistent
// websocket: one chat_request in, one chat_reply (or error_event) out.
func (s *Server) handleChatWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	s.metrics.ActiveWSConnections.Inc()
	defer s.metrics.ActiveWSConnections.Dec()

	conn.SetReadLimit(wsReadLimit)
	_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
	conn.SetPongHandler(func(string) error {
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		return nil
	})

	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadTimeout))
		if msgType != websocket.TextMessage {
			continue
		}

		parsed, err := protocol.ParseClientMessage(data)
		if err != nil {
			if !s.writeWS(conn, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   "invalid_client_message",
				Detail: err.Error(),
			}) {
				return
			}
			continue
		}

		req, ok := parsed.(protocol.ChatRequest)
		if !ok {
			continue
		}

		reply, err := s.companion.ProcessText(r.Context(), req.UserID, req.Text)
		if err != nil {
			s.metrics.RequestsTotal.WithLabelValues("ws_chat", string(chat.FaultOf(err))).Inc()
			if !s.writeWS(conn, protocol.ErrorEvent{
				Type:   protocol.TypeErrorEvent,
				Code:   string(chat.FaultOf(err)),
				Detail: chat.PublicMessage(err),
			}) {
				return
			}
			continue
		}

		s.metrics.RequestsTotal.WithLabelValues("ws_chat", "ok").Inc()
		if !s.writeWS(conn, protocol.ChatReply{
			Type:     protocol.TypeChatReply,
			UserID:   req.UserID,
			Response: reply,
		}) {
			return
		}
	}
}

func (s *Server) writeWS(conn *websocket.Conn, msg any) bool {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return conn.WriteJSON(msg) == nil
}
