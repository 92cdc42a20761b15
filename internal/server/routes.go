package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/coder/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"scrim-server/internal/lobby"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := chi.NewRouter()
	r.Use(corsMiddleware)

	r.Get("/health", s.healthHandler)
	r.Get("/ws", s.websocketHandler)

	// Administrative surface for the external CRUD layer. Routed through the
	// same coordinator inbox as client traffic.
	r.Route("/admin", func(r chi.Router) {
		r.Post("/lobbies/{lobbyID}/join", s.adminJoinHandler)
		r.Delete("/lobbies/{lobbyID}", s.adminPurgeHandler)
		r.Post("/lobbies/{lobbyID}/server-info", s.adminServerInfoHandler)
		r.Post("/broadcast", s.adminBroadcastHandler)
	})

	return r
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]interface{}{
		"status":  "ok",
		"lobbies": s.coordinator.store.Len(),
	}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		log.Printf("Failed to write health response: %v", err)
	}
}

func (s *Server) websocketHandler(w http.ResponseWriter, r *http.Request) {
	socket, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		http.Error(w, "Failed to open websocket", http.StatusInternalServerError)
		return
	}
	defer socket.Close(websocket.StatusGoingAway, "Server closing")

	ctx := r.Context()
	connectionID := uuid.New().String()
	log.Printf("New connection: %s", connectionID)

	s.registry.Add(connectionID, socket)
	defer func() {
		s.coordinator.inbox <- cmdUnregister{ConnID: connectionID}
		s.limiter.Forget(connectionID)
		log.Printf("Connection closed: %s", connectionID)
	}()

	for {
		msgType, data, err := socket.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
			default:
				log.Printf("Connection %s read error: %v", connectionID, err)
			}
			return
		}
		if msgType != websocket.MessageText {
			continue
		}

		if !s.limiter.Allow(connectionID) {
			s.sendError(socket, r, "RATE_LIMITED: Too many messages")
			continue
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(socket, r, "BAD_JSON: Invalid message")
			continue
		}

		s.dispatchClientMessage(socket, r, connectionID, msg)
	}
}

func (s *Server) dispatchClientMessage(socket *websocket.Conn, r *http.Request, connectionID string, msg ClientMessage) {
	switch msg.Type {
	case MsgPing:
		s.router.send(socket, ServerMessage{Type: EvtPong, Payload: struct{}{}})
		return

	case MsgRegister:
		var req RegisterRequest
		if err := json.Unmarshal(msg.Payload, &req); err != nil {
			s.sendError(socket, r, "BAD_PAYLOAD: Invalid REGISTER payload")
			return
		}
		p := lobby.Player{
			ID:         req.PlayerID,
			AltID:      req.AltID,
			ExternalID: req.ExternalID,
			Name:       req.Name,
			Avatar:     req.Avatar,
			Rating:     req.Rating,
		}
		reply := make(chan error, 1)
		if err := s.coordinator.Post(cmdRegister{ConnID: connectionID, Player: p, Reply: reply}, reply); err != nil {
			s.sendError(socket, r, err.Error())
		}
		return
	}

	// Everything else requires a bound identity.
	from, ok := s.registry.Player(connectionID)
	if !ok {
		s.sendError(socket, r, "NOT_REGISTERED: Send REGISTER first")
		return
	}

	reply := make(chan error, 1)
	var err error

	switch msg.Type {
	case MsgJoinQueue:
		err = s.coordinator.Post(cmdJoinQueue{Player: from, Reply: reply}, reply)

	case MsgLeaveQueue:
		err = s.coordinator.Post(cmdLeaveQueue{PlayerID: from.ID, Reply: reply}, reply)

	case MsgSendChat:
		var req SendChatRequest
		if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil {
			s.sendError(socket, r, "BAD_PAYLOAD: Invalid SEND_CHAT payload")
			return
		}
		err = s.coordinator.Post(cmdChat{From: from, Req: req, Reply: reply}, reply)

	case MsgDraftPick:
		var req DraftPickRequest
		if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil {
			s.sendError(socket, r, "BAD_PAYLOAD: Invalid DRAFT_PICK payload")
			return
		}
		err = s.coordinator.Post(cmdDraftPick{
			From:     from,
			LobbyID:  req.LobbyID,
			TargetID: req.PickedPlayerID,
			Reply:    reply,
		}, reply)

	case MsgPlayerReady:
		var req PlayerReadyRequest
		if len(msg.Payload) > 0 {
			if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil {
				s.sendError(socket, r, "BAD_PAYLOAD: Invalid PLAYER_READY payload")
				return
			}
		}
		err = s.coordinator.Post(cmdPlayerReady{From: from, LobbyID: req.LobbyID, Reply: reply}, reply)

	case MsgRequestMatchState:
		var req RequestMatchStateRequest
		if jsonErr := json.Unmarshal(msg.Payload, &req); jsonErr != nil {
			s.sendError(socket, r, "BAD_PAYLOAD: Invalid REQUEST_MATCH_STATE payload")
			return
		}
		err = s.coordinator.Post(cmdRequestState{From: from, LobbyID: req.LobbyID, Reply: reply}, reply)

	default:
		s.sendError(socket, r, fmt.Sprintf("UNKNOWN_TYPE: Unknown message type %q", msg.Type))
		return
	}

	if err != nil {
		s.sendError(socket, r, err.Error())
	}
}

func (s *Server) sendError(socket *websocket.Conn, _ *http.Request, message string) {
	code := ""
	if i := strings.Index(message, ": "); i > 0 {
		code = message[:i]
		message = message[i+2:]
	}
	s.router.send(socket, ServerMessage{
		Type:    EvtError,
		Payload: ErrorMessage{Code: code, Message: message},
	})
}

// ============================================================================
// ADMIN HANDLERS
// ============================================================================

func (s *Server) adminJoinHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")

	var req AdminJoinLobbyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_PAYLOAD: Invalid join body")
		return
	}

	reply := make(chan error, 1)
	if err := s.coordinator.Post(cmdAdminJoin{LobbyID: lobbyID, Player: req.Player, Team: req.Team, Reply: reply}, reply); err != nil {
		writeJSONError(w, adminStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) adminPurgeHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")

	reply := make(chan error, 1)
	if err := s.coordinator.Post(cmdPurge{LobbyID: lobbyID, Reply: reply}, reply); err != nil {
		writeJSONError(w, adminStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) adminServerInfoHandler(w http.ResponseWriter, r *http.Request) {
	lobbyID := chi.URLParam(r, "lobbyID")

	var req AdminServerInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_PAYLOAD: Invalid server-info body")
		return
	}

	reply := make(chan error, 1)
	if err := s.coordinator.Post(cmdServerInfo{LobbyID: lobbyID, Info: req, Reply: reply}, reply); err != nil {
		writeJSONError(w, adminStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) adminBroadcastHandler(w http.ResponseWriter, r *http.Request) {
	var req AdminBroadcastRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "BAD_PAYLOAD: Invalid broadcast body")
		return
	}

	reply := make(chan error, 1)
	if err := s.coordinator.Post(cmdAdminBroadcast{Req: req, Reply: reply}, reply); err != nil {
		writeJSONError(w, adminStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func adminStatus(err error) int {
	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "LOBBY_NOT_FOUND"):
		return http.StatusNotFound
	case strings.HasPrefix(msg, "LOBBY_FULL"), strings.HasPrefix(msg, "TEAM_FULL"),
		strings.HasPrefix(msg, "ALREADY_IN_LOBBY"):
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("Failed to write response: %v", err)
	}
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	code := ""
	if i := strings.Index(message, ": "); i > 0 {
		code = message[:i]
		message = message[i+2:]
	}
	writeJSON(w, status, ErrorMessage{Code: code, Message: message})
}
