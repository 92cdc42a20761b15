package server

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/coder/websocket"

	"scrim-server/internal/lobby"
)

// chatHistoryLimit bounds each chat ring; late joiners replay at most this
// many messages per scope.
const chatHistoryLimit = 50

// Router fans events out to one lobby's online roster or to every connection,
// and keeps a bounded chat history per scope for replay.
type Router struct {
	registry *ConnectionRegistry

	globalChat []lobby.ChatMessage
	lobbyChat  map[string][]lobby.ChatMessage
	mu         sync.Mutex
}

func NewRouter(registry *ConnectionRegistry) *Router {
	return &Router{
		registry:  registry,
		lobbyChat: make(map[string][]lobby.ChatMessage),
	}
}

func (r *Router) send(conn *websocket.Conn, msg ServerMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Failed to marshal %s event: %v", msg.Type, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		log.Printf("Failed to deliver %s event: %v", msg.Type, err)
	}
}

// SendToPlayer delivers an event to one player if online.
func (r *Router) SendToPlayer(playerID, eventType string, payload interface{}) {
	conn := r.registry.ConnByPlayer(playerID)
	if conn == nil {
		return
	}
	r.send(conn, ServerMessage{Type: eventType, Payload: payload})
}

// BroadcastGlobal sends to every live connection.
func (r *Router) BroadcastGlobal(eventType string, payload interface{}) {
	msg := ServerMessage{Type: eventType, Payload: payload}
	for _, conn := range r.registry.All() {
		r.send(conn, msg)
	}
}

// BroadcastToLobby sends to the online members of a lobby's roster.
func (r *Router) BroadcastToLobby(l *lobby.Lobby, eventType string, payload interface{}) {
	msg := ServerMessage{Type: eventType, Payload: payload}
	for _, p := range l.Roster {
		conn := r.registry.ConnByPlayer(p.ID)
		if conn == nil {
			continue
		}
		r.send(conn, msg)
	}
}

// RecordChat appends a chat message to its scope's ring and returns it.
func (r *Router) RecordChat(msg lobby.ChatMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if msg.Scope == lobby.ScopeLobby && msg.LobbyID != "" {
		r.lobbyChat[msg.LobbyID] = appendBounded(r.lobbyChat[msg.LobbyID], msg)
		return
	}
	r.globalChat = appendBounded(r.globalChat, msg)
}

// ChatHistory returns a copy of the ring for a scope.
func (r *Router) ChatHistory(scope lobby.Scope, lobbyID string) []lobby.ChatMessage {
	r.mu.Lock()
	defer r.mu.Unlock()

	var src []lobby.ChatMessage
	if scope == lobby.ScopeLobby {
		src = r.lobbyChat[lobbyID]
	} else {
		src = r.globalChat
	}

	out := make([]lobby.ChatMessage, len(src))
	copy(out, src)
	return out
}

// DropLobbyChat discards a purged lobby's ring.
func (r *Router) DropLobbyChat(lobbyID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.lobbyChat, lobbyID)
}

func appendBounded(ring []lobby.ChatMessage, msg lobby.ChatMessage) []lobby.ChatMessage {
	ring = append(ring, msg)
	if len(ring) > chatHistoryLimit {
		ring = ring[len(ring)-chatHistoryLimit:]
	}
	return ring
}
