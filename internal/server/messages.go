package server

import (
	"encoding/json"

	"scrim-server/internal/lobby"
)

type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type ServerMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// Inbound message types.
const (
	MsgRegister          = "REGISTER"
	MsgJoinQueue         = "JOIN_QUEUE"
	MsgLeaveQueue        = "LEAVE_QUEUE"
	MsgSendChat          = "SEND_CHAT"
	MsgDraftPick         = "DRAFT_PICK"
	MsgPlayerReady       = "PLAYER_READY"
	MsgRequestMatchState = "REQUEST_MATCH_STATE"
	MsgPing              = "ping"
)

// Outbound event types.
const (
	EvtQueueUpdate      = "QUEUE_UPDATE"
	EvtMatchFound       = "MATCH_FOUND"
	EvtDraftStart       = "DRAFT_START"
	EvtDraftUpdate      = "DRAFT_UPDATE"
	EvtDraftTick        = "DRAFT_TICK"
	EvtReadyCheckUpdate = "READY_CHECK_UPDATE"
	EvtMatchCancelled   = "MATCH_CANCELLED"
	EvtLobbyUpdate      = "LOBBY_UPDATE"
	EvtMatchStart       = "MATCH_START"
	EvtServerReady      = "SERVER_READY"
	EvtChatMessage      = "CHAT_MESSAGE"
	EvtChatHistory      = "CHAT_HISTORY"
	EvtReconnectLobby   = "RECONNECT_LOBBY"
	EvtError            = "ERROR"
	EvtPong             = "pong"
)

// ============================================================================
// REGISTER
// ============================================================================
type RegisterRequest struct {
	PlayerID   string `json:"player_id"`
	AltID      string `json:"alt_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	Rating     int    `json:"rating,omitempty"`
}

// ============================================================================
// SEND_CHAT
// ============================================================================
type SendChatRequest struct {
	Content string `json:"content"`
	Scope   string `json:"scope"` // "global" | "lobby"
	LobbyID string `json:"lobby_id,omitempty"`
}

// ============================================================================
// DRAFT_PICK / PLAYER_READY / REQUEST_MATCH_STATE
// ============================================================================
type DraftPickRequest struct {
	LobbyID        string `json:"lobby_id"`
	PickedPlayerID string `json:"picked_player_id"`
}

type PlayerReadyRequest struct {
	LobbyID string `json:"lobby_id"`
}

type RequestMatchStateRequest struct {
	LobbyID string `json:"lobby_id"`
}

type ErrorMessage struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// ============================================================================
// OUTBOUND PAYLOADS
// ============================================================================

// LobbySnapshot is the wire view of one lobby. Countdown is derived from the
// active phase deadline at send time; clients count down locally from it and
// the server tick stays authoritative for timeouts.
type LobbySnapshot struct {
	Lobby     *lobby.Lobby `json:"lobby"`
	Countdown int          `json:"countdown"`
}

type ChatHistoryPayload struct {
	Scope    lobby.Scope         `json:"scope"`
	LobbyID  string              `json:"lobby_id,omitempty"`
	Messages []lobby.ChatMessage `json:"messages"`
}

type ReadyCheckPayload struct {
	LobbyID   string   `json:"lobby_id"`
	ReadyIDs  []string `json:"ready_ids"`
	Total     int      `json:"total"`
	Countdown int      `json:"countdown"`
}

type DraftTickPayload struct {
	LobbyID   string     `json:"lobby_id"`
	Turn      lobby.Side `json:"turn"`
	Countdown int        `json:"countdown"`
}

type MatchCancelledPayload struct {
	LobbyID string `json:"lobby_id"`
	Reason  string `json:"reason"`
}

// ============================================================================
// ADMIN SURFACE (HTTP)
// ============================================================================
type AdminJoinLobbyRequest struct {
	Player lobby.Player `json:"player"`
	Team   string       `json:"team,omitempty"`
}

type AdminServerInfoRequest struct {
	IP       string `json:"ip"`
	Password string `json:"password"`
	Link     string `json:"link,omitempty"`
}

// AdminBroadcastRequest relays a typed event. A MATCH_FOUND event carrying a
// lobby body injects an externally created match into the coordinator.
type AdminBroadcastRequest struct {
	Type    string          `json:"type"`
	LobbyID string          `json:"lobby_id,omitempty"`
	Payload json.RawMessage `json:"payload"`
}
