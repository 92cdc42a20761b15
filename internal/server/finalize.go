package server

import (
	"fmt"
	"log"

	"github.com/google/uuid"

	"scrim-server/internal/lobby"
)

// finalizeLobby seals team membership and moves the match to in-progress.
// Storage failures are reported to the lobby as system chat and never block
// the start: the in-memory state is authoritative and MATCH_START goes out
// regardless.
func (c *Coordinator) finalizeLobby(l *lobby.Lobby) {
	updated, err := c.store.Mutate(c.ctx, l.ID, func(l *lobby.Lobby) error {
		mergeTeamsIntoRoster(l)
		l.Phase = lobby.PhaseIdle
		l.Status = lobby.StatusInProgress
		l.Draft = nil
		l.Ready = nil
		l.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		log.Printf("Finalize failed for %s: %v", l.ID, err)
		return
	}

	// Synthetic roster entries need directory rows before the roster rewrite
	// can reference them. Tolerated on failure, merely reported.
	for _, p := range updated.Roster {
		if !p.IsBot {
			continue
		}
		if err := c.players.Upsert(c.ctx, p.ID, p.Name, p.Avatar, p.Rating, true); err != nil {
			log.Printf("Bot directory upsert failed for %s: %v", p.ID, err)
			c.systemChat(updated, fmt.Sprintf("Storage warning: bot %s could not be saved", p.Name))
		}
	}

	if err := c.matches.SetStatus(c.ctx, updated.ID, string(lobby.StatusInProgress)); err != nil {
		log.Printf("Match status write failed for %s: %v", updated.ID, err)
		c.systemChat(updated, "Storage warning: match status could not be saved")
	}

	rows := rosterEntries(updated)
	if err := c.roster.ReplaceForMatch(c.ctx, updated.ID, rows); err != nil {
		log.Printf("Roster rewrite failed for %s: %v", updated.ID, err)
		c.systemChat(updated, "Storage warning: final rosters could not be saved")
	}

	c.router.BroadcastToLobby(updated, EvtLobbyUpdate, c.snapshot(updated))
	c.router.BroadcastToLobby(updated, EvtMatchStart, c.snapshot(updated))
}

// handleServerInfo attaches game-server connect info to an existing lobby.
func (c *Coordinator) handleServerInfo(lobbyID string, info AdminServerInfoRequest) error {
	if info.IP == "" {
		return errMissingField("ip")
	}
	if _, ok := c.store.Get(lobbyID); !ok {
		return ErrLobbyNotFound
	}

	link := info.Link
	if link == "" {
		// Prefer a rendezvous URL the CRUD layer may have written directly
		// to the match record; otherwise synthesize the default.
		if m, err := c.matches.Get(c.ctx, lobbyID); err == nil && m.ConnectLink != nil && *m.ConnectLink != "" {
			link = *m.ConnectLink
		} else {
			link = fmt.Sprintf("steam://connect/%s/%s", info.IP, info.Password)
		}
	}

	updated, err := c.store.Mutate(c.ctx, lobbyID, func(l *lobby.Lobby) error {
		l.Server = &lobby.ServerInfo{IP: info.IP, Password: info.Password, Link: link}
		l.Status = lobby.StatusInProgress
		l.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.matches.SetServerInfo(c.ctx, lobbyID, info.IP, info.Password, link); err != nil {
		log.Printf("Server info write failed for %s: %v", lobbyID, err)
	}

	c.router.BroadcastToLobby(updated, EvtMatchStart, c.snapshot(updated))
	c.router.BroadcastToLobby(updated, EvtServerReady, updated.Server)
	c.router.BroadcastGlobal(EvtLobbyUpdate, c.snapshot(updated))
	return nil
}

// systemChat reports an operational note into the lobby's chat.
func (c *Coordinator) systemChat(l *lobby.Lobby, content string) {
	msg := lobby.ChatMessage{
		ID:      uuid.New().String(),
		Sender:  "system",
		Content: content,
		Scope:   lobby.ScopeLobby,
		LobbyID: l.ID,
		SentAt:  c.now(),
	}
	c.router.RecordChat(msg)
	c.router.BroadcastToLobby(l, EvtChatMessage, msg)
}

// mergeTeamsIntoRoster tags final team membership onto the roster entries.
func mergeTeamsIntoRoster(l *lobby.Lobby) {
	team := make(map[string]string, len(l.TeamA)+len(l.TeamB))
	for _, p := range l.TeamA {
		team[p.ID] = "A"
	}
	for _, p := range l.TeamB {
		team[p.ID] = "B"
	}
	for i := range l.Roster {
		if t, ok := team[l.Roster[i].ID]; ok {
			l.Roster[i].Team = t
		}
	}
}
