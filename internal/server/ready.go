package server

import (
	"log"

	"scrim-server/internal/lobby"
)

// startReadyCheck opens the all-confirm-or-cancel gate on a lobby.
func (c *Coordinator) startReadyCheck(l *lobby.Lobby) {
	now := c.now()
	updated, err := c.store.Mutate(c.ctx, l.ID, func(l *lobby.Lobby) error {
		l.Phase = lobby.PhaseReady
		l.Status = lobby.StatusReadyCheck
		l.Draft = nil
		l.Ready = &lobby.ReadyState{
			ReadyIDs: make(map[string]bool),
			Deadline: now.Add(c.cfg.ReadyTimeout),
		}
		l.UpdatedAt = now
		return nil
	})
	if err != nil {
		log.Printf("Ready-check start failed for %s: %v", l.ID, err)
		return
	}
	c.router.BroadcastToLobby(updated, EvtReadyCheckUpdate, c.readyPayload(updated))
}

// handlePlayerReady is an idempotent confirm. Full-roster confirmation exits
// the gate immediately without waiting out the timer.
func (c *Coordinator) handlePlayerReady(from lobby.Player, lobbyID string) error {
	var l *lobby.Lobby
	var ok bool
	if lobbyID == "" {
		// PLAYER_READY may omit the lobby id; the index resolves it.
		l, ok = c.store.LobbyFor(from.ID)
	} else {
		l, ok = c.store.Get(lobbyID)
	}
	if !ok {
		return ErrLobbyNotFound
	}
	lobbyID = l.ID
	if l.Phase != lobby.PhaseReady || l.Ready == nil {
		return ErrNoReadyCheck
	}
	member, ok := lobby.FindPlayer(l.Roster, from.ID)
	if !ok {
		return ErrNotInLobby
	}

	updated, err := c.store.Mutate(c.ctx, lobbyID, func(l *lobby.Lobby) error {
		l.Ready.ReadyIDs[member.ID] = true
		l.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		return err
	}

	if updated.AllReady() {
		c.router.BroadcastToLobby(updated, EvtReadyCheckUpdate, c.readyPayload(updated))
		c.advanceFromReady(updated)
		return nil
	}

	// Same throttle as the tick path: every 5th second or the final five.
	remaining := updated.Remaining(c.now())
	if remaining <= 5 || remaining%5 == 0 {
		c.router.BroadcastToLobby(updated, EvtReadyCheckUpdate, c.readyPayload(updated))
	}
	return nil
}

// advanceFromReady leaves the ready phase: undrafted lobbies move into the
// draft, already-formed teams go straight to hand-off.
func (c *Coordinator) advanceFromReady(l *lobby.Lobby) {
	if len(l.TeamA) == 0 && len(l.TeamB) == 0 {
		c.startDraft(l)
		return
	}
	c.finalizeLobby(l)
}

// cancelLobby tears a lobby down: removed from the active set, every roster
// player->lobby mapping cleared, MATCH_CANCELLED to whoever is online.
func (c *Coordinator) cancelLobby(l *lobby.Lobby, reason string) {
	c.router.BroadcastToLobby(l, EvtMatchCancelled, MatchCancelledPayload{LobbyID: l.ID, Reason: reason})

	if err := c.matches.SetStatus(c.ctx, l.ID, string(lobby.StatusCancelled)); err != nil {
		log.Printf("Match cancel status write failed for %s: %v", l.ID, err)
	}

	c.store.Purge(c.ctx, l.ID)
	c.router.DropLobbyChat(l.ID)
}

func (c *Coordinator) readyPayload(l *lobby.Lobby) ReadyCheckPayload {
	ids := make([]string, 0)
	if l.Ready != nil {
		for id := range l.Ready.ReadyIDs {
			ids = append(ids, id)
		}
	}
	return ReadyCheckPayload{
		LobbyID:   l.ID,
		ReadyIDs:  ids,
		Total:     len(l.Roster),
		Countdown: l.Remaining(c.now()),
	}
}
