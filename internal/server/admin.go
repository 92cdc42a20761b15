package server

import (
	"encoding/json"
	"log"

	"scrim-server/internal/lobby"
)

// handleAdminJoin is the capacity-checked roster add used by the CRUD layer.
// The durable roster insert is the critical path here: if it fails, the
// in-memory addition is rolled back and the error surfaces to the caller.
func (c *Coordinator) handleAdminJoin(lobbyID string, p lobby.Player, team string) error {
	p = lobby.Normalize(p)
	if p.ID == "" {
		return errMissingField("player.id")
	}

	l, ok := c.store.Get(lobbyID)
	if !ok {
		return ErrLobbyNotFound
	}
	// A player maps to at most one active lobby, this one included.
	if _, ok := c.store.LobbyFor(p.ID); ok {
		return ErrAlreadyInLobby
	}
	if l.InRoster(p.ID) {
		return ErrAlreadyInLobby
	}
	if len(l.Roster) >= c.cfg.MatchSize {
		return ErrLobbyFull
	}
	if team == "A" && len(l.TeamA) >= c.cfg.MatchSize/2 {
		return ErrTeamFull
	}
	if team == "B" && len(l.TeamB) >= c.cfg.MatchSize/2 {
		return ErrTeamFull
	}

	p.Team = team
	updated, err := c.store.Mutate(c.ctx, lobbyID, func(l *lobby.Lobby) error {
		l.Roster = append(l.Roster, p)
		switch team {
		case "A":
			l.TeamA = append(l.TeamA, p)
		case "B":
			l.TeamB = append(l.TeamB, p)
		}
		l.UpdatedAt = c.now()
		return nil
	})
	if err != nil {
		return err
	}

	if err := c.roster.Insert(c.ctx, rosterEntry(updated, p)); err != nil {
		log.Printf("Roster insert failed for %s/%s, rolling back: %v", lobbyID, p.ID, err)
		_, _ = c.store.Mutate(c.ctx, lobbyID, func(l *lobby.Lobby) error {
			l.Roster = removePlayer(l.Roster, p.ID)
			l.TeamA = removePlayer(l.TeamA, p.ID)
			l.TeamB = removePlayer(l.TeamB, p.ID)
			return nil
		})
		c.store.Unindex(p.ID, lobbyID)
		return err
	}

	c.router.BroadcastToLobby(updated, EvtLobbyUpdate, c.snapshot(updated))
	return nil
}

// handlePurge drops a lobby from the active set. Durable match history stays.
func (c *Coordinator) handlePurge(lobbyID string) error {
	l, ok := c.store.Get(lobbyID)
	if !ok {
		return ErrLobbyNotFound
	}
	c.router.BroadcastToLobby(l, EvtMatchCancelled, MatchCancelledPayload{LobbyID: l.ID, Reason: "Lobby purged"})
	c.store.Purge(c.ctx, lobbyID)
	c.router.DropLobbyChat(lobbyID)
	return nil
}

// handleAdminBroadcast relays a typed event. A MATCH_FOUND event whose body
// is a full lobby injects an externally created match into this coordinator.
func (c *Coordinator) handleAdminBroadcast(req AdminBroadcastRequest) error {
	if req.Type == "" {
		return errMissingField("type")
	}

	if req.Type == EvtMatchFound && len(req.Payload) > 0 {
		return c.injectLobby(req.Payload)
	}

	var payload interface{}
	if len(req.Payload) > 0 {
		if err := json.Unmarshal(req.Payload, &payload); err != nil {
			return errMissingField("payload")
		}
	}

	if req.LobbyID != "" {
		l, ok := c.store.Get(req.LobbyID)
		if !ok {
			return ErrLobbyNotFound
		}
		c.router.BroadcastToLobby(l, req.Type, payload)
		return nil
	}
	c.router.BroadcastGlobal(req.Type, payload)
	return nil
}

func (c *Coordinator) injectLobby(raw json.RawMessage) error {
	var l lobby.Lobby
	if err := json.Unmarshal(raw, &l); err != nil {
		return errMissingField("payload")
	}
	if l.ID == "" {
		return errMissingField("payload.id")
	}
	if len(l.Roster) == 0 {
		return ErrEmptyRoster
	}

	for i := range l.Roster {
		l.Roster[i] = lobby.Normalize(l.Roster[i])
	}
	if l.Status == "" {
		l.Status = lobby.StatusWaiting
	}
	if l.Phase == "" {
		l.Phase = lobby.PhaseIdle
	}
	now := c.now()
	if l.CreatedAt.IsZero() {
		l.CreatedAt = now
	}
	l.UpdatedAt = now

	c.store.Put(c.ctx, &l)
	c.persistNewMatch(c.ctx, &l)
	c.router.BroadcastToLobby(&l, EvtMatchFound, c.snapshot(&l))

	if l.Status == lobby.StatusWaiting {
		c.startReadyCheck(&l)
	}
	return nil
}

func removePlayer(players []lobby.Player, id string) []lobby.Player {
	out := players[:0]
	for _, p := range players {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out
}
