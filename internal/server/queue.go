package server

import (
	"context"
	"log"

	"github.com/google/uuid"

	"scrim-server/internal/lobby"
	"scrim-server/internal/storage"
)

// handleJoinQueue adds a player to the shard's queue and hands the roster off
// to a new lobby when it fills. The queue itself is deliberately simple; the
// interesting part is the hand-off.
func (c *Coordinator) handleJoinQueue(p lobby.Player) error {
	p = lobby.Normalize(p)
	if p.ID == "" {
		return errMissingField("player_id")
	}
	if _, ok := c.store.LobbyFor(p.ID); ok {
		return ErrAlreadyInLobby
	}
	for _, queued := range c.queue {
		if queued.ID == p.ID {
			return nil // idempotent re-join
		}
	}

	c.queue = append(c.queue, p)
	c.router.BroadcastGlobal(EvtQueueUpdate, map[string]int{"queued": len(c.queue), "needed": c.cfg.MatchSize})

	if len(c.queue) >= c.cfg.MatchSize {
		roster := c.queue[:c.cfg.MatchSize]
		c.queue = c.queue[c.cfg.MatchSize:]
		c.createLobby(roster, c.cfg.QueueType, "")
	}
	return nil
}

func (c *Coordinator) handleLeaveQueue(playerID string) error {
	for i, queued := range c.queue {
		if queued.Matches(playerID) {
			c.queue = append(c.queue[:i], c.queue[i+1:]...)
			c.router.BroadcastGlobal(EvtQueueUpdate, map[string]int{"queued": len(c.queue), "needed": c.cfg.MatchSize})
			return nil
		}
	}
	return nil
}

// createLobby builds a waiting lobby, persists the durable match and roster
// rows, announces MATCH_FOUND and opens the ready-check.
func (c *Coordinator) createLobby(roster []lobby.Player, matchType, hostID string) *lobby.Lobby {
	l := lobby.New(uuid.New().String(), roster, matchType, hostID, c.policy, c.now())
	c.store.Put(c.ctx, l)

	c.persistNewMatch(c.ctx, l)

	c.router.BroadcastToLobby(l, EvtMatchFound, c.snapshot(l))
	c.startReadyCheck(l)
	return l
}

// persistNewMatch writes the relational match + roster rows. Failures are
// logged, not fatal: the in-memory lobby stays authoritative and the rows are
// rewritten at finalization anyway.
func (c *Coordinator) persistNewMatch(ctx context.Context, l *lobby.Lobby) {
	var hostID *string
	if l.HostID != "" {
		hostID = &l.HostID
	}
	if err := c.matches.Upsert(ctx, storage.Match{
		ID:        l.ID,
		Status:    string(l.Status),
		MatchType: l.MatchType,
		HostID:    hostID,
	}); err != nil {
		log.Printf("Match insert failed for %s: %v", l.ID, err)
		return
	}

	if err := c.roster.ReplaceForMatch(ctx, l.ID, rosterEntries(l)); err != nil {
		log.Printf("Roster insert failed for %s: %v", l.ID, err)
	}
}

func rosterEntries(l *lobby.Lobby) []storage.RosterEntry {
	entries := make([]storage.RosterEntry, 0, len(l.Roster))
	for _, p := range l.Roster {
		entries = append(entries, rosterEntry(l, p))
	}
	return entries
}

func rosterEntry(l *lobby.Lobby, p lobby.Player) storage.RosterEntry {
	var team *string
	if p.Team != "" {
		t := p.Team
		team = &t
	}
	return storage.RosterEntry{
		MatchID:   l.ID,
		PlayerID:  p.ID,
		Team:      team,
		IsCaptain: p.ID == l.CaptainA.ID || p.ID == l.CaptainB.ID,
	}
}
