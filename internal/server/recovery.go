package server

import (
	"errors"
	"fmt"
	"log"

	"scrim-server/internal/draft"
	"scrim-server/internal/lobby"
	"scrim-server/internal/storage"
)

var ErrEmptyRoster = errors.New("EMPTY_ROSTER: Match has no durable roster rows")

// handleRequestState answers a state request, resurrecting the lobby from
// durable records when it is absent from memory.
func (c *Coordinator) handleRequestState(from lobby.Player, lobbyID string) error {
	if lobbyID == "" {
		return errMissingField("lobby_id")
	}

	l, ok := c.store.Get(lobbyID)
	if !ok {
		var err error
		l, err = c.resurrect(lobbyID)
		if err != nil {
			return err
		}
		log.Printf("Resurrected lobby %s (status %s, roster %d)", l.ID, l.Status, len(l.Roster))
	}

	if l.Status == lobby.StatusDrafting {
		c.router.SendToPlayer(from.ID, EvtDraftStart, c.snapshot(l))
	} else {
		c.router.SendToPlayer(from.ID, EvtLobbyUpdate, c.snapshot(l))
	}
	return nil
}

// resurrect rebuilds an authoritative lobby from the durable match and roster
// records. It is idempotent and never overrides a durable team or captain
// assignment: everything derived here is inferred only where the rows are
// silent.
func (c *Coordinator) resurrect(id string) (*lobby.Lobby, error) {
	m, err := c.matches.Get(c.ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrLobbyNotFound
		}
		return nil, fmt.Errorf("load match %s: %w", id, err)
	}

	// Terminal matches stay durable history only. Bringing one back would
	// re-index its roster and lock those players out of the queue.
	switch lobby.Status(m.Status) {
	case lobby.StatusCancelled, lobby.StatusCompleted:
		return nil, ErrLobbyNotFound
	}

	rows, err := c.roster.ListByMatch(c.ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load roster %s: %w", id, err)
	}
	if len(rows) == 0 {
		return nil, ErrEmptyRoster
	}

	roster := make([]lobby.Player, 0, len(rows))
	var teamA, teamB []lobby.Player
	for _, row := range rows {
		p := lobby.Normalize(lobby.Player{
			ID:     row.PlayerID,
			Name:   row.Name,
			Avatar: row.Avatar,
			Rating: row.Rating,
			IsBot:  row.IsBot,
		})
		if row.Team != nil {
			p.Team = *row.Team
		}
		roster = append(roster, p)
		switch p.Team {
		case "A":
			teamA = append(teamA, p)
		case "B":
			teamB = append(teamB, p)
		}
	}

	hostID := ""
	if m.HostID != nil {
		hostID = *m.HostID
	}
	captainA := pickCaptainA(rows, roster, teamA, hostID)
	captainB := pickCaptainB(rows, roster, teamB)

	l := &lobby.Lobby{
		ID:        m.ID,
		Status:    lobby.Status(m.Status),
		Phase:     lobby.PhaseIdle,
		Roster:    roster,
		CaptainA:  captainA,
		CaptainB:  captainB,
		TeamA:     teamA,
		TeamB:     teamB,
		MatchType: m.MatchType,
		HostID:    hostID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: c.now(),
	}
	if m.ServerIP != nil && *m.ServerIP != "" {
		l.Server = &lobby.ServerInfo{IP: *m.ServerIP}
		if m.ServerPassword != nil {
			l.Server.Password = *m.ServerPassword
		}
		if m.ConnectLink != nil {
			l.Server.Link = *m.ConnectLink
		}
	}

	if l.Status == lobby.StatusDrafting {
		var pool []lobby.Player
		for _, p := range roster {
			if p.Team == "" {
				pool = append(pool, p)
			}
		}
		// Turn is inferred from the parity of completed picks; the two
		// captains seeded their teams, so subtract them. Pick history is
		// not reconstructible from the rows and restarts empty - the draft
		// continues correctly without it.
		picksMade := len(teamA) + len(teamB) - 2
		if picksMade < 0 {
			picksMade = 0
		}
		now := c.now()
		l.Phase = lobby.PhaseDraft
		l.Draft = &lobby.DraftState{
			Pool:       pool,
			Turn:       draft.TurnFor(picksMade),
			PickCount:  picksMade,
			Picks:      []lobby.Pick{},
			Deadline:   now.Add(draft.TurnTimeout),
			LastPickAt: now,
		}
	}

	c.store.Put(c.ctx, l)
	return l, nil
}

func pickCaptainA(rows []storage.RosterEntry, roster, teamA []lobby.Player, hostID string) lobby.Player {
	if hostID != "" {
		if p, ok := lobby.FindPlayer(roster, hostID); ok {
			return p
		}
	}
	if p, ok := flaggedCaptain(rows, roster, "A"); ok {
		return p
	}
	if len(teamA) > 0 {
		return teamA[0]
	}
	return roster[0]
}

func pickCaptainB(rows []storage.RosterEntry, roster, teamB []lobby.Player) lobby.Player {
	if p, ok := flaggedCaptain(rows, roster, "B"); ok {
		return p
	}
	if len(teamB) > 0 {
		return teamB[0]
	}
	if len(roster) > 1 {
		return roster[1]
	}
	return roster[0]
}

func flaggedCaptain(rows []storage.RosterEntry, roster []lobby.Player, team string) (lobby.Player, bool) {
	for _, row := range rows {
		if !row.IsCaptain || row.Team == nil || *row.Team != team {
			continue
		}
		if p, ok := lobby.FindPlayer(roster, row.PlayerID); ok {
			return p, true
		}
	}
	return lobby.Player{}, false
}
