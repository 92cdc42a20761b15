// Package draft implements the captain pick sequencing for a 10-player match.
// It is a pure rules package: it mutates lobby state and reports outcomes, but
// performs no I/O and owns no timers.
package draft

import (
	"errors"
	"time"

	"scrim-server/internal/lobby"
)

var (
	ErrNotDrafting  = errors.New("NOT_DRAFTING: No draft in progress for this lobby")
	ErrWrongTurn    = errors.New("WRONG_TURN: It is not this captain's turn to pick")
	ErrNotInPool    = errors.New("NOT_IN_POOL: Picked player is not in the draft pool")
	ErrPoolTooSmall = errors.New("POOL_TOO_SMALL: Not enough players to start a draft")
)

// Order is the fixed pick sequence for a 10-player match: 7 manual picks
// alternating from captain A, the 8th pool member auto-joins team B.
var Order = [7]lobby.Side{
	lobby.SideA,
	lobby.SideB,
	lobby.SideA,
	lobby.SideB,
	lobby.SideA,
	lobby.SideB,
	lobby.SideA,
}

// TurnTimeout is the per-pick countdown.
const TurnTimeout = 30 * time.Second

// Begin moves the lobby into the draft phase. The pool is the roster minus
// the captains; captains seed their own teams. Any active ready-check is
// discarded: the phases are mutually exclusive.
func Begin(l *lobby.Lobby, now time.Time) error {
	pool := make([]lobby.Player, 0, len(l.Roster))
	for _, p := range l.Roster {
		if p.ID == l.CaptainA.ID || p.ID == l.CaptainB.ID {
			continue
		}
		pool = append(pool, p)
	}
	if len(pool) < 2 {
		return ErrPoolTooSmall
	}

	l.Phase = lobby.PhaseDraft
	l.Status = lobby.StatusDrafting
	l.Ready = nil
	l.TeamA = []lobby.Player{}
	l.TeamB = []lobby.Player{}
	assign(l, l.CaptainA, lobby.SideA)
	assign(l, l.CaptainB, lobby.SideB)
	l.Draft = &lobby.DraftState{
		Pool:       pool,
		Turn:       lobby.SideA,
		PickCount:  0,
		Picks:      []lobby.Pick{},
		Deadline:   now.Add(TurnTimeout),
		LastPickAt: now,
	}
	l.UpdatedAt = now
	return nil
}

// TurnFor returns the side expected to pick after n completed picks.
func TurnFor(n int) lobby.Side {
	if n < 0 || n >= len(Order) {
		return lobby.SideB
	}
	return Order[n]
}

// ApplyPick validates and applies one captain pick. On success the target
// moves pool -> team, the pick is recorded, the turn advances by indexing
// Order with the new pick count and the countdown resets. done reports that
// the draft just finished: either the order is exhausted or exactly one pool
// member remains, in which case the remainder is auto-assigned to team B.
// A rejected pick leaves the lobby untouched.
func ApplyPick(l *lobby.Lobby, captainID, targetID string, now time.Time) (done bool, err error) {
	if l.Phase != lobby.PhaseDraft || l.Draft == nil {
		return false, ErrNotDrafting
	}
	d := l.Draft

	expected := l.Captain(d.Turn)
	if !expected.Matches(captainID) {
		return false, ErrWrongTurn
	}

	idx := -1
	for i, p := range d.Pool {
		if p.Matches(targetID) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, ErrNotInPool
	}

	picked := d.Pool[idx]
	d.Pool = append(d.Pool[:idx], d.Pool[idx+1:]...)
	assign(l, picked, d.Turn)

	d.Picks = append(d.Picks, lobby.Pick{
		PickerID: expected.ID,
		PlayerID: picked.ID,
		At:       now,
	})
	d.PickCount++
	d.LastPickAt = now
	l.UpdatedAt = now

	// Pool-of-one takes precedence over the remaining order: the last
	// member could never be picked, so the draft ends here.
	if d.PickCount >= len(Order) || len(d.Pool) == 1 {
		if len(d.Pool) == 1 {
			assign(l, d.Pool[0], lobby.SideB)
			d.Pool = nil
		}
		return true, nil
	}

	d.Turn = TurnFor(d.PickCount)
	d.Deadline = now.Add(TurnTimeout)
	return false, nil
}

// AutoPickTarget selects the highest-rated pool member.
func AutoPickTarget(pool []lobby.Player) (lobby.Player, bool) {
	if len(pool) == 0 {
		return lobby.Player{}, false
	}
	best := pool[0]
	for _, p := range pool[1:] {
		if p.Rating > best.Rating {
			best = p
		}
	}
	return best, true
}

func assign(l *lobby.Lobby, p lobby.Player, side lobby.Side) {
	if side == lobby.SideB {
		p.Team = "B"
		l.TeamB = append(l.TeamB, p)
		return
	}
	p.Team = "A"
	l.TeamA = append(l.TeamA, p)
}
