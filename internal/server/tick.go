package server

import (
	"context"
	"time"

	"scrim-server/internal/lobby"
)

// Scheduler drives both countdown machines with a coarse periodic tick fed
// through the coordinator inbox, so time-driven mutation serializes with
// message-driven mutation.
type Scheduler struct {
	coord    *Coordinator
	interval time.Duration
}

func NewScheduler(coord *Coordinator, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Second
	}
	return &Scheduler{coord: coord, interval: interval}
}

func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case at := <-ticker.C:
			select {
			case s.coord.inbox <- cmdTick{At: at}:
			case <-ctx.Done():
				return
			}
		}
	}
}

// handleTick advances every lobby's active countdown. Countdowns are derived
// from the stored deadline, never decremented, so a missed tick self-heals.
func (c *Coordinator) handleTick(at time.Time) {
	// Periodic safety snapshot on top of the per-mutation write-through,
	// catching anything a failed write-through missed.
	c.tickCount++
	if c.tickCount%30 == 0 {
		c.store.Persist(c.ctx)
	}

	for _, id := range c.store.IDs() {
		l, ok := c.store.Get(id)
		if !ok {
			continue
		}

		switch l.Phase {
		case lobby.PhaseDraft:
			c.tickDraft(l, at)
		case lobby.PhaseReady:
			c.tickReady(l, at)
		}
	}
}

func (c *Coordinator) tickDraft(l *lobby.Lobby, at time.Time) {
	remaining := l.Remaining(at)
	c.router.BroadcastToLobby(l, EvtDraftTick, DraftTickPayload{
		LobbyID:   l.ID,
		Turn:      l.Draft.Turn,
		Countdown: remaining,
	})

	// Expired turn forces an auto-pick, human captain or not; an
	// unresponsive player must not stall the draft.
	if remaining <= 0 {
		c.handleAutoPick(l.ID, false)
	}
}

func (c *Coordinator) tickReady(l *lobby.Lobby, at time.Time) {
	remaining := l.Remaining(at)

	if remaining <= 0 {
		if l.AllReady() {
			c.advanceFromReady(l)
			return
		}
		c.cancelLobby(l, "Ready check timed out")
		return
	}

	if remaining <= 5 || remaining%5 == 0 {
		c.router.BroadcastToLobby(l, EvtReadyCheckUpdate, c.readyPayload(l))
	}
}
