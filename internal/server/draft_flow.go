package server

import (
	"errors"
	"log"
	"time"

	"scrim-server/internal/draft"
	"scrim-server/internal/lobby"
)

// startDraft moves a lobby into the draft phase and kicks off the bot chain
// when a synthetic captain holds the first turn.
func (c *Coordinator) startDraft(l *lobby.Lobby) {
	updated, err := c.store.Mutate(c.ctx, l.ID, func(l *lobby.Lobby) error {
		return draft.Begin(l, c.now())
	})
	if err != nil {
		log.Printf("Draft start failed for %s: %v", l.ID, err)
		// An undraftable roster can never leave the ready phase on its
		// own; tear the lobby down instead of re-failing every tick.
		if errors.Is(err, draft.ErrPoolTooSmall) {
			c.cancelLobby(l, "Not enough players to start a draft")
		}
		return
	}

	if err := c.matches.SetStatus(c.ctx, l.ID, string(lobby.StatusDrafting)); err != nil {
		log.Printf("Match status write failed for %s: %v", l.ID, err)
	}

	c.router.BroadcastToLobby(updated, EvtDraftStart, c.snapshot(updated))

	if updated.Captain(updated.Draft.Turn).IsBot {
		c.scheduleAutoPick(updated.ID, true)
	}
}

// handleDraftPick applies a manual captain pick. Validation failures reject
// with no state change.
func (c *Coordinator) handleDraftPick(from lobby.Player, lobbyID, targetID string) error {
	if lobbyID == "" {
		return errMissingField("lobby_id")
	}
	if targetID == "" {
		return errMissingField("picked_player_id")
	}
	if _, ok := c.store.Get(lobbyID); !ok {
		return ErrLobbyNotFound
	}
	return c.commitPick(lobbyID, from.ID, targetID)
}

// handleAutoPick commits a scheduled or timer-forced auto-pick. The bot-chain
// path (requireBot) re-validates after its artificial delay and backs off if
// the turn has passed to a human; the timer path picks for anyone.
func (c *Coordinator) handleAutoPick(lobbyID string, requireBot bool) {
	l, ok := c.store.Get(lobbyID)
	if !ok || l.Phase != lobby.PhaseDraft || l.Draft == nil {
		return // lobby finished or vanished while the delay ran
	}

	captain := l.Captain(l.Draft.Turn)
	if requireBot && !captain.IsBot {
		return
	}

	target, ok := draft.AutoPickTarget(l.Draft.Pool)
	if !ok {
		return
	}
	if err := c.commitPick(lobbyID, captain.ID, target.ID); err != nil {
		log.Printf("Auto-pick failed for %s: %v", lobbyID, err)
	}
}

// commitPick is the single transition shared by the manual and auto paths:
// apply, persist, then broadcast or finalize.
func (c *Coordinator) commitPick(lobbyID, pickerID, targetID string) error {
	var done bool
	updated, err := c.store.Mutate(c.ctx, lobbyID, func(l *lobby.Lobby) error {
		var applyErr error
		done, applyErr = draft.ApplyPick(l, pickerID, targetID, c.now())
		return applyErr
	})
	if err != nil {
		return err
	}

	if done {
		c.finalizeLobby(updated)
		return nil
	}

	c.router.BroadcastToLobby(updated, EvtDraftUpdate, c.snapshot(updated))

	if updated.Captain(updated.Draft.Turn).IsBot {
		c.scheduleAutoPick(updated.ID, true)
	}
	return nil
}

// scheduleAutoPick models the fixed pre-commit delay for bot picks. The
// commit re-enters through the inbox so it serializes with everything else.
func (c *Coordinator) scheduleAutoPick(lobbyID string, requireBot bool) {
	time.AfterFunc(c.cfg.BotPickDelay, func() {
		select {
		case c.inbox <- cmdAutoPick{LobbyID: lobbyID, RequireBot: requireBot}:
		case <-c.ctx.Done():
		}
	})
}
