package server

import (
	"errors"
	"fmt"
)

var (
	ErrNotInLobby     = errors.New("NOT_IN_LOBBY: Player is not on this lobby's roster")
	ErrLobbyFull      = errors.New("LOBBY_FULL: Lobby is at capacity")
	ErrTeamFull       = errors.New("TEAM_FULL: Team is at capacity")
	ErrAlreadyInLobby = errors.New("ALREADY_IN_LOBBY: Player is already in an active lobby")
	ErrNoReadyCheck   = errors.New("NO_READY_CHECK: No ready-check in progress for this lobby")
	ErrShuttingDown   = errors.New("SHUTTING_DOWN: Coordinator is no longer accepting commands")
)

func errMissingField(field string) error {
	return fmt.Errorf("MISSING_FIELD: Required field %q is missing", field)
}
