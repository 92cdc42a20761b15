package server

import (
	"context"
	"errors"
	"log"

	"scrim-server/internal/lobby"
)

var ErrLobbyNotFound = errors.New("LOBBY_NOT_FOUND: Lobby not found")

// Snapshotter persists the full active-lobby map under one durable key.
type Snapshotter interface {
	Save(ctx context.Context, lobbies map[string]*lobby.Lobby) error
	Load(ctx context.Context) (map[string]*lobby.Lobby, error)
}

// Store owns the authoritative in-memory lobby map and the player -> lobby
// index. It is owned by the coordinator actor: every access happens on the
// coordinator goroutine, so it carries no locking.
type Store struct {
	lobbies     map[string]*lobby.Lobby
	playerLobby map[string]string // canonical playerID -> lobbyID
	snapshots   Snapshotter
}

func NewStore(snapshots Snapshotter) *Store {
	return &Store{
		lobbies:     make(map[string]*lobby.Lobby),
		playerLobby: make(map[string]string),
		snapshots:   snapshots,
	}
}

func (s *Store) Get(id string) (*lobby.Lobby, bool) {
	l, ok := s.lobbies[id]
	return l, ok
}

// LobbyFor resolves the active lobby a player belongs to, if any.
func (s *Store) LobbyFor(playerID string) (*lobby.Lobby, bool) {
	id, ok := s.playerLobby[playerID]
	if !ok {
		return nil, false
	}
	l, ok := s.lobbies[id]
	return l, ok
}

// Put stores a lobby, rebuilds its roster index and write-through persists.
func (s *Store) Put(ctx context.Context, l *lobby.Lobby) {
	s.lobbies[l.ID] = l
	s.indexRoster(l)
	s.persist(ctx)
}

// Mutate applies a transform and persists the whole map before returning, so
// any broadcast of the result never reflects a stale read. A transform error
// aborts without persisting.
func (s *Store) Mutate(ctx context.Context, id string, fn func(*lobby.Lobby) error) (*lobby.Lobby, error) {
	l, ok := s.lobbies[id]
	if !ok {
		return nil, ErrLobbyNotFound
	}
	if err := fn(l); err != nil {
		return nil, err
	}
	s.indexRoster(l)
	s.persist(ctx)
	return l, nil
}

// Purge removes a lobby from memory, the snapshot, and the player index.
func (s *Store) Purge(ctx context.Context, id string) {
	l, ok := s.lobbies[id]
	if !ok {
		return
	}
	for _, p := range l.Roster {
		if s.playerLobby[p.ID] == id {
			delete(s.playerLobby, p.ID)
		}
	}
	delete(s.lobbies, id)
	s.persist(ctx)
}

// Unindex drops a player's lobby mapping, but only when it still points at
// the given lobby. A mapping owned by another lobby is left alone.
func (s *Store) Unindex(playerID, lobbyID string) {
	if s.playerLobby[playerID] == lobbyID {
		delete(s.playerLobby, playerID)
	}
}

// Persist forces a snapshot write. Used by the periodic save task and
// shutdown; failures are logged, in-memory state stays authoritative.
func (s *Store) Persist(ctx context.Context) {
	s.persist(ctx)
}

// Restore loads the snapshot into memory, rebuilding the player index.
func (s *Store) Restore(ctx context.Context) error {
	lobbies, err := s.snapshots.Load(ctx)
	if err != nil {
		return err
	}
	s.lobbies = lobbies
	s.playerLobby = make(map[string]string)
	for _, l := range lobbies {
		s.indexRoster(l)
	}
	return nil
}

func (s *Store) Len() int { return len(s.lobbies) }

// Each visits every lobby. The visitor must not add or remove lobbies.
func (s *Store) Each(fn func(*lobby.Lobby)) {
	for _, l := range s.lobbies {
		fn(l)
	}
}

// IDs returns the active lobby ids; used where the visitor needs to purge.
func (s *Store) IDs() []string {
	ids := make([]string, 0, len(s.lobbies))
	for id := range s.lobbies {
		ids = append(ids, id)
	}
	return ids
}

func (s *Store) indexRoster(l *lobby.Lobby) {
	for _, p := range l.Roster {
		s.playerLobby[p.ID] = l.ID
	}
}

func (s *Store) persist(ctx context.Context) {
	if s.snapshots == nil {
		return
	}
	if err := s.snapshots.Save(ctx, s.lobbies); err != nil {
		log.Printf("Snapshot write failed (%d lobbies): %v", len(s.lobbies), err)
	}
}
