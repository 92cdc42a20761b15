package server

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"scrim-server/internal/lobby"
	"scrim-server/internal/storage"
)

// ---- In-memory doubles for the durable stores ----

type fakeMatches struct {
	matches   map[string]storage.Match
	getErr    error
	upsertErr error
}

func newFakeMatches() *fakeMatches {
	return &fakeMatches{matches: make(map[string]storage.Match)}
}

func (f *fakeMatches) Get(_ context.Context, id string) (storage.Match, error) {
	if f.getErr != nil {
		return storage.Match{}, f.getErr
	}
	m, ok := f.matches[id]
	if !ok {
		return storage.Match{}, storage.ErrNotFound
	}
	return m, nil
}

func (f *fakeMatches) Upsert(_ context.Context, m storage.Match) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	f.matches[m.ID] = m
	return nil
}

func (f *fakeMatches) SetStatus(_ context.Context, id, status string) error {
	m := f.matches[id]
	m.ID = id
	m.Status = status
	f.matches[id] = m
	return nil
}

func (f *fakeMatches) SetServerInfo(_ context.Context, id, ip, password, link string) error {
	m := f.matches[id]
	m.ID = id
	m.ServerIP = &ip
	m.ServerPassword = &password
	m.ConnectLink = &link
	f.matches[id] = m
	return nil
}

func (f *fakeMatches) Delete(_ context.Context, id string) error {
	delete(f.matches, id)
	return nil
}

type fakeRoster struct {
	rows      map[string][]storage.RosterEntry
	insertErr error
}

func newFakeRoster() *fakeRoster {
	return &fakeRoster{rows: make(map[string][]storage.RosterEntry)}
}

func (f *fakeRoster) ListByMatch(_ context.Context, matchID string) ([]storage.RosterEntry, error) {
	return f.rows[matchID], nil
}

func (f *fakeRoster) Insert(_ context.Context, e storage.RosterEntry) error {
	if f.insertErr != nil {
		return f.insertErr
	}
	f.rows[e.MatchID] = append(f.rows[e.MatchID], e)
	return nil
}

func (f *fakeRoster) ReplaceForMatch(_ context.Context, matchID string, entries []storage.RosterEntry) error {
	f.rows[matchID] = append([]storage.RosterEntry(nil), entries...)
	return nil
}

func (f *fakeRoster) DeleteByMatch(_ context.Context, matchID string) error {
	delete(f.rows, matchID)
	return nil
}

type fakeDirectory struct {
	upserts []string
	err     error
}

func (f *fakeDirectory) Upsert(_ context.Context, id, _, _ string, _ int, _ bool) error {
	if f.err != nil {
		return f.err
	}
	f.upserts = append(f.upserts, id)
	return nil
}

// fakeSnapshots round-trips the lobby map through JSON, matching what the
// real snapshot store does to it.
type fakeSnapshots struct {
	data    []byte
	saves   int
	saveErr error
}

func (f *fakeSnapshots) Save(_ context.Context, lobbies map[string]*lobby.Lobby) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	data, err := json.Marshal(lobbies)
	if err != nil {
		return err
	}
	f.data = data
	f.saves++
	return nil
}

func (f *fakeSnapshots) Load(_ context.Context) (map[string]*lobby.Lobby, error) {
	lobbies := make(map[string]*lobby.Lobby)
	if len(f.data) == 0 {
		return lobbies, nil
	}
	if err := json.Unmarshal(f.data, &lobbies); err != nil {
		return nil, err
	}
	return lobbies, nil
}

// ---- Coordinator fixture ----

type fixtures struct {
	matches *fakeMatches
	roster  *fakeRoster
	players *fakeDirectory
	snaps   *fakeSnapshots
	clock   *time.Time
}

// advance moves the fixture clock forward.
func (f *fixtures) advance(d time.Duration) {
	*f.clock = f.clock.Add(d)
}

// newTestCoordinator builds a coordinator over in-memory stores with a frozen
// clock. Handlers are invoked directly from the test goroutine; the inbox
// loop stays idle, so the single-writer discipline holds. The bot pick delay
// is pushed out of reach so no timer fires behind the test's back.
func newTestCoordinator(t *testing.T) (*Coordinator, *fixtures) {
	t.Helper()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	f := &fixtures{
		matches: newFakeMatches(),
		roster:  newFakeRoster(),
		players: &fakeDirectory{},
		snaps:   &fakeSnapshots{},
		clock:   &now,
	}

	registry := NewConnectionRegistry()
	router := NewRouter(registry)
	store := NewStore(f.snaps)

	cfg := DefaultConfig()
	cfg.BotPickDelay = time.Hour

	c := NewCoordinator(context.Background(), store, router, registry, f.matches, f.roster, f.players, cfg)
	c.now = func() time.Time { return *f.clock }
	t.Cleanup(c.cancel)

	return c, f
}

// fillQueue joins size players and returns the lobby created by the fill.
// Ratings descend from p0 so p0 and p1 end up as the captains.
func fillQueue(t *testing.T, c *Coordinator, size int) *lobby.Lobby {
	t.Helper()

	for i := 0; i < size; i++ {
		p := lobby.Player{
			ID:     fmt.Sprintf("p%d", i),
			Name:   fmt.Sprintf("Player %d", i),
			Rating: 2000 - i*50,
		}
		if err := c.handleJoinQueue(p); err != nil {
			t.Fatalf("Join queue failed for p%d: %v", i, err)
		}
	}

	l, ok := c.store.LobbyFor("p0")
	if !ok {
		t.Fatal("Queue fill did not create a lobby")
	}
	return l
}

// seedLobby creates a lobby directly, bypassing the queue, for tests that
// want a roster smaller than a full match.
func seedLobby(t *testing.T, c *Coordinator, size int) *lobby.Lobby {
	t.Helper()

	roster := make([]lobby.Player, 0, size)
	for i := 0; i < size; i++ {
		roster = append(roster, lobby.Player{
			ID:     fmt.Sprintf("p%d", i),
			Name:   fmt.Sprintf("Player %d", i),
			Rating: 2000 - i*50,
		})
	}
	return c.createLobby(roster, "5v5", "")
}

// confirmAll marks the whole roster ready.
func confirmAll(t *testing.T, c *Coordinator, l *lobby.Lobby) {
	t.Helper()
	for _, p := range append([]lobby.Player(nil), l.Roster...) {
		if err := c.handlePlayerReady(p, l.ID); err != nil {
			t.Fatalf("Ready failed for %s: %v", p.ID, err)
		}
	}
}
