package server

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrim-server/internal/lobby"
)

func TestAdminJoin(t *testing.T) {
	assert := assert.New(t)
	c, f := newTestCoordinator(t)
	l := seedLobby(t, c, 4)

	err := c.handleAdminJoin(l.ID, lobby.Player{ID: "sub", Name: "Substitute"}, "A")
	require.NoError(t, err)

	assert.Len(l.Roster, 5)
	require.Len(t, l.TeamA, 1)
	assert.Equal("sub", l.TeamA[0].ID)

	got, ok := c.store.LobbyFor("sub")
	require.True(t, ok)
	assert.Equal(l.ID, got.ID)

	// The durable roster row carries the team assignment.
	rows := f.roster.rows[l.ID]
	last := rows[len(rows)-1]
	assert.Equal("sub", last.PlayerID)
	require.NotNil(t, last.Team)
	assert.Equal("A", *last.Team)
}

func TestAdminJoin_CapacityChecks(t *testing.T) {
	c, _ := newTestCoordinator(t)
	l := fillQueue(t, c, c.cfg.MatchSize)

	err := c.handleAdminJoin(l.ID, lobby.Player{ID: "overflow"}, "")
	assert.ErrorIs(t, err, ErrLobbyFull)

	err = c.handleAdminJoin(l.ID, lobby.Player{ID: "p0"}, "")
	assert.ErrorIs(t, err, ErrAlreadyInLobby)

	err = c.handleAdminJoin("missing", lobby.Player{ID: "x"}, "")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestAdminJoin_TeamCapacity(t *testing.T) {
	c, _ := newTestCoordinator(t)
	l := seedLobby(t, c, 4)

	for i := 0; i < 5; i++ {
		require.NoError(t, c.handleAdminJoin(l.ID, lobby.Player{ID: string(rune('u' + i))}, "A"))
	}

	err := c.handleAdminJoin(l.ID, lobby.Player{ID: "onemore"}, "A")
	assert.ErrorIs(t, err, ErrTeamFull)
}

// A player already active in another lobby cannot be admin-joined anywhere
// else; their existing mapping must survive untouched.
func TestAdminJoin_RejectsPlayerActiveElsewhere(t *testing.T) {
	assert := assert.New(t)
	c, _ := newTestCoordinator(t)

	first := seedLobby(t, c, 4)
	second := c.createLobby([]lobby.Player{
		{ID: "q0", Rating: 1500},
		{ID: "q1", Rating: 1400},
	}, "5v5", "")

	err := c.handleAdminJoin(second.ID, lobby.Player{ID: "p0"}, "A")
	assert.ErrorIs(err, ErrAlreadyInLobby)

	assert.Len(second.Roster, 2)
	got, ok := c.store.LobbyFor("p0")
	require.True(t, ok)
	assert.Equal(first.ID, got.ID, "the original mapping must stand")
}

// The durable roster insert is the critical path for an admin join: when it
// fails, the in-memory addition must be rolled back entirely.
func TestAdminJoin_RollsBackOnInsertFailure(t *testing.T) {
	assert := assert.New(t)
	c, f := newTestCoordinator(t)
	l := seedLobby(t, c, 4)

	f.roster.insertErr = errors.New("disk on fire")

	err := c.handleAdminJoin(l.ID, lobby.Player{ID: "sub"}, "B")
	require.Error(t, err)

	assert.Len(l.Roster, 4)
	assert.Empty(l.TeamB)
	_, ok := c.store.LobbyFor("sub")
	assert.False(ok, "rolled-back player must not stay indexed")
}

func TestAdminPurge(t *testing.T) {
	c, _ := newTestCoordinator(t)
	l := fillQueue(t, c, c.cfg.MatchSize)

	require.NoError(t, c.handlePurge(l.ID))
	assert.Equal(t, 0, c.store.Len())

	err := c.handlePurge(l.ID)
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestAdminBroadcast_InjectsLobby(t *testing.T) {
	assert := assert.New(t)
	c, f := newTestCoordinator(t)

	injected := lobby.Lobby{
		ID: "ext-1",
		Roster: []lobby.Player{
			{AltID: "a1", Name: "One"},
			{ID: "b2", Name: "Two"},
		},
	}
	raw, err := json.Marshal(injected)
	require.NoError(t, err)

	err = c.handleAdminBroadcast(AdminBroadcastRequest{Type: EvtMatchFound, Payload: raw})
	require.NoError(t, err)

	l, ok := c.store.Get("ext-1")
	require.True(t, ok)
	assert.Equal("a1", l.Roster[0].ID, "aliases normalize on injection")

	// Defaults applied, ready-check opened, durable rows written.
	require.NotNil(t, l.Ready)
	assert.Equal(lobby.PhaseReady, l.Phase)
	assert.Contains(f.matches.matches, "ext-1")
	assert.Len(f.roster.rows["ext-1"], 2)
}

func TestAdminBroadcast_RejectsBadPayloads(t *testing.T) {
	c, _ := newTestCoordinator(t)

	if err := c.handleAdminBroadcast(AdminBroadcastRequest{}); err == nil {
		t.Error("Expected an error for a broadcast without a type")
	}

	raw, _ := json.Marshal(lobby.Lobby{ID: "empty"})
	err := c.handleAdminBroadcast(AdminBroadcastRequest{Type: EvtMatchFound, Payload: raw})
	assert.ErrorIs(t, err, ErrEmptyRoster)

	err = c.handleAdminBroadcast(AdminBroadcastRequest{Type: "ANNOUNCE", LobbyID: "missing", Payload: json.RawMessage(`{}`)})
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestChat_Scopes(t *testing.T) {
	assert := assert.New(t)
	c, _ := newTestCoordinator(t)
	l := fillQueue(t, c, c.cfg.MatchSize)

	sender := lobby.Player{ID: "p0", Name: "Player 0"}

	require.NoError(t, c.handleChat(sender, SendChatRequest{Content: "hello all"}))
	require.NoError(t, c.handleChat(sender, SendChatRequest{Content: "hello team", Scope: string(lobby.ScopeLobby), LobbyID: l.ID}))

	global := c.router.ChatHistory(lobby.ScopeGlobal, "")
	require.Len(t, global, 1)
	assert.Equal("hello all", global[0].Content)

	scoped := c.router.ChatHistory(lobby.ScopeLobby, l.ID)
	require.Len(t, scoped, 1)
	assert.Equal("hello team", scoped[0].Content)
	assert.Equal(l.ID, scoped[0].LobbyID)

	err := c.handleChat(sender, SendChatRequest{Content: "x", Scope: string(lobby.ScopeLobby), LobbyID: "missing"})
	assert.ErrorIs(err, ErrLobbyNotFound)

	if err := c.handleChat(sender, SendChatRequest{}); err == nil {
		t.Error("Expected an error for empty chat content")
	}
}
