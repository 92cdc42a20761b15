package draft

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"scrim-server/internal/lobby"
)

func tenPlayerLobby(now time.Time) *lobby.Lobby {
	roster := make([]lobby.Player, 0, 10)
	for i := 0; i < 10; i++ {
		roster = append(roster, lobby.Player{
			ID:     fmt.Sprintf("p%d", i),
			Name:   fmt.Sprintf("Player %d", i),
			Rating: 1000 + i*50,
		})
	}
	// p0 hosts, so p0 leads team A and the top-rated p9 leads team B.
	return lobby.New("m1", roster, "5v5", "p0", nil, now)
}

func TestBegin(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	l := tenPlayerLobby(now)

	require.NoError(t, Begin(l, now))

	assert.Equal(lobby.PhaseDraft, l.Phase)
	assert.Equal(lobby.StatusDrafting, l.Status)
	assert.Nil(l.Ready)
	assert.Len(l.Draft.Pool, 8)
	assert.Equal(lobby.SideA, l.Draft.Turn)
	assert.Equal(now.Add(TurnTimeout), l.Draft.Deadline)

	// Captains seed their own teams with team tags applied.
	require.Len(t, l.TeamA, 1)
	require.Len(t, l.TeamB, 1)
	assert.Equal("p0", l.TeamA[0].ID)
	assert.Equal("A", l.TeamA[0].Team)
	assert.Equal("p9", l.TeamB[0].ID)
	assert.Equal("B", l.TeamB[0].Team)
}

func TestBegin_PoolTooSmall(t *testing.T) {
	now := time.Now()
	roster := []lobby.Player{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	l := lobby.New("m1", roster, "5v5", "a", nil, now)

	if err := Begin(l, now); err != ErrPoolTooSmall {
		t.Errorf("Expected ErrPoolTooSmall, got %v", err)
	}
	if l.Phase != lobby.PhaseIdle {
		t.Errorf("Failed Begin must not change phase, got %v", l.Phase)
	}
}

// A full 10-player draft: 7 manual picks alternating from captain A, then the
// last pool member joins team B automatically for a 5v5 split.
func TestFullDraft(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	l := tenPlayerLobby(now)
	require.NoError(t, Begin(l, now))

	for i := 0; i < len(Order); i++ {
		captain := l.Captain(l.Draft.Turn)
		target := l.Draft.Pool[0]

		done, err := ApplyPick(l, captain.ID, target.ID, now.Add(time.Duration(i)*time.Second))
		require.NoError(t, err, "pick %d", i)

		if i < len(Order)-1 {
			assert.False(done, "pick %d should not finish the draft", i)
			assert.Equal(Order[i+1], l.Draft.Turn)
		} else {
			assert.True(done, "final pick should finish the draft")
		}
	}

	assert.Len(l.TeamA, 5)
	assert.Len(l.TeamB, 5)
	assert.Empty(l.Draft.Pool)
	assert.Len(l.Draft.Picks, 7)

	// Picks 0,2,4,6 went to A, picks 1,3,5 plus the leftover went to B.
	for _, p := range l.TeamA {
		assert.Equal("A", p.Team)
	}
	for _, p := range l.TeamB {
		assert.Equal("B", p.Team)
	}
}

func TestApplyPick_WrongTurn(t *testing.T) {
	now := time.Now()
	l := tenPlayerLobby(now)
	require.NoError(t, Begin(l, now))

	target := l.Draft.Pool[0].ID
	_, err := ApplyPick(l, l.CaptainB.ID, target, now)
	if err != ErrWrongTurn {
		t.Fatalf("Expected ErrWrongTurn, got %v", err)
	}

	// A rejected pick leaves every field untouched.
	assert.Len(t, l.Draft.Pool, 8)
	assert.Empty(t, l.Draft.Picks)
	assert.Equal(t, 0, l.Draft.PickCount)
	assert.Equal(t, lobby.SideA, l.Draft.Turn)
	assert.Len(t, l.TeamA, 1)
	assert.Len(t, l.TeamB, 1)
}

func TestApplyPick_NotInPool(t *testing.T) {
	now := time.Now()
	l := tenPlayerLobby(now)
	require.NoError(t, Begin(l, now))

	// Captains are not poolable, neither are strangers.
	if _, err := ApplyPick(l, l.CaptainA.ID, l.CaptainB.ID, now); err != ErrNotInPool {
		t.Errorf("Expected ErrNotInPool picking a captain, got %v", err)
	}
	if _, err := ApplyPick(l, l.CaptainA.ID, "nobody", now); err != ErrNotInPool {
		t.Errorf("Expected ErrNotInPool picking a stranger, got %v", err)
	}
	assert.Equal(t, 0, l.Draft.PickCount)
}

func TestApplyPick_NotDrafting(t *testing.T) {
	now := time.Now()
	l := tenPlayerLobby(now)

	if _, err := ApplyPick(l, "p0", "p1", now); err != ErrNotDrafting {
		t.Errorf("Expected ErrNotDrafting, got %v", err)
	}
}

func TestApplyPick_AliasPick(t *testing.T) {
	now := time.Now()
	roster := make([]lobby.Player, 0, 10)
	for i := 0; i < 10; i++ {
		roster = append(roster, lobby.Player{
			ID:     fmt.Sprintf("p%d", i),
			AltID:  fmt.Sprintf("alt%d", i),
			Rating: 1000 + i*50,
		})
	}
	l := lobby.New("m1", roster, "5v5", "p0", nil, now)
	require.NoError(t, Begin(l, now))

	// Both captain and target may be referenced by any alias; the recorded
	// pick always carries canonical ids.
	done, err := ApplyPick(l, "alt0", "alt3", now)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "p0", l.Draft.Picks[0].PickerID)
	assert.Equal(t, "p3", l.Draft.Picks[0].PlayerID)
	assert.Equal(t, "p3", l.TeamA[1].ID)
}

// With a smaller pool the draft ends as soon as one member remains, even
// though the pick order is not exhausted.
func TestApplyPick_PoolOfOneFinalizes(t *testing.T) {
	assert := assert.New(t)
	now := time.Now()
	roster := []lobby.Player{
		{ID: "capA", Rating: 2000},
		{ID: "capB", Rating: 1900},
		{ID: "x", Rating: 1500},
		{ID: "y", Rating: 1400},
		{ID: "z", Rating: 1300},
	}
	l := lobby.New("m1", roster, "5v5", "capA", nil, now)
	require.NoError(t, Begin(l, now))
	require.Len(t, l.Draft.Pool, 3)

	done, err := ApplyPick(l, "capA", "x", now)
	require.NoError(t, err)
	assert.False(done)

	done, err = ApplyPick(l, "capB", "y", now)
	require.NoError(t, err)
	assert.True(done, "a single remaining pool member ends the draft")

	assert.Empty(l.Draft.Pool)
	assert.Len(l.TeamA, 2)
	assert.Len(l.TeamB, 3)
	assert.Equal("z", l.TeamB[2].ID)
	assert.Equal("B", l.TeamB[2].Team)
}

func TestTurnFor(t *testing.T) {
	cases := []struct {
		picks int
		want  lobby.Side
	}{
		{0, lobby.SideA},
		{1, lobby.SideB},
		{6, lobby.SideA},
		{7, lobby.SideB},
		{100, lobby.SideB},
	}
	for _, c := range cases {
		if got := TurnFor(c.picks); got != c.want {
			t.Errorf("TurnFor(%d) = %v, want %v", c.picks, got, c.want)
		}
	}
}

func TestAutoPickTarget(t *testing.T) {
	pool := []lobby.Player{
		{ID: "a", Rating: 1200},
		{ID: "b", Rating: 1900},
		{ID: "c", Rating: 1500},
	}
	p, ok := AutoPickTarget(pool)
	if !ok || p.ID != "b" {
		t.Errorf("Expected highest-rated b, got %v (ok=%v)", p.ID, ok)
	}

	if _, ok := AutoPickTarget(nil); ok {
		t.Error("Empty pool must not yield a target")
	}
}
