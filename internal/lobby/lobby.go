package lobby

import (
	"time"
)

type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusDrafting   Status = "drafting"
	StatusReadyCheck Status = "ready_check"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// Phase is the single gating substate. Draft and ready-check are mutually
// exclusive: starting one ends the other.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseDraft Phase = "draft"
	PhaseReady Phase = "ready"
)

type Side string

const (
	SideA Side = "captain_a"
	SideB Side = "captain_b"
)

type Pick struct {
	PickerID string    `json:"picker_id"`
	PlayerID string    `json:"player_id"`
	At       time.Time `json:"at"`
}

// DraftState exists only while Phase == PhaseDraft.
// Deadline is authoritative; remaining seconds are derived from it so a
// reconnecting client computes the same countdown without a server push.
type DraftState struct {
	Pool       []Player  `json:"pool"`
	Turn       Side      `json:"turn"`
	PickCount  int       `json:"pick_count"`
	Picks      []Pick    `json:"picks"`
	Deadline   time.Time `json:"deadline"`
	LastPickAt time.Time `json:"last_pick_at"`
}

// ReadyState exists only while Phase == PhaseReady.
type ReadyState struct {
	ReadyIDs map[string]bool `json:"ready_ids"`
	Deadline time.Time       `json:"deadline"`
}

type ServerInfo struct {
	IP       string `json:"ip"`
	Password string `json:"password"`
	Link     string `json:"link,omitempty"`
}

type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeLobby  Scope = "lobby"
)

type ChatMessage struct {
	ID      string    `json:"id"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	Scope   Scope     `json:"scope"`
	LobbyID string    `json:"lobby_id,omitempty"`
	SentAt  time.Time `json:"sent_at"`
}

// Lobby aggregates one match's roster, substate and hand-off info.
type Lobby struct {
	ID        string      `json:"id"`
	Status    Status      `json:"status"`
	Phase     Phase       `json:"phase"`
	Roster    []Player    `json:"roster"`
	CaptainA  Player      `json:"captain_a"`
	CaptainB  Player      `json:"captain_b"`
	TeamA     []Player    `json:"team_a"`
	TeamB     []Player    `json:"team_b"`
	Draft     *DraftState `json:"draft,omitempty"`
	Ready     *ReadyState `json:"ready,omitempty"`
	Server    *ServerInfo `json:"server,omitempty"`
	MatchType string      `json:"match_type"`
	HostID    string      `json:"host_id,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// CaptainPolicy selects the two captains for a freshly created lobby.
type CaptainPolicy func(roster []Player, hostID string) (Player, Player)

// HostFirstCaptains is the default policy: the host (when present in the
// roster) takes captain A, the highest-rated remaining player takes captain B.
// Without a host, the highest-rated pair leads both teams.
func HostFirstCaptains(roster []Player, hostID string) (Player, Player) {
	if len(roster) < 2 {
		return Player{}, Player{}
	}

	a, ok := FindPlayer(roster, hostID)
	if !ok {
		a = highestRated(roster, Player{})
	}
	b := highestRated(roster, a)
	return a, b
}

func highestRated(roster []Player, skip Player) Player {
	var best Player
	found := false
	for _, p := range roster {
		if p.ID == skip.ID && skip.ID != "" {
			continue
		}
		if !found || p.Rating > best.Rating {
			best = p
			found = true
		}
	}
	return best
}

// New builds a waiting lobby with captains assigned by policy and empty teams.
func New(id string, roster []Player, matchType, hostID string, policy CaptainPolicy, now time.Time) *Lobby {
	normalized := make([]Player, len(roster))
	for i, p := range roster {
		normalized[i] = Normalize(p)
	}

	if policy == nil {
		policy = HostFirstCaptains
	}
	a, b := policy(normalized, hostID)

	return &Lobby{
		ID:        id,
		Status:    StatusWaiting,
		Phase:     PhaseIdle,
		Roster:    normalized,
		CaptainA:  a,
		CaptainB:  b,
		TeamA:     []Player{},
		TeamB:     []Player{},
		MatchType: matchType,
		HostID:    hostID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Captain returns the captain on the given side.
func (l *Lobby) Captain(side Side) Player {
	if side == SideB {
		return l.CaptainB
	}
	return l.CaptainA
}

// InRoster reports membership under any alias.
func (l *Lobby) InRoster(id string) bool {
	_, ok := FindPlayer(l.Roster, id)
	return ok
}

// RosterIDs returns the canonical ids of every roster member.
func (l *Lobby) RosterIDs() []string {
	ids := make([]string, 0, len(l.Roster))
	for _, p := range l.Roster {
		ids = append(ids, p.ID)
	}
	return ids
}

// Remaining derives the seconds left on the active phase countdown.
func (l *Lobby) Remaining(now time.Time) int {
	var deadline time.Time
	switch {
	case l.Phase == PhaseDraft && l.Draft != nil:
		deadline = l.Draft.Deadline
	case l.Phase == PhaseReady && l.Ready != nil:
		deadline = l.Ready.Deadline
	default:
		return 0
	}

	left := int(deadline.Sub(now) / time.Second)
	if left < 0 {
		return 0
	}
	return left
}

// AllReady reports whether every roster member has confirmed the ready-check.
func (l *Lobby) AllReady() bool {
	if l.Ready == nil {
		return false
	}
	for _, p := range l.Roster {
		if !l.Ready.ReadyIDs[p.ID] {
			return false
		}
	}
	return len(l.Roster) > 0
}
