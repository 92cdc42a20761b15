package lobby

import "strings"

// Player is one roster entry. ID is the canonical identity; AltID and
// ExternalID are the alternate identifiers seen at ingestion (raw queue id,
// third-party identity). All lookups go through CanonicalID/Matches so the
// rest of the system never compares alias variants directly.
type Player struct {
	ID         string `json:"id"`
	AltID      string `json:"alt_id,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
	Name       string `json:"name"`
	Avatar     string `json:"avatar,omitempty"`
	Rating     int    `json:"rating"`
	Team       string `json:"team,omitempty"` // "A", "B", or "" while undrafted
	IsBot      bool   `json:"is_bot,omitempty"`
}

// Normalize resolves the alias precedence once, at ingestion: ID wins, then
// AltID, then ExternalID. The losing aliases are kept for Matches.
func Normalize(p Player) Player {
	if p.ID == "" {
		if p.AltID != "" {
			p.ID = p.AltID
		} else {
			p.ID = p.ExternalID
		}
	}
	p.ID = strings.TrimSpace(p.ID)
	return p
}

// CanonicalID returns the resolved identity for a possibly-unnormalized ref.
func (p Player) CanonicalID() string {
	return Normalize(p).ID
}

// Matches reports whether id refers to this player under any known alias.
func (p Player) Matches(id string) bool {
	if id == "" {
		return false
	}
	return id == p.ID || id == p.AltID || id == p.ExternalID
}

// FindPlayer returns the roster entry matching id under any alias.
func FindPlayer(roster []Player, id string) (Player, bool) {
	for _, p := range roster {
		if p.Matches(id) {
			return p, true
		}
	}
	return Player{}, false
}
