package server

import (
	"sync"

	"github.com/coder/websocket"

	"scrim-server/internal/lobby"
)

// ConnectionRegistry binds live websocket connections to player identities.
// Bindings are ephemeral: they are never persisted and dropping one does not
// touch lobby membership.
type ConnectionRegistry struct {
	conns    map[string]*websocket.Conn // connectionID -> socket
	players  map[string]lobby.Player    // connectionID -> bound player
	byPlayer map[string]string          // canonical playerID -> connectionID
	mu       sync.RWMutex
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns:    make(map[string]*websocket.Conn),
		players:  make(map[string]lobby.Player),
		byPlayer: make(map[string]string),
	}
}

func (cr *ConnectionRegistry) Add(connectionID string, conn *websocket.Conn) {
	cr.mu.Lock()
	defer cr.mu.Unlock()
	cr.conns[connectionID] = conn
}

// Bind associates a connection with a player. Last registration wins: if the
// player is already bound elsewhere, the previous connectionID is returned so
// the caller can close that socket.
func (cr *ConnectionRegistry) Bind(connectionID string, p lobby.Player) (oldConnectionID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	// A socket re-registering as someone else must take its previous
	// identity offline, or that player's presence would dangle on a
	// connection now owned by another.
	if prev, ok := cr.players[connectionID]; ok && prev.ID != p.ID {
		if cr.byPlayer[prev.ID] == connectionID {
			delete(cr.byPlayer, prev.ID)
		}
	}

	if prev, ok := cr.byPlayer[p.ID]; ok && prev != connectionID {
		oldConnectionID = prev
		delete(cr.players, prev)
	}
	cr.players[connectionID] = p
	cr.byPlayer[p.ID] = connectionID
	return oldConnectionID
}

// Remove clears the connection and any player binding for it.
func (cr *ConnectionRegistry) Remove(connectionID string) {
	cr.mu.Lock()
	defer cr.mu.Unlock()

	if p, ok := cr.players[connectionID]; ok {
		if cr.byPlayer[p.ID] == connectionID {
			delete(cr.byPlayer, p.ID)
		}
	}
	delete(cr.conns, connectionID)
	delete(cr.players, connectionID)
}

func (cr *ConnectionRegistry) Conn(connectionID string) *websocket.Conn {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	return cr.conns[connectionID]
}

// Player returns the identity bound to a connection, if any.
func (cr *ConnectionRegistry) Player(connectionID string) (lobby.Player, bool) {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	p, ok := cr.players[connectionID]
	return p, ok
}

// ConnByPlayer returns the live socket for a player, or nil when offline.
func (cr *ConnectionRegistry) ConnByPlayer(playerID string) *websocket.Conn {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	connID, ok := cr.byPlayer[playerID]
	if !ok {
		return nil
	}
	return cr.conns[connID]
}

func (cr *ConnectionRegistry) IsOnline(playerID string) bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()
	_, ok := cr.byPlayer[playerID]
	return ok
}

// OnlineStatus answers a batched presence query.
func (cr *ConnectionRegistry) OnlineStatus(playerIDs []string) map[string]bool {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	status := make(map[string]bool, len(playerIDs))
	for _, id := range playerIDs {
		_, ok := cr.byPlayer[id]
		status[id] = ok
	}
	return status
}

// All returns every live socket, for global fan-out.
func (cr *ConnectionRegistry) All() []*websocket.Conn {
	cr.mu.RLock()
	defer cr.mu.RUnlock()

	conns := make([]*websocket.Conn, 0, len(cr.conns))
	for _, c := range cr.conns {
		conns = append(conns, c)
	}
	return conns
}
