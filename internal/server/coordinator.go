package server

import (
	"context"
	"log"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"scrim-server/internal/lobby"
	"scrim-server/internal/storage"
)

// MatchStore is the durable relational record for a match.
type MatchStore interface {
	Get(ctx context.Context, id string) (storage.Match, error)
	Upsert(ctx context.Context, m storage.Match) error
	SetStatus(ctx context.Context, id, status string) error
	SetServerInfo(ctx context.Context, id, ip, password, link string) error
	Delete(ctx context.Context, id string) error
}

// RosterStore is the durable roster rows for a match.
type RosterStore interface {
	ListByMatch(ctx context.Context, matchID string) ([]storage.RosterEntry, error)
	Insert(ctx context.Context, e storage.RosterEntry) error
	ReplaceForMatch(ctx context.Context, matchID string, entries []storage.RosterEntry) error
	DeleteByMatch(ctx context.Context, matchID string) error
}

// PlayerDirectory is the durable player profile store.
type PlayerDirectory interface {
	Upsert(ctx context.Context, id, name, avatar string, rating int, isBot bool) error
}

type Config struct {
	MatchSize    int           // full roster size, 10
	ReadyTimeout time.Duration // ready-check countdown
	BotPickDelay time.Duration // artificial pre-commit delay for bot picks
	QueueType    string        // match type stamped on queue-filled lobbies
}

func DefaultConfig() Config {
	return Config{
		MatchSize:    10,
		ReadyTimeout: 30 * time.Second,
		BotPickDelay: 2 * time.Second,
		QueueType:    "5v5",
	}
}

// command is a unit of work for the coordinator actor. Every mutation of
// coordinator-owned state arrives as one of these and runs to completion
// before the next is read, so no two mutations ever race.
type command interface{ isCommand() }

type cmdRegister struct {
	ConnID string
	Player lobby.Player
	Reply  chan error
}

type cmdUnregister struct{ ConnID string }

type cmdJoinQueue struct {
	Player lobby.Player
	Reply  chan error
}

type cmdLeaveQueue struct {
	PlayerID string
	Reply    chan error
}

type cmdChat struct {
	From  lobby.Player
	Req   SendChatRequest
	Reply chan error
}

type cmdDraftPick struct {
	From     lobby.Player
	LobbyID  string
	TargetID string
	Reply    chan error
}

// cmdAutoPick commits a scheduled auto-pick. RequireBot guards the bot-chain
// path: a delayed bot commit must not act once a human holds the turn.
type cmdAutoPick struct {
	LobbyID    string
	RequireBot bool
}

type cmdPlayerReady struct {
	From    lobby.Player
	LobbyID string
	Reply   chan error
}

type cmdRequestState struct {
	From    lobby.Player
	LobbyID string
	Reply   chan error
}

type cmdAdminJoin struct {
	LobbyID string
	Player  lobby.Player
	Team    string
	Reply   chan error
}

type cmdPurge struct {
	LobbyID string
	Reply   chan error
}

type cmdServerInfo struct {
	LobbyID string
	Info    AdminServerInfoRequest
	Reply   chan error
}

type cmdAdminBroadcast struct {
	Req   AdminBroadcastRequest
	Reply chan error
}

type cmdTick struct{ At time.Time }

type cmdShutdown struct{ Done chan struct{} }

func (cmdRegister) isCommand()       {}
func (cmdUnregister) isCommand()     {}
func (cmdJoinQueue) isCommand()      {}
func (cmdLeaveQueue) isCommand()     {}
func (cmdChat) isCommand()           {}
func (cmdDraftPick) isCommand()      {}
func (cmdAutoPick) isCommand()       {}
func (cmdPlayerReady) isCommand()    {}
func (cmdRequestState) isCommand()   {}
func (cmdAdminJoin) isCommand()      {}
func (cmdPurge) isCommand()          {}
func (cmdServerInfo) isCommand()     {}
func (cmdAdminBroadcast) isCommand() {}
func (cmdTick) isCommand()           {}
func (cmdShutdown) isCommand()       {}

// Coordinator is the single-writer actor owning all mutable lobby state for
// its shard. Inbound messages, admin calls and scheduler ticks all funnel
// through the inbox and are processed strictly sequentially.
type Coordinator struct {
	inbox    chan command
	store    *Store
	router   *Router
	registry *ConnectionRegistry

	matches MatchStore
	roster  RosterStore
	players PlayerDirectory

	queue     []lobby.Player
	policy    lobby.CaptainPolicy
	cfg       Config
	now       func() time.Time
	tickCount int

	ctx    context.Context
	cancel context.CancelFunc
}

func NewCoordinator(parent context.Context, store *Store, router *Router, registry *ConnectionRegistry,
	matches MatchStore, roster RosterStore, players PlayerDirectory, cfg Config) *Coordinator {

	ctx, cancel := context.WithCancel(parent)
	c := &Coordinator{
		inbox:    make(chan command, 64),
		store:    store,
		router:   router,
		registry: registry,
		matches:  matches,
		roster:   roster,
		players:  players,
		policy:   lobby.HostFirstCaptains,
		cfg:      cfg,
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
	go c.loop()
	return c
}

// Post submits a command and waits for its reply. Once the coordinator has
// shut down nothing drains the inbox, so both directions give up on ctx.
func (c *Coordinator) Post(cmd command, reply chan error) error {
	select {
	case c.inbox <- cmd:
	case <-c.ctx.Done():
		return ErrShuttingDown
	}
	select {
	case err := <-reply:
		return err
	case <-c.ctx.Done():
		return ErrShuttingDown
	}
}

func (c *Coordinator) loop() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case m := <-c.inbox:
			c.dispatch(m)
		}
	}
}

func (c *Coordinator) dispatch(m command) {
	// A handler must never take the coordinator down with it.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Coordinator recovered from panic in %T: %v", m, r)
		}
	}()

	switch msg := m.(type) {
	case cmdRegister:
		msg.Reply <- c.handleRegister(msg.ConnID, msg.Player)
	case cmdUnregister:
		c.registry.Remove(msg.ConnID)
	case cmdJoinQueue:
		msg.Reply <- c.handleJoinQueue(msg.Player)
	case cmdLeaveQueue:
		msg.Reply <- c.handleLeaveQueue(msg.PlayerID)
	case cmdChat:
		msg.Reply <- c.handleChat(msg.From, msg.Req)
	case cmdDraftPick:
		msg.Reply <- c.handleDraftPick(msg.From, msg.LobbyID, msg.TargetID)
	case cmdAutoPick:
		c.handleAutoPick(msg.LobbyID, msg.RequireBot)
	case cmdPlayerReady:
		msg.Reply <- c.handlePlayerReady(msg.From, msg.LobbyID)
	case cmdRequestState:
		msg.Reply <- c.handleRequestState(msg.From, msg.LobbyID)
	case cmdAdminJoin:
		msg.Reply <- c.handleAdminJoin(msg.LobbyID, msg.Player, msg.Team)
	case cmdPurge:
		msg.Reply <- c.handlePurge(msg.LobbyID)
	case cmdServerInfo:
		msg.Reply <- c.handleServerInfo(msg.LobbyID, msg.Info)
	case cmdAdminBroadcast:
		msg.Reply <- c.handleAdminBroadcast(msg.Req)
	case cmdTick:
		c.handleTick(msg.At)
	case cmdShutdown:
		c.store.Persist(c.ctx)
		c.cancel()
		close(msg.Done)
	}
}

// handleRegister binds the connection and replays state to a reconnecting
// player: their active lobby snapshot plus the chat history rings.
func (c *Coordinator) handleRegister(connID string, p lobby.Player) error {
	p = lobby.Normalize(p)
	if p.ID == "" {
		return errMissingField("player_id")
	}

	if old := c.registry.Bind(connID, p); old != "" {
		if conn := c.registry.Conn(old); conn != nil {
			c.router.send(conn, ServerMessage{
				Type:    EvtError,
				Payload: ErrorMessage{Code: "SESSION_TAKEN_OVER", Message: "You connected from another device"},
			})
			conn.Close(websocket.StatusNormalClosure, "Connected from another device")
		}
		c.registry.Remove(old)
	}

	// Refresh the durable profile; losing this is not worth failing the bind.
	if err := c.players.Upsert(c.ctx, p.ID, p.Name, p.Avatar, p.Rating, p.IsBot); err != nil {
		log.Printf("Profile upsert failed for %s: %v", p.ID, err)
	}

	c.router.SendToPlayer(p.ID, EvtChatHistory, ChatHistoryPayload{
		Scope:    lobby.ScopeGlobal,
		Messages: c.router.ChatHistory(lobby.ScopeGlobal, ""),
	})

	if l, ok := c.store.LobbyFor(p.ID); ok {
		c.router.SendToPlayer(p.ID, EvtReconnectLobby, c.snapshot(l))
		c.router.SendToPlayer(p.ID, EvtChatHistory, ChatHistoryPayload{
			Scope:    lobby.ScopeLobby,
			LobbyID:  l.ID,
			Messages: c.router.ChatHistory(lobby.ScopeLobby, l.ID),
		})
	}
	return nil
}

func (c *Coordinator) handleChat(from lobby.Player, req SendChatRequest) error {
	if req.Content == "" {
		return errMissingField("content")
	}

	msg := lobby.ChatMessage{
		ID:      uuid.New().String(),
		Sender:  from.Name,
		Content: req.Content,
		Scope:   lobby.ScopeGlobal,
		SentAt:  c.now(),
	}

	if req.Scope == string(lobby.ScopeLobby) {
		l, ok := c.store.Get(req.LobbyID)
		if !ok {
			return ErrLobbyNotFound
		}
		msg.Scope = lobby.ScopeLobby
		msg.LobbyID = l.ID
		c.router.RecordChat(msg)
		c.router.BroadcastToLobby(l, EvtChatMessage, msg)
		return nil
	}

	c.router.RecordChat(msg)
	c.router.BroadcastGlobal(EvtChatMessage, msg)
	return nil
}

func (c *Coordinator) snapshot(l *lobby.Lobby) LobbySnapshot {
	return LobbySnapshot{Lobby: l, Countdown: l.Remaining(c.now())}
}
