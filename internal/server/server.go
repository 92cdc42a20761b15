package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/coder/websocket"
	_ "github.com/joho/godotenv/autoload"
	"github.com/redis/go-redis/v9"

	"scrim-server/internal/storage"
)

type Server struct {
	port int

	registry    *ConnectionRegistry
	router      *Router
	coordinator *Coordinator
	limiter     *RateLimiter

	closers []func() error
	cancel  context.CancelFunc
}

// New wires the full coordinator: postgres match/roster store, redis lobby
// snapshot, connection registry, the actor and its scheduler.
func New() (*Server, *http.Server, error) {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	ctx, cancel := context.WithCancel(context.Background())

	db, err := storage.Open(ctx, os.Getenv("DATABASE_URL"))
	if err != nil {
		cancel()
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	if err := storage.Migrate(db); err != nil {
		db.Close()
		cancel()
		return nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     getenv("REDIS_ADDR", "localhost:6379"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		db.Close()
		cancel()
		return nil, nil, fmt.Errorf("redis ping: %w", err)
	}

	registry := NewConnectionRegistry()
	router := NewRouter(registry)
	store := NewStore(storage.NewSnapshotStore(rdb))

	// Restore the active-lobby map from the snapshot. A failure here is not
	// fatal; the coordinator starts empty and resurrection fills the gaps.
	if err := store.Restore(ctx); err != nil {
		log.Printf("Warning: snapshot restore failed: %v", err)
	} else if store.Len() > 0 {
		log.Printf("Restored %d lobbies from snapshot", store.Len())
	}

	coordinator := NewCoordinator(ctx, store, router, registry,
		storage.NewMatchRepo(db), storage.NewRosterRepo(db), storage.NewPlayerRepo(db),
		DefaultConfig())

	scheduler := NewScheduler(coordinator, time.Second)
	go scheduler.Run(ctx)

	s := &Server{
		port:        port,
		registry:    registry,
		router:      router,
		coordinator: coordinator,
		limiter:     NewRateLimiter(10, time.Second),
		closers:     []func() error{db.Close, rdb.Close},
		cancel:      cancel,
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	return s, httpServer, nil
}

// Shutdown snapshots state through the coordinator and closes connections.
func (s *Server) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	select {
	case s.coordinator.inbox <- cmdShutdown{Done: done}:
		select {
		case <-done:
		case <-ctx.Done():
		}
	case <-ctx.Done():
	}

	for _, conn := range s.registry.All() {
		conn.Close(websocket.StatusGoingAway, "Server shutting down")
	}

	s.cancel()
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Printf("Close error during shutdown: %v", err)
		}
	}
	return nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
