package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"scrim-server/internal/lobby"
)

// snapshotKey holds the JSON of the entire active-lobby map. One key keeps
// the write-through atomic: a snapshot is either the full map or absent.
const snapshotKey = "scrim:lobbies"

// SnapshotStore persists the active-lobby map to redis for restart recovery.
type SnapshotStore struct {
	rdb *redis.Client
}

func NewSnapshotStore(rdb *redis.Client) *SnapshotStore {
	return &SnapshotStore{rdb: rdb}
}

func (s *SnapshotStore) Save(ctx context.Context, lobbies map[string]*lobby.Lobby) error {
	data, err := json.Marshal(lobbies)
	if err != nil {
		return fmt.Errorf("marshal lobby snapshot: %w", err)
	}
	if err := s.rdb.Set(ctx, snapshotKey, data, 0).Err(); err != nil {
		return fmt.Errorf("write lobby snapshot: %w", err)
	}
	return nil
}

func (s *SnapshotStore) Load(ctx context.Context) (map[string]*lobby.Lobby, error) {
	data, err := s.rdb.Get(ctx, snapshotKey).Bytes()
	if err == redis.Nil {
		return map[string]*lobby.Lobby{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read lobby snapshot: %w", err)
	}

	lobbies := map[string]*lobby.Lobby{}
	if err := json.Unmarshal(data, &lobbies); err != nil {
		return nil, fmt.Errorf("decode lobby snapshot: %w", err)
	}
	return lobbies, nil
}
