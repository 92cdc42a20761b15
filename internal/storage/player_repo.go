package storage

import (
	"context"
	"database/sql"
)

type PlayerRepo struct{ db *sql.DB }

func NewPlayerRepo(db *sql.DB) *PlayerRepo { return &PlayerRepo{db: db} }

// Upsert writes a profile into the player directory. Used for synthetic bot
// entries before roster finalization and for profile refreshes on register.
func (r *PlayerRepo) Upsert(ctx context.Context, id, name, avatar string, rating int, isBot bool) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO players (id, name, avatar, rating, is_bot, updated_at)
VALUES ($1,$2,$3,$4,$5,now())
ON CONFLICT (id) DO UPDATE SET
  name=$2, avatar=$3, rating=$4, is_bot=$5, updated_at=now()
`, id, name, avatar, rating, isBot)
	return err
}

func (r *PlayerRepo) Get(ctx context.Context, id string) (name, avatar string, rating int, isBot bool, err error) {
	err = r.db.QueryRowContext(ctx, `
SELECT name, avatar, rating, is_bot FROM players WHERE id=$1
`, id).Scan(&name, &avatar, &rating, &isBot)
	if err == sql.ErrNoRows {
		err = ErrNotFound
	}
	return
}
