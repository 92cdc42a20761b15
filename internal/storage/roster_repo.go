package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// RosterEntry is one durable roster row, left-joined with the player
// directory so recovery gets profile data in one query.
type RosterEntry struct {
	MatchID   string
	PlayerID  string
	Team      *string // "A", "B", or NULL while undrafted
	IsCaptain bool

	// Joined profile data; zero-valued when the directory has no row.
	Name   string
	Avatar string
	Rating int
	IsBot  bool
}

type RosterRepo struct{ db *sql.DB }

func NewRosterRepo(db *sql.DB) *RosterRepo { return &RosterRepo{db: db} }

func (r *RosterRepo) ListByMatch(ctx context.Context, matchID string) ([]RosterEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT mp.match_id, mp.player_id, mp.team, mp.is_captain,
       COALESCE(p.name, ''), COALESCE(p.avatar, ''), COALESCE(p.rating, 0),
       COALESCE(p.is_bot, FALSE)
  FROM match_players mp
  LEFT JOIN players p ON p.id = mp.player_id
 WHERE mp.match_id = $1
 ORDER BY mp.joined_at, mp.player_id
`, matchID)
	if err != nil {
		return nil, fmt.Errorf("list roster for %s: %w", matchID, err)
	}
	defer rows.Close()

	var entries []RosterEntry
	for rows.Next() {
		var e RosterEntry
		if err := rows.Scan(&e.MatchID, &e.PlayerID, &e.Team, &e.IsCaptain,
			&e.Name, &e.Avatar, &e.Rating, &e.IsBot); err != nil {
			return nil, fmt.Errorf("scan roster row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *RosterRepo) Insert(ctx context.Context, e RosterEntry) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO match_players (match_id, player_id, team, is_captain)
VALUES ($1,$2,$3,$4)
ON CONFLICT (match_id, player_id) DO UPDATE SET team=$3, is_captain=$4
`, e.MatchID, e.PlayerID, e.Team, e.IsCaptain)
	return err
}

// ReplaceForMatch rewrites the whole roster delete-then-insert inside one
// transaction, so finalization stays idempotent under retry.
func (r *RosterRepo) ReplaceForMatch(ctx context.Context, matchID string, entries []RosterEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin roster replace: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM match_players WHERE match_id=$1`, matchID); err != nil {
		return fmt.Errorf("clear roster for %s: %w", matchID, err)
	}
	for _, e := range entries {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO match_players (match_id, player_id, team, is_captain)
VALUES ($1,$2,$3,$4)
`, matchID, e.PlayerID, e.Team, e.IsCaptain); err != nil {
			return fmt.Errorf("insert roster row %s/%s: %w", matchID, e.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (r *RosterRepo) DeleteByMatch(ctx context.Context, matchID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM match_players WHERE match_id=$1`, matchID)
	return err
}

func (r *RosterRepo) Remove(ctx context.Context, matchID, playerID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM match_players WHERE match_id=$1 AND player_id=$2
`, matchID, playerID)
	return err
}
