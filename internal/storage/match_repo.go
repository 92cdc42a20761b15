package storage

import (
	"context"
	"database/sql"
	"time"
)

// Match is the durable record for one match.
type Match struct {
	ID             string
	Status         string
	MatchType      string
	HostID         *string
	ServerIP       *string
	ServerPassword *string
	ConnectLink    *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type MatchRepo struct{ db *sql.DB }

func NewMatchRepo(db *sql.DB) *MatchRepo { return &MatchRepo{db: db} }

func (r *MatchRepo) Get(ctx context.Context, id string) (Match, error) {
	var m Match
	err := r.db.QueryRowContext(ctx, `
SELECT id, status, match_type, host_id, server_ip, server_password, connect_link,
       created_at, updated_at
  FROM matches
 WHERE id = $1
`, id).Scan(
		&m.ID, &m.Status, &m.MatchType, &m.HostID, &m.ServerIP, &m.ServerPassword,
		&m.ConnectLink, &m.CreatedAt, &m.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return Match{}, ErrNotFound
	}
	return m, err
}

func (r *MatchRepo) Upsert(ctx context.Context, m Match) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO matches (id, status, match_type, host_id, server_ip, server_password, connect_link, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,now())
ON CONFLICT (id) DO UPDATE SET
  status=$2, match_type=$3, host_id=$4, server_ip=$5, server_password=$6,
  connect_link=$7, updated_at=now()
`, m.ID, m.Status, m.MatchType, m.HostID, m.ServerIP, m.ServerPassword, m.ConnectLink)
	return err
}

func (r *MatchRepo) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE matches SET status=$2, updated_at=now() WHERE id=$1
`, id, status)
	return err
}

func (r *MatchRepo) SetServerInfo(ctx context.Context, id, ip, password, link string) error {
	_, err := r.db.ExecContext(ctx, `
UPDATE matches SET server_ip=$2, server_password=$3, connect_link=$4, updated_at=now()
 WHERE id=$1
`, id, ip, password, link)
	return err
}

func (r *MatchRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM matches WHERE id=$1`, id)
	return err
}
