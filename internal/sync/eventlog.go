package syncx

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

const TypeSessionSubmitted = "SessionSubmitted"

type Event struct {
	Seq       int64  `db:"seq"`
	SiteID    string `db:"site_id"`
	Type      string `db:"typ"`
	Key       string `db:"key"`
	DataJSON  string `db:"data"`
	CreatedAt int64  `db:"created_at"`
}

// Journal is the append-only event log.
type Journal interface {
	Append(ctx context.Context, e Event) error
}

type EventRepo struct {
	db     *sqlx.DB
	SiteID string
}

func NewEventRepo(db *sqlx.DB) *EventRepo { return &EventRepo{db: db, SiteID: "local"} }

func (r *EventRepo) Append(ctx context.Context, e Event) error {
	if e.SiteID == "" {
		e.SiteID = r.SiteID
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_log (site_id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		e.SiteID, e.Type, e.Key, e.DataJSON, time.Now().Unix())
	return err
}

// Since returns up to limit events with seq > after, oldest first.
func (r *EventRepo) Since(ctx context.Context, after int64, limit int) ([]Event, error) {
	var out []Event
	err := r.db.SelectContext(ctx, &out,
		`SELECT seq, site_id, typ, key, data, created_at FROM event_log
		 WHERE seq > $1 ORDER BY seq LIMIT $2`, after, limit)
	return out, err
}

// SessionSubmitted is the payload of a TypeSessionSubmitted event.
type SessionSubmitted struct {
	SessionID  string `json:"session_id"`
	Profile    string `json:"profile"`
	Percentage int    `json:"percentage"`
	Correct    int    `json:"correct"`
	Wrong      int    `json:"wrong"`
	Unanswered int    `json:"unanswered"`
	Total      int    `json:"total"`
	Expired    bool   `json:"expired"`
}

func NewSessionSubmitted(p SessionSubmitted) (Event, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: TypeSessionSubmitted, Key: p.SessionID, DataJSON: string(b)}, nil
}
