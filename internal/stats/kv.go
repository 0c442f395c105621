// Package stats keeps the cross-session aggregate record.
package stats

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
)

var ErrNotFound = errors.New("record not found")

// KV is a named-record store. Get returns ErrNotFound for a missing name.
type KV interface {
	Get(ctx context.Context, name string) ([]byte, error)
	Set(ctx context.Context, name string, data []byte) error
}

type SQLKV struct{ db *sqlx.DB }

func NewSQLKV(db *sqlx.DB) *SQLKV { return &SQLKV{db: db} }

func (s *SQLKV) Get(ctx context.Context, name string) ([]byte, error) {
	var data string
	err := s.db.GetContext(ctx, &data, `SELECT data FROM kv WHERE name=$1`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(data), nil
}

func (s *SQLKV) Set(ctx context.Context, name string, data []byte) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO kv (name, data, updated_at) VALUES ($1,$2,$3)
ON CONFLICT (name) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		name, string(data), time.Now().Unix())
	return err
}

// MemoryKV keeps records in process memory.
type MemoryKV struct {
	mu sync.Mutex
	m  map[string][]byte
}

func NewMemoryKV() *MemoryKV { return &MemoryKV{m: map[string][]byte{}} }

func (m *MemoryKV) Get(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.m[name]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (m *MemoryKV) Set(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.m[name] = append([]byte(nil), data...)
	return nil
}
