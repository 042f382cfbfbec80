// Package prefs persists the small set of user preferences mailsort keeps
// between sessions: reply language, brand name and brand logo.
package prefs

import (
	"context"
	"database/sql"
	"sync"

	"github.com/rs/zerolog"

	"github.com/hpungsan/mailsort/internal/db"
)

// Preference keys. Values are opaque strings to the store.
const (
	KeyReplyLang = "replyLang"
	KeyBrandName = "brandName"
	KeyBrandLogo = "brandLogoDataURL"
)

// Store is a persistent key/value store.
type Store interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Clear(ctx context.Context, key string) error
}

// SQLite stores preferences in the preferences table.
type SQLite struct {
	db *sql.DB
}

// NewSQLite wraps an initialized database (see db.Init).
func NewSQLite(database *sql.DB) *SQLite {
	return &SQLite{db: database}
}

func (s *SQLite) Get(ctx context.Context, key string) (string, bool, error) {
	return db.GetPreference(ctx, s.db, key)
}

func (s *SQLite) Set(ctx context.Context, key, value string) error {
	return db.SetPreference(ctx, s.db, key, value)
}

func (s *SQLite) Clear(ctx context.Context, key string) error {
	return db.DeletePreference(ctx, s.db, key)
}

// Memory is an in-memory Store. Safe for concurrent use.
type Memory struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{values: make(map[string]string)}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *Memory) Clear(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Degrading wraps a backend so that storage failures never reach the caller.
// A failed write is remembered in a session overlay and served from there
// for the rest of the process; reads that fail report "unset".
type Degrading struct {
	backend Store
	log     zerolog.Logger

	mu      sync.Mutex
	overlay map[string]*string // nil value means cleared this session
}

// NewDegrading wraps backend.
func NewDegrading(backend Store, log zerolog.Logger) *Degrading {
	return &Degrading{
		backend: backend,
		log:     log,
		overlay: make(map[string]*string),
	}
}

// Get returns the session value if a write was degraded, else the backend value.
func (d *Degrading) Get(ctx context.Context, key string) (string, bool) {
	d.mu.Lock()
	v, overridden := d.overlay[key]
	d.mu.Unlock()
	if overridden {
		if v == nil {
			return "", false
		}
		return *v, true
	}

	value, ok, err := d.backend.Get(ctx, key)
	if err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("preference read failed")
		return "", false
	}
	return value, ok
}

// Set writes value. On failure the value is kept for this session only.
func (d *Degrading) Set(ctx context.Context, key, value string) {
	if err := d.backend.Set(ctx, key, value); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("preference write failed, keeping value for this session")
		d.remember(key, &value)
		return
	}
	d.forget(key)
}

// Clear removes key. On failure the key reads as unset for this session.
func (d *Degrading) Clear(ctx context.Context, key string) {
	if err := d.backend.Clear(ctx, key); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("preference clear failed, treating as unset for this session")
		d.remember(key, nil)
		return
	}
	d.forget(key)
}

func (d *Degrading) remember(key string, v *string) {
	d.mu.Lock()
	d.overlay[key] = v
	d.mu.Unlock()
}

func (d *Degrading) forget(key string) {
	d.mu.Lock()
	delete(d.overlay, key)
	d.mu.Unlock()
}
