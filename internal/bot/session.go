package bot

import (
	"context"
	"sync"
	"time"
)

// Conversation states.
const (
	StateIdle               = ""
	StateSignatureDocType   = "firma_esperando_tipo_doc"
	StateSignatureDocNumber = "firma_esperando_num_doc"
	StatePersonDocType      = "persona_esperando_tipo_doc"
	StatePersonDocNumber    = "persona_esperando_num_doc"
	StateVehiclePlate       = "esperando_placa_vehiculo"
	StateOwnerPlate         = "esperando_placa_propietario"
)

// Session is the per-chat conversation state.
type Session struct {
	State   string `json:"state"`
	DocType string `json:"doc_type,omitempty"`
}

// SessionStore keeps sessions between webhook calls. A missing or expired
// session reads as the zero Session.
type SessionStore interface {
	Get(ctx context.Context, chatID int64) (Session, error)
	Set(ctx context.Context, chatID int64, s Session) error
	Clear(ctx context.Context, chatID int64) error
}

// MemoryStore is an in-process SessionStore with a fixed TTL. Expired
// entries are dropped when read and by a sweep that Set runs at most once
// per TTL, so chats that never come back do not accumulate.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu        sync.Mutex
	items     map[int64]memoryEntry
	nextSweep time.Time
}

type memoryEntry struct {
	s       Session
	expires time.Time
}

// NewMemoryStore builds a MemoryStore. ttl <= 0 keeps sessions forever.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{ttl: ttl, now: time.Now, items: make(map[int64]memoryEntry)}
}

// Get returns the chat's session, or the zero Session when none is stored
// or it has expired.
func (m *MemoryStore) Get(_ context.Context, chatID int64) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[chatID]
	if !ok {
		return Session{}, nil
	}
	if !e.expires.IsZero() && !m.now().Before(e.expires) {
		delete(m.items, chatID)
		return Session{}, nil
	}
	return e.s, nil
}

// Set stores s for the chat and restarts its TTL.
func (m *MemoryStore) Set(_ context.Context, chatID int64, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	var exp time.Time
	if m.ttl > 0 {
		exp = now.Add(m.ttl)
		m.sweepLocked(now)
	}
	m.items[chatID] = memoryEntry{s: s, expires: exp}
	return nil
}

func (m *MemoryStore) sweepLocked(now time.Time) {
	if now.Before(m.nextSweep) {
		return
	}
	for id, e := range m.items {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(m.items, id)
		}
	}
	m.nextSweep = now.Add(m.ttl)
}

// Clear drops the chat's session.
func (m *MemoryStore) Clear(_ context.Context, chatID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, chatID)
	return nil
}
