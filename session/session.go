// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package session

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/campus-mess/prefs"
	"github.com/danielhkuo/campus-mess/remote"
	"github.com/danielhkuo/campus-mess/voting"
)

var (
	ErrInvalidDevice  = errors.New("device uuid must be a valid UUID")
	ErrDeviceMismatch = errors.New("session belongs to another device")
)

// DefaultIdleTimeout ends sessions nobody has used for a while.
const DefaultIdleTimeout = 30 * time.Minute

const editModeKey = "editMode"

// State is one visitor session. Ephemeral preferences and vote
// subscriptions live exactly as long as the session.
type State struct {
	ID       string
	DeviceID string

	Ephemeral *prefs.Ephemeral
	Durable   *prefs.Durable
	Votes     *voting.Engine

	mu       sync.Mutex
	ownerUID string
	lastSeen time.Time
}

// OwnerUID is the owner this session last authenticated as, if any.
func (s *State) OwnerUID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ownerUID
}

func (s *State) SetOwner(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerUID = uid
}

// EditMode reports whether the owner unlocked menu editing in this
// session. It is not remembered across sessions.
func (s *State) EditMode(ctx context.Context) bool {
	v, _, _ := s.Ephemeral.GetItem(ctx, editModeKey)
	return v == "true"
}

func (s *State) SetEditMode(ctx context.Context, on bool) error {
	if !on {
		return s.Ephemeral.RemoveItem(ctx, editModeKey)
	}
	return s.Ephemeral.SetItem(ctx, editModeKey, "true")
}

func (s *State) touch(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSeen = now
}

func (s *State) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

func (s *State) close() {
	s.Votes.Close()
	s.Ephemeral.Clear()
}

// Manager owns every live session.
type Manager struct {
	db    *sql.DB
	store remote.Store
	idle  time.Duration
	now   func() time.Time

	// votes serializes casts of one device across its sessions.
	votes voting.CastLocks

	mu       sync.Mutex
	sessions map[string]*State
	byDevice map[string]*State
}

func NewManager(db *sql.DB, store remote.Store, idle time.Duration) *Manager {
	if idle <= 0 {
		idle = DefaultIdleTimeout
	}
	return &Manager{
		db:       db,
		store:    store,
		idle:     idle,
		now:      time.Now,
		sessions: make(map[string]*State),
		byDevice: make(map[string]*State),
	}
}

// Get returns the live session with sessionID. When the id is empty or
// unknown it returns the device's live session, starting one if the
// device has none. created reports whether a new session was started;
// callers hand its ID back to the client.
func (m *Manager) Get(ctx context.Context, sessionID, deviceUUID string) (st *State, created bool, err error) {
	if _, err := uuid.Parse(deviceUUID); err != nil {
		return nil, false, ErrInvalidDevice
	}

	now := m.now()
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if ok && st.DeviceID != deviceUUID {
		m.mu.Unlock()
		return nil, false, ErrDeviceMismatch
	}
	if !ok {
		st, ok = m.byDevice[deviceUUID]
	}
	m.mu.Unlock()

	if ok {
		if st.idleSince(now) < m.idle {
			st.touch(now)
			return st, false, nil
		}
		m.End(st.ID)
	}

	if err := prefs.TouchDevice(ctx, m.db, deviceUUID); err != nil {
		return nil, false, err
	}
	durable, err := prefs.NewDurable(m.db, deviceUUID)
	if err != nil {
		return nil, false, err
	}

	st = &State{
		ID:        uuid.NewString(),
		DeviceID:  deviceUUID,
		Ephemeral: prefs.NewEphemeral(),
		Durable:   durable,
		Votes:     voting.NewDeviceEngine(m.store, durable, &m.votes, deviceUUID),
		lastSeen:  now,
	}

	m.mu.Lock()
	if live, ok := m.byDevice[deviceUUID]; ok && live.idleSince(now) < m.idle {
		// Another request started the device's session first.
		m.mu.Unlock()
		st.close()
		live.touch(now)
		return live, false, nil
	}
	m.sessions[st.ID] = st
	m.byDevice[deviceUUID] = st
	m.mu.Unlock()

	slog.Debug("session started", "session_id", st.ID, "device", deviceUUID)
	return st, true, nil
}

// End closes a session. Unknown ids are ignored.
func (m *Manager) End(sessionID string) {
	m.mu.Lock()
	st, ok := m.sessions[sessionID]
	if ok {
		m.forget(st)
	}
	m.mu.Unlock()

	if ok {
		st.close()
		slog.Debug("session ended", "session_id", sessionID)
	}
}

// Sweep ends every idle session and returns how many were ended.
func (m *Manager) Sweep() int {
	now := m.now()

	m.mu.Lock()
	var expired []*State
	for _, st := range m.sessions {
		if st.idleSince(now) >= m.idle {
			expired = append(expired, st)
			m.forget(st)
		}
	}
	m.mu.Unlock()

	for _, st := range expired {
		st.close()
	}
	if len(expired) > 0 {
		slog.Info("expired idle sessions", "count", len(expired))
	}
	return len(expired)
}

// Run sweeps idle sessions until ctx is done, then ends the rest.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.idle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return nil
		case <-ticker.C:
			m.Sweep()
		}
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close ends every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*State)
	m.byDevice = make(map[string]*State)
	m.mu.Unlock()

	for _, st := range all {
		st.close()
	}
}

// forget drops st from the indexes. m.mu must be held.
func (m *Manager) forget(st *State) {
	delete(m.sessions, st.ID)
	if m.byDevice[st.DeviceID] == st {
		delete(m.byDevice, st.DeviceID)
	}
}
