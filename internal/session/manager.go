// Package session owns the single process-wide authenticated identity. It is
// the only writer of the durable session record: every mutation goes through
// CompleteLogin or Logout.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"trustid/internal/domain"
	"trustid/pkg/platform/sentinel"
)

// RecordKey is the fixed namespace of the durable session record.
const RecordKey = "kyc_user"

// RecordStore persists the serialized identity under RecordKey.
type RecordStore interface {
	// Load returns sentinel.ErrNotFound when no record is stored.
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
	// Delete succeeds when no record is stored.
	Delete(ctx context.Context) error
}

// Session is a point-in-time copy of the authentication state.
type Session struct {
	Identity *domain.Identity `json:"user"`
	Pending  bool             `json:"is_loading"`
}

func (s Session) Authenticated() bool {
	return s.Identity != nil
}

// Role returns domain.RoleNone when unauthenticated.
func (s Session) Role() domain.Role {
	if s.Identity == nil {
		return domain.RoleNone
	}
	return s.Identity.Role
}

// Manager is safe for concurrent use. Reads never wait on storage I/O; writes
// are serialized so the durable record and memory cannot diverge.
type Manager struct {
	store  RecordStore
	logger *zap.Logger

	writeMu sync.Mutex

	mu           sync.RWMutex
	identity     *domain.Identity
	initializing bool
	inflight     int
}

// Option configures a Manager.
type Option func(*Manager)

func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		m.logger = logger
	}
}

// NewManager returns an unauthenticated manager in the initial loading state.
// Call Restore once at start.
func NewManager(store RecordStore, opts ...Option) *Manager {
	m := &Manager{
		store:        store,
		logger:       zap.NewNop(),
		initializing: true,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Restore loads the durable record. A missing or malformed record leaves the
// session unauthenticated; neither is reported to the caller. The initial
// loading state always ends here.
func (m *Manager) Restore(ctx context.Context) Session {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	identity := m.load(ctx)

	m.mu.Lock()
	m.identity = identity
	m.initializing = false
	m.mu.Unlock()

	return m.Current()
}

func (m *Manager) load(ctx context.Context) *domain.Identity {
	data, err := m.store.Load(ctx)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil
	}
	if err != nil {
		m.logger.Warn("session record unreadable, starting unauthenticated", zap.Error(err))
		return nil
	}
	if isTombstone(data) {
		return nil
	}
	identity, err := decodeIdentity(data)
	if err != nil {
		m.logger.Warn("session record malformed, starting unauthenticated", zap.Error(err))
		return nil
	}
	m.logger.Debug("session restored",
		zap.String("user_id", identity.ID),
		zap.String("role", identity.Role.String()),
	)
	return &identity
}

// CompleteLogin persists identity and makes it the current session. The
// identity is trusted; validation belongs to the identity adapter. When the
// durable write fails the current session is left unchanged.
func (m *Manager) CompleteLogin(ctx context.Context, identity domain.Identity) error {
	data, err := encodeIdentity(identity)
	if err != nil {
		return err
	}

	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	if err := m.store.Save(ctx, data); err != nil {
		return fmt.Errorf("persist session record: %w", err)
	}

	m.mu.Lock()
	m.identity = &identity
	m.mu.Unlock()

	m.logger.Info("session established",
		zap.String("user_id", identity.ID),
		zap.String("role", identity.Role.String()),
	)
	return nil
}

// Logout clears the session and erases the durable record. The erase runs even
// when already unauthenticated. The record is overwritten with a tombstone
// before deletion, so a failed delete cannot resurrect the identity on the next
// Restore. An error is returned only when neither write reached the store.
func (m *Manager) Logout(ctx context.Context) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	m.mu.Lock()
	m.identity = nil
	m.mu.Unlock()

	tombErr := m.store.Save(ctx, tombstone)
	if tombErr != nil {
		m.logger.Warn("session tombstone not written", zap.Error(tombErr))
	}
	if err := m.store.Delete(ctx); err != nil {
		if tombErr == nil {
			m.logger.Warn("session record not erased, tombstone left in place", zap.Error(err))
			return nil
		}
		return fmt.Errorf("erase session record: %w", errors.Join(tombErr, err))
	}
	return nil
}

// CurrentRole is a pure read used by route guards.
func (m *Manager) CurrentRole() domain.Role {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.identity == nil {
		return domain.RoleNone
	}
	return m.identity.Role
}

// Current returns a copy of the session state.
func (m *Manager) Current() Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := Session{Pending: m.initializing || m.inflight > 0}
	if m.identity != nil {
		id := *m.identity
		s.Identity = &id
	}
	return s
}

// BeginAuth marks an authentication operation in flight. The returned func ends
// it and is safe to call more than once.
func (m *Manager) BeginAuth() (done func()) {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			m.inflight--
			m.mu.Unlock()
		})
	}
}
