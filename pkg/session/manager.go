package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"rich-edit/pkg/editor"
	"rich-edit/pkg/imagestore"
	"rich-edit/pkg/metrics"
)

// DefaultTimeout bounds saves and image uploads.
const DefaultTimeout = 30 * time.Second

// Manager manages all sessions
type Manager struct {
	sessions map[string]*Session
	mutex    sync.RWMutex

	Store   Store
	Images  imagestore.Store
	Editor  editor.Options
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewManager creates a new session manager. images may be nil, uploads are
// then refused.
func NewManager(store Store, images imagestore.Store, opts editor.Options) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		Store:    store,
		Images:   images,
		Editor:   opts,
		Timeout:  DefaultTimeout,
		Logger:   opts.Logger,
	}
}

// GetOrCreate returns the running session or starts one over the stored
// document. documentID defaults to the session id.
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, documentID string) (*Session, error) {
	if documentID == "" {
		documentID = sessionID
	}

	m.mutex.Lock()
	defer m.mutex.Unlock()

	if s, ok := m.sessions[sessionID]; ok && s.ctx.Err() == nil {
		return s, nil
	}

	doc, err := m.Store.GetDocument(ctx, documentID)
	if err != nil {
		return nil, err
	}

	opts := m.Editor
	opts.Logger = m.Logger
	s, err := newSession(sessionID, doc, m.Store, m.Images, opts, m.Timeout)
	if err != nil {
		return nil, err
	}
	m.sessions[sessionID] = s
	metrics.Sessions.Inc()

	go func() {
		s.run()
		m.remove(s)
	}()

	return s, nil
}

// Get returns a running session.
func (m *Manager) Get(sessionID string) (*Session, bool) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	s, ok := m.sessions[sessionID]
	return s, ok
}

func (m *Manager) remove(s *Session) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if m.sessions[s.ID] == s {
		delete(m.sessions, s.ID)
	}
	metrics.Sessions.Dec()
}

// Close stops every session, saving unsaved content.
func (m *Manager) Close() {
	m.mutex.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mutex.RUnlock()

	for _, s := range sessions {
		s.Close()
	}
}
