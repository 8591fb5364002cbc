package dashboard

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kjstillabower/live-dashboard/internal/models"
)

// Page names. Each session holds one PageState per page.
const (
	PagePrices  = "prices"
	PageWeather = "weather"
)

// PageState is the per-session state of one page. It is only touched while the owning
// session is locked.
type PageState struct {
	Refresh models.RefreshConfig
	History *History // nil for pages without history
}

// Session is one browser session's state. Cycles for a session run one at a time.
type Session struct {
	ID string

	mu       sync.Mutex
	pages    map[string]*PageState
	lastSeen time.Time
	newPage  func(name string) *PageState
}

// WithPage runs fn with the named page's state while holding the session lock.
// The state is created with defaults on first use.
func (s *Session) WithPage(name string, fn func(st *PageState)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.pages[name]
	if !ok {
		st = s.newPage(name)
		s.pages[name] = st
	}
	fn(st)
}

// SessionStore holds sessions keyed by id. Safe for concurrent use.
type SessionStore struct {
	mu              sync.Mutex
	sessions        map[string]*Session
	defaults        models.RefreshConfig
	historyCapacity int
	now             func() time.Time
}

// NewSessionStore creates a store whose pages start with defaults and whose weather
// history holds historyCapacity readings.
func NewSessionStore(defaults models.RefreshConfig, historyCapacity int) *SessionStore {
	return &SessionStore{
		sessions:        make(map[string]*Session),
		defaults:        defaults,
		historyCapacity: historyCapacity,
		now:             time.Now,
	}
}

// Get returns the session for id, creating one when id is empty or unknown.
// The second result reports whether a new session was created.
func (s *SessionStore) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if sess, ok := s.sessions[id]; ok && id != "" {
		sess.lastSeen = now
		return sess, false
	}
	sess := s.newSessionLocked(uuid.New().String(), now)
	return sess, true
}

// NewSession creates a session not bound to any browser, used by watch mode.
func (s *SessionStore) NewSession() *Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.newSessionLocked(uuid.New().String(), s.now())
}

func (s *SessionStore) newSessionLocked(id string, now time.Time) *Session {
	sess := &Session{
		ID:       id,
		pages:    make(map[string]*PageState),
		lastSeen: now,
		newPage:  s.newPageState,
	}
	s.sessions[id] = sess
	return sess
}

func (s *SessionStore) newPageState(name string) *PageState {
	st := &PageState{Refresh: s.defaults}
	if name == PageWeather {
		st.History = NewHistory(s.historyCapacity)
	}
	return st
}

// Evict removes sessions not seen for longer than idle and returns how many were removed.
func (s *SessionStore) Evict(idle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff := s.now().Add(-idle)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastSeen.Before(cutoff) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
