// Package web provides the HTTP server and web UI.
package web

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/justestif/moodtube/internal/metrics"
	"github.com/justestif/moodtube/internal/session"
)

const (
	sessionCookieName = "moodtube_session"

	// DefaultSessionTTL is how long an idle browser session is kept.
	DefaultSessionTTL = 2 * time.Hour
)

// Session is one browser session and the state machine it owns.
type Session struct {
	ID        string
	Machine   *session.Machine
	CreatedAt time.Time
}

// MachineFactory builds a fresh state machine for a new session.
type MachineFactory func() (*session.Machine, error)

// SessionManager defines the interface for session management.
type SessionManager interface {
	Get(id string) *Session
	GetOrCreate(w http.ResponseWriter, r *http.Request) (*Session, error)
	Delete(id string)
	Count() int
}

// SessionStore keeps sessions in memory with a sliding expiry.
// Each session owns its own state machine; nothing is shared between them.
type SessionStore struct {
	cache      *cache.Cache
	newMachine MachineFactory
	ttl        time.Duration
}

// NewSessionStore creates a new in-memory session store.
func NewSessionStore(ttl time.Duration, factory MachineFactory) *SessionStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	c := cache.New(ttl, ttl/2)
	c.OnEvicted(func(string, any) {
		metrics.ActiveSessions.Dec()
	})

	return &SessionStore{
		cache:      c,
		newMachine: factory,
		ttl:        ttl,
	}
}

// Get retrieves a session by ID and extends its lifetime.
func (s *SessionStore) Get(id string) *Session {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil
	}
	sess := v.(*Session)
	s.cache.Set(id, sess, cache.DefaultExpiration)
	return sess
}

// GetOrCreate returns the session named by the request cookie, creating a new
// one and setting the cookie when it is missing or expired.
func (s *SessionStore) GetOrCreate(w http.ResponseWriter, r *http.Request) (*Session, error) {
	if sess := s.fromRequest(r); sess != nil {
		return sess, nil
	}

	id, err := generateSessionID()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	machine, err := s.newMachine()
	if err != nil {
		return nil, fmt.Errorf("creating state machine: %w", err)
	}

	sess := &Session{
		ID:        id,
		Machine:   machine,
		CreatedAt: time.Now(),
	}
	s.cache.Set(id, sess, cache.DefaultExpiration)
	metrics.ActiveSessions.Inc()

	s.setCookie(w, sess)
	return sess, nil
}

// Delete removes a session by ID.
func (s *SessionStore) Delete(id string) {
	s.cache.Delete(id)
}

// Count returns the number of sessions held, including expired ones not yet cleaned up.
func (s *SessionStore) Count() int {
	return s.cache.ItemCount()
}

// fromRequest extracts the session from the request cookie.
func (s *SessionStore) fromRequest(r *http.Request) *Session {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return nil
	}
	return s.Get(cookie.Value)
}

// setCookie sets the session cookie on the response.
func (s *SessionStore) setCookie(w http.ResponseWriter, sess *Session) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.ttl.Seconds()),
	})
}

// generateSessionID creates a cryptographically random session ID.
func generateSessionID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

var _ SessionManager = (*SessionStore)(nil)
