package web

import (
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alphadose/haxmap"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/tanpawarit/supervisor-agent/chat"
)

const sessionCookie = "supervisor_session"

// session is one browser conversation. turn serializes its chat turns so
// each task is built from the answers before it.
type session struct {
	turn     sync.Mutex
	history  *chat.History
	lastUsed atomic.Int64
}

func newSession(now time.Time) *session {
	sess := &session{history: chat.NewHistory()}
	sess.touch(now)
	return sess
}

func (s *session) touch(now time.Time) {
	s.lastUsed.Store(now.UnixNano())
}

func (s *session) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, s.lastUsed.Load()))
}

// sessionStore keeps conversations in memory. A session exists only once it
// has had a chat turn, and is dropped after sitting idle.
type sessionStore struct {
	sessions *haxmap.Map[string, *session]
	now      func() time.Time
}

func newSessionStore() *sessionStore {
	return &sessionStore{
		sessions: haxmap.New[string, *session](),
		now:      time.Now,
	}
}

// open returns the session for id, creating it on first use.
func (s *sessionStore) open(id string) *session {
	if sess, ok := s.sessions.Get(id); ok {
		return sess
	}
	sess, _ := s.sessions.GetOrSet(id, newSession(s.now()))
	return sess
}

func (s *sessionStore) lookup(id string) (*session, bool) {
	return s.sessions.Get(id)
}

func (s *sessionStore) len() int {
	return int(s.sessions.Len())
}

// prune drops sessions idle for longer than idle. Sessions with a turn in
// flight are kept.
func (s *sessionStore) prune(idle time.Duration) int {
	now := s.now()
	var expired []string
	s.sessions.ForEach(func(id string, sess *session) bool {
		if sess.idleSince(now) <= idle || !sess.turn.TryLock() {
			return true
		}
		if sess.idleSince(now) > idle {
			expired = append(expired, id)
		}
		sess.turn.Unlock()
		return true
	})
	if len(expired) > 0 {
		s.sessions.Del(expired...)
	}
	return len(expired)
}

// janitor prunes idle sessions every interval until done is closed.
func (s *sessionStore) janitor(done <-chan struct{}, idle, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			if n := s.prune(idle); n > 0 {
				log.Debug().Int("pruned", n).Int("remaining", s.len()).Msg("idle sessions dropped")
			}
		}
	}
}

// resolve returns the session id named by the request cookie without
// creating the session. A new cookie is returned when the request has none
// or it is malformed.
func resolve(r *http.Request) (string, *http.Cookie) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		id := strings.TrimSpace(c.Value)
		if _, err := uuid.Parse(id); err == nil {
			return id, nil
		}
	}

	id := uuid.NewString()
	return id, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// cookieSession returns the existing session named by the request cookie.
func (s *sessionStore) cookieSession(r *http.Request) (*session, bool) {
	c, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, false
	}
	return s.lookup(strings.TrimSpace(c.Value))
}
