// Package session keeps the in-memory per-user state of an upload flow.
package session

import (
	"errors"
	"sync"
	"time"

	"megadrop/internal/folders"
)

var (
	ErrNotFound = errors.New("session expired")
	ErrBusy     = errors.New("upload already in progress")
)

type Session struct {
	UserID  int64
	URL     string
	Title   string
	Folders []folders.Folder
	Busy    bool
	Created time.Time
}

// Store is an unbounded map of sessions keyed by user id. A positive TTL
// hides sessions older than it; they are dropped on the next access.
type Store struct {
	mu       sync.Mutex
	sessions map[int64]*Session
	ttl      time.Duration
	now      func() time.Time
}

func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[int64]*Session),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Put replaces any session of s.UserID.
func (st *Store) Put(s Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if s.Created.IsZero() {
		s.Created = st.now()
	}
	st.sessions[s.UserID] = &s
}

func (st *Store) Get(userID int64) (Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.lookup(userID)
	if s == nil {
		return Session{}, false
	}
	return *s, true
}

// Update applies fn to the stored session in place.
func (st *Store) Update(userID int64, fn func(*Session)) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.lookup(userID)
	if s == nil {
		return ErrNotFound
	}
	fn(s)
	return nil
}

// Claim marks the session busy so a second button press cannot start a
// parallel upload.
func (st *Store) Claim(userID int64) (Session, error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s := st.lookup(userID)
	if s == nil {
		return Session{}, ErrNotFound
	}
	if s.Busy {
		return Session{}, ErrBusy
	}
	s.Busy = true
	return *s, nil
}

func (st *Store) Delete(userID int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, userID)
}

func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// lookup must be called with mu held.
func (st *Store) lookup(userID int64) *Session {
	s, ok := st.sessions[userID]
	if !ok {
		return nil
	}
	if st.ttl > 0 && !s.Busy && st.now().Sub(s.Created) > st.ttl {
		delete(st.sessions, userID)
		return nil
	}
	return s
}
