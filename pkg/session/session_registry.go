package session

import (
	"strings"
	"sync"
	"time"

	"pantryline/domain"
)

type (
	// SessionRegistry owns the in-memory conversation state, one session
	// per user. All operations create the session on first access; state
	// lives for the process lifetime unless evicted as stale.
	SessionRegistry interface {
		// GetOrCreate never fails; a first access yields an Idle session
		// with empty buffers.
		GetOrCreate(userID string) domain.SessionSnapshot
		// SetMode switches the user's mode and discards any in-progress
		// turn: pending images and text are cleared on every transition.
		SetMode(userID string, mode domain.Mode)
		// AppendImage buffers one image reference and returns the buffer
		// size after the append. Returns domain.ErrInvalidState unless the
		// session is in Recipe or Record mode.
		AppendImage(userID string, ref domain.ImageRef) (int, error)
		// AppendText accumulates free text accompanying the current turn,
		// under the same mode restriction as AppendImage.
		AppendText(userID string, text string) error
		// TakeTurn atomically reads and clears the buffered turn. An empty
		// image slice means there is no turn to dispatch.
		TakeTurn(userID string) ([]domain.ImageRef, string)
		// EvictStale drops sessions idle since before the cutoff and
		// reports how many were removed.
		EvictStale(olderThan time.Time) int
	}

	sessionRegistry struct {
		mu       sync.RWMutex
		sessions map[string]*session
	}

	session struct {
		mu            sync.Mutex
		mode          domain.Mode
		pendingImages []domain.ImageRef
		pendingText   []string
		lastActivity  time.Time
	}
)

func NewSessionRegistry() SessionRegistry {
	return &sessionRegistry{sessions: make(map[string]*session)}
}

// getOrCreate resolves the session under the registry lock only; callers
// lock the returned session themselves. Sessions for different users never
// share a lock.
func (r *sessionRegistry) getOrCreate(userID string) *session {
	r.mu.RLock()
	s, ok := r.sessions[userID]
	r.mu.RUnlock()
	if ok {
		return s
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok = r.sessions[userID]; ok {
		return s
	}
	s = &session{mode: domain.ModeIdle, lastActivity: time.Now()}
	r.sessions[userID] = s
	return s
}

func (r *sessionRegistry) GetOrCreate(userID string) domain.SessionSnapshot {
	s := r.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

func (r *sessionRegistry) SetMode(userID string, mode domain.Mode) {
	s := r.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = mode
	s.clearTurn()
	s.lastActivity = time.Now()
}

func (r *sessionRegistry) AppendImage(userID string, ref domain.ImageRef) (int, error) {
	s := r.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	if !s.buffering() {
		return 0, domain.ErrInvalidState
	}
	s.pendingImages = append(s.pendingImages, ref)
	return len(s.pendingImages), nil
}

func (r *sessionRegistry) AppendText(userID string, text string) error {
	s := r.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()
	if !s.buffering() {
		return domain.ErrInvalidState
	}
	s.pendingText = append(s.pendingText, text)
	return nil
}

func (r *sessionRegistry) TakeTurn(userID string) ([]domain.ImageRef, string) {
	s := r.getOrCreate(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastActivity = time.Now()

	images := make([]domain.ImageRef, len(s.pendingImages))
	copy(images, s.pendingImages)
	text := strings.Join(s.pendingText, "\n")
	s.clearTurn()
	return images, text
}

func (r *sessionRegistry) EvictStale(olderThan time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for userID, s := range r.sessions {
		s.mu.Lock()
		stale := s.lastActivity.Before(olderThan)
		s.mu.Unlock()
		if stale {
			delete(r.sessions, userID)
			evicted++
		}
	}
	return evicted
}

func (s *session) buffering() bool {
	return s.mode.Buffering()
}

func (s *session) clearTurn() {
	s.pendingImages = nil
	s.pendingText = nil
}

func (s *session) snapshot() domain.SessionSnapshot {
	return domain.SessionSnapshot{
		Mode:           s.mode,
		BufferedImages: len(s.pendingImages),
		HasPendingText: len(s.pendingText) > 0,
		LastActivity:   s.lastActivity,
	}
}
