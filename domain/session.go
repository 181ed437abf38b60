package domain

import (
	"errors"
	"time"
)

// Mode is the active functional context of a user's session.
type Mode string

const (
	ModeIdle   Mode = "idle"
	ModeRecipe Mode = "recipe"
	ModeRecord Mode = "record"
	ModeView   Mode = "view"
	ModeDelete Mode = "delete"
)

// Buffering reports whether the mode accumulates images toward a turn.
func (m Mode) Buffering() bool {
	return m == ModeRecipe || m == ModeRecord
}

var (
	ErrInvalidState = errors.New("event not valid in current mode")
)

type (
	// ImageRef points at an image the platform holds; content is fetched
	// lazily at dispatch time, never buffered as bytes.
	ImageRef struct {
		MessageID string `json:"message_id"`
	}

	// SessionSnapshot is a read-only view of one session, safe to use
	// without holding the session's lock.
	SessionSnapshot struct {
		Mode           Mode      `json:"mode"`
		BufferedImages int       `json:"buffered_images"`
		HasPendingText bool      `json:"has_pending_text"`
		LastActivity   time.Time `json:"last_activity"`
	}
)
