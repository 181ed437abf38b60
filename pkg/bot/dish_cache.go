package bot

import (
	"sync"
	"time"

	"pantryline/domain"
)

// dishCacheTTL bounds how long a carousel tap can still resolve its dish.
const dishCacheTTL = 30 * time.Minute

type (
	// dishCache keeps each user's last recipe suggestions so a postback
	// can render the full recipe without another gateway call.
	dishCache struct {
		mu      sync.Mutex
		entries map[string]dishEntry
		now     func() time.Time
	}

	dishEntry struct {
		dishes    []domain.DishSuggestion
		expiresAt time.Time
	}
)

func newDishCache() *dishCache {
	return &dishCache{
		entries: make(map[string]dishEntry),
		now:     time.Now,
	}
}

func (c *dishCache) put(userID string, dishes []domain.DishSuggestion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[userID] = dishEntry{
		dishes:    dishes,
		expiresAt: c.now().Add(dishCacheTTL),
	}
}

// get returns the cached dishes, dropping the entry once expired.
func (c *dishCache) get(userID string) ([]domain.DishSuggestion, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[userID]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, userID)
		return nil, false
	}
	return entry.dishes, true
}
