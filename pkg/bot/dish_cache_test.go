package bot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pantryline/domain"
)

func TestDishCacheExpiry(t *testing.T) {
	current := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	cache := newDishCache()
	cache.now = func() time.Time { return current }

	cache.put("user-1", []domain.DishSuggestion{{Label: "Fried rice"}})

	dishes, ok := cache.get("user-1")
	require.True(t, ok)
	require.Len(t, dishes, 1)
	assert.Equal(t, "Fried rice", dishes[0].Label)

	_, ok = cache.get("user-2")
	assert.False(t, ok, "entries are per user")

	current = current.Add(dishCacheTTL + time.Minute)
	_, ok = cache.get("user-1")
	assert.False(t, ok, "expired entries are dropped")

	_, ok = cache.get("user-1")
	assert.False(t, ok)
}

func TestDishCacheOverwrite(t *testing.T) {
	cache := newDishCache()
	cache.put("user-1", []domain.DishSuggestion{{Label: "Fried rice"}})
	cache.put("user-1", []domain.DishSuggestion{{Label: "Congee"}, {Label: "Omelette"}})

	dishes, ok := cache.get("user-1")
	require.True(t, ok)
	require.Len(t, dishes, 2)
	assert.Equal(t, "Congee", dishes[0].Label)
}
