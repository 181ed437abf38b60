package domain

import (
	"errors"
	"time"
)

var (
	MessageInventoryEmpty  = "your inventory is empty. say record to add something"
	MessageInventoryHeader = "here is what you have, oldest first:"
	MessageRecordedHeader  = "stored these in your inventory:"
	MessageNothingStored   = "I couldn't recognize any food in those photos, nothing was stored"
	MessageStoreFailure    = "something went wrong saving your inventory. please try again"
	MessageViewHint        = "say delete to consume something, or exit to leave"

	ErrRecordNotFound = errors.New("stock record not found")
	ErrEmptyFoodName  = errors.New("food name must not be empty")
)

type (
	// RecognizedItem is one food item extracted from a Record-mode turn.
	// A nil quantity is stored as-is: the record becomes untracked.
	RecognizedItem struct {
		FoodName string   `json:"food_name"`
		Quantity *float64 `json:"quantity,omitempty"`
	}

	StockItemResponse struct {
		ID          uint      `json:"id"`
		FoodName    string    `json:"food_name"`
		Quantity    *float64  `json:"quantity,omitempty"`
		StorageTime time.Time `json:"storage_time"`
		DaysStored  int       `json:"days_stored"`
	}
)
