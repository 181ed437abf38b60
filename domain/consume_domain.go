package domain

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

var (
	MessageDeleteInstructions = "tell me what you used up, one command at a time:\n" +
		"12 - remove record 12 entirely\n" +
		"12 2 - take 2 off record 12\n" +
		"apple 3 - consume 3 apples, oldest first\n" +
		"say exit when you are finished"
	MessageConsumeNotFound  = "I couldn't find that in your inventory"
	MessageConsumedHeader   = "done, here is what changed:"
	MessageOnlyUntracked    = "those records have no tracked quantity, remove them by id instead"
	MessageShortfallNote    = "your inventory came up short by %g"
	MessageInvalidCommand   = "I couldn't read that command. " + MessageDeleteInstructionsShort
	MessageDeleteModeActive = "still in delete mode, keep going or say exit"

	ErrInvalidCommand = errors.New("invalid consumption command")
)

const MessageDeleteInstructionsShort = "use a record id, an id with an amount, or a food name with an amount"

// QuantityUnits are the unit suffixes accepted after an amount token,
// longest first so compound units match before their suffixes.
var QuantityUnits = []string{
	"公斤", "毫升", "公升",
	"個", "顆", "包", "盒", "瓶", "罐", "條", "片", "塊", "份", "隻", "支", "斤", "克",
	"pcs", "kg", "ml",
	"g", "l", "x",
}

// ParseAmount reads a number with an optional unit suffix ("2", "2.5",
// "2kg", "3個"). Unit matching is case-insensitive; the numeric part must
// be a finite float.
func ParseAmount(token string) (float64, bool) {
	numeric := token
	lower := strings.ToLower(token)
	for _, unit := range QuantityUnits {
		if strings.HasSuffix(lower, unit) {
			numeric = token[:len(token)-len(unit)]
			break
		}
	}
	if numeric == "" {
		return 0, false
	}
	value, err := strconv.ParseFloat(numeric, 64)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, false
	}
	return value, true
}

type ConsumeKind int

const (
	ConsumeByID ConsumeKind = iota
	ConsumeByIDPartial
	ConsumeByName
)

type (
	// ConsumeCommand is the tagged result of parsing a delete-mode text:
	// exactly one of the three forms, never a guess.
	ConsumeCommand struct {
		Kind     ConsumeKind `json:"kind"`
		RecordID uint        `json:"record_id,omitempty"`
		FoodName string      `json:"food_name,omitempty"`
		Amount   float64     `json:"amount,omitempty"`
	}

	// ConsumedRecord reports what happened to one stock record during a
	// consumption command.
	ConsumedRecord struct {
		RecordID       uint     `json:"record_id"`
		FoodName       string   `json:"food_name"`
		AmountConsumed float64  `json:"amount_consumed"`
		NewQuantity    *float64 `json:"new_quantity,omitempty"`
		Deleted        bool     `json:"deleted"`
		Untracked      bool     `json:"untracked"`
	}

	ConsumeResult struct {
		Affected         []ConsumedRecord `json:"affected"`
		Shortfall        float64          `json:"shortfall"`
		SkippedUntracked int              `json:"skipped_untracked"`
	}
)
