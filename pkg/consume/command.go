package consume

import (
	"fmt"
	"strconv"
	"strings"

	"pantryline/domain"
)

// ParseCommand resolves a delete-mode text into exactly one of the three
// consumption forms, tried in priority order: bare record id, record id
// with an amount, food name with a trailing amount. Input that fits none
// of the forms is rejected, never guessed at.
func ParseCommand(input string) (domain.ConsumeCommand, error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return domain.ConsumeCommand{}, fmt.Errorf("%w: empty command", domain.ErrInvalidCommand)
	}

	if len(fields) == 1 {
		id, ok := parseRecordID(fields[0])
		if !ok {
			return domain.ConsumeCommand{}, fmt.Errorf("%w: %q is not a record id, and a name needs a trailing amount", domain.ErrInvalidCommand, fields[0])
		}
		return domain.ConsumeCommand{Kind: domain.ConsumeByID, RecordID: id}, nil
	}

	amount, amountOK := domain.ParseAmount(fields[len(fields)-1])

	if len(fields) == 2 {
		if id, ok := parseRecordID(fields[0]); ok {
			if !amountOK {
				return domain.ConsumeCommand{}, fmt.Errorf("%w: %q is not an amount", domain.ErrInvalidCommand, fields[1])
			}
			if amount <= 0 {
				return domain.ConsumeCommand{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidCommand)
			}
			return domain.ConsumeCommand{Kind: domain.ConsumeByIDPartial, RecordID: id, Amount: amount}, nil
		}
	}

	if !amountOK {
		return domain.ConsumeCommand{}, fmt.Errorf("%w: %q is not an amount", domain.ErrInvalidCommand, fields[len(fields)-1])
	}
	if amount <= 0 {
		return domain.ConsumeCommand{}, fmt.Errorf("%w: amount must be positive", domain.ErrInvalidCommand)
	}
	return domain.ConsumeCommand{
		Kind:     domain.ConsumeByName,
		FoodName: strings.Join(fields[:len(fields)-1], " "),
		Amount:   amount,
	}, nil
}

func parseRecordID(token string) (uint, bool) {
	id, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}
