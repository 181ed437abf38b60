package consume

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"pantryline/domain"
	"pantryline/pkg/stock"
)

type (
	// ConsumeService executes one consumption command against the owner's
	// inventory. Every command runs inside a single store transaction, so
	// a failure mid-walk leaves no partial consumption behind.
	ConsumeService interface {
		Execute(ctx context.Context, owner, command string) (domain.ConsumeResult, error)
	}

	consumeService struct {
		stockRepository stock.StockRepository
	}
)

func NewConsumeService(stockRepository stock.StockRepository) ConsumeService {
	return &consumeService{stockRepository: stockRepository}
}

func (s *consumeService) Execute(ctx context.Context, owner, command string) (domain.ConsumeResult, error) {
	cmd, err := ParseCommand(command)
	if err != nil {
		return domain.ConsumeResult{}, err
	}

	var result domain.ConsumeResult
	err = s.stockRepository.Transaction(ctx, func(tx stock.StockRepository) error {
		var txErr error
		switch cmd.Kind {
		case domain.ConsumeByID:
			result, txErr = deleteByID(ctx, tx, owner, cmd.RecordID)
		case domain.ConsumeByIDPartial:
			result, txErr = consumeByID(ctx, tx, owner, cmd.RecordID, cmd.Amount)
		default:
			result, txErr = consumeByName(ctx, tx, owner, cmd.FoodName, cmd.Amount)
		}
		return txErr
	})
	if err != nil {
		return domain.ConsumeResult{}, classify(err)
	}
	return result, nil
}

func deleteByID(ctx context.Context, tx stock.StockRepository, owner string, id uint) (domain.ConsumeResult, error) {
	record, err := tx.GetRecordByID(ctx, owner, id)
	if err != nil {
		return domain.ConsumeResult{}, err
	}
	if err := tx.DeleteRecord(ctx, owner, id); err != nil {
		return domain.ConsumeResult{}, err
	}

	affected := domain.ConsumedRecord{
		RecordID: record.ID,
		FoodName: record.FoodName,
		Deleted:  true,
	}
	if record.Quantity != nil {
		affected.AmountConsumed = *record.Quantity
	} else {
		affected.Untracked = true
	}
	return domain.ConsumeResult{Affected: []domain.ConsumedRecord{affected}}, nil
}

func consumeByID(ctx context.Context, tx stock.StockRepository, owner string, id uint, amount float64) (domain.ConsumeResult, error) {
	record, err := tx.GetRecordByID(ctx, owner, id)
	if err != nil {
		return domain.ConsumeResult{}, err
	}
	if record.Quantity == nil {
		return domain.ConsumeResult{}, fmt.Errorf("%w: record %d has no tracked quantity, remove it by id alone", domain.ErrInvalidCommand, id)
	}

	quantity := *record.Quantity
	if amount >= quantity {
		if err := tx.DeleteRecord(ctx, owner, id); err != nil {
			return domain.ConsumeResult{}, err
		}
		return domain.ConsumeResult{Affected: []domain.ConsumedRecord{{
			RecordID:       record.ID,
			FoodName:       record.FoodName,
			AmountConsumed: quantity,
			Deleted:        true,
		}}}, nil
	}

	newQuantity := quantity - amount
	if err := tx.UpdateQuantity(ctx, owner, id, newQuantity); err != nil {
		return domain.ConsumeResult{}, err
	}
	return domain.ConsumeResult{Affected: []domain.ConsumedRecord{{
		RecordID:       record.ID,
		FoodName:       record.FoodName,
		AmountConsumed: amount,
		NewQuantity:    &newQuantity,
	}}}, nil
}

// consumeByName walks the owner's matching records oldest first, draining
// each tracked record until the requested amount is satisfied. Untracked
// records are skipped, never auto-deducted. Exhausting the set commits the
// partial fulfillment and reports the shortfall.
func consumeByName(ctx context.Context, tx stock.StockRepository, owner, foodName string, amount float64) (domain.ConsumeResult, error) {
	records, err := tx.ListRecordsByName(ctx, owner, foodName)
	if err != nil {
		return domain.ConsumeResult{}, err
	}
	if len(records) == 0 {
		return domain.ConsumeResult{}, domain.ErrRecordNotFound
	}

	var result domain.ConsumeResult
	remaining := amount
	for _, record := range records {
		if remaining <= 0 {
			break
		}
		if record.Quantity == nil {
			result.SkippedUntracked++
			continue
		}

		quantity := *record.Quantity
		if remaining >= quantity {
			if err := tx.DeleteRecord(ctx, owner, record.ID); err != nil {
				return domain.ConsumeResult{}, err
			}
			result.Affected = append(result.Affected, domain.ConsumedRecord{
				RecordID:       record.ID,
				FoodName:       record.FoodName,
				AmountConsumed: quantity,
				Deleted:        true,
			})
			remaining -= quantity
			continue
		}

		newQuantity := quantity - remaining
		if err := tx.UpdateQuantity(ctx, owner, record.ID, newQuantity); err != nil {
			return domain.ConsumeResult{}, err
		}
		result.Affected = append(result.Affected, domain.ConsumedRecord{
			RecordID:       record.ID,
			FoodName:       record.FoodName,
			AmountConsumed: remaining,
			NewQuantity:    &newQuantity,
		})
		remaining = 0
	}

	result.Shortfall = remaining
	return result, nil
}

func classify(err error) error {
	switch {
	case errors.Is(err, domain.ErrInvalidCommand), errors.Is(err, domain.ErrRecordNotFound):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domain.ErrRecordNotFound
	default:
		return fmt.Errorf("%w: %v", domain.ErrStoreFailed, err)
	}
}
