package stock

import (
	"context"
	"fmt"
	"strings"
	"time"

	"pantryline/domain"
	"pantryline/entities"
)

type (
	StockService interface {
		// RecordItems persists one stock record per recognized item with
		// the given storage time. Items with a blank name are rejected.
		RecordItems(ctx context.Context, owner string, items []domain.RecognizedItem, storageTime time.Time) ([]domain.StockItemResponse, error)
		// ListInventory returns the owner's records oldest first, with the
		// whole-days-stored figure computed against now.
		ListInventory(ctx context.Context, owner string, now time.Time) ([]domain.StockItemResponse, error)
	}

	stockService struct {
		stockRepository StockRepository
	}
)

func NewStockService(stockRepository StockRepository) StockService {
	return &stockService{stockRepository: stockRepository}
}

func (s *stockService) RecordItems(ctx context.Context, owner string, items []domain.RecognizedItem, storageTime time.Time) ([]domain.StockItemResponse, error) {
	records := make([]*entities.StockRecord, 0, len(items))
	for _, item := range items {
		name := strings.TrimSpace(item.FoodName)
		if name == "" {
			return nil, domain.ErrEmptyFoodName
		}
		records = append(records, &entities.StockRecord{
			Owner:       owner,
			FoodName:    name,
			Quantity:    item.Quantity,
			StorageTime: storageTime,
		})
	}

	if err := s.stockRepository.CreateRecords(ctx, records); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailed, err)
	}

	stored := make([]domain.StockItemResponse, 0, len(records))
	for _, record := range records {
		stored = append(stored, toStockItemResponse(record, storageTime))
	}
	return stored, nil
}

func (s *stockService) ListInventory(ctx context.Context, owner string, now time.Time) ([]domain.StockItemResponse, error) {
	records, err := s.stockRepository.ListRecords(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreFailed, err)
	}

	items := make([]domain.StockItemResponse, 0, len(records))
	for _, record := range records {
		items = append(items, toStockItemResponse(record, now))
	}
	return items, nil
}

func toStockItemResponse(record *entities.StockRecord, now time.Time) domain.StockItemResponse {
	return domain.StockItemResponse{
		ID:          record.ID,
		FoodName:    record.FoodName,
		Quantity:    record.Quantity,
		StorageTime: record.StorageTime,
		DaysStored:  daysStored(record.StorageTime, now),
	}
}

// daysStored floors elapsed time to whole days; a storage time in the
// future (clock skew between intake and query) counts as zero.
func daysStored(storageTime, now time.Time) int {
	elapsed := now.Sub(storageTime)
	if elapsed < 0 {
		return 0
	}
	return int(elapsed.Hours() / 24)
}
