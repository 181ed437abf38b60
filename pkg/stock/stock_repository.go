package stock

import (
	"context"

	"gorm.io/gorm"

	"pantryline/entities"
)

type (
	// StockRepository is the inventory store adapter. Every operation is
	// owner-scoped: a record belonging to another owner behaves exactly
	// like a missing record.
	StockRepository interface {
		CreateRecord(ctx context.Context, record *entities.StockRecord) error
		CreateRecords(ctx context.Context, records []*entities.StockRecord) error
		GetRecordByID(ctx context.Context, owner string, id uint) (*entities.StockRecord, error)
		ListRecords(ctx context.Context, owner string) ([]*entities.StockRecord, error)
		ListRecordsByName(ctx context.Context, owner, foodName string) ([]*entities.StockRecord, error)
		UpdateQuantity(ctx context.Context, owner string, id uint, quantity float64) error
		DeleteRecord(ctx context.Context, owner string, id uint) error
		// Transaction runs fn against a transactional view of the same
		// repository; every mutation inside commits or rolls back as one.
		Transaction(ctx context.Context, fn func(StockRepository) error) error
	}

	stockRepository struct {
		db *gorm.DB
	}
)

func NewStockRepository(db *gorm.DB) StockRepository {
	return &stockRepository{db: db}
}

func (r *stockRepository) CreateRecord(ctx context.Context, record *entities.StockRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *stockRepository) CreateRecords(ctx context.Context, records []*entities.StockRecord) error {
	if len(records) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(records).Error
}

func (r *stockRepository) GetRecordByID(ctx context.Context, owner string, id uint) (*entities.StockRecord, error) {
	var record entities.StockRecord
	if err := r.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *stockRepository) ListRecords(ctx context.Context, owner string) ([]*entities.StockRecord, error) {
	var records []*entities.StockRecord
	if err := r.db.WithContext(ctx).
		Where("owner = ?", owner).
		Order("storage_time asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *stockRepository) ListRecordsByName(ctx context.Context, owner, foodName string) ([]*entities.StockRecord, error) {
	var records []*entities.StockRecord
	if err := r.db.WithContext(ctx).
		Where("owner = ? AND food_name = ?", owner, foodName).
		Order("storage_time asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

func (r *stockRepository) UpdateQuantity(ctx context.Context, owner string, id uint, quantity float64) error {
	result := r.db.WithContext(ctx).Model(&entities.StockRecord{}).
		Where("id = ? AND owner = ?", id, owner).
		Update("quantity", quantity)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stockRepository) DeleteRecord(ctx context.Context, owner string, id uint) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND owner = ?", id, owner).
		Delete(&entities.StockRecord{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *stockRepository) Transaction(ctx context.Context, fn func(StockRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&stockRepository{db: tx})
	})
}
