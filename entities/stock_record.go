package entities

import "time"

// StockRecord is one inventory entry owned by a messaging-platform user.
// Quantity is nullable: a nil quantity means the amount was never specified
// and the record can only be removed by id, never auto-deducted by name.
type StockRecord struct {
	ID          uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	Owner       string    `gorm:"type:varchar(64);not null;index:idx_stock_owner_time,priority:1" json:"owner"`
	FoodName    string    `gorm:"type:varchar(255);not null" json:"food_name"`
	Quantity    *float64  `json:"quantity,omitempty"`
	StorageTime time.Time `gorm:"not null;index:idx_stock_owner_time,priority:2" json:"storage_time"`

	Timestamp
}
