package migration

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"pantryline/entities"
)

func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&entities.StockRecord{}); err != nil {
		log.Fatalf("Error migrating stock record database: %v", err)
		return err
	}

	fmt.Println("Database migration complete")
	return nil
}
