package dao

import (
	"strings"

	"gorm.io/gorm"
)

func InitTables(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Email{},
		&Item{},
		&Loan{},
		&Booking{},
		&LedgerEntry{},
		&EventLog{},
	)
}

// truncateAllTables empties every table of the public schema. Used between
// integration tests.
func truncateAllTables(db *gorm.DB) error {
	var tableNames []string
	if err := db.Table("information_schema.tables").
		Where("table_schema = ?", "public").
		Pluck("table_name", &tableNames).Error; err != nil {
		return err
	}
	if len(tableNames) == 0 {
		return nil
	}

	return db.Exec("TRUNCATE TABLE " + strings.Join(tableNames, ", ") + " RESTART IDENTITY CASCADE").Error
}
