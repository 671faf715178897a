package dao

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type LedgerEntry struct {
	ID         uint            `gorm:"primaryKey"`
	OperatorID uint            `gorm:"not null"`
	UserID     uint            `gorm:"not null;index"`
	LoanID     *uint           `gorm:"index"`
	ItemID     int64           `gorm:"not null"`
	Cost       decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Money      decimal.Decimal `gorm:"type:numeric(10,2);not null"`
	Day        time.Time       `gorm:"type:date;not null;index"`
	CreatedAt  time.Time       `gorm:"not null"`
}

func (LedgerEntry) TableName() string {
	return "ledger"
}

type LedgerQuery struct {
	From   *time.Time
	To     *time.Time
	UserID *uint
}

type LedgerDAO struct {
	db *gorm.DB
}

func NewLedgerDAO(db *gorm.DB) *LedgerDAO {
	return &LedgerDAO{
		db: db,
	}
}

func (d *LedgerDAO) Insert(ctx context.Context, entries []LedgerEntry) ([]LedgerEntry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	if err := conn(ctx, d.db).Create(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}

func (d *LedgerDAO) List(ctx context.Context, q LedgerQuery) ([]LedgerEntry, error) {
	db := conn(ctx, d.db).Order("day, id")
	if q.From != nil {
		db = db.Where("day >= ?", *q.From)
	}
	if q.To != nil {
		db = db.Where("day <= ?", *q.To)
	}
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}

	var entries []LedgerEntry
	if err := db.Find(&entries).Error; err != nil {
		return nil, err
	}

	return entries, nil
}
