package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrLoanNotFound = errors.New("loan not found")

type Loan struct {
	ID         uint      `gorm:"primaryKey"`
	UserID     *uint     `gorm:"index"`
	ItemID     uint      `gorm:"not null;index"`
	Start      time.Time `gorm:"type:date;not null;index"`
	Stop       time.Time `gorm:"type:date;not null;index"`
	Status     string    `gorm:"not null;index"`
	Extensions int       `gorm:"not null;default:0"`
}

type LoanQuery struct {
	UserID *uint
	ItemID *uint
	Status *string
}

type LoanDAO struct {
	db *gorm.DB
}

func NewLoanDAO(db *gorm.DB) *LoanDAO {
	return &LoanDAO{
		db: db,
	}
}

func (d *LoanDAO) Insert(ctx context.Context, loan Loan) (Loan, error) {
	if err := conn(ctx, d.db).Create(&loan).Error; err != nil {
		return Loan{}, err
	}

	return loan, nil
}

func (d *LoanDAO) find(db *gorm.DB, id uint) (Loan, error) {
	var loan Loan

	result := db.First(&loan, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Loan{}, ErrLoanNotFound
		}

		return Loan{}, result.Error
	}

	return loan, nil
}

func (d *LoanDAO) FindByID(ctx context.Context, id uint) (Loan, error) {
	return d.find(conn(ctx, d.db), id)
}

func (d *LoanDAO) FindByIDForUpdate(ctx context.Context, id uint) (Loan, error) {
	return d.find(conn(ctx, d.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (d *LoanDAO) List(ctx context.Context, q LoanQuery) ([]Loan, error) {
	db := conn(ctx, d.db).Order("start DESC, id DESC")
	if q.UserID != nil {
		db = db.Where("user_id = ?", *q.UserID)
	}
	if q.ItemID != nil {
		db = db.Where("item_id = ?", *q.ItemID)
	}
	if q.Status != nil {
		db = db.Where("status = ?", *q.Status)
	}

	var loans []Loan
	if err := db.Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

// OutItemIDs returns which of itemIDs the user currently holds.
func (d *LoanDAO) OutItemIDs(ctx context.Context, userID uint, itemIDs []uint) ([]uint, error) {
	if len(itemIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	err := conn(ctx, d.db).Model(&Loan{}).
		Where("user_id = ? AND status = ? AND item_id IN ?", userID, "out", itemIDs).
		Order("item_id").
		Pluck("item_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return ids, nil
}

// CloseOutForItems returns every open loan on itemIDs, whoever holds them.
func (d *LoanDAO) CloseOutForItems(ctx context.Context, itemIDs []uint, day time.Time) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}

	result := conn(ctx, d.db).Model(&Loan{}).
		Where("item_id IN ? AND status = ?", itemIDs, "out").
		Updates(map[string]any{"status": "in", "stop": day})

	return result.RowsAffected, result.Error
}

func (d *LoanDAO) Update(ctx context.Context, loan Loan) error {
	result := conn(ctx, d.db).Model(&Loan{ID: loan.ID}).
		Select("UserID", "ItemID", "Start", "Stop", "Status", "Extensions").
		Updates(&loan)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLoanNotFound
	}

	return nil
}

func (d *LoanDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&Loan{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrLoanNotFound
	}

	return nil
}

// Late returns open loans due before day.
func (d *LoanDAO) Late(ctx context.Context, day time.Time, userID *uint) ([]Loan, error) {
	db := conn(ctx, d.db).Where("status = ? AND stop < ?", "out", day).Order("stop, id")
	if userID != nil {
		db = db.Where("user_id = ?", *userID)
	}

	var loans []Loan
	if err := db.Find(&loans).Error; err != nil {
		return nil, err
	}

	return loans, nil
}

// ActiveAround returns the loans relevant to the statistics of day: started
// on or before it and either still out or closed no earlier than since.
func (d *LoanDAO) ActiveAround(ctx context.Context, day, since time.Time) ([]Loan, error) {
	var loans []Loan
	err := conn(ctx, d.db).
		Where("start <= ? AND (stop >= ? OR status = ?)", day, since, "out").
		Find(&loans).Error
	if err != nil {
		return nil, err
	}

	return loans, nil
}
