package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrItemNotFound = errors.New("item does not exist")

type Item struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"not null;index"`
	Description string
	Enabled     bool       `gorm:"not null;default:true"`
	PlayersMin  int        `gorm:"not null;default:1"`
	PlayersMax  int        `gorm:"not null;default:99"`
	Age         int        `gorm:"not null;default:0"`
	Big         bool       `gorm:"not null;default:false"`
	Outside     bool       `gorm:"not null;default:false"`
	LastSeen    *time.Time `gorm:"type:date"`

	Loans    []Loan    `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`
	Bookings []Booking `gorm:"foreignKey:ItemID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type ItemQuery struct {
	Enabled *bool
	Big     *bool
	Outside *bool
	Players int
}

type ItemDAO struct {
	db *gorm.DB
}

func NewItemDAO(db *gorm.DB) *ItemDAO {
	return &ItemDAO{
		db: db,
	}
}

func (d *ItemDAO) Insert(ctx context.Context, item Item) (Item, error) {
	if err := conn(ctx, d.db).Omit(clause.Associations).Create(&item).Error; err != nil {
		return Item{}, err
	}

	return item, nil
}

func (d *ItemDAO) FindByID(ctx context.Context, id uint) (Item, error) {
	var item Item

	result := conn(ctx, d.db).First(&item, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return Item{}, ErrItemNotFound
		}

		return Item{}, result.Error
	}

	return item, nil
}

// FindByIDsForUpdate locks the rows in id order. A missing id is an error.
func (d *ItemDAO) FindByIDsForUpdate(ctx context.Context, ids []uint) ([]Item, error) {
	return d.findByIDs(conn(ctx, d.db).Clauses(clause.Locking{Strength: "UPDATE"}), ids)
}

func (d *ItemDAO) FindByIDs(ctx context.Context, ids []uint) ([]Item, error) {
	return d.findByIDs(conn(ctx, d.db), ids)
}

func (d *ItemDAO) findByIDs(db *gorm.DB, ids []uint) ([]Item, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var items []Item
	if err := db.Where("id IN ?", ids).Order("id").Find(&items).Error; err != nil {
		return nil, err
	}

	unique := map[uint]struct{}{}
	for _, id := range ids {
		unique[id] = struct{}{}
	}
	if len(items) != len(unique) {
		return nil, ErrItemNotFound
	}

	return items, nil
}

func (d *ItemDAO) List(ctx context.Context, q ItemQuery) ([]Item, error) {
	db := conn(ctx, d.db).Order("name")
	if q.Enabled != nil {
		db = db.Where("enabled = ?", *q.Enabled)
	}
	if q.Big != nil {
		db = db.Where("big = ?", *q.Big)
	}
	if q.Outside != nil {
		db = db.Where("outside = ?", *q.Outside)
	}
	if q.Players > 0 {
		db = db.Where("players_min <= ? AND players_max >= ?", q.Players, q.Players)
	}

	var items []Item
	if err := db.Find(&items).Error; err != nil {
		return nil, err
	}

	return items, nil
}

func (d *ItemDAO) Update(ctx context.Context, item Item) (Item, error) {
	result := conn(ctx, d.db).Model(&Item{ID: item.ID}).Select(
		"Name", "Description", "Enabled", "PlayersMin", "PlayersMax", "Age", "Big", "Outside", "LastSeen",
	).Updates(&item)
	if result.Error != nil {
		return Item{}, result.Error
	}
	if result.RowsAffected == 0 {
		return Item{}, ErrItemNotFound
	}

	return d.FindByID(ctx, item.ID)
}

func (d *ItemDAO) TouchLastSeen(ctx context.Context, ids []uint, day time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	return conn(ctx, d.db).Model(&Item{}).Where("id IN ?", ids).Update("last_seen", day).Error
}

// NotSeenBefore lists the enabled, regular sized, indoor items last seen
// before day, oldest first. Items never seen are left out.
func (d *ItemDAO) NotSeenBefore(ctx context.Context, day time.Time) ([]Item, error) {
	var items []Item
	err := conn(ctx, d.db).
		Where("enabled AND NOT big AND NOT outside AND last_seen < ?", day).
		Order("last_seen ASC, id").
		Find(&items).Error
	if err != nil {
		return nil, err
	}

	return items, nil
}

type ItemLoanCount struct {
	ID    uint
	Loans int64
}

// LeastLoaned counts the loans of every enabled item and returns the limit
// lowest counts, newest items first on ties.
func (d *ItemDAO) LeastLoaned(ctx context.Context, limit int) ([]ItemLoanCount, error) {
	var counts []ItemLoanCount
	err := conn(ctx, d.db).Model(&Item{}).
		Select("items.id AS id, COUNT(loans.id) AS loans").
		Joins("LEFT JOIN loans ON loans.item_id = items.id").
		Where("items.enabled").
		Group("items.id").
		Order("loans ASC, items.id DESC").
		Limit(limit).
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}

	return counts, nil
}

// Delete cascades to the loans and bookings of the item.
func (d *ItemDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&Item{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrItemNotFound
	}

	return nil
}
