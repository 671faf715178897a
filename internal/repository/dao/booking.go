package dao

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrAlreadyBooked   = errors.New("already booked")
	ErrBookingNotFound = errors.New("booking not found")
)

type Booking struct {
	ID        uint      `gorm:"primaryKey"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookings_user_item"`
	ItemID    uint      `gorm:"not null;uniqueIndex:idx_bookings_user_item;index"`
	CreatedAt time.Time `gorm:"not null"`
}

type BookingDAO struct {
	db *gorm.DB
}

func NewBookingDAO(db *gorm.DB) *BookingDAO {
	return &BookingDAO{
		db: db,
	}
}

func (d *BookingDAO) Insert(ctx context.Context, booking Booking) (Booking, error) {
	if err := conn(ctx, d.db).Create(&booking).Error; err != nil {
		if uniqueViolation(err, "idx_bookings_user_item") {
			return Booking{}, ErrAlreadyBooked
		}

		return Booking{}, err
	}

	return booking, nil
}

func (d *BookingDAO) Exists(ctx context.Context, userID, itemID uint) (bool, error) {
	var n int64
	err := conn(ctx, d.db).Model(&Booking{}).
		Where("user_id = ? AND item_id = ?", userID, itemID).
		Count(&n).Error

	return n > 0, err
}

func (d *BookingDAO) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var n int64
	err := conn(ctx, d.db).Model(&Booking{}).Where("user_id = ?", userID).Count(&n).Error

	return n, err
}

// DeleteOwned removes the booking only when it belongs to userID.
func (d *BookingDAO) DeleteOwned(ctx context.Context, userID, bookingID uint) error {
	result := conn(ctx, d.db).Where("id = ? AND user_id = ?", bookingID, userID).Delete(&Booking{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrBookingNotFound
	}

	return nil
}

func (d *BookingDAO) List(ctx context.Context, userID *uint) ([]Booking, error) {
	db := conn(ctx, d.db).Order("created_at, id")
	if userID != nil {
		db = db.Where("user_id = ?", *userID)
	}

	var bookings []Booking
	if err := db.Find(&bookings).Error; err != nil {
		return nil, err
	}

	return bookings, nil
}
