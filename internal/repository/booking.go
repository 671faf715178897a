package repository

import (
	"context"
	"fmt"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
)

var (
	ErrAlreadyBooked   = dao.ErrAlreadyBooked
	ErrBookingNotFound = dao.ErrBookingNotFound
)

type BookingDAO interface {
	Insert(ctx context.Context, booking dao.Booking) (dao.Booking, error)
	Exists(ctx context.Context, userID, itemID uint) (bool, error)
	CountForUser(ctx context.Context, userID uint) (int64, error)
	DeleteOwned(ctx context.Context, userID, bookingID uint) error
	List(ctx context.Context, userID *uint) ([]dao.Booking, error)
}

type BookingRepository struct {
	dao BookingDAO
}

func NewBookingRepository(dao BookingDAO) *BookingRepository {
	return &BookingRepository{
		dao: dao,
	}
}

func (r *BookingRepository) Create(ctx context.Context, booking domain.Booking) (domain.Booking, error) {
	created, err := r.dao.Insert(ctx, dao.Booking{
		UserID: booking.UserID,
		ItemID: booking.ItemID,
	})
	if err != nil {
		return domain.Booking{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *BookingRepository) Exists(ctx context.Context, userID, itemID uint) (bool, error) {
	ok, err := r.dao.Exists(ctx, userID, itemID)
	if err != nil {
		return false, fmt.Errorf("r.dao.Exists -> %w", err)
	}

	return ok, nil
}

func (r *BookingRepository) CountForUser(ctx context.Context, userID uint) (int, error) {
	n, err := r.dao.CountForUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CountForUser -> %w", err)
	}

	return int(n), nil
}

func (r *BookingRepository) DeleteOwned(ctx context.Context, userID, bookingID uint) error {
	if err := r.dao.DeleteOwned(ctx, userID, bookingID); err != nil {
		return fmt.Errorf("r.dao.DeleteOwned -> %w", err)
	}

	return nil
}

// List returns every booking when userID is nil.
func (r *BookingRepository) List(ctx context.Context, userID *uint) ([]domain.Booking, error) {
	found, err := r.dao.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	bookings := make([]domain.Booking, len(found))
	for i, b := range found {
		bookings[i] = r.daoToDomain(b)
	}

	return bookings, nil
}

func (r *BookingRepository) daoToDomain(b dao.Booking) domain.Booking {
	return domain.Booking{
		ID:        b.ID,
		UserID:    b.UserID,
		ItemID:    b.ItemID,
		CreatedAt: b.CreatedAt,
	}
}
