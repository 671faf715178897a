package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository"
)

var (
	ErrAlreadyBooked   = repository.ErrAlreadyBooked
	ErrBookingNotFound = repository.ErrBookingNotFound

	ErrTooManyBookings = errors.New("too many bookings")
)

type BookingRepository interface {
	Create(ctx context.Context, booking domain.Booking) (domain.Booking, error)
	Exists(ctx context.Context, userID, itemID uint) (bool, error)
	CountForUser(ctx context.Context, userID uint) (int, error)
	DeleteOwned(ctx context.Context, userID, bookingID uint) error
	List(ctx context.Context, userID *uint) ([]domain.Booking, error)
}

type BookingItemRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Item, error)
}

type BookingService struct {
	tx       Transactor
	bookings BookingRepository
	items    BookingItemRepository
	quota    int
}

func NewBookingService(tx Transactor, bookings BookingRepository, items BookingItemRepository, quota int) *BookingService {
	return &BookingService{
		tx:       tx,
		bookings: bookings,
		items:    items,
		quota:    quota,
	}
}

// Book reserves itemID for the caller, within the booking quota.
func (s *BookingService) Book(ctx context.Context, id domain.Identity, itemID uint) (domain.Booking, error) {
	if err := id.Require(domain.CapBookingCreate); err != nil {
		return domain.Booking{}, err
	}

	var booking domain.Booking
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		exists, err := s.bookings.Exists(ctx, id.UserID, itemID)
		if err != nil {
			return fmt.Errorf("s.bookings.Exists -> %w", err)
		}
		if exists {
			return ErrAlreadyBooked
		}

		n, err := s.bookings.CountForUser(ctx, id.UserID)
		if err != nil {
			return fmt.Errorf("s.bookings.CountForUser -> %w", err)
		}
		if n >= s.quota {
			return ErrTooManyBookings
		}

		if _, err := s.items.FindByID(ctx, itemID); err != nil {
			return fmt.Errorf("s.items.FindByID -> %w", err)
		}

		booking, err = s.bookings.Create(ctx, domain.Booking{UserID: id.UserID, ItemID: itemID})
		if err != nil {
			return fmt.Errorf("s.bookings.Create -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Booking{}, err
	}

	return booking, nil
}

// Unbook deletes the caller's booking. Someone else's booking is reported as
// not found.
func (s *BookingService) Unbook(ctx context.Context, id domain.Identity, bookingID uint) error {
	if err := id.Require(domain.CapBookingDelete); err != nil {
		return err
	}

	if err := s.bookings.DeleteOwned(ctx, id.UserID, bookingID); err != nil {
		return fmt.Errorf("s.bookings.DeleteOwned -> %w", err)
	}

	return nil
}

func (s *BookingService) ListMine(ctx context.Context, id domain.Identity) ([]domain.Booking, error) {
	bookings, err := s.bookings.List(ctx, &id.UserID)
	if err != nil {
		return nil, fmt.Errorf("s.bookings.List -> %w", err)
	}

	return bookings, nil
}

func (s *BookingService) ListAll(ctx context.Context, id domain.Identity) ([]domain.Booking, error) {
	if err := id.Require(domain.CapBookingManage); err != nil {
		return nil, err
	}

	bookings, err := s.bookings.List(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("s.bookings.List -> %w", err)
	}

	return bookings, nil
}
