package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ludotheque/ludo-api/internal/domain"
)

var (
	ErrInvalidPlayers = errors.New("invalid player range")
	ErrInvalidDays    = errors.New("number of days must not be negative")
)

type ItemRepository interface {
	Create(ctx context.Context, item domain.Item) (domain.Item, error)
	FindByID(ctx context.Context, id uint) (domain.Item, error)
	List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error)
	Update(ctx context.Context, item domain.Item) (domain.Item, error)
	Delete(ctx context.Context, id uint) error
	NotSeenBefore(ctx context.Context, day time.Time) ([]domain.Item, error)
	LeastLoaned(ctx context.Context, limit int) ([]domain.ItemLoans, error)
}

type ItemService struct {
	tx   Transactor
	repo ItemRepository
	loc  *time.Location
	now  Clock
}

func NewItemService(tx Transactor, repo ItemRepository, loc *time.Location) *ItemService {
	return &ItemService{
		tx:   tx,
		repo: repo,
		loc:  loc,
		now:  time.Now,
	}
}

func checkItem(it domain.Item) error {
	if strings.TrimSpace(it.Name) == "" {
		return ErrNameRequired
	}
	if it.PlayersMin < 1 || it.PlayersMax < it.PlayersMin || it.Age < 0 {
		return ErrInvalidPlayers
	}

	return nil
}

func (s *ItemService) Create(ctx context.Context, operator domain.Identity, patch domain.ItemPatch) (domain.Item, error) {
	if err := operator.Require(domain.CapItemManage); err != nil {
		return domain.Item{}, err
	}

	item := domain.Item{Enabled: true, PlayersMin: 1, PlayersMax: 99}
	item.Apply(patch)
	if err := checkItem(item); err != nil {
		return domain.Item{}, err
	}

	created, err := s.repo.Create(ctx, item)
	if err != nil {
		return domain.Item{}, fmt.Errorf("s.repo.Create -> %w", err)
	}

	return created, nil
}

func (s *ItemService) Update(ctx context.Context, operator domain.Identity, id uint, patch domain.ItemPatch) (domain.Item, error) {
	if err := operator.Require(domain.CapItemManage); err != nil {
		return domain.Item{}, err
	}

	var updated domain.Item
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.repo.FindByID(ctx, id)
		if err != nil {
			return fmt.Errorf("s.repo.FindByID -> %w", err)
		}

		item.Apply(patch)
		if err := checkItem(item); err != nil {
			return err
		}

		updated, err = s.repo.Update(ctx, item)
		if err != nil {
			return fmt.Errorf("s.repo.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Item{}, err
	}

	return updated, nil
}

// Delete also removes the loans and bookings of the item.
func (s *ItemService) Delete(ctx context.Context, operator domain.Identity, id uint) error {
	if err := operator.Require(domain.CapItemManage); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	return nil
}

func (s *ItemService) Get(ctx context.Context, id uint) (domain.Item, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return item, nil
}

func (s *ItemService) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	m, err := newMatcher(filter.Search)
	if err != nil {
		return nil, fmt.Errorf("newMatcher -> %w", err)
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}

	found := make([]domain.Item, 0, len(items))
	for _, it := range items {
		if m.Match(it.Name, it.Description) {
			found = append(found, it)
		}
	}

	return found, nil
}

// NotSeenSince lists the shelf items nobody brought back to the desk for more
// than days, for the inventory round.
func (s *ItemService) NotSeenSince(ctx context.Context, operator domain.Identity, days int) ([]domain.Item, error) {
	if err := operator.Require(domain.CapItemManage); err != nil {
		return nil, err
	}
	if days < 0 {
		return nil, ErrInvalidDays
	}

	since := domain.AddDays(domain.Today(s.now(), s.loc), -days)

	items, err := s.repo.NotSeenBefore(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("s.repo.NotSeenBefore -> %w", err)
	}

	return items, nil
}

func (s *ItemService) LeastLoaned(ctx context.Context, operator domain.Identity) ([]domain.ItemLoans, error) {
	if err := operator.Require(domain.CapStatsView); err != nil {
		return nil, err
	}

	items, err := s.repo.LeastLoaned(ctx, domain.LeastLoanedLimit)
	if err != nil {
		return nil, fmt.Errorf("s.repo.LeastLoaned -> %w", err)
	}

	return items, nil
}
