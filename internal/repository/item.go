package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
)

var ErrItemNotFound = dao.ErrItemNotFound

type ItemDAO interface {
	Insert(ctx context.Context, item dao.Item) (dao.Item, error)
	FindByID(ctx context.Context, id uint) (dao.Item, error)
	FindByIDs(ctx context.Context, ids []uint) ([]dao.Item, error)
	FindByIDsForUpdate(ctx context.Context, ids []uint) ([]dao.Item, error)
	List(ctx context.Context, q dao.ItemQuery) ([]dao.Item, error)
	Update(ctx context.Context, item dao.Item) (dao.Item, error)
	TouchLastSeen(ctx context.Context, ids []uint, day time.Time) error
	Delete(ctx context.Context, id uint) error
	NotSeenBefore(ctx context.Context, day time.Time) ([]dao.Item, error)
	LeastLoaned(ctx context.Context, limit int) ([]dao.ItemLoanCount, error)
}

type ItemRepository struct {
	dao ItemDAO
}

func NewItemRepository(dao ItemDAO) *ItemRepository {
	return &ItemRepository{
		dao: dao,
	}
}

func (r *ItemRepository) Create(ctx context.Context, item domain.Item) (domain.Item, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(item))
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *ItemRepository) FindByID(ctx context.Context, id uint) (domain.Item, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *ItemRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Item, error) {
	found, err := r.dao.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByIDs -> %w", err)
	}

	return r.toMap(found), nil
}

// FindByIDsForUpdate locks the items until the transaction ends.
func (r *ItemRepository) FindByIDsForUpdate(ctx context.Context, ids []uint) (map[uint]domain.Item, error) {
	found, err := r.dao.FindByIDsForUpdate(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByIDsForUpdate -> %w", err)
	}

	return r.toMap(found), nil
}

func (r *ItemRepository) List(ctx context.Context, filter domain.ItemFilter) ([]domain.Item, error) {
	found, err := r.dao.List(ctx, dao.ItemQuery{
		Enabled: filter.Enabled,
		Big:     filter.Big,
		Outside: filter.Outside,
		Players: filter.Players,
	})
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	items := make([]domain.Item, len(found))
	for i, it := range found {
		items[i] = r.daoToDomain(it)
	}

	return items, nil
}

func (r *ItemRepository) Update(ctx context.Context, item domain.Item) (domain.Item, error) {
	updated, err := r.dao.Update(ctx, r.domainToDao(item))
	if err != nil {
		return domain.Item{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *ItemRepository) TouchLastSeen(ctx context.Context, ids []uint, day time.Time) error {
	if err := r.dao.TouchLastSeen(ctx, ids, day); err != nil {
		return fmt.Errorf("r.dao.TouchLastSeen -> %w", err)
	}

	return nil
}

func (r *ItemRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *ItemRepository) NotSeenBefore(ctx context.Context, day time.Time) ([]domain.Item, error) {
	found, err := r.dao.NotSeenBefore(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("r.dao.NotSeenBefore -> %w", err)
	}

	items := make([]domain.Item, len(found))
	for i, it := range found {
		items[i] = r.daoToDomain(it)
	}

	return items, nil
}

// LeastLoaned keeps the order of the counts.
func (r *ItemRepository) LeastLoaned(ctx context.Context, limit int) ([]domain.ItemLoans, error) {
	counts, err := r.dao.LeastLoaned(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("r.dao.LeastLoaned -> %w", err)
	}

	ids := make([]uint, len(counts))
	for i, c := range counts {
		ids[i] = c.ID
	}

	found, err := r.dao.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("r.dao.FindByIDs -> %w", err)
	}
	items := r.toMap(found)

	report := make([]domain.ItemLoans, 0, len(counts))
	for _, c := range counts {
		if it, ok := items[c.ID]; ok {
			report = append(report, domain.ItemLoans{Item: it, Loans: c.Loans})
		}
	}

	return report, nil
}

func (r *ItemRepository) toMap(found []dao.Item) map[uint]domain.Item {
	items := make(map[uint]domain.Item, len(found))
	for _, it := range found {
		items[it.ID] = r.daoToDomain(it)
	}

	return items
}

func (r *ItemRepository) domainToDao(it domain.Item) dao.Item {
	return dao.Item{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Enabled:     it.Enabled,
		PlayersMin:  it.PlayersMin,
		PlayersMax:  it.PlayersMax,
		Age:         it.Age,
		Big:         it.Big,
		Outside:     it.Outside,
		LastSeen:    it.LastSeen,
	}
}

func (r *ItemRepository) daoToDomain(it dao.Item) domain.Item {
	return domain.Item{
		ID:          it.ID,
		Name:        it.Name,
		Description: it.Description,
		Enabled:     it.Enabled,
		PlayersMin:  it.PlayersMin,
		PlayersMax:  it.PlayersMax,
		Age:         it.Age,
		Big:         it.Big,
		Outside:     it.Outside,
		LastSeen:    dayPtr(it.LastSeen),
		CreatedAt:   it.CreatedAt,
	}
}
