package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
)

var ErrLoanNotFound = dao.ErrLoanNotFound

type LoanDAO interface {
	Insert(ctx context.Context, loan dao.Loan) (dao.Loan, error)
	FindByID(ctx context.Context, id uint) (dao.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uint) (dao.Loan, error)
	List(ctx context.Context, q dao.LoanQuery) ([]dao.Loan, error)
	OutItemIDs(ctx context.Context, userID uint, itemIDs []uint) ([]uint, error)
	CloseOutForItems(ctx context.Context, itemIDs []uint, day time.Time) (int64, error)
	Update(ctx context.Context, loan dao.Loan) error
	Delete(ctx context.Context, id uint) error
	Late(ctx context.Context, day time.Time, userID *uint) ([]dao.Loan, error)
	ActiveAround(ctx context.Context, day, since time.Time) ([]dao.Loan, error)
}

type LoanRepository struct {
	dao LoanDAO
}

func NewLoanRepository(dao LoanDAO) *LoanRepository {
	return &LoanRepository{
		dao: dao,
	}
}

func (r *LoanRepository) Create(ctx context.Context, loan domain.Loan) (domain.Loan, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(loan))
	if err != nil {
		return domain.Loan{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *LoanRepository) FindByID(ctx context.Context, id uint) (domain.Loan, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *LoanRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.Loan, error) {
	found, err := r.dao.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("r.dao.FindByIDForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *LoanRepository) List(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error) {
	q := dao.LoanQuery{
		UserID: filter.UserID,
		ItemID: filter.ItemID,
	}
	if filter.Status != nil {
		s := string(*filter.Status)
		q.Status = &s
	}

	found, err := r.dao.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	return r.toDomain(found), nil
}

func (r *LoanRepository) OutItemIDs(ctx context.Context, userID uint, itemIDs []uint) ([]uint, error) {
	ids, err := r.dao.OutItemIDs(ctx, userID, itemIDs)
	if err != nil {
		return nil, fmt.Errorf("r.dao.OutItemIDs -> %w", err)
	}

	return ids, nil
}

func (r *LoanRepository) CloseOutForItems(ctx context.Context, itemIDs []uint, day time.Time) (int64, error) {
	n, err := r.dao.CloseOutForItems(ctx, itemIDs, day)
	if err != nil {
		return 0, fmt.Errorf("r.dao.CloseOutForItems -> %w", err)
	}

	return n, nil
}

func (r *LoanRepository) Update(ctx context.Context, loan domain.Loan) error {
	if err := r.dao.Update(ctx, r.domainToDao(loan)); err != nil {
		return fmt.Errorf("r.dao.Update -> %w", err)
	}

	return nil
}

func (r *LoanRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *LoanRepository) Late(ctx context.Context, day time.Time, userID *uint) ([]domain.Loan, error) {
	found, err := r.dao.Late(ctx, day, userID)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Late -> %w", err)
	}

	return r.toDomain(found), nil
}

func (r *LoanRepository) ActiveAround(ctx context.Context, day, since time.Time) ([]domain.Loan, error) {
	found, err := r.dao.ActiveAround(ctx, day, since)
	if err != nil {
		return nil, fmt.Errorf("r.dao.ActiveAround -> %w", err)
	}

	return r.toDomain(found), nil
}

func (r *LoanRepository) toDomain(found []dao.Loan) []domain.Loan {
	loans := make([]domain.Loan, len(found))
	for i, l := range found {
		loans[i] = r.daoToDomain(l)
	}

	return loans
}

func (r *LoanRepository) domainToDao(l domain.Loan) dao.Loan {
	return dao.Loan{
		ID:         l.ID,
		UserID:     l.UserID,
		ItemID:     l.ItemID,
		Start:      l.Start,
		Stop:       l.Stop,
		Status:     string(l.Status),
		Extensions: l.Extensions,
	}
}

func (r *LoanRepository) daoToDomain(l dao.Loan) domain.Loan {
	return domain.Loan{
		ID:         l.ID,
		UserID:     l.UserID,
		ItemID:     l.ItemID,
		Start:      domain.Day(l.Start),
		Stop:       domain.Day(l.Stop),
		Status:     domain.LoanStatus(l.Status),
		Extensions: l.Extensions,
	}
}
