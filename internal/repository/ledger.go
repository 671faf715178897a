package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
)

type LedgerDAO interface {
	Insert(ctx context.Context, entries []dao.LedgerEntry) ([]dao.LedgerEntry, error)
	List(ctx context.Context, q dao.LedgerQuery) ([]dao.LedgerEntry, error)
}

type EventLogDAO interface {
	Insert(ctx context.Context, e dao.EventLog) error
	List(ctx context.Context, limit int) ([]dao.EventLog, error)
	DeleteBefore(ctx context.Context, t time.Time) (int64, error)
}

type LedgerRepository struct {
	dao    LedgerDAO
	logDao EventLogDAO
}

func NewLedgerRepository(dao LedgerDAO, logDao EventLogDAO) *LedgerRepository {
	return &LedgerRepository{
		dao:    dao,
		logDao: logDao,
	}
}

func (r *LedgerRepository) Append(ctx context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error) {
	rows := make([]dao.LedgerEntry, len(entries))
	for i, e := range entries {
		rows[i] = dao.LedgerEntry{
			OperatorID: e.OperatorID,
			UserID:     e.UserID,
			LoanID:     e.LoanID,
			ItemID:     e.ItemID,
			Cost:       e.Cost,
			Money:      e.Money,
			Day:        e.Day,
		}
	}

	created, err := r.dao.Insert(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.toDomain(created), nil
}

func (r *LedgerRepository) List(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	found, err := r.dao.List(ctx, dao.LedgerQuery{
		From:   filter.From,
		To:     filter.To,
		UserID: filter.UserID,
	})
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	return r.toDomain(found), nil
}

func (r *LedgerRepository) AppendLog(ctx context.Context, operatorID uint, message string) error {
	if err := r.logDao.Insert(ctx, dao.EventLog{OperatorID: operatorID, Message: message}); err != nil {
		return fmt.Errorf("r.logDao.Insert -> %w", err)
	}

	return nil
}

func (r *LedgerRepository) Logs(ctx context.Context, limit int) ([]domain.EventLog, error) {
	found, err := r.logDao.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("r.logDao.List -> %w", err)
	}

	logs := make([]domain.EventLog, len(found))
	for i, l := range found {
		logs[i] = domain.EventLog{
			ID:         l.ID,
			OperatorID: l.OperatorID,
			Message:    l.Message,
			CreatedAt:  l.CreatedAt,
		}
	}

	return logs, nil
}

func (r *LedgerRepository) PruneLogs(ctx context.Context, before time.Time) (int64, error) {
	n, err := r.logDao.DeleteBefore(ctx, before)
	if err != nil {
		return 0, fmt.Errorf("r.logDao.DeleteBefore -> %w", err)
	}

	return n, nil
}

func (r *LedgerRepository) toDomain(found []dao.LedgerEntry) []domain.LedgerEntry {
	entries := make([]domain.LedgerEntry, len(found))
	for i, e := range found {
		entries[i] = domain.LedgerEntry{
			ID:         e.ID,
			OperatorID: e.OperatorID,
			UserID:     e.UserID,
			LoanID:     e.LoanID,
			ItemID:     e.ItemID,
			Cost:       e.Cost,
			Money:      e.Money,
			Day:        domain.Day(e.Day),
			CreatedAt:  e.CreatedAt,
		}
	}

	return entries
}
