package service

import (
	"context"
	"fmt"

	"github.com/ludotheque/ludo-api/internal/domain"
)

type LedgerRepository interface {
	List(ctx context.Context, filter domain.LedgerFilter) ([]domain.LedgerEntry, error)
}

type LedgerService struct {
	repo LedgerRepository
}

func NewLedgerService(repo LedgerRepository) *LedgerService {
	return &LedgerService{
		repo: repo,
	}
}

func (s *LedgerService) List(ctx context.Context, operator domain.Identity, filter domain.LedgerFilter) ([]domain.LedgerEntry, error) {
	if err := operator.Require(domain.CapLedgerView); err != nil {
		return nil, err
	}

	entries, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}

	return entries, nil
}

func (s *LedgerService) Summary(ctx context.Context, operator domain.Identity, filter domain.LedgerFilter) (domain.LedgerSummary, error) {
	entries, err := s.List(ctx, operator, filter)
	if err != nil {
		return domain.LedgerSummary{}, err
	}

	return domain.SummarizeLedger(entries), nil
}
