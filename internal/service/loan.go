package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/config"
	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/notify"
	"github.com/ludotheque/ludo-api/internal/repository"
)

const subscriptionDays = 366

var (
	ErrItemNotFound = repository.ErrItemNotFound
	ErrLoanNotFound = repository.ErrLoanNotFound

	ErrDuplicateLoan = errors.New("item already loaned to this user")
	ErrAlreadyClosed = errors.New("already closed")
	ErrMaxExtensions = errors.New("maximum extensions reached")
)

type LoanUserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.User, error)
	Update(ctx context.Context, user domain.User, replaceEmails bool) (domain.User, error)
	TouchLastSeen(ctx context.Context, id uint, day time.Time) error
}

type LoanItemRepository interface {
	FindByIDs(ctx context.Context, ids []uint) (map[uint]domain.Item, error)
	FindByIDsForUpdate(ctx context.Context, ids []uint) (map[uint]domain.Item, error)
	TouchLastSeen(ctx context.Context, ids []uint, day time.Time) error
}

type LoanRepository interface {
	Create(ctx context.Context, loan domain.Loan) (domain.Loan, error)
	FindByID(ctx context.Context, id uint) (domain.Loan, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.Loan, error)
	List(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error)
	OutItemIDs(ctx context.Context, userID uint, itemIDs []uint) ([]uint, error)
	CloseOutForItems(ctx context.Context, itemIDs []uint, day time.Time) (int64, error)
	Update(ctx context.Context, loan domain.Loan) error
	Delete(ctx context.Context, id uint) error
	Late(ctx context.Context, day time.Time, userID *uint) ([]domain.Loan, error)
}

type LedgerWriter interface {
	Append(ctx context.Context, entries []domain.LedgerEntry) ([]domain.LedgerEntry, error)
}

type DueDateCalculator interface {
	DueDate(today time.Time) time.Time
}

type LoanService struct {
	tx      Transactor
	users   LoanUserRepository
	items   LoanItemRepository
	loans   LoanRepository
	ledger  LedgerWriter
	opening DueDateCalculator
	pub     notify.Publisher

	pricing       atomic.Pointer[domain.Pricing]
	extendDays    int
	maxExtensions int
	loc           *time.Location
	now           Clock
}

func NewLoanService(
	tx Transactor,
	users LoanUserRepository,
	items LoanItemRepository,
	loans LoanRepository,
	ledger LedgerWriter,
	opening DueDateCalculator,
	pub notify.Publisher,
	pricing domain.Pricing,
	conf *config.LibraryConfig,
) *LoanService {
	s := &LoanService{
		tx:            tx,
		users:         users,
		items:         items,
		loans:         loans,
		ledger:        ledger,
		opening:       opening,
		pub:           pub,
		extendDays:    conf.ExtendDays,
		maxExtensions: conf.MaxExtensions,
		loc:           conf.Location(),
		now:           time.Now,
	}
	s.pricing.Store(&pricing)

	return s
}

func (s *LoanService) Pricing() domain.Pricing {
	return *s.pricing.Load()
}

// SetPricing takes effect for the next loan.
func (s *LoanService) SetPricing(p domain.Pricing) {
	s.pricing.Store(&p)
}

func (s *LoanService) today() time.Time {
	return domain.Today(s.now(), s.loc)
}

func (s *LoanService) checkNotHeld(ctx context.Context, userID uint, ids []uint) error {
	held, err := s.loans.OutItemIDs(ctx, userID, ids)
	if err != nil {
		return fmt.Errorf("s.loans.OutItemIDs -> %w", err)
	}
	if len(held) > 0 {
		return fmt.Errorf("%w: item %d", ErrDuplicateLoan, held[0])
	}

	return nil
}

// CreateLoan prices req for its user and, unless it is a simulation, lends
// the items: open loans on them are closed, new ones are created, the ledger
// is written and the user's credit and subscription are saved, all in one
// transaction.
func (s *LoanService) CreateLoan(ctx context.Context, operator domain.Identity, req domain.LoanRequest) (domain.Receipt, error) {
	if err := operator.Require(domain.CapLoanCreate); err != nil {
		return domain.Receipt{}, err
	}

	entries := req.Entries()
	if err := domain.ValidateEntries(entries); err != nil {
		return domain.Receipt{}, err
	}
	ids := domain.PhysicalIDs(entries)
	pricing := s.Pricing()
	today := s.today()

	if req.Simulation {
		return s.simulate(ctx, req.UserID, entries, ids, pricing, today)
	}

	var (
		receipt  domain.Receipt
		recorded []domain.LedgerEntry
	)

	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByIDForUpdate(ctx, req.UserID)
		if err != nil {
			return fmt.Errorf("s.users.FindByIDForUpdate -> %w", err)
		}

		items, err := s.items.FindByIDsForUpdate(ctx, ids)
		if err != nil {
			return fmt.Errorf("s.items.FindByIDsForUpdate -> %w", err)
		}

		if err := s.checkNotHeld(ctx, user.ID, ids); err != nil {
			return err
		}

		q := pricing.Quote(entries, items, user.Credit, user.Role.Staff())
		receipt = newReceipt(q)

		if len(ids) > 0 {
			if _, err := s.loans.CloseOutForItems(ctx, ids, today); err != nil {
				return fmt.Errorf("s.loans.CloseOutForItems -> %w", err)
			}
			due := s.opening.DueDate(today)
			receipt.DueDate = &due
		}

		ledger := make([]domain.LedgerEntry, 0, len(q.Lines))
		for _, line := range q.Lines {
			entry := domain.LedgerEntry{
				OperatorID: operator.UserID,
				UserID:     user.ID,
				ItemID:     line.Entry,
				Cost:       line.Cost,
				Money:      line.Money,
				Day:        today,
			}

			if line.Physical() {
				loan, err := s.loans.Create(ctx, domain.Loan{
					UserID: &user.ID,
					ItemID: uint(line.Entry),
					Start:  today,
					Stop:   *receipt.DueDate,
					Status: domain.LoanOut,
				})
				if err != nil {
					return fmt.Errorf("s.loans.Create -> %w", err)
				}
				receipt.Loans = append(receipt.Loans, loan)
				entry.LoanID = &loan.ID
			}

			ledger = append(ledger, entry)
		}

		recorded, err = s.ledger.Append(ctx, ledger)
		if err != nil {
			return fmt.Errorf("s.ledger.Append -> %w", err)
		}

		if q.Subscription {
			user.Subscription = domain.AddDays(domain.MaxDate(today, user.Subscription), subscriptionDays)
			user.Enabled = true
		}
		user.Credit = q.NewCredit
		user.LastSeen = &today

		if _, err := s.users.Update(ctx, user, false); err != nil {
			return fmt.Errorf("s.users.Update -> %w", err)
		}

		if err := s.items.TouchLastSeen(ctx, ids, today); err != nil {
			return fmt.Errorf("s.items.TouchLastSeen -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Receipt{}, err
	}

	if err := s.pub.Publish(ctx, notify.NewEvent(notify.EventLedgerRecorded, recorded)); err != nil {
		zap.L().Warn("ledger event not published", zap.Error(err))
	}

	return receipt, nil
}

// simulate reads without locking and writes nothing.
func (s *LoanService) simulate(ctx context.Context, userID uint, entries []int64, ids []uint, pricing domain.Pricing, today time.Time) (domain.Receipt, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("s.users.FindByID -> %w", err)
	}

	items, err := s.items.FindByIDs(ctx, ids)
	if err != nil {
		return domain.Receipt{}, fmt.Errorf("s.items.FindByIDs -> %w", err)
	}

	if err := s.checkNotHeld(ctx, user.ID, ids); err != nil {
		return domain.Receipt{}, err
	}

	receipt := newReceipt(pricing.Quote(entries, items, user.Credit, user.Role.Staff()))
	if len(ids) > 0 {
		due := s.opening.DueDate(today)
		receipt.DueDate = &due
	}

	return receipt, nil
}

func newReceipt(q domain.Quote) domain.Receipt {
	return domain.Receipt{
		Cost:   q.Cost(),
		Prices: q.Prices(),
		ToPay: domain.ToPay{
			Credit: q.FromCredit,
			Real:   q.Real,
		},
		NewCredit: q.NewCredit,
		Loans:     []domain.Loan{},
	}
}

// CloseLoan returns an item. Closing twice fails with ErrAlreadyClosed.
func (s *LoanService) CloseLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error) {
	if err := operator.Require(domain.CapLoanManage); err != nil {
		return domain.Loan{}, err
	}

	today := s.today()

	var loan domain.Loan
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loans.FindByIDForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("s.loans.FindByIDForUpdate -> %w", err)
		}
		if loan.Status != domain.LoanOut {
			return ErrAlreadyClosed
		}

		loan.Status = domain.LoanIn
		loan.Stop = today
		if err := s.loans.Update(ctx, loan); err != nil {
			return fmt.Errorf("s.loans.Update -> %w", err)
		}

		if loan.UserID != nil {
			if err := s.users.TouchLastSeen(ctx, *loan.UserID, today); err != nil {
				return fmt.Errorf("s.users.TouchLastSeen -> %w", err)
			}
		}

		if err := s.items.TouchLastSeen(ctx, []uint{loan.ItemID}, today); err != nil {
			return fmt.Errorf("s.items.TouchLastSeen -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}

	return loan, nil
}

func (s *LoanService) ExtendLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error) {
	if err := operator.Require(domain.CapLoanManage); err != nil {
		return domain.Loan{}, err
	}

	var loan domain.Loan
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var err error
		loan, err = s.loans.FindByIDForUpdate(ctx, loanID)
		if err != nil {
			return fmt.Errorf("s.loans.FindByIDForUpdate -> %w", err)
		}
		if loan.Status != domain.LoanOut {
			return ErrAlreadyClosed
		}
		if loan.Extensions >= s.maxExtensions {
			return ErrMaxExtensions
		}

		loan.Stop = domain.AddDays(loan.Stop, s.extendDays)
		loan.Extensions++
		if err := s.loans.Update(ctx, loan); err != nil {
			return fmt.Errorf("s.loans.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.Loan{}, err
	}

	return loan, nil
}

func (s *LoanService) DeleteLoan(ctx context.Context, operator domain.Identity, loanID uint) error {
	if err := operator.Require(domain.CapLoanDelete); err != nil {
		return err
	}

	if err := s.loans.Delete(ctx, loanID); err != nil {
		return fmt.Errorf("s.loans.Delete -> %w", err)
	}

	zap.L().Info("loan deleted", zap.Uint("loan", loanID), zap.Uint("operator", operator.UserID))

	return nil
}

func ownedBy(userID *uint, id domain.Identity) bool {
	return userID != nil && *userID == id.UserID
}

// GetLoan lets users see their own loans only. Other loans look missing.
func (s *LoanService) GetLoan(ctx context.Context, operator domain.Identity, loanID uint) (domain.Loan, error) {
	loan, err := s.loans.FindByID(ctx, loanID)
	if err != nil {
		return domain.Loan{}, fmt.Errorf("s.loans.FindByID -> %w", err)
	}

	if !operator.Role.Can(domain.CapUserView) && !ownedBy(loan.UserID, operator) {
		return domain.Loan{}, ErrLoanNotFound
	}

	return loan, nil
}

// ListLoans restricts the filter to the caller's own loans unless they can
// view other users.
func (s *LoanService) ListLoans(ctx context.Context, operator domain.Identity, filter domain.LoanFilter) ([]domain.Loan, error) {
	if !operator.Role.Can(domain.CapUserView) {
		filter.UserID = &operator.UserID
	}

	loans, err := s.loans.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.loans.List -> %w", err)
	}

	return loans, nil
}

func (s *LoanService) ListLateLoans(ctx context.Context, operator domain.Identity) ([]domain.Loan, error) {
	if err := operator.Require(domain.CapUserView); err != nil {
		return nil, err
	}

	loans, err := s.loans.Late(ctx, s.today(), nil)
	if err != nil {
		return nil, fmt.Errorf("s.loans.Late -> %w", err)
	}

	return loans, nil
}
