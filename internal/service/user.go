package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository"
)

var (
	ErrUserNotFound    = repository.ErrUserNotFound
	ErrUserEmailExists = repository.ErrUserEmailExists

	ErrNameRequired = errors.New("name is required")
)

type UserRepository interface {
	IDs(ctx context.Context) ([]uint, error)
	Create(ctx context.Context, user domain.User) (domain.User, error)
	FindByID(ctx context.Context, id uint) (domain.User, error)
	FindByIDForUpdate(ctx context.Context, id uint) (domain.User, error)
	List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error)
	Update(ctx context.Context, user domain.User, replaceEmails bool) (domain.User, error)
	SetAPIKeyDigest(ctx context.Context, id uint, digest string) error
	Delete(ctx context.Context, id uint) error
	DemoteExpired(ctx context.Context, day time.Time) ([]uint, error)
}

type UserLoanRepository interface {
	List(ctx context.Context, filter domain.LoanFilter) ([]domain.Loan, error)
}

type EventLogRepository interface {
	AppendLog(ctx context.Context, operatorID uint, message string) error
	Logs(ctx context.Context, limit int) ([]domain.EventLog, error)
	PruneLogs(ctx context.Context, before time.Time) (int64, error)
}

type UserService struct {
	tx     Transactor
	repo   UserRepository
	loans  UserLoanRepository
	logs   EventLogRepository
	prefix string
	loc    *time.Location
	now    Clock
}

func NewUserService(tx Transactor, repo UserRepository, loans UserLoanRepository, logs EventLogRepository, apiKeyPrefix string, loc *time.Location) *UserService {
	return &UserService{
		tx:     tx,
		repo:   repo,
		loans:  loans,
		logs:   logs,
		prefix: apiKeyPrefix,
		loc:    loc,
		now:    time.Now,
	}
}

func (s *UserService) audit(ctx context.Context, operator domain.Identity, format string, args ...any) {
	if err := s.logs.AppendLog(ctx, operator.UserID, fmt.Sprintf(format, args...)); err != nil {
		zap.L().Warn("event log not written", zap.Error(err))
	}
}

// checkRoleChange keeps role assignment in the hands of admins.
func checkRoleChange(operator domain.Identity, patch domain.UserPatch) error {
	if patch.Role == nil {
		return nil
	}

	return operator.Require(domain.CapSystem)
}

// Create gives the new user the lowest free id.
func (s *UserService) Create(ctx context.Context, operator domain.Identity, patch domain.UserPatch) (domain.User, error) {
	if err := operator.Require(domain.CapUserCreate); err != nil {
		return domain.User{}, err
	}
	if err := checkRoleChange(operator, patch); err != nil {
		return domain.User{}, err
	}
	if patch.Name == nil || strings.TrimSpace(*patch.Name) == "" {
		return domain.User{}, ErrNameRequired
	}
	if err := patch.Validate(); err != nil {
		return domain.User{}, err
	}

	today := domain.Today(s.now(), s.loc)

	var created domain.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		ids, err := s.repo.IDs(ctx)
		if err != nil {
			return fmt.Errorf("s.repo.IDs -> %w", err)
		}

		user := domain.User{
			ID:           domain.LowestFreeID(ids),
			Enabled:      true,
			Role:         domain.RoleUser,
			Subscription: today,
		}
		user.Apply(patch)

		created, err = s.repo.Create(ctx, user)
		if err != nil {
			return fmt.Errorf("s.repo.Create -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	s.audit(ctx, operator, "created user %d", created.ID)

	return created, nil
}

func (s *UserService) Update(ctx context.Context, operator domain.Identity, id uint, patch domain.UserPatch) (domain.User, error) {
	if err := operator.Require(domain.CapUserManage); err != nil {
		return domain.User{}, err
	}
	if err := checkRoleChange(operator, patch); err != nil {
		return domain.User{}, err
	}
	if err := patch.Validate(); err != nil {
		return domain.User{}, err
	}

	var updated domain.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.repo.FindByIDForUpdate(ctx, id)
		if err != nil {
			return fmt.Errorf("s.repo.FindByIDForUpdate -> %w", err)
		}

		user.Apply(patch)

		updated, err = s.repo.Update(ctx, user, patch.Emails != nil)
		if err != nil {
			return fmt.Errorf("s.repo.Update -> %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.User{}, err
	}

	s.audit(ctx, operator, "updated user %d", id)

	return updated, nil
}

// Delete drops the user with its emails and bookings. Past loans stay,
// without a borrower.
func (s *UserService) Delete(ctx context.Context, operator domain.Identity, id uint) error {
	if err := operator.Require(domain.CapUserManage); err != nil {
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("s.repo.Delete -> %w", err)
	}

	s.audit(ctx, operator, "deleted user %d", id)

	return nil
}

func canSee(operator domain.Identity, userID uint) bool {
	return operator.UserID == userID || operator.Role.Can(domain.CapUserView)
}

func (s *UserService) Get(ctx context.Context, operator domain.Identity, id uint) (domain.User, error) {
	if !canSee(operator, id) {
		return domain.User{}, ErrUserNotFound
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("s.repo.FindByID -> %w", err)
	}

	return user, nil
}

// Search matches filter.Search against names, emails and ids.
func (s *UserService) Search(ctx context.Context, operator domain.Identity, filter domain.UserFilter) ([]domain.User, error) {
	if err := operator.Require(domain.CapUserView); err != nil {
		return nil, err
	}

	m, err := newMatcher(filter.Search)
	if err != nil {
		return nil, fmt.Errorf("newMatcher -> %w", err)
	}

	users, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("s.repo.List -> %w", err)
	}

	found := make([]domain.User, 0, len(users))
	for _, u := range users {
		fields := append([]string{u.Name, strconv.FormatUint(uint64(u.ID), 10)}, u.Emails...)
		if m.Match(fields...) {
			found = append(found, u)
		}
	}

	return found, nil
}

// History lists every loan of the user, newest first.
func (s *UserService) History(ctx context.Context, operator domain.Identity, id uint) ([]domain.Loan, error) {
	if !canSee(operator, id) {
		return nil, ErrUserNotFound
	}

	loans, err := s.loans.List(ctx, domain.LoanFilter{UserID: &id})
	if err != nil {
		return nil, fmt.Errorf("s.loans.List -> %w", err)
	}

	return loans, nil
}

// RotateAPIKey issues a new key for the user and returns it. Only its digest
// is kept, the previous key stops working.
func (s *UserService) RotateAPIKey(ctx context.Context, operator domain.Identity, id uint) (string, error) {
	if operator.UserID != id {
		if err := operator.Require(domain.CapSystem); err != nil {
			return "", err
		}
	}

	key := s.prefix + strings.ReplaceAll(uuid.NewString(), "-", "")
	if err := s.repo.SetAPIKeyDigest(ctx, id, DigestAPIKey(key)); err != nil {
		return "", fmt.Errorf("s.repo.SetAPIKeyDigest -> %w", err)
	}

	s.audit(ctx, operator, "rotated api key of user %d", id)

	return key, nil
}

func (s *UserService) Logs(ctx context.Context, operator domain.Identity, limit int) ([]domain.EventLog, error) {
	if err := operator.Require(domain.CapSystem); err != nil {
		return nil, err
	}

	logs, err := s.logs.Logs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("s.logs.Logs -> %w", err)
	}

	return logs, nil
}

// ResetExpiredRoles turns benevoles whose subscription ended back into
// users.
func (s *UserService) ResetExpiredRoles(ctx context.Context) ([]uint, error) {
	ids, err := s.repo.DemoteExpired(ctx, domain.Today(s.now(), s.loc))
	if err != nil {
		return nil, fmt.Errorf("s.repo.DemoteExpired -> %w", err)
	}

	return ids, nil
}

func (s *UserService) PruneLogs(ctx context.Context, retention time.Duration) (int64, error) {
	n, err := s.logs.PruneLogs(ctx, s.now().Add(-retention))
	if err != nil {
		return 0, fmt.Errorf("s.logs.PruneLogs -> %w", err)
	}

	return n, nil
}
