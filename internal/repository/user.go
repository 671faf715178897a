package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ludotheque/ludo-api/internal/domain"
	"github.com/ludotheque/ludo-api/internal/repository/dao"
)

var (
	ErrUserEmailExists  = dao.ErrUserEmailExists
	ErrUserNotFound     = dao.ErrUserNotFound
	ErrConcurrentUpdate = dao.ErrConcurrentUpdate
)

type UserDAO interface {
	IDs(ctx context.Context) ([]uint, error)
	Insert(ctx context.Context, user dao.User, emails []string) (dao.User, error)
	FindByID(ctx context.Context, id uint) (dao.User, error)
	FindByIDForUpdate(ctx context.Context, id uint) (dao.User, error)
	FindEnabledByEmail(ctx context.Context, email string) (dao.User, error)
	FindEnabledByAPIKey(ctx context.Context, digest string) (dao.User, error)
	List(ctx context.Context, enabled *bool, role *string) ([]dao.User, error)
	Update(ctx context.Context, user dao.User, emails *[]string) (dao.User, error)
	SetAPIKeyDigest(ctx context.Context, id uint, digest string) error
	TouchLastSeen(ctx context.Context, id uint, day time.Time) error
	SetLastWarning(ctx context.Context, id uint, day time.Time) error
	Delete(ctx context.Context, id uint) error
	DemoteExpired(ctx context.Context, day time.Time) ([]uint, error)
}

type UserRepository struct {
	dao UserDAO
}

func NewUserRepository(dao UserDAO) *UserRepository {
	return &UserRepository{
		dao: dao,
	}
}

func (r *UserRepository) IDs(ctx context.Context) ([]uint, error) {
	ids, err := r.dao.IDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("r.dao.IDs -> %w", err)
	}

	return ids, nil
}

func (r *UserRepository) Create(ctx context.Context, user domain.User) (domain.User, error) {
	created, err := r.dao.Insert(ctx, r.domainToDao(user), user.Emails)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Insert -> %w", err)
	}

	return r.daoToDomain(created), nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByID(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByID -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindByIDForUpdate(ctx context.Context, id uint) (domain.User, error) {
	found, err := r.dao.FindByIDForUpdate(ctx, id)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindByIDForUpdate -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindEnabledByEmail(ctx context.Context, email string) (domain.User, error) {
	found, err := r.dao.FindEnabledByEmail(ctx, email)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindEnabledByEmail -> %w", err)
	}

	return r.daoToDomain(found), nil
}

func (r *UserRepository) FindEnabledByAPIKey(ctx context.Context, digest string) (domain.User, error) {
	found, err := r.dao.FindEnabledByAPIKey(ctx, digest)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.FindEnabledByAPIKey -> %w", err)
	}

	return r.daoToDomain(found), nil
}

// List applies the enabled and role filters. Text search is left to the
// caller.
func (r *UserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, error) {
	var role *string
	if filter.Role != nil {
		s := string(*filter.Role)
		role = &s
	}

	found, err := r.dao.List(ctx, filter.Enabled, role)
	if err != nil {
		return nil, fmt.Errorf("r.dao.List -> %w", err)
	}

	users := make([]domain.User, len(found))
	for i, u := range found {
		users[i] = r.daoToDomain(u)
	}

	return users, nil
}

// Update saves user. Emails are replaced only when replaceEmails is set.
func (r *UserRepository) Update(ctx context.Context, user domain.User, replaceEmails bool) (domain.User, error) {
	var emails *[]string
	if replaceEmails {
		emails = &user.Emails
	}

	updated, err := r.dao.Update(ctx, r.domainToDao(user), emails)
	if err != nil {
		return domain.User{}, fmt.Errorf("r.dao.Update -> %w", err)
	}

	return r.daoToDomain(updated), nil
}

func (r *UserRepository) SetAPIKeyDigest(ctx context.Context, id uint, digest string) error {
	if err := r.dao.SetAPIKeyDigest(ctx, id, digest); err != nil {
		return fmt.Errorf("r.dao.SetAPIKeyDigest -> %w", err)
	}

	return nil
}

func (r *UserRepository) TouchLastSeen(ctx context.Context, id uint, day time.Time) error {
	if err := r.dao.TouchLastSeen(ctx, id, day); err != nil {
		return fmt.Errorf("r.dao.TouchLastSeen -> %w", err)
	}

	return nil
}

func (r *UserRepository) SetLastWarning(ctx context.Context, id uint, day time.Time) error {
	if err := r.dao.SetLastWarning(ctx, id, day); err != nil {
		return fmt.Errorf("r.dao.SetLastWarning -> %w", err)
	}

	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id uint) error {
	if err := r.dao.Delete(ctx, id); err != nil {
		return fmt.Errorf("r.dao.Delete -> %w", err)
	}

	return nil
}

func (r *UserRepository) DemoteExpired(ctx context.Context, day time.Time) ([]uint, error) {
	ids, err := r.dao.DemoteExpired(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("r.dao.DemoteExpired -> %w", err)
	}

	return ids, nil
}

func (r *UserRepository) domainToDao(u domain.User) dao.User {
	return dao.User{
		ID:           u.ID,
		Name:         u.Name,
		Enabled:      u.Enabled,
		Role:         string(u.Role),
		Credit:       u.Credit,
		Subscription: u.Subscription,
		LastSeen:     u.LastSeen,
		LastWarning:  u.LastWarning,
		Notes:        u.Notes,
		Informations: u.Informations,
	}
}

func (r *UserRepository) daoToDomain(u dao.User) domain.User {
	emails := make([]string, len(u.Emails))
	for i, e := range u.Emails {
		emails[i] = e.Address
	}

	return domain.User{
		ID:           u.ID,
		Name:         u.Name,
		Enabled:      u.Enabled,
		Role:         domain.Role(u.Role),
		Credit:       u.Credit,
		Subscription: domain.Day(u.Subscription),
		LastSeen:     dayPtr(u.LastSeen),
		LastWarning:  dayPtr(u.LastWarning),
		Emails:       emails,
		Notes:        u.Notes,
		Informations: u.Informations,
		CreatedAt:    u.CreatedAt,
	}
}

func dayPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := domain.Day(*t)

	return &d
}
