package dao

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrUserEmailExists = errors.New("email already used by another user")
	ErrUserNotFound    = errors.New("user not found")
)

type User struct {
	ID uint `gorm:"primaryKey;autoIncrement:false"`

	Name         string          `gorm:"not null"`
	Enabled      bool            `gorm:"not null;default:true"`
	Role         string          `gorm:"not null;default:user;index"`
	Credit       decimal.Decimal `gorm:"type:numeric(10,2);not null;default:0"`
	Subscription time.Time       `gorm:"type:date;not null"`
	LastSeen     *time.Time      `gorm:"type:date"`
	LastWarning  *time.Time      `gorm:"type:date"`
	APIKeyDigest *string         `gorm:"uniqueIndex"`
	Notes        string
	Informations string

	Emails   []Email   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Bookings []Booking `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Loans    []Loan    `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

type Email struct {
	ID      uint   `gorm:"primaryKey"`
	UserID  uint   `gorm:"not null;index"`
	Address string `gorm:"not null;uniqueIndex"`
}

type UserDAO struct {
	db *gorm.DB
}

func NewUserDAO(db *gorm.DB) *UserDAO {
	return &UserDAO{
		db: db,
	}
}

func emailRows(userID uint, addresses []string) []Email {
	rows := make([]Email, len(addresses))
	for i, a := range addresses {
		rows[i] = Email{UserID: userID, Address: a}
	}

	return rows
}

func (d *UserDAO) insertEmails(db *gorm.DB, userID uint, addresses []string) error {
	if len(addresses) == 0 {
		return nil
	}

	if err := db.Create(emailRows(userID, addresses)).Error; err != nil {
		if uniqueViolation(err, "idx_emails_address") {
			return ErrUserEmailExists
		}
		return err
	}

	return nil
}

// IDs returns every user id in ascending order.
func (d *UserDAO) IDs(ctx context.Context) ([]uint, error) {
	var ids []uint
	if err := conn(ctx, d.db).Model(&User{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}

	return ids, nil
}

// Insert keeps user.ID, which must be chosen by the caller.
func (d *UserDAO) Insert(ctx context.Context, user User, emails []string) (User, error) {
	db := conn(ctx, d.db)

	if err := db.Omit(clause.Associations).Create(&user).Error; err != nil {
		return User{}, err
	}

	if err := d.insertEmails(db, user.ID, emails); err != nil {
		return User{}, err
	}
	user.Emails = emailRows(user.ID, emails)

	return user, nil
}

func (d *UserDAO) find(db *gorm.DB, conds ...any) (User, error) {
	var user User

	result := db.Preload("Emails", func(db *gorm.DB) *gorm.DB {
		return db.Order("id")
	}).First(&user, conds...)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return User{}, ErrUserNotFound
		}

		return User{}, result.Error
	}

	return user, nil
}

func (d *UserDAO) FindByID(ctx context.Context, id uint) (User, error) {
	return d.find(conn(ctx, d.db), id)
}

// FindByIDForUpdate locks the user row until the transaction ends.
func (d *UserDAO) FindByIDForUpdate(ctx context.Context, id uint) (User, error) {
	return d.find(conn(ctx, d.db).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (d *UserDAO) FindEnabledByEmail(ctx context.Context, email string) (User, error) {
	sub := conn(ctx, d.db).Model(&Email{}).Select("user_id").Where("address = ?", email)

	return d.find(conn(ctx, d.db), "enabled = ? AND id IN (?)", true, sub)
}

func (d *UserDAO) FindEnabledByAPIKey(ctx context.Context, digest string) (User, error) {
	return d.find(conn(ctx, d.db), "enabled = ? AND api_key_digest = ?", true, digest)
}

func (d *UserDAO) List(ctx context.Context, enabled *bool, role *string) ([]User, error) {
	q := conn(ctx, d.db).Preload("Emails").Order("id")
	if enabled != nil {
		q = q.Where("enabled = ?", *enabled)
	}
	if role != nil {
		q = q.Where("role = ?", *role)
	}

	var users []User
	if err := q.Find(&users).Error; err != nil {
		return nil, err
	}

	return users, nil
}

// Update saves the scalar columns of user. A non nil emails replaces the
// stored addresses.
func (d *UserDAO) Update(ctx context.Context, user User, emails *[]string) (User, error) {
	db := conn(ctx, d.db)

	result := db.Model(&User{ID: user.ID}).Select(
		"Name", "Enabled", "Role", "Credit", "Subscription", "LastSeen", "LastWarning", "Notes", "Informations",
	).Updates(&user)
	if result.Error != nil {
		return User{}, result.Error
	}
	if result.RowsAffected == 0 {
		return User{}, ErrUserNotFound
	}

	if emails != nil {
		if err := db.Where("user_id = ?", user.ID).Delete(&Email{}).Error; err != nil {
			return User{}, err
		}
		if err := d.insertEmails(db, user.ID, *emails); err != nil {
			return User{}, err
		}
	}

	return d.find(db, user.ID)
}

func (d *UserDAO) SetAPIKeyDigest(ctx context.Context, id uint, digest string) error {
	result := conn(ctx, d.db).Model(&User{}).Where("id = ?", id).Update("api_key_digest", digest)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (d *UserDAO) setDate(ctx context.Context, id uint, column string, day time.Time) error {
	result := conn(ctx, d.db).Model(&User{}).Where("id = ?", id).Update(column, day)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

func (d *UserDAO) TouchLastSeen(ctx context.Context, id uint, day time.Time) error {
	return d.setDate(ctx, id, "last_seen", day)
}

func (d *UserDAO) SetLastWarning(ctx context.Context, id uint, day time.Time) error {
	return d.setDate(ctx, id, "last_warning", day)
}

// Delete relies on the foreign keys: emails and bookings go, loans keep a
// null user.
func (d *UserDAO) Delete(ctx context.Context, id uint) error {
	result := conn(ctx, d.db).Delete(&User{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return nil
}

// DemoteExpired turns the benevoles whose subscription ended before day back
// into plain users and returns their ids.
func (d *UserDAO) DemoteExpired(ctx context.Context, day time.Time) ([]uint, error) {
	db := conn(ctx, d.db)

	var ids []uint
	if err := db.Model(&User{}).
		Where("role = ? AND subscription < ?", "benevole", day).
		Order("id").
		Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if err := db.Model(&User{}).Where("id IN ?", ids).Update("role", "user").Error; err != nil {
		return nil, err
	}

	return ids, nil
}
