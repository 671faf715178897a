package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidCredit = errors.New("invalid credit")

	MaxCredit = decimal.NewFromInt(100)
)

type User struct {
	ID           uint            `json:"id"`
	Name         string          `json:"name"`
	Enabled      bool            `json:"enabled"`
	Role         Role            `json:"role"`
	Credit       decimal.Decimal `json:"credit"`
	Subscription time.Time       `json:"subscription"`
	LastSeen     *time.Time      `json:"lastseen,omitempty"`
	LastWarning  *time.Time      `json:"lastwarning,omitempty"`
	Emails       []string        `json:"emails"`
	Notes        string          `json:"notes"`
	Informations string          `json:"informations"`
	CreatedAt    time.Time       `json:"created_at"`
}

// UserPatch lists the fields an operator may change. Nil means untouched.
type UserPatch struct {
	Name         *string
	Enabled      *bool
	Role         *Role
	Credit       *decimal.Decimal
	Subscription *time.Time
	Emails       *[]string
	Notes        *string
	Informations *string
}

func validCredit(value interface{}) error {
	c, ok := value.(*decimal.Decimal)
	if !ok || c == nil {
		return nil
	}
	if c.IsNegative() || c.GreaterThan(MaxCredit) {
		return ErrInvalidCredit
	}

	return nil
}

func validRole(value interface{}) error {
	r, ok := value.(*Role)
	if !ok || r == nil {
		return nil
	}
	if !r.Valid() {
		return ErrInvalidRole
	}

	return nil
}

func (p UserPatch) Validate() error {
	return validation.ValidateStruct(
		&p,
		validation.Field(&p.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&p.Credit, validation.By(validCredit)),
		validation.Field(&p.Role, validation.By(validRole)),
		validation.Field(&p.Emails, validation.By(func(value interface{}) error {
			emails, _ := value.(*[]string)
			if emails == nil {
				return nil
			}
			for _, e := range *emails {
				if err := validation.Validate(e, is.Email); err != nil {
					return fmt.Errorf("%q: %w", e, err)
				}
			}
			return nil
		})),
	)
}

// Apply copies the set fields of p onto u. Emails are normalized to lower
// case.
func (u *User) Apply(p UserPatch) {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Enabled != nil {
		u.Enabled = *p.Enabled
	}
	if p.Role != nil {
		u.Role = *p.Role
	}
	if p.Credit != nil {
		u.Credit = *p.Credit
	}
	if p.Subscription != nil {
		u.Subscription = Day(*p.Subscription)
	}
	if p.Emails != nil {
		u.Emails = NormalizeEmails(*p.Emails)
	}
	if p.Notes != nil {
		u.Notes = *p.Notes
	}
	if p.Informations != nil {
		u.Informations = *p.Informations
	}
}

func NormalizeEmails(emails []string) []string {
	seen := make(map[string]struct{}, len(emails))
	out := make([]string, 0, len(emails))
	for _, e := range emails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		if _, ok := seen[e]; ok {
			continue
		}
		seen[e] = struct{}{}
		out = append(out, e)
	}

	return out
}

// LowestFreeID returns the smallest positive id absent from sorted, which must
// be ascending.
func LowestFreeID(sorted []uint) uint {
	next := uint(1)
	for _, id := range sorted {
		if id > next {
			break
		}
		if id == next {
			next++
		}
	}

	return next
}

type UserFilter struct {
	Search  string
	Enabled *bool
	Role    *Role
}

type EventLog struct {
	ID         uint      `json:"id"`
	OperatorID uint      `json:"operator_id"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}
