package request

import (
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/shopspring/decimal"

	"github.com/ludotheque/ludo-api/internal/domain"
)

// UserRequest carries the fields to set. Absent fields stay untouched.
type UserRequest struct {
	Name         *string          `json:"name"`
	Enabled      *bool            `json:"enabled"`
	Role         *string          `json:"role"`
	Credit       *decimal.Decimal `json:"credit" swaggertype:"number"`
	Subscription *string          `json:"subscription" format:"YYYY-MM-DD"`
	Emails       *[]string        `json:"emails"`
	Notes        *string          `json:"notes"`
	Informations *string          `json:"informations"`
}

func (req *UserRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&req.Role, validation.NilOrNotEmpty, validation.In(string(domain.RoleUser), string(domain.RoleBenevole), string(domain.RoleAdmin))),
		validation.Field(&req.Subscription, validation.NilOrNotEmpty, validation.Date(domain.DateLayout)),
		validation.Field(&req.Emails, validation.By(validEmails)),
	)
}

func validEmails(value interface{}) error {
	emails, _ := value.(*[]string)
	if emails == nil {
		return nil
	}
	for _, e := range *emails {
		if err := validation.Validate(e, validation.Required, is.Email); err != nil {
			return fmt.Errorf("%q: %w", e, err)
		}
	}

	return nil
}

// Patch must be called on a validated request.
func (req *UserRequest) Patch() domain.UserPatch {
	p := domain.UserPatch{
		Name:         req.Name,
		Enabled:      req.Enabled,
		Credit:       req.Credit,
		Emails:       req.Emails,
		Notes:        req.Notes,
		Informations: req.Informations,
	}
	if req.Role != nil {
		role := domain.Role(*req.Role)
		p.Role = &role
	}
	if req.Subscription != nil {
		if d, err := time.Parse(domain.DateLayout, *req.Subscription); err == nil {
			p.Subscription = &d
		}
	}

	return p
}
