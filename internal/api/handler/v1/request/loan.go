package request

import (
	"errors"
	"fmt"

	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ludotheque/ludo-api/internal/domain"
)

type CreateLoanRequest struct {
	User         uint    `json:"user"`
	Items        []int64 `json:"items"`
	SpecialItems []int64 `json:"special_items"`
	Simulation   bool    `json:"simulation"`
}

func (req *CreateLoanRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.User, validation.Required),
		validation.Field(&req.Items, validation.By(nonZeroEntries)),
		validation.Field(&req.SpecialItems, validation.By(specialEntries)),
	)
}

func nonZeroEntries(value interface{}) error {
	entries, _ := value.([]int64)
	for _, e := range entries {
		if e == 0 {
			return errors.New("item ids must not be zero")
		}
	}

	return nil
}

func specialEntries(value interface{}) error {
	entries, _ := value.([]int64)
	for _, e := range entries {
		if e != domain.SubscriptionItem && e != domain.CardItem {
			return fmt.Errorf("unknown special item %d", e)
		}
	}

	return nil
}

func (req *CreateLoanRequest) LoanRequest() domain.LoanRequest {
	return domain.LoanRequest{
		UserID:       req.User,
		Items:        req.Items,
		SpecialItems: req.SpecialItems,
		Simulation:   req.Simulation,
	}
}

type BookRequest struct {
	Item uint `json:"item"`
}

func (req *BookRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Item, validation.Required),
	)
}
