package request

import (
	validation "github.com/go-ozzo/ozzo-validation"

	"github.com/ludotheque/ludo-api/internal/domain"
)

type ItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Enabled     *bool   `json:"enabled"`
	PlayersMin  *int    `json:"players_min"`
	PlayersMax  *int    `json:"players_max"`
	Age         *int    `json:"age"`
	Big         *bool   `json:"big"`
	Outside     *bool   `json:"outside"`
}

func (req *ItemRequest) Validate() error {
	return validation.ValidateStruct(
		req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, 200)),
		validation.Field(&req.PlayersMin, validation.Min(1)),
		validation.Field(&req.PlayersMax, validation.Min(1)),
		validation.Field(&req.Age, validation.Min(0), validation.Max(99)),
	)
}

func (req *ItemRequest) Patch() domain.ItemPatch {
	return domain.ItemPatch{
		Name:        req.Name,
		Description: req.Description,
		Enabled:     req.Enabled,
		PlayersMin:  req.PlayersMin,
		PlayersMax:  req.PlayersMax,
		Age:         req.Age,
		Big:         req.Big,
		Outside:     req.Outside,
	}
}
