package domain

import "time"

type Item struct {
	ID          uint       `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Enabled     bool       `json:"enabled"`
	PlayersMin  int        `json:"players_min"`
	PlayersMax  int        `json:"players_max"`
	Age         int        `json:"age"`
	Big         bool       `json:"big"`
	Outside     bool       `json:"outside"`
	LastSeen    *time.Time `json:"lastseen,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type ItemPatch struct {
	Name        *string
	Description *string
	Enabled     *bool
	PlayersMin  *int
	PlayersMax  *int
	Age         *int
	Big         *bool
	Outside     *bool
}

func (it *Item) Apply(p ItemPatch) {
	if p.Name != nil {
		it.Name = *p.Name
	}
	if p.Description != nil {
		it.Description = *p.Description
	}
	if p.Enabled != nil {
		it.Enabled = *p.Enabled
	}
	if p.PlayersMin != nil {
		it.PlayersMin = *p.PlayersMin
	}
	if p.PlayersMax != nil {
		it.PlayersMax = *p.PlayersMax
	}
	if p.Age != nil {
		it.Age = *p.Age
	}
	if p.Big != nil {
		it.Big = *p.Big
	}
	if p.Outside != nil {
		it.Outside = *p.Outside
	}
}

type ItemFilter struct {
	Search  string
	Enabled *bool
	Big     *bool
	Outside *bool
	Players int
}

const (
	// Items unseen for this many days are due for an inventory check.
	DefaultNotSeenDays = 365
	LeastLoanedLimit   = 20
)

// ItemLoans is an item with the number of loans it ever had.
type ItemLoans struct {
	Item
	Loans int64 `json:"nbloans"`
}
