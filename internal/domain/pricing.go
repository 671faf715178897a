package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Sentinel entries standing for non physical purchases.
const (
	SubscriptionItem int64 = -1
	CardItem         int64 = -2
)

var (
	ErrNoItems        = errors.New("no items requested")
	ErrUnknownSpecial = errors.New("item does not exist")
	ErrDuplicateEntry = errors.New("item requested twice")
)

type Pricing struct {
	Regular         decimal.Decimal `json:"regular"`
	Big             decimal.Decimal `json:"big"`
	BigAssociations decimal.Decimal `json:"big_associations"`
	Card            decimal.Decimal `json:"card"`
	CardValue       decimal.Decimal `json:"card_value"`
	Yearly          decimal.Decimal `json:"yearly"`
}

func DefaultPricing() Pricing {
	return Pricing{
		Regular:         decimal.RequireFromString("0.5"),
		Big:             decimal.NewFromInt(5),
		BigAssociations: decimal.NewFromInt(7),
		Card:            decimal.NewFromInt(12),
		CardValue:       decimal.RequireFromString("12.5"),
		Yearly:          decimal.NewFromInt(10),
	}
}

// ItemCost is the nominal price of borrowing it. Staff borrow for free.
func (p Pricing) ItemCost(it Item, staff bool) decimal.Decimal {
	if staff {
		return decimal.Zero
	}
	if it.Big {
		return p.Big
	}

	return p.Regular
}

// ValidateEntries checks a request before any lookup: it must not be empty,
// negative ids must be known sentinels and no entry may appear twice.
func ValidateEntries(entries []int64) error {
	if len(entries) == 0 {
		return ErrNoItems
	}

	seen := make(map[int64]struct{}, len(entries))
	for _, e := range entries {
		if e <= 0 && e != SubscriptionItem && e != CardItem {
			return fmt.Errorf("%w: %d", ErrUnknownSpecial, e)
		}
		if _, ok := seen[e]; ok {
			return fmt.Errorf("%w: %d", ErrDuplicateEntry, e)
		}
		seen[e] = struct{}{}
	}

	return nil
}

// PhysicalIDs strips sentinels, keeping request order.
func PhysicalIDs(entries []int64) []uint {
	ids := make([]uint, 0, len(entries))
	for _, e := range entries {
		if e > 0 {
			ids = append(ids, uint(e))
		}
	}

	return ids
}

type QuoteLine struct {
	Entry int64
	Cost  decimal.Decimal
	// Money is the part of Cost not covered by credit.
	Money decimal.Decimal
}

func (l QuoteLine) Physical() bool {
	return l.Entry > 0
}

type Quote struct {
	Lines        []QuoteLine
	Subscription bool
	Card         bool
	RealBase     decimal.Decimal
	ItemsCost    decimal.Decimal
	FromCredit   decimal.Decimal
	Real         decimal.Decimal
	NewCredit    decimal.Decimal
}

func (q Quote) Cost() decimal.Decimal {
	return q.RealBase.Add(q.ItemsCost)
}

func (q Quote) Prices() []decimal.Decimal {
	prices := make([]decimal.Decimal, len(q.Lines))
	for i, l := range q.Lines {
		prices[i] = l.Cost
	}

	return prices
}

// Quote prices entries for a borrower holding credit. items must hold every
// physical entry. Subscription and card are always paid in real money, the
// card value is added to the credit before items are paid from it.
func (p Pricing) Quote(entries []int64, items map[uint]Item, credit decimal.Decimal, staff bool) Quote {
	q := Quote{
		Lines:     make([]QuoteLine, 0, len(entries)),
		RealBase:  decimal.Zero,
		ItemsCost: decimal.Zero,
	}

	for _, e := range entries {
		switch e {
		case SubscriptionItem:
			q.Subscription = true
			q.RealBase = q.RealBase.Add(p.Yearly)
			q.Lines = append(q.Lines, QuoteLine{Entry: e, Cost: p.Yearly, Money: p.Yearly})
		case CardItem:
			q.Card = true
			q.RealBase = q.RealBase.Add(p.Card)
			q.Lines = append(q.Lines, QuoteLine{Entry: e, Cost: p.Card, Money: p.Card})
		default:
			cost := p.ItemCost(items[uint(e)], staff)
			q.ItemsCost = q.ItemsCost.Add(cost)
			q.Lines = append(q.Lines, QuoteLine{Entry: e, Cost: cost})
		}
	}

	if q.Card {
		credit = credit.Add(p.CardValue)
	}

	q.FromCredit = decimal.Min(q.ItemsCost, credit)
	q.Real = q.RealBase.Add(q.ItemsCost.Sub(q.FromCredit))
	q.NewCredit = credit.Sub(q.FromCredit)

	remaining := credit
	for i := range q.Lines {
		if !q.Lines[i].Physical() {
			continue
		}
		covered := decimal.Min(q.Lines[i].Cost, remaining)
		remaining = remaining.Sub(covered)
		q.Lines[i].Money = q.Lines[i].Cost.Sub(covered)
	}

	return q
}
