package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LedgerEntry struct {
	ID         uint            `json:"id"`
	OperatorID uint            `json:"operator"`
	UserID     uint            `json:"user"`
	LoanID     *uint           `json:"loan,omitempty"`
	ItemID     int64           `json:"item"`
	Cost       decimal.Decimal `json:"cost"`
	Money      decimal.Decimal `json:"money"`
	Day        time.Time       `json:"day"`
	CreatedAt  time.Time       `json:"created_at"`
}

type LedgerFilter struct {
	From   *time.Time
	To     *time.Time
	UserID *uint
}

type LedgerSummary struct {
	Entries       int             `json:"entries"`
	Cost          decimal.Decimal `json:"cost"`
	Money         decimal.Decimal `json:"money"`
	Subscriptions int             `json:"subscriptions"`
	Cards         int             `json:"cards"`
}

func SummarizeLedger(entries []LedgerEntry) LedgerSummary {
	s := LedgerSummary{Cost: decimal.Zero, Money: decimal.Zero}
	for _, e := range entries {
		s.Entries++
		s.Cost = s.Cost.Add(e.Cost)
		s.Money = s.Money.Add(e.Money)
		switch e.ItemID {
		case SubscriptionItem:
			s.Subscriptions++
		case CardItem:
			s.Cards++
		}
	}

	return s
}
