package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type LoanStatus string

const (
	LoanOut LoanStatus = "out"
	LoanIn  LoanStatus = "in"
)

type Loan struct {
	ID         uint       `json:"id"`
	UserID     *uint      `json:"user"`
	ItemID     uint       `json:"item"`
	Start      time.Time  `json:"start"`
	Stop       time.Time  `json:"stop"`
	Status     LoanStatus `json:"status"`
	Extensions int        `json:"extensions"`
}

func (l Loan) Late(today time.Time) bool {
	return l.Status == LoanOut && Day(l.Stop).Before(Day(today))
}

type LoanFilter struct {
	UserID *uint
	ItemID *uint
	Status *LoanStatus
}

type LoanRequest struct {
	UserID       uint
	Items        []int64
	SpecialItems []int64
	Simulation   bool
}

// Entries lists every priced entry of the request, physical items first.
func (r LoanRequest) Entries() []int64 {
	entries := make([]int64, 0, len(r.Items)+len(r.SpecialItems))
	entries = append(entries, r.Items...)
	return append(entries, r.SpecialItems...)
}

type ToPay struct {
	Credit decimal.Decimal `json:"credit"`
	Real   decimal.Decimal `json:"real"`
}

type Receipt struct {
	Cost      decimal.Decimal   `json:"cost"`
	Prices    []decimal.Decimal `json:"prices"`
	ToPay     ToPay             `json:"topay"`
	NewCredit decimal.Decimal   `json:"new_credit"`
	DueDate   *time.Time        `json:"due_date,omitempty"`
	Loans     []Loan            `json:"loans"`
}
