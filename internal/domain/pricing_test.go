package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestValidateEntries(t *testing.T) {
	tests := []struct {
		name    string
		entries []int64
		wantErr error
	}{
		{name: "empty", entries: nil, wantErr: ErrNoItems},
		{name: "zero", entries: []int64{0}, wantErr: ErrUnknownSpecial},
		{name: "unknown sentinel", entries: []int64{3, -3}, wantErr: ErrUnknownSpecial},
		{name: "duplicate item", entries: []int64{3, 4, 3}, wantErr: ErrDuplicateEntry},
		{name: "duplicate sentinel", entries: []int64{-1, -1}, wantErr: ErrDuplicateEntry},
		{name: "items and sentinels", entries: []int64{3, -1, 4, -2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateEntries(tt.entries)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestPhysicalIDs(t *testing.T) {
	assert.Equal(t, []uint{3, 4}, PhysicalIDs([]int64{-1, 3, -2, 4}))
}

func TestQuote_BigAndRegularFromCredit(t *testing.T) {
	p := DefaultPricing()
	items := map[uint]Item{1: {ID: 1, Big: true}, 2: {ID: 2}}

	q := p.Quote([]int64{1, 2}, items, dec("10"), false)

	assert.True(t, dec("5.5").Equal(q.Cost()))
	assert.True(t, dec("5.5").Equal(q.FromCredit))
	assert.True(t, decimal.Zero.Equal(q.Real))
	assert.True(t, dec("4.5").Equal(q.NewCredit))
	require.Len(t, q.Lines, 2)
	assert.True(t, decimal.Zero.Equal(q.Lines[0].Money))
	assert.True(t, decimal.Zero.Equal(q.Lines[1].Money))
}

func TestQuote_PartialCredit(t *testing.T) {
	p := DefaultPricing()
	items := map[uint]Item{1: {ID: 1, Big: true}}

	q := p.Quote([]int64{1}, items, dec("2"), false)

	require.Len(t, q.Lines, 1)
	assert.True(t, dec("5").Equal(q.Lines[0].Cost))
	assert.True(t, dec("3").Equal(q.Lines[0].Money))
	assert.True(t, dec("3").Equal(q.Real))
	assert.True(t, decimal.Zero.Equal(q.NewCredit))
}

func TestQuote_GreedyMoneyInItemOrder(t *testing.T) {
	p := DefaultPricing()
	items := map[uint]Item{1: {ID: 1}, 2: {ID: 2, Big: true}, 3: {ID: 3}}

	q := p.Quote([]int64{1, 2, 3}, items, dec("3"), false)

	// 0.5 covered, then 2.5 of the 5, nothing left for the last one.
	assert.True(t, decimal.Zero.Equal(q.Lines[0].Money))
	assert.True(t, dec("2.5").Equal(q.Lines[1].Money))
	assert.True(t, dec("0.5").Equal(q.Lines[2].Money))
	assert.True(t, dec("3").Equal(q.Real))
}

func TestQuote_CardOnly(t *testing.T) {
	p := DefaultPricing()

	q := p.Quote([]int64{CardItem}, nil, dec("100"), false)

	assert.True(t, p.Card.Equal(q.Cost()))
	assert.True(t, decimal.Zero.Equal(q.FromCredit))
	assert.True(t, p.Card.Equal(q.Real))
	assert.True(t, dec("112.5").Equal(q.NewCredit))
	require.Len(t, q.Lines, 1)
	assert.True(t, p.Card.Equal(q.Lines[0].Cost))
	assert.True(t, p.Card.Equal(q.Lines[0].Money))
}

func TestQuote_CardValueCoversItems(t *testing.T) {
	p := DefaultPricing()
	items := map[uint]Item{1: {ID: 1, Big: true}}

	q := p.Quote([]int64{1, CardItem}, items, decimal.Zero, false)

	assert.True(t, dec("17").Equal(q.Cost()))
	assert.True(t, dec("5").Equal(q.FromCredit))
	assert.True(t, dec("12").Equal(q.Real))
	assert.True(t, dec("7.5").Equal(q.NewCredit))
	assert.True(t, decimal.Zero.Equal(q.Lines[0].Money))
}

func TestQuote_SubscriptionNeverFromCredit(t *testing.T) {
	p := DefaultPricing()

	q := p.Quote([]int64{SubscriptionItem}, nil, dec("50"), false)

	assert.True(t, q.Subscription)
	assert.True(t, p.Yearly.Equal(q.Real))
	assert.True(t, dec("50").Equal(q.NewCredit))
}

func TestQuote_StaffBorrowForFree(t *testing.T) {
	p := DefaultPricing()
	items := map[uint]Item{1: {ID: 1, Big: true}, 2: {ID: 2}}

	q := p.Quote([]int64{1, 2, SubscriptionItem}, items, dec("1"), true)

	prices := q.Prices()
	require.Len(t, prices, 3)
	assert.True(t, decimal.Zero.Equal(prices[0]))
	assert.True(t, decimal.Zero.Equal(prices[1]))
	assert.True(t, p.Yearly.Equal(prices[2]))
	assert.True(t, dec("1").Equal(q.NewCredit))
}
