package domain

import "time"

type Booking struct {
	ID        uint      `json:"id"`
	UserID    uint      `json:"user"`
	ItemID    uint      `json:"item"`
	CreatedAt time.Time `json:"created_at"`
}
