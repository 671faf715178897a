package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type EventLog struct {
	ID         uint      `gorm:"primaryKey"`
	OperatorID uint      `gorm:"not null;index"`
	Message    string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null;index"`
}

type EventLogDAO struct {
	db *gorm.DB
}

func NewEventLogDAO(db *gorm.DB) *EventLogDAO {
	return &EventLogDAO{
		db: db,
	}
}

func (d *EventLogDAO) Insert(ctx context.Context, e EventLog) error {
	return conn(ctx, d.db).Create(&e).Error
}

func (d *EventLogDAO) List(ctx context.Context, limit int) ([]EventLog, error) {
	var logs []EventLog
	if err := conn(ctx, d.db).Order("created_at DESC, id DESC").Limit(limit).Find(&logs).Error; err != nil {
		return nil, err
	}

	return logs, nil
}

func (d *EventLogDAO) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	result := conn(ctx, d.db).Where("created_at < ?", t).Delete(&EventLog{})

	return result.RowsAffected, result.Error
}
