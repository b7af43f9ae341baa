package models

import "time"

type IdempotencyStatus string

const (
	IdempotencyStatusStarted   IdempotencyStatus = "STARTED"
	IdempotencyStatusSucceeded IdempotencyStatus = "SUCCEEDED"
	IdempotencyStatusFailed    IdempotencyStatus = "FAILED"
)

// IdempotencyKey makes event consumers safe against redelivery.
// Unique constraint: (user_id, handler_name, message_id).
type IdempotencyKey struct {
	ID          int               `gorm:"primary_key" json:"id"`
	UserId      string            `gorm:"size:36;not null;index:uniq_idem,unique" json:"userId"`
	HandlerName string            `gorm:"size:100;not null;index:uniq_idem,unique" json:"handlerName"`
	MessageId   string            `gorm:"size:255;not null;index:uniq_idem,unique" json:"messageId"`
	Status      IdempotencyStatus `gorm:"size:20;not null;index" json:"status"`
	LastError   *string           `gorm:"type:text" json:"lastError"`
	CreatedAt   time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}
