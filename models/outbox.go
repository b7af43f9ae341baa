package models

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/utils"
	"gorm.io/gorm"
)

// Outbox publish statuses for RecipeEventRecord.PublishStatus.
const (
	OutboxPublishStatusPending    = "PENDING"
	OutboxPublishStatusProcessing = "PROCESSING"
	OutboxPublishStatusSent       = "SENT"
	OutboxPublishStatusFailed     = "FAILED"
	OutboxPublishStatusDead       = "DEAD"
)

// Consumer-side statuses for RecipeEventRecord.ProcessingStatus.
const (
	OutboxProcessStatusPending    = "PENDING"
	OutboxProcessStatusProcessing = "PROCESSING"
	OutboxProcessStatusSucceeded  = "SUCCEEDED"
	OutboxProcessStatusFailed     = "FAILED"
	OutboxProcessStatusDead       = "DEAD"
)

type RecipeEventAction string

const (
	RecipeEventCreate RecipeEventAction = "C"
	RecipeEventUpdate RecipeEventAction = "U"
	RecipeEventDelete RecipeEventAction = "D"
)

const ReferenceTypeRecipe = "recipes"

// RecipeEventRecord is the transactional outbox row. It is written in the
// same transaction as the recipe change and published after commit by the
// outbox dispatcher.
type RecipeEventRecord struct {
	ID               int               `gorm:"primary_key;index:idx_outbox_dispatch,priority:3" json:"id"`
	UserId           string            `gorm:"size:36;not null;index" json:"userId"`
	EventDateTime    time.Time         `gorm:"index;not null" json:"eventDateTime"`
	ReferenceId      int               `gorm:"index" json:"referenceId"`
	ReferenceType    string            `gorm:"size:20;not null" json:"referenceType"`
	Action           RecipeEventAction `gorm:"size:1;not null" json:"action"`
	OldObj           []byte            `gorm:"type:mediumblob" json:"oldObj"`
	NewObj           []byte            `gorm:"type:mediumblob" json:"newObj"`
	IsProcessed      bool              `gorm:"index;not null;default:false" json:"isProcessed"`
	PublishStatus    string            `gorm:"size:20;index;not null;default:'PENDING';index:idx_outbox_dispatch,priority:1" json:"publishStatus"`
	PublishedAt      *time.Time        `gorm:"index" json:"publishedAt"`
	PubSubMessageId  *string           `gorm:"size:255" json:"pubSubMessageId"`
	PublishAttempts  int               `gorm:"not null;default:0" json:"publishAttempts"`
	NextAttemptAt    *time.Time        `gorm:"index;index:idx_outbox_dispatch,priority:2" json:"nextAttemptAt"`
	LockedAt         *time.Time        `gorm:"index" json:"lockedAt"`
	LockedBy         *string           `gorm:"size:100" json:"lockedBy"`
	LastPublishError *string           `gorm:"type:text" json:"lastPublishError"`
	LastProcessError *string           `gorm:"type:text" json:"lastProcessError"`
	ProcessingStatus string            `gorm:"size:20;index;not null;default:'PENDING'" json:"processingStatus"`
	ProcessAttempts  int               `gorm:"not null;default:0" json:"processAttempts"`
	NextProcessAt    *time.Time        `gorm:"index" json:"nextProcessAt"`
	ProcessedAt      *time.Time        `gorm:"index" json:"processedAt"`
	CorrelationId    string            `gorm:"size:64;index" json:"correlationId"`
	CreatedAt        time.Time         `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime" json:"updatedAt"`
}

// writeRecipeEvent stores the outbox row inside tx. It does not publish.
func writeRecipeEvent(ctx context.Context, tx *gorm.DB, userId string, refId int, action RecipeEventAction, obj interface{}, oldObj interface{}) error {
	var newBytes, oldBytes []byte
	var err error

	if obj != nil && (action == RecipeEventCreate || action == RecipeEventUpdate) {
		if newBytes, err = json.Marshal(obj); err != nil {
			return err
		}
	}
	if oldObj != nil && (action == RecipeEventUpdate || action == RecipeEventDelete) {
		if oldBytes, err = json.Marshal(oldObj); err != nil {
			return err
		}
	}

	record := RecipeEventRecord{
		UserId:           userId,
		EventDateTime:    time.Now().UTC(),
		ReferenceId:      refId,
		ReferenceType:    ReferenceTypeRecipe,
		Action:           action,
		NewObj:           newBytes,
		OldObj:           oldBytes,
		PublishStatus:    OutboxPublishStatusPending,
		ProcessingStatus: OutboxProcessStatusPending,
		CorrelationId:    correlationIdFromContextOrNew(ctx),
	}
	return tx.Create(&record).Error
}

func correlationIdFromContextOrNew(ctx context.Context) string {
	if ctx != nil {
		if v, ok := utils.GetCorrelationIdFromContext(ctx); ok && v != "" {
			return v
		}
	}
	return uuid.NewString()
}

func ConvertToRecipeEventMessage(record RecipeEventRecord) config.RecipeEventMessage {
	return config.RecipeEventMessage{
		ID:            record.ID,
		UserId:        record.UserId,
		EventDateTime: record.EventDateTime,
		ReferenceId:   record.ReferenceId,
		ReferenceType: record.ReferenceType,
		Action:        string(record.Action),
		OldObj:        record.OldObj,
		NewObj:        record.NewObj,
		CorrelationId: record.CorrelationId,
	}
}

// CountOutboxByStatus summarizes the outbox for the admin stats page.
func CountOutboxByStatus(ctx context.Context) (map[string]int64, error) {
	type row struct {
		PublishStatus string
		Total         int64
	}
	var rows []row
	db := config.GetDB()
	err := db.WithContext(utils.SetSkipOwnerScopeInContext(ctx, true)).
		Model(&RecipeEventRecord{}).
		Select("publish_status, count(*) as total").
		Group("publish_status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.PublishStatus] = r.Total
	}
	return out, nil
}
