package models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// RecipeEventStatus is a client-facing view of the latest outbox row for a recipe.
type RecipeEventStatus struct {
	RecordId         int        `json:"recordId"`
	ReferenceId      int        `json:"referenceId"`
	Action           string     `json:"action"`
	PublishStatus    string     `json:"publishStatus"`
	ProcessingStatus string     `json:"processingStatus"`
	IsProcessed      bool       `json:"isProcessed"`
	PublishAttempts  int        `json:"publishAttempts"`
	ProcessAttempts  int        `json:"processAttempts"`
	NextAttemptAt    *time.Time `json:"nextAttemptAt"`
	NextProcessAt    *time.Time `json:"nextProcessAt"`
	LastPublishError *string    `json:"lastPublishError"`
	LastProcessError *string    `json:"lastProcessError"`
	CreatedAt        time.Time  `json:"createdAt"`
	PublishedAt      *time.Time `json:"publishedAt"`
	ProcessedAt      *time.Time `json:"processedAt"`
}

func GetRecipeEventStatus(ctx context.Context, recipeId int) (*RecipeEventStatus, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var rec RecipeEventRecord
	if err := db.WithContext(ctx).
		Where("user_id = ? AND reference_type = ? AND reference_id = ?", userId, ReferenceTypeRecipe, recipeId).
		Order("id DESC").
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}

	processing := rec.ProcessingStatus
	if rec.IsProcessed {
		processing = OutboxProcessStatusSucceeded
	} else if processing == "" {
		processing = OutboxProcessStatusPending
	}

	return &RecipeEventStatus{
		RecordId:         rec.ID,
		ReferenceId:      rec.ReferenceId,
		Action:           string(rec.Action),
		PublishStatus:    rec.PublishStatus,
		ProcessingStatus: processing,
		IsProcessed:      rec.IsProcessed,
		PublishAttempts:  rec.PublishAttempts,
		ProcessAttempts:  rec.ProcessAttempts,
		NextAttemptAt:    rec.NextAttemptAt,
		NextProcessAt:    rec.NextProcessAt,
		LastPublishError: rec.LastPublishError,
		LastProcessError: rec.LastProcessError,
		CreatedAt:        rec.CreatedAt,
		PublishedAt:      rec.PublishedAt,
		ProcessedAt:      rec.ProcessedAt,
	}, nil
}

// ReprocessRecipeEvents resets every unprocessed event of the recipe so
// the dispatcher and consumers pick it up again, DEAD rows included.
func ReprocessRecipeEvents(ctx context.Context, recipeId int) (*RecipeEventStatus, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	db := config.GetDB()
	res := db.WithContext(ctx).
		Model(&RecipeEventRecord{}).
		Where("user_id = ? AND reference_type = ? AND reference_id = ? AND is_processed = ?", userId, ReferenceTypeRecipe, recipeId, false).
		Updates(map[string]interface{}{
			"locked_at":          nil,
			"locked_by":          nil,
			"publish_status":     OutboxPublishStatusPending,
			"publish_attempts":   0,
			"next_attempt_at":    nil,
			"processing_status":  OutboxProcessStatusPending,
			"process_attempts":   0,
			"next_process_at":    &now,
			"last_process_error": nil,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, utils.ErrorRecordNotFound
	}

	return GetRecipeEventStatus(ctx, recipeId)
}

// ReplayOutboxRecord re-queues one FAILED or DEAD record of any user for
// publishing and processing.
func ReplayOutboxRecord(ctx context.Context, recordId int) (*RecipeEventRecord, error) {
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)
	db := config.GetDB()

	var rec RecipeEventRecord
	if err := db.WithContext(ctx).Where("id = ?", recordId).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	if rec.IsProcessed {
		return nil, fmt.Errorf("%w: record %d is already processed", utils.ErrInvalidInput, recordId)
	}

	now := time.Now().UTC()
	if err := db.WithContext(ctx).Model(&RecipeEventRecord{}).
		Where("id = ?", recordId).
		Updates(map[string]interface{}{
			"publish_status":     OutboxPublishStatusFailed,
			"publish_attempts":   0,
			"next_attempt_at":    &now,
			"locked_at":          nil,
			"locked_by":          nil,
			"last_publish_error": nil,
			"processing_status":  OutboxProcessStatusPending,
			"process_attempts":   0,
			"next_process_at":    &now,
		}).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Where("id = ?", recordId).First(&rec).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

type OutboxProcessRetryConfig struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

func GetOutboxProcessRetryConfig() OutboxProcessRetryConfig {
	return OutboxProcessRetryConfig{
		MaxAttempts: config.IntFromEnv("OUTBOX_PROCESS_MAX_ATTEMPTS", 10),
		BaseBackoff: time.Duration(config.IntFromEnv("OUTBOX_PROCESS_BASE_BACKOFF_SECONDS", 5)) * time.Second,
		MaxBackoff:  time.Duration(config.IntFromEnv("OUTBOX_PROCESS_MAX_BACKOFF_SECONDS", 600)) * time.Second,
	}
}

// Backoff is base * 2^(attempt-1), capped at MaxBackoff.
func (cfg OutboxProcessRetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 0 {
		return cfg.BaseBackoff
	}
	delay := time.Duration(float64(cfg.BaseBackoff) * math.Pow(2, float64(attempt-1)))
	if delay > cfg.MaxBackoff {
		return cfg.MaxBackoff
	}
	return delay
}

func MarkOutboxProcessing(ctx context.Context, id int) {
	if id <= 0 {
		return
	}
	db := config.GetDB()
	_ = db.WithContext(utils.SetSkipOwnerScopeInContext(ctx, true)).
		Model(&RecipeEventRecord{}).
		Where("id = ? AND processing_status <> ?", id, OutboxProcessStatusDead).
		Updates(map[string]interface{}{
			"processing_status": OutboxProcessStatusProcessing,
		}).Error
}

// MarkOutboxProcessFailure records a consumer failure and schedules the
// next attempt. It returns whether the record is now DEAD.
func MarkOutboxProcessFailure(ctx context.Context, logger *logrus.Logger, id int, err error) bool {
	if id <= 0 {
		return false
	}
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)

	cfg := GetOutboxProcessRetryConfig()
	now := time.Now().UTC()
	errMsg := ""
	if err != nil {
		errMsg = err.Error()
	}

	db := config.GetDB()
	var rec RecipeEventRecord
	if qerr := db.WithContext(ctx).
		Select("id, user_id, reference_id, process_attempts").
		Where("id = ?", id).
		First(&rec).Error; qerr != nil {
		_ = db.WithContext(ctx).Model(&RecipeEventRecord{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"last_process_error": &errMsg,
				"locked_at":          nil,
				"locked_by":          nil,
				"processing_status":  OutboxProcessStatusFailed,
			}).Error
		return false
	}

	attempts := rec.ProcessAttempts + 1
	status := OutboxProcessStatusFailed
	var nextProcessAt *time.Time
	if attempts >= cfg.MaxAttempts {
		status = OutboxProcessStatusDead
	} else {
		t := now.Add(cfg.Backoff(attempts))
		nextProcessAt = &t
	}

	_ = db.WithContext(ctx).Model(&RecipeEventRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"last_process_error": &errMsg,
			"process_attempts":   attempts,
			"next_process_at":    nextProcessAt,
			"processing_status":  status,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":             "OutboxProcessing",
			"user_id":           rec.UserId,
			"reference_id":      rec.ReferenceId,
			"record_id":         rec.ID,
			"processing_status": status,
			"process_attempts":  attempts,
		}).Error("outbox processing failed: " + errMsg)
	}
	return status == OutboxProcessStatusDead
}

func MarkOutboxProcessSuccess(ctx context.Context, logger *logrus.Logger, id int) {
	if id <= 0 {
		return
	}
	now := time.Now().UTC()
	db := config.GetDB()

	_ = db.WithContext(utils.SetSkipOwnerScopeInContext(ctx, true)).Model(&RecipeEventRecord{}).
		Where("id = ? AND processing_status <> ?", id, OutboxProcessStatusDead).
		Updates(map[string]interface{}{
			"is_processed":       true,
			"processing_status":  OutboxProcessStatusSucceeded,
			"processed_at":       &now,
			"next_process_at":    nil,
			"last_process_error": nil,
			"locked_at":          nil,
			"locked_by":          nil,
		}).Error

	if logger != nil {
		logger.WithFields(logrus.Fields{
			"field":             "OutboxProcessing",
			"record_id":         id,
			"processing_status": OutboxProcessStatusSucceeded,
		}).Info("outbox processed successfully")
	}
}
