package workflow

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OutboxDirectProcessor consumes outbox rows in-process. It replaces the
// Pub/Sub round trip on deployments without a topic.
type OutboxDirectProcessor struct {
	DB        *gorm.DB
	Logger    *logrus.Logger
	WorkerID  string
	BatchSize int
	Interval  time.Duration
	LockTTL   time.Duration
}

func NewOutboxDirectProcessor(db *gorm.DB, logger *logrus.Logger) *OutboxDirectProcessor {
	return &OutboxDirectProcessor{
		DB:        db,
		Logger:    logger,
		WorkerID:  "direct-" + time.Now().Format("20060102-150405.000"),
		BatchSize: 50,
		Interval:  2 * time.Second,
		LockTTL:   30 * time.Second,
	}
}

// ShouldRunDirectOutboxProcessor honours OUTBOX_DIRECT_PROCESSING and
// otherwise runs only when Pub/Sub is not configured.
func ShouldRunDirectOutboxProcessor() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("OUTBOX_DIRECT_PROCESSING"))) {
	case "true":
		return true
	case "false":
		return false
	}
	return !config.PubSubConfigured()
}

func (p *OutboxDirectProcessor) Run(ctx context.Context) {
	if p == nil || p.DB == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.ProcessOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-time.After(p.Interval):
		}
	}
}

// ProcessOnce claims due rows and processes them. It returns how many
// succeeded.
func (p *OutboxDirectProcessor) ProcessOnce(ctx context.Context) int {
	now := time.Now().UTC()
	staleBefore := now.Add(-p.LockTTL)
	scoped := utils.SetSkipOwnerScopeInContext(ctx, true)

	var claimed []models.RecipeEventRecord
	err := p.DB.WithContext(scoped).Transaction(func(tx *gorm.DB) error {
		q := tx.
			Where("is_processed = ?", false).
			Where("processing_status IN ?", []string{models.OutboxProcessStatusPending, models.OutboxProcessStatusFailed, models.OutboxProcessStatusProcessing}).
			Where("(next_process_at IS NULL OR next_process_at <= ?)", now).
			Where("(locked_at IS NULL OR locked_at <= ?)", staleBefore).
			Order("id ASC").
			Limit(p.BatchSize).
			Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"})
		if err := q.Find(&claimed).Error; err != nil {
			return err
		}
		for i := range claimed {
			if err := tx.Model(&models.RecipeEventRecord{}).
				Where("id = ?", claimed[i].ID).
				Updates(map[string]interface{}{
					"locked_at": &now,
					"locked_by": &p.WorkerID,
				}).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		config.LogError(p.Logger, "OutboxDirectProcessor", "ProcessOnce", "claim batch", nil, err)
		return 0
	}

	done := 0
	for _, rec := range claimed {
		err := ProcessRecipeEvent(ctx, p.Logger, models.ConvertToRecipeEventMessage(rec))
		if errors.Is(err, ErrInvalidEvent) {
			// never processable; park it
			models.MarkOutboxProcessFailure(ctx, p.Logger, rec.ID, err)
		}
		if err != nil {
			_ = p.DB.WithContext(scoped).Model(&models.RecipeEventRecord{}).
				Where("id = ?", rec.ID).
				Updates(map[string]interface{}{"locked_at": nil, "locked_by": nil}).Error
			continue
		}
		done++
	}
	return done
}
