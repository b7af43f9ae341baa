package workflow

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/models/reports"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const dashboardRefreshHandler = "DashboardRefresh"

// ErrInvalidEvent marks a message that can never be processed. Consumers
// ack it instead of asking for redelivery.
var ErrInvalidEvent = errors.New("invalid recipe event")

// ProcessRecipeEvent refreshes the owner's cached dashboard for one
// recipe event. Redelivery of an already processed event is a no-op.
func ProcessRecipeEvent(ctx context.Context, logger *logrus.Logger, m config.RecipeEventMessage) error {
	if m.ID <= 0 || m.UserId == "" || m.ReferenceType != models.ReferenceTypeRecipe {
		return ErrInvalidEvent
	}
	ctx = utils.SetUserIdInContext(ctx, m.UserId)
	if m.CorrelationId != "" {
		ctx = utils.SetCorrelationIdInContext(ctx, m.CorrelationId)
	}
	messageId := strconv.Itoa(m.ID)
	db := config.GetDB()

	err := utils.WithLock(ctx, "DashboardRefresh", m.UserId, 30*time.Second, "RecipeEventWorkflow", "ProcessRecipeEvent", func() error {
		var skip bool
		if err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var err error
			skip, err = BeginIdempotency(tx, m.UserId, dashboardRefreshHandler, messageId)
			return err
		}); err != nil {
			return err
		}
		if skip {
			return nil
		}

		models.MarkOutboxProcessing(ctx, m.ID)
		if _, err := reports.RefreshDashboardStats(ctx, m.UserId); err != nil {
			_ = MarkIdempotencyFailed(db.WithContext(ctx), m.UserId, dashboardRefreshHandler, messageId, err)
			return err
		}
		return MarkIdempotencySucceeded(db.WithContext(ctx), m.UserId, dashboardRefreshHandler, messageId)
	})
	if err != nil {
		if !errors.Is(err, ErrIdempotencyInProgress) && !errors.Is(err, utils.ErrLockBusy) {
			models.MarkOutboxProcessFailure(ctx, logger, m.ID, err)
		}
		return err
	}
	models.MarkOutboxProcessSuccess(ctx, logger, m.ID)
	return nil
}
