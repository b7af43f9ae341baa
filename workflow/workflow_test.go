package workflow_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/mmdatafocus/costbook_backend/workflow"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

func setup(t *testing.T, userId string) context.Context {
	t.Helper()
	conn, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	config.SetDB(conn)
	config.SetRedisDB(nil)
	models.MigrateTable()
	return utils.SetUserIdInContext(context.Background(), userId)
}

func createRecipe(t *testing.T, ctx context.Context) *models.Recipe {
	t.Helper()
	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: costing.RecipeFormData{
		Title:    "Pão de queijo",
		Category: "salgados",
		Servings: 10,
		Ingredients: []costing.Ingredient{
			{Name: "polvilho", Quantity: decimal.NewFromInt(500), Unit: "g", CostPerUnit: decimal.RequireFromString("0.01")},
		},
		PrepTime:         15,
		CookTime:         25,
		MarginPercentage: decimal.NewFromInt(40),
	}})
	if err != nil {
		t.Fatalf("create recipe: %v", err)
	}
	return recipe
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func loadEvent(t *testing.T, recipeId int) models.RecipeEventRecord {
	t.Helper()
	var rec models.RecipeEventRecord
	ctx := utils.SetSkipOwnerScopeInContext(context.Background(), true)
	if err := config.GetDB().WithContext(ctx).Where("reference_id = ?", recipeId).First(&rec).Error; err != nil {
		t.Fatalf("load event: %v", err)
	}
	return rec
}

func TestDispatchOncePublishes(t *testing.T) {
	ctx := setup(t, "user-1")
	recipe := createRecipe(t, ctx)

	var published []config.RecipeEventMessage
	d := workflow.NewOutboxDispatcher(config.GetDB(), quietLogger())
	d.Publish = func(ctx context.Context, msg config.RecipeEventMessage) (string, error) {
		published = append(published, msg)
		return "msg-1", nil
	}

	if sent := d.DispatchOnce(context.Background()); sent != 1 {
		t.Fatalf("sent expected 1, got %d", sent)
	}
	if len(published) != 1 || published[0].ReferenceId != recipe.ID || published[0].UserId != "user-1" || published[0].Action != "C" {
		t.Fatalf("published message mismatch: %+v", published)
	}
	rec := loadEvent(t, recipe.ID)
	if rec.PublishStatus != models.OutboxPublishStatusSent || rec.PubSubMessageId == nil || *rec.PubSubMessageId != "msg-1" {
		t.Fatalf("record expected SENT with msg-1, got %s %v", rec.PublishStatus, rec.PubSubMessageId)
	}
	if sent := d.DispatchOnce(context.Background()); sent != 0 {
		t.Fatalf("second dispatch expected 0, got %d", sent)
	}
}

func TestDispatchOnceFailureAndDead(t *testing.T) {
	ctx := setup(t, "user-1")
	recipe := createRecipe(t, ctx)

	d := workflow.NewOutboxDispatcher(config.GetDB(), quietLogger())
	d.MaxAttempts = 2
	d.InitialBackoff = 0
	d.Publish = func(ctx context.Context, msg config.RecipeEventMessage) (string, error) {
		return "", errors.New("broker down")
	}

	d.DispatchOnce(context.Background())
	rec := loadEvent(t, recipe.ID)
	if rec.PublishStatus != models.OutboxPublishStatusFailed || rec.PublishAttempts != 1 {
		t.Fatalf("after first failure expected FAILED/1, got %s/%d", rec.PublishStatus, rec.PublishAttempts)
	}
	if rec.LastPublishError == nil || *rec.LastPublishError != "broker down" {
		t.Fatalf("last publish error expected broker down, got %v", rec.LastPublishError)
	}

	d.DispatchOnce(context.Background())
	rec = loadEvent(t, recipe.ID)
	if rec.PublishStatus != models.OutboxPublishStatusDead || rec.PublishAttempts != 2 {
		t.Fatalf("after max attempts expected DEAD/2, got %s/%d", rec.PublishStatus, rec.PublishAttempts)
	}
}

func TestProcessRecipeEventIsIdempotent(t *testing.T) {
	ctx := setup(t, "user-1")
	recipe := createRecipe(t, ctx)
	msg := models.ConvertToRecipeEventMessage(loadEvent(t, recipe.ID))

	if err := workflow.ProcessRecipeEvent(context.Background(), quietLogger(), msg); err != nil {
		t.Fatalf("process: %v", err)
	}
	rec := loadEvent(t, recipe.ID)
	if !rec.IsProcessed || rec.ProcessingStatus != models.OutboxProcessStatusSucceeded {
		t.Fatalf("record expected processed/SUCCEEDED, got %v/%s", rec.IsProcessed, rec.ProcessingStatus)
	}

	if err := workflow.ProcessRecipeEvent(context.Background(), quietLogger(), msg); err != nil {
		t.Fatalf("redelivery expected no error, got %v", err)
	}
	var keys []models.IdempotencyKey
	if err := config.GetDB().Find(&keys).Error; err != nil {
		t.Fatalf("load keys: %v", err)
	}
	if len(keys) != 1 || keys[0].Status != models.IdempotencyStatusSucceeded {
		t.Fatalf("idempotency expected one SUCCEEDED key, got %+v", keys)
	}
}

func TestProcessRecipeEventRejectsInvalid(t *testing.T) {
	setup(t, "user-1")
	cases := []config.RecipeEventMessage{
		{ID: 0, UserId: "user-1", ReferenceType: models.ReferenceTypeRecipe},
		{ID: 1, UserId: "", ReferenceType: models.ReferenceTypeRecipe},
		{ID: 1, UserId: "user-1", ReferenceType: "invoices"},
	}
	for _, m := range cases {
		if err := workflow.ProcessRecipeEvent(context.Background(), quietLogger(), m); !errors.Is(err, workflow.ErrInvalidEvent) {
			t.Fatalf("message %+v expected ErrInvalidEvent, got %v", m, err)
		}
	}
}

func TestDirectProcessorDrainsOutbox(t *testing.T) {
	ctx := setup(t, "user-1")
	first := createRecipe(t, ctx)
	second := createRecipe(t, ctx)

	p := workflow.NewOutboxDirectProcessor(config.GetDB(), quietLogger())
	if done := p.ProcessOnce(context.Background()); done != 2 {
		t.Fatalf("processed expected 2, got %d", done)
	}
	for _, id := range []int{first.ID, second.ID} {
		if rec := loadEvent(t, id); !rec.IsProcessed {
			t.Fatalf("event for recipe %d expected processed", id)
		}
	}
	if done := p.ProcessOnce(context.Background()); done != 0 {
		t.Fatalf("second pass expected 0, got %d", done)
	}
}

func TestShouldRunDirectOutboxProcessor(t *testing.T) {
	t.Setenv("PUBSUB_PROJECT_ID", "")
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")
	t.Setenv("OUTBOX_DIRECT_PROCESSING", "")
	if !workflow.ShouldRunDirectOutboxProcessor() {
		t.Fatalf("expected direct processing without pubsub")
	}
	t.Setenv("OUTBOX_DIRECT_PROCESSING", "false")
	if workflow.ShouldRunDirectOutboxProcessor() {
		t.Fatalf("expected explicit false to win")
	}
}
