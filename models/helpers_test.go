package models_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/shopspring/decimal"
)

// setupTestDB installs a private in-memory database and returns a context
// authenticated as userId. Redis is disabled.
func setupTestDB(t *testing.T, userId string) context.Context {
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

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// carrotCake costs 7.65 in ingredients, 15 in labor and 0.765 in
// overhead, split over 8 servings at a 35% margin.
func carrotCake() costing.RecipeFormData {
	return costing.RecipeFormData{
		Title:    "Bolo de cenoura",
		Category: "bolos",
		Servings: 8,
		Ingredients: []costing.Ingredient{
			{Name: "farinha", Quantity: dec("300"), Unit: "g", CostPerUnit: dec("0.008")},
			{Name: "açúcar", Quantity: dec("200"), Unit: "g", CostPerUnit: dec("0.005")},
			{Name: "ovos", Quantity: dec("3"), Unit: "un", CostPerUnit: dec("0.75")},
			{Name: "cenoura", Quantity: dec("250"), Unit: "g", CostPerUnit: dec("0.004")},
			{Name: "óleo", Quantity: dec("50"), Unit: "ml", CostPerUnit: dec("0.02")},
		},
		Instructions:     []string{"Bata tudo", "Asse por 40 minutos"},
		PrepTime:         20,
		CookTime:         40,
		MarginPercentage: dec("35"),
		Tags:             []string{"festa"},
	}
}

func assertDecimal(t *testing.T, name string, got decimal.Decimal, want string, places int32) {
	t.Helper()
	if !got.Round(places).Equal(dec(want).Round(places)) {
		t.Fatalf("%s expected %s, got %s", name, want, got.String())
	}
}
