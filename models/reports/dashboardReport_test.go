package reports_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/models/reports"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func recipe(id int, category string, totalCost, profit, margin string, created time.Time) *models.Recipe {
	r := &models.Recipe{ID: id, Title: "r", Category: category, CreatedAt: created, IsActive: utils.NewTrue()}
	r.Costs.TotalCost = dec(totalCost)
	r.Pricing.Profit = dec(profit)
	r.Pricing.ProfitMargin = dec(margin)
	return r
}

func TestSummarizeRecipesEmpty(t *testing.T) {
	stats := reports.SummarizeRecipes(nil)
	if stats.TotalRecipes != 0 || !stats.AverageCost.IsZero() || !stats.AverageMargin.IsZero() {
		t.Fatalf("empty summary expected zeros")
	}
	if stats.MostProfitableRecipe != nil {
		t.Fatalf("empty summary expected no most profitable recipe")
	}
	if stats.Categories == nil || stats.RecentRecipes == nil || stats.TopRecipes == nil {
		t.Fatalf("empty summary expected empty lists, not nil")
	}
}

func TestSummarizeRecipesAverages(t *testing.T) {
	now := time.Now()
	recipes := []*models.Recipe{
		recipe(1, "bolos", "10", "1", "10", now.Add(-3*time.Hour)),
		recipe(2, "bolos", "20", "5", "20", now.Add(-2*time.Hour)),
		recipe(3, "doces", "30", "2", "60", now.Add(-1*time.Hour)),
	}
	recipes[1].IsFavorite = true
	recipes[2].IsActive = utils.NewFalse()

	stats := reports.SummarizeRecipes(recipes)
	if stats.TotalRecipes != 3 {
		t.Fatalf("totalRecipes expected 3, got %d", stats.TotalRecipes)
	}
	if !stats.AverageCost.Equal(dec("20")) {
		t.Fatalf("averageCost expected 20, got %s", stats.AverageCost)
	}
	if !stats.AverageMargin.Equal(dec("30")) {
		t.Fatalf("averageMargin expected 30, got %s", stats.AverageMargin)
	}
	if stats.MostProfitableRecipe == nil || stats.MostProfitableRecipe.ID != 2 {
		t.Fatalf("most profitable expected recipe 2")
	}
	if stats.TotalFavorites != 1 || stats.ActiveRecipes != 2 {
		t.Fatalf("expected 1 favorite and 2 active, got %d and %d", stats.TotalFavorites, stats.ActiveRecipes)
	}

	if len(stats.Categories) != 2 || stats.Categories[0].Category != "bolos" || stats.Categories[0].Count != 2 {
		t.Fatalf("unexpected categories %+v", stats.Categories)
	}
	if !stats.Categories[0].AverageCost.Equal(dec("15")) {
		t.Fatalf("bolos average expected 15, got %s", stats.Categories[0].AverageCost)
	}
	if stats.RecentRecipes[0].ID != 3 || stats.RecentRecipes[2].ID != 1 {
		t.Fatalf("recent recipes expected newest first")
	}
	if stats.TopRecipes[0].ID != 2 || stats.TopRecipes[1].ID != 3 {
		t.Fatalf("top recipes expected by profit")
	}
}

func TestSummarizeRecipesTieKeepsFirst(t *testing.T) {
	now := time.Now()
	recipes := []*models.Recipe{
		recipe(7, "bolos", "10", "3", "10", now),
		recipe(8, "bolos", "10", "3", "10", now),
	}
	stats := reports.SummarizeRecipes(recipes)
	if stats.MostProfitableRecipe.ID != 7 {
		t.Fatalf("tie expected first recipe 7, got %d", stats.MostProfitableRecipe.ID)
	}
	if stats.TopRecipes[0].ID != 7 {
		t.Fatalf("top list tie expected input order")
	}
}

func TestSummarizeRecipesCapsLists(t *testing.T) {
	now := time.Now()
	var recipes []*models.Recipe
	for i := 1; i <= 8; i++ {
		recipes = append(recipes, recipe(i, "bolos", "1", "1", "1", now.Add(time.Duration(i)*time.Minute)))
	}
	stats := reports.SummarizeRecipes(recipes)
	if len(stats.RecentRecipes) != 5 || len(stats.TopRecipes) != 5 {
		t.Fatalf("lists expected capped at 5, got %d and %d", len(stats.RecentRecipes), len(stats.TopRecipes))
	}
	if stats.RecentRecipes[0].ID != 8 {
		t.Fatalf("most recent expected 8, got %d", stats.RecentRecipes[0].ID)
	}
}

func TestGetDashboardStatsFromDatabase(t *testing.T) {
	conn, err := config.OpenSQLite("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, _ := conn.DB()
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	config.SetDB(conn)
	config.SetRedisDB(nil)
	models.MigrateTable()

	ctx := utils.SetUserIdInContext(context.Background(), "user-1")
	form := costing.RecipeFormData{
		Title:            "Brigadeiro",
		Category:         "doces",
		Servings:         10,
		Ingredients:      []costing.Ingredient{{Name: "leite condensado", Quantity: dec("1"), Unit: "un", CostPerUnit: dec("10")}},
		MarginPercentage: dec("50"),
	}
	if _, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: form}); err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}

	stats, err := reports.GetDashboardStats(ctx)
	if err != nil {
		t.Fatalf("GetDashboardStats: %v", err)
	}
	if stats.TotalRecipes != 1 {
		t.Fatalf("expected 1 recipe, got %d", stats.TotalRecipes)
	}
	// 10 ingredients + 1 overhead, no labor
	if !stats.AverageCost.Round(6).Equal(dec("11")) {
		t.Fatalf("averageCost expected 11, got %s", stats.AverageCost)
	}

	other := utils.SetUserIdInContext(context.Background(), "user-2")
	otherStats, err := reports.GetDashboardStats(other)
	if err != nil {
		t.Fatalf("GetDashboardStats user-2: %v", err)
	}
	if otherStats.TotalRecipes != 0 {
		t.Fatalf("user-2 expected an empty dashboard")
	}

	if _, err := reports.GetDashboardStats(context.Background()); err == nil {
		t.Fatalf("anonymous dashboard expected an error")
	}
}
