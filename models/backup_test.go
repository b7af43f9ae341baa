package models_test

import (
	"errors"
	"testing"

	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
)

func TestExportImportRoundTrip(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	createCake(t, ctx)
	createCake(t, ctx)

	backup, err := models.ExportRecipes(ctx)
	if err != nil {
		t.Fatalf("ExportRecipes: %v", err)
	}
	if backup.Version != models.BackupVersion || backup.TotalRecipes != 2 || len(backup.Recipes) != 2 {
		t.Fatalf("unexpected backup header: version %s total %d", backup.Version, backup.TotalRecipes)
	}

	other := utils.SetUserIdInContext(ctx, "user-2")
	result, err := models.ImportRecipes(other, backup)
	if err != nil {
		t.Fatalf("ImportRecipes: %v", err)
	}
	if result.Imported != 2 || result.Skipped != 0 {
		t.Fatalf("expected 2 imported 0 skipped, got %d/%d", result.Imported, result.Skipped)
	}

	recipes, _ := models.GetUserRecipes(other, 0)
	if len(recipes) != 2 {
		t.Fatalf("user-2 expected 2 recipes, got %d", len(recipes))
	}
	for _, r := range recipes {
		if r.UserId != "user-2" {
			t.Fatalf("imported recipe owned by %q", r.UserId)
		}
		if len(r.Ingredients) != 5 {
			t.Fatalf("imported recipe expected 5 ingredients, got %d", len(r.Ingredients))
		}
	}
}

func TestImportRecomputesAndSkipsInvalid(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	tampered := &models.Recipe{Title: "Bolo de cenoura", Category: "bolos", Servings: 8}
	for i, ing := range carrotCake().Ingredients {
		tampered.Ingredients = append(tampered.Ingredients, models.RecipeIngredient{
			Position: i, Name: ing.Name, Quantity: ing.Quantity, Unit: ing.Unit, CostPerUnit: ing.CostPerUnit,
		})
	}
	tampered.PrepTime = 20
	tampered.CookTime = 40
	tampered.Pricing.MarginPercentage = dec("35")
	tampered.Costs.TotalCost = dec("999")

	invalid := &models.Recipe{Title: "", Category: "bolos", Servings: 1}
	invalid.Pricing.MarginPercentage = dec("20")

	result, err := models.ImportRecipes(ctx, &models.RecipeBackup{
		Version: "1.0",
		Recipes: []*models.Recipe{tampered, invalid, nil},
	})
	if err != nil {
		t.Fatalf("ImportRecipes: %v", err)
	}
	if result.Imported != 1 || result.Skipped != 2 {
		t.Fatalf("expected 1 imported 2 skipped, got %d/%d", result.Imported, result.Skipped)
	}
	if result.Errors[0].Index != 1 {
		t.Fatalf("first error expected index 1, got %d", result.Errors[0].Index)
	}
	want := []string{"Title is required", "At least one ingredient is required"}
	for i, msg := range want {
		if result.Errors[0].Errors[i] != msg {
			t.Fatalf("error %d expected %q, got %q", i, msg, result.Errors[0].Errors[i])
		}
	}

	recipes, _ := models.GetUserRecipes(ctx, 0)
	if len(recipes) != 1 {
		t.Fatalf("expected 1 stored recipe, got %d", len(recipes))
	}
	assertDecimal(t, "totalCost", recipes[0].Costs.TotalCost, "23.415", 6)
}

func TestImportRejectsUnknownVersion(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	_, err := models.ImportRecipes(ctx, &models.RecipeBackup{Version: "2.0"})
	if !errors.Is(err, utils.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	var validationErr *costing.ValidationError
	if errors.As(err, &validationErr) {
		t.Fatalf("version error must not be a recipe validation error")
	}
}

func TestExportEmpty(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	backup, err := models.ExportRecipes(ctx)
	if err != nil {
		t.Fatalf("ExportRecipes: %v", err)
	}
	if backup.Recipes == nil || backup.TotalRecipes != 0 {
		t.Fatalf("empty export expected an empty list")
	}
}
