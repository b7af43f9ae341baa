package models_test

import (
	"context"
	"errors"
	"testing"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
)

func createCake(t *testing.T, ctx context.Context) *models.Recipe {
	t.Helper()
	recipe, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: carrotCake()})
	if err != nil {
		t.Fatalf("CreateRecipe: %v", err)
	}
	return recipe
}

func countEvents(t *testing.T, recipeId int) int64 {
	t.Helper()
	var count int64
	err := config.GetDB().Model(&models.RecipeEventRecord{}).
		Where("reference_id = ?", recipeId).
		Count(&count).Error
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return count
}

func TestCreateRecipeComputesAndPersists(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	created := createCake(t, ctx)
	if created.ID == 0 {
		t.Fatalf("CreateRecipe expected an id")
	}
	if created.UserId != "user-1" {
		t.Fatalf("CreateRecipe expected owner user-1, got %q", created.UserId)
	}

	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	assertDecimal(t, "totalIngredientsCost", got.Costs.TotalIngredientsCost, "7.65", 6)
	assertDecimal(t, "laborCost", got.Costs.LaborCost, "15", 6)
	assertDecimal(t, "overheadCost", got.Costs.OverheadCost, "0.765", 6)
	assertDecimal(t, "totalCost", got.Costs.TotalCost, "23.415", 6)
	assertDecimal(t, "costPerServing", got.Costs.CostPerServing, "2.926875", 6)
	assertDecimal(t, "suggestedPrice", got.Pricing.SuggestedPrice, "4.5029", 4)
	assertDecimal(t, "profitMargin", got.Pricing.ProfitMargin, "53.85", 2)

	if len(got.Ingredients) != 5 {
		t.Fatalf("expected 5 ingredients, got %d", len(got.Ingredients))
	}
	if got.Ingredients[0].Name != "farinha" || got.Ingredients[4].Name != "óleo" {
		t.Fatalf("ingredient order not kept: %q ... %q", got.Ingredients[0].Name, got.Ingredients[4].Name)
	}
	if len(got.Instructions) != 2 || got.Instructions[1] != "Asse por 40 minutos" {
		t.Fatalf("instructions not kept: %v", got.Instructions)
	}
	if !utils.DereferencePtr(got.IsActive, false) {
		t.Fatalf("new recipe expected active")
	}
	if n := countEvents(t, created.ID); n != 1 {
		t.Fatalf("expected 1 outbox event, got %d", n)
	}
}

func TestCreateRecipeRejectsInvalidForm(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	form := carrotCake()
	form.Title = "  "
	form.Servings = 0
	form.MarginPercentage = dec("100")

	_, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: form})
	var validationErr *costing.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("CreateRecipe expected *costing.ValidationError, got %v", err)
	}
	want := []string{"Title is required", "Servings must be greater than 0", "Margin must be between 0 and 100"}
	if len(validationErr.Errors) != len(want) {
		t.Fatalf("expected %v, got %v", want, validationErr.Errors)
	}
	for i := range want {
		if validationErr.Errors[i] != want[i] {
			t.Fatalf("error %d expected %q, got %q", i, want[i], validationErr.Errors[i])
		}
	}

	recipes, err := models.GetUserRecipes(ctx, 0)
	if err != nil {
		t.Fatalf("GetUserRecipes: %v", err)
	}
	if len(recipes) != 0 {
		t.Fatalf("invalid recipe must not be stored, found %d", len(recipes))
	}
}

func TestCreateRecipeRequiresUser(t *testing.T) {
	setupTestDB(t, "user-1")

	_, err := models.CreateRecipe(context.Background(), &models.NewRecipe{RecipeFormData: carrotCake()})
	if !errors.Is(err, utils.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRecipeIsolatedBetweenUsers(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	other := utils.SetUserIdInContext(context.Background(), "user-2")
	if _, err := models.GetRecipe(other, created.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetRecipe by another user expected not found, got %v", err)
	}
	title := "Hijacked"
	if _, err := models.UpdateRecipe(other, created.ID, &models.RecipePatch{Title: &title}); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("UpdateRecipe by another user expected not found, got %v", err)
	}
	if _, err := models.DeleteRecipe(other, created.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("DeleteRecipe by another user expected not found, got %v", err)
	}
	recipes, err := models.GetUserRecipes(other, 0)
	if err != nil {
		t.Fatalf("GetUserRecipes: %v", err)
	}
	if len(recipes) != 0 {
		t.Fatalf("user-2 expected no recipes, got %d", len(recipes))
	}
}

func TestUpdateRecipeRecomputes(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	servings := 4
	updated, err := models.UpdateRecipe(ctx, created.ID, &models.RecipePatch{Servings: &servings})
	if err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	if updated.Title != "Bolo de cenoura" {
		t.Fatalf("untouched title changed to %q", updated.Title)
	}
	assertDecimal(t, "totalCost", updated.Costs.TotalCost, "23.415", 6)
	assertDecimal(t, "costPerServing", updated.Costs.CostPerServing, "5.85375", 6)

	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if got.Servings != 4 {
		t.Fatalf("servings expected 4, got %d", got.Servings)
	}
	assertDecimal(t, "stored costPerServing", got.Costs.CostPerServing, "5.85375", 6)
	if len(got.Ingredients) != 5 {
		t.Fatalf("ingredients expected 5 after update, got %d", len(got.Ingredients))
	}
	if n := countEvents(t, created.ID); n != 2 {
		t.Fatalf("expected 2 outbox events, got %d", n)
	}

	histories, err := models.GetHistories(ctx, models.ReferenceTypeRecipe, created.ID, 0)
	if err != nil {
		t.Fatalf("GetHistories: %v", err)
	}
	if len(histories) != 2 || histories[0].ActionType != models.HistoryActionUpdate {
		t.Fatalf("expected update then create history, got %d rows", len(histories))
	}
}

func TestUpdateRecipeReplacesIngredients(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	ingredients := []costing.Ingredient{
		{Name: "chocolate", Quantity: dec("2"), Unit: "un", CostPerUnit: dec("5")},
	}
	updated, err := models.UpdateRecipe(ctx, created.ID, &models.RecipePatch{Ingredients: &ingredients})
	if err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	assertDecimal(t, "totalIngredientsCost", updated.Costs.TotalIngredientsCost, "10", 6)
	assertDecimal(t, "overheadCost", updated.Costs.OverheadCost, "1", 6)

	var count int64
	config.GetDB().Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 stored ingredient, got %d", count)
	}
}

func TestUpdateRecipeRejectsInvalidPatch(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	margin := dec("150")
	_, err := models.UpdateRecipe(ctx, created.ID, &models.RecipePatch{MarginPercentage: &margin})
	var validationErr *costing.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error, got %v", err)
	}

	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	assertDecimal(t, "marginPercentage", got.Pricing.MarginPercentage, "35", 6)
	if n := countEvents(t, created.ID); n != 1 {
		t.Fatalf("rejected update must not write events, got %d", n)
	}
}

func TestDeleteRecipe(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	deleted, err := models.DeleteRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("DeleteRecipe: %v", err)
	}
	if deleted.Title != created.Title {
		t.Fatalf("DeleteRecipe expected the deleted recipe back, got %q", deleted.Title)
	}
	if _, err := models.GetRecipe(ctx, created.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("GetRecipe after delete expected not found, got %v", err)
	}
	var count int64
	config.GetDB().Model(&models.RecipeIngredient{}).Where("recipe_id = ?", created.ID).Count(&count)
	if count != 0 {
		t.Fatalf("ingredients expected removed, %d left", count)
	}
	if _, err := models.DeleteRecipe(ctx, created.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("second DeleteRecipe expected not found, got %v", err)
	}
}

func TestGetUserRecipesNewestFirstAndLimit(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	titles := []string{"Primeiro", "Segundo", "Terceiro"}
	for _, title := range titles {
		form := carrotCake()
		form.Title = title
		if _, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: form}); err != nil {
			t.Fatalf("CreateRecipe(%q): %v", title, err)
		}
	}

	all, err := models.GetUserRecipes(ctx, 0)
	if err != nil {
		t.Fatalf("GetUserRecipes: %v", err)
	}
	if len(all) != 3 || all[0].Title != "Terceiro" || all[2].Title != "Primeiro" {
		t.Fatalf("expected newest first, got %d recipes", len(all))
	}

	limited, err := models.GetUserRecipes(ctx, 2)
	if err != nil {
		t.Fatalf("GetUserRecipes(2): %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("limit 2 expected 2 recipes, got %d", len(limited))
	}
}

func TestPaginateRecipes(t *testing.T) {
	ctx := setupTestDB(t, "user-1")

	for _, title := range []string{"Brigadeiro", "Coxinha", "Bolo de fubá"} {
		form := carrotCake()
		form.Title = title
		if title == "Coxinha" {
			form.Category = "salgados"
		}
		if _, err := models.CreateRecipe(ctx, &models.NewRecipe{RecipeFormData: form}); err != nil {
			t.Fatalf("CreateRecipe(%q): %v", title, err)
		}
	}

	page, err := models.PaginateRecipes(ctx, models.RecipeFilter{Limit: 2, SortBy: "title"})
	if err != nil {
		t.Fatalf("PaginateRecipes: %v", err)
	}
	if len(page.Edges) != 2 || page.Edges[0].Node.Title != "Bolo de fubá" || page.Edges[1].Node.Title != "Brigadeiro" {
		t.Fatalf("unexpected first page")
	}
	if !*page.PageInfo.HasNextPage {
		t.Fatalf("first page expected hasNextPage")
	}

	next, err := models.PaginateRecipes(ctx, models.RecipeFilter{Limit: 2, SortBy: "title", After: &page.PageInfo.EndCursor})
	if err != nil {
		t.Fatalf("PaginateRecipes next: %v", err)
	}
	if len(next.Edges) != 1 || next.Edges[0].Node.Title != "Coxinha" {
		t.Fatalf("unexpected second page")
	}
	if *next.PageInfo.HasNextPage {
		t.Fatalf("last page expected no next page")
	}

	salgados, err := models.PaginateRecipes(ctx, models.RecipeFilter{Category: "Salgados"})
	if err != nil {
		t.Fatalf("PaginateRecipes category: %v", err)
	}
	if len(salgados.Edges) != 1 {
		t.Fatalf("category filter expected 1 recipe, got %d", len(salgados.Edges))
	}

	search, err := models.PaginateRecipes(ctx, models.RecipeFilter{Search: "BOLO"})
	if err != nil {
		t.Fatalf("PaginateRecipes search: %v", err)
	}
	if len(search.Edges) != 1 || search.Edges[0].Node.Title != "Bolo de fubá" {
		t.Fatalf("search expected Bolo de fubá")
	}

	bad := "not-a-cursor"
	if _, err := models.PaginateRecipes(ctx, models.RecipeFilter{SortBy: "title", After: &bad}); !errors.Is(err, utils.ErrInvalidInput) {
		t.Fatalf("malformed cursor expected ErrInvalidInput, got %v", err)
	}
}

func TestToggleFavoriteKeepsCosts(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	toggled, err := models.ToggleFavoriteRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("ToggleFavoriteRecipe: %v", err)
	}
	if !toggled.IsFavorite {
		t.Fatalf("expected favorite after first toggle")
	}
	assertDecimal(t, "totalCost", toggled.Costs.TotalCost, "23.415", 6)

	favorites, err := models.PaginateRecipes(ctx, models.RecipeFilter{Favorite: utils.NewTrue()})
	if err != nil {
		t.Fatalf("PaginateRecipes: %v", err)
	}
	if len(favorites.Edges) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(favorites.Edges))
	}

	deactivated, err := models.ToggleActiveRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("ToggleActiveRecipe: %v", err)
	}
	if utils.DereferencePtr(deactivated.IsActive, true) {
		t.Fatalf("expected inactive after toggle")
	}
	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if !got.IsFavorite || utils.DereferencePtr(got.IsActive, true) {
		t.Fatalf("stored flags not updated")
	}
}

func TestDuplicateRecipe(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	copied, err := models.DuplicateRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("DuplicateRecipe: %v", err)
	}
	if copied.ID == created.ID {
		t.Fatalf("duplicate expected a new id")
	}
	if copied.Title != "Bolo de cenoura (copy)" {
		t.Fatalf("duplicate title expected %q, got %q", "Bolo de cenoura (copy)", copied.Title)
	}
	assertDecimal(t, "totalCost", copied.Costs.TotalCost, "23.415", 6)
	if len(copied.Ingredients) != 5 {
		t.Fatalf("duplicate expected 5 ingredients, got %d", len(copied.Ingredients))
	}
}

func TestSetRecipeImage(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	if _, err := models.SetRecipeImage(ctx, created.ID, "https://cdn/x.jpg", "https://cdn/x_thumb.jpg"); err != nil {
		t.Fatalf("SetRecipeImage: %v", err)
	}
	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	if got.ImageUrl != "https://cdn/x.jpg" || got.ThumbnailUrl != "https://cdn/x_thumb.jpg" {
		t.Fatalf("image urls not stored: %q %q", got.ImageUrl, got.ThumbnailUrl)
	}

	servings := 2
	if _, err := models.UpdateRecipe(ctx, created.ID, &models.RecipePatch{Servings: &servings}); err != nil {
		t.Fatalf("UpdateRecipe: %v", err)
	}
	got, _ = models.GetRecipe(ctx, created.ID)
	if got.ImageUrl != "https://cdn/x.jpg" {
		t.Fatalf("update must keep the image, got %q", got.ImageUrl)
	}
}

func TestRecomputeAllRecipes(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)
	createCake(t, ctx)

	err := config.GetDB().Model(&models.Recipe{}).
		Where("id = ?", created.ID).
		UpdateColumns(map[string]interface{}{"cost_total_cost": 0, "pricing_suggested_price": 0}).Error
	if err != nil {
		t.Fatalf("tamper: %v", err)
	}

	changed, err := models.RecomputeAllRecipes(context.Background(), true)
	if err != nil {
		t.Fatalf("RecomputeAllRecipes dry run: %v", err)
	}
	if changed != 1 {
		t.Fatalf("dry run expected 1 change, got %d", changed)
	}

	changed, err = models.RecomputeAllRecipes(context.Background(), false)
	if err != nil {
		t.Fatalf("RecomputeAllRecipes: %v", err)
	}
	if changed != 1 {
		t.Fatalf("expected 1 change, got %d", changed)
	}
	got, err := models.GetRecipe(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipe: %v", err)
	}
	assertDecimal(t, "totalCost", got.Costs.TotalCost, "23.415", 6)
	assertDecimal(t, "suggestedPrice", got.Pricing.SuggestedPrice, "4.5029", 4)

	changed, _ = models.RecomputeAllRecipes(context.Background(), false)
	if changed != 0 {
		t.Fatalf("second run expected no changes, got %d", changed)
	}
}

func TestRecipeEventStatusAndReprocess(t *testing.T) {
	ctx := setupTestDB(t, "user-1")
	created := createCake(t, ctx)

	status, err := models.GetRecipeEventStatus(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRecipeEventStatus: %v", err)
	}
	if status.PublishStatus != models.OutboxPublishStatusPending || status.ProcessingStatus != models.OutboxProcessStatusPending {
		t.Fatalf("new event expected PENDING/PENDING, got %s/%s", status.PublishStatus, status.ProcessingStatus)
	}

	models.MarkOutboxProcessFailure(ctx, nil, status.RecordId, errors.New("boom"))
	status, _ = models.GetRecipeEventStatus(ctx, created.ID)
	if status.ProcessingStatus != models.OutboxProcessStatusFailed || status.ProcessAttempts != 1 {
		t.Fatalf("expected FAILED after 1 attempt, got %s after %d", status.ProcessingStatus, status.ProcessAttempts)
	}

	status, err = models.ReprocessRecipeEvents(ctx, created.ID)
	if err != nil {
		t.Fatalf("ReprocessRecipeEvents: %v", err)
	}
	if status.ProcessingStatus != models.OutboxProcessStatusPending || status.LastProcessError != nil {
		t.Fatalf("reprocess expected PENDING with no error, got %s", status.ProcessingStatus)
	}

	models.MarkOutboxProcessSuccess(ctx, nil, status.RecordId)
	status, _ = models.GetRecipeEventStatus(ctx, created.ID)
	if !status.IsProcessed || status.ProcessingStatus != models.OutboxProcessStatusSucceeded {
		t.Fatalf("expected SUCCEEDED")
	}
	if _, err := models.ReprocessRecipeEvents(ctx, created.ID); !errors.Is(err, utils.ErrorRecordNotFound) {
		t.Fatalf("reprocess of processed events expected not found, got %v", err)
	}
}
