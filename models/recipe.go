package models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("github.com/mmdatafocus/costbook_backend/models")

type Recipe struct {
	ID                 int                         `gorm:"primary_key" json:"id"`
	UserId             string                      `gorm:"size:36;index;not null" json:"userId"`
	Title              string                      `gorm:"size:255;not null;index" json:"title"`
	Description        string                      `gorm:"type:text" json:"description"`
	Category           string                      `gorm:"size:50;index" json:"category"`
	Servings           int                         `gorm:"not null" json:"servings"`
	Ingredients        []RecipeIngredient          `gorm:"foreignKey:RecipeId" json:"ingredients"`
	Instructions       datatypes.JSONSlice[string] `json:"instructions"`
	Tags               datatypes.JSONSlice[string] `json:"tags"`
	PrepTime           int                         `gorm:"not null;default:0" json:"prepTime"`
	CookTime           int                         `gorm:"not null;default:0" json:"cookTime"`
	LaborCostPerHour   *decimal.Decimal            `gorm:"type:decimal(20,6)" json:"laborCostPerHour,omitempty"`
	OverheadPercentage *decimal.Decimal            `gorm:"type:decimal(20,6)" json:"overheadPercentage,omitempty"`
	Costs              costing.CostBreakdown       `gorm:"embedded;embeddedPrefix:cost_" json:"costs"`
	Pricing            costing.PricingBreakdown    `gorm:"embedded;embeddedPrefix:pricing_" json:"pricing"`
	ImageUrl           string                      `gorm:"size:512" json:"imageUrl,omitempty"`
	ThumbnailUrl       string                      `gorm:"size:512" json:"thumbnailUrl,omitempty"`
	IsActive           *bool                       `gorm:"not null;default:true" json:"isActive"`
	IsFavorite         bool                        `gorm:"not null;default:false" json:"isFavorite"`
	CreatedAt          time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

type RecipeIngredient struct {
	ID          int             `gorm:"primary_key" json:"id"`
	RecipeId    int             `gorm:"index;not null" json:"-"`
	Position    int             `gorm:"not null" json:"-"`
	Name        string          `gorm:"size:255;not null" json:"name"`
	Quantity    decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"quantity"`
	Unit        string          `gorm:"size:30" json:"unit"`
	CostPerUnit decimal.Decimal `gorm:"type:decimal(20,6);not null" json:"costPerUnit"`
	Supplier    string          `gorm:"size:255" json:"supplier,omitempty"`
	Notes       string          `gorm:"type:text" json:"notes,omitempty"`
}

type NewRecipe struct {
	costing.RecipeFormData
	IsFavorite bool `json:"isFavorite"`
}

// RecipePatch carries the fields to change. Nil fields keep their value.
type RecipePatch struct {
	Title              *string               `json:"title"`
	Description        *string               `json:"description"`
	Category           *string               `json:"category"`
	Servings           *int                  `json:"servings"`
	Ingredients        *[]costing.Ingredient `json:"ingredients"`
	Instructions       *[]string             `json:"instructions"`
	PrepTime           *int                  `json:"prepTime"`
	CookTime           *int                  `json:"cookTime"`
	MarginPercentage   *decimal.Decimal      `json:"marginPercentage"`
	LaborCostPerHour   *decimal.Decimal      `json:"laborCostPerHour"`
	OverheadPercentage *decimal.Decimal      `json:"overheadPercentage"`
	Tags               *[]string             `json:"tags"`
	IsFavorite         *bool                 `json:"isFavorite"`
	IsActive           *bool                 `json:"isActive"`
}

// RecipeFilter narrows PaginateRecipes. SortBy is "newest" (default) or "title".
type RecipeFilter struct {
	Limit    int
	After    *string
	Search   string
	Category string
	Favorite *bool
	Active   *bool
	SortBy   string
}

type RecipesConnection struct {
	Edges    []*RecipesEdge `json:"edges"`
	PageInfo *PageInfo      `json:"pageInfo"`
}

type RecipesEdge Edge[Recipe]

func (r Recipe) GetId() int {
	return r.ID
}

func (r Recipe) GetCursor() string {
	return r.Title
}

/*
caches:
	Recipe:$id
	DashboardStats:$userId
*/

func DashboardCacheKey(userId string) string {
	return "DashboardStats:" + userId
}

// FormData rebuilds the editable input the recipe was computed from.
func (r Recipe) FormData() costing.RecipeFormData {
	ingredients := make([]costing.Ingredient, len(r.Ingredients))
	for i, ing := range r.Ingredients {
		ingredients[i] = costing.Ingredient{
			Name:        ing.Name,
			Quantity:    ing.Quantity,
			Unit:        ing.Unit,
			CostPerUnit: ing.CostPerUnit,
			Supplier:    ing.Supplier,
			Notes:       ing.Notes,
		}
	}
	return costing.RecipeFormData{
		Title:              r.Title,
		Description:        r.Description,
		Category:           r.Category,
		Servings:           r.Servings,
		Ingredients:        ingredients,
		Instructions:       append([]string(nil), r.Instructions...),
		PrepTime:           r.PrepTime,
		CookTime:           r.CookTime,
		MarginPercentage:   r.Pricing.MarginPercentage,
		LaborCostPerHour:   r.LaborCostPerHour,
		OverheadPercentage: r.OverheadPercentage,
		Tags:               append([]string(nil), r.Tags...),
	}
}

// applyForm copies form onto r and recomputes cost and pricing together.
func (r *Recipe) applyForm(form costing.RecipeFormData) {
	breakdown := costing.Compute(form)

	r.Title = strings.TrimSpace(form.Title)
	r.Description = form.Description
	r.Category = strings.ToLower(strings.TrimSpace(form.Category))
	r.Servings = form.Servings
	r.Instructions = datatypes.JSONSlice[string](nonNil(form.Instructions))
	r.Tags = datatypes.JSONSlice[string](nonNil(form.Tags))
	r.PrepTime = form.PrepTime
	r.CookTime = form.CookTime
	r.LaborCostPerHour = form.LaborCostPerHour
	r.OverheadPercentage = form.OverheadPercentage
	r.Costs = breakdown.Costs
	r.Pricing = breakdown.Pricing

	r.Ingredients = make([]RecipeIngredient, len(form.Ingredients))
	for i, ing := range form.Ingredients {
		r.Ingredients[i] = RecipeIngredient{
			RecipeId:    r.ID,
			Position:    i,
			Name:        strings.TrimSpace(ing.Name),
			Quantity:    ing.Quantity,
			Unit:        ing.Unit,
			CostPerUnit: ing.CostPerUnit,
			Supplier:    ing.Supplier,
			Notes:       ing.Notes,
		}
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// Apply merges the patch onto form.
func (p *RecipePatch) Apply(form *costing.RecipeFormData) {
	if p.Title != nil {
		form.Title = *p.Title
	}
	if p.Description != nil {
		form.Description = *p.Description
	}
	if p.Category != nil {
		form.Category = *p.Category
	}
	if p.Servings != nil {
		form.Servings = *p.Servings
	}
	if p.Ingredients != nil {
		form.Ingredients = *p.Ingredients
	}
	if p.Instructions != nil {
		form.Instructions = *p.Instructions
	}
	if p.PrepTime != nil {
		form.PrepTime = *p.PrepTime
	}
	if p.CookTime != nil {
		form.CookTime = *p.CookTime
	}
	if p.MarginPercentage != nil {
		form.MarginPercentage = *p.MarginPercentage
	}
	if p.LaborCostPerHour != nil {
		form.LaborCostPerHour = p.LaborCostPerHour
	}
	if p.OverheadPercentage != nil {
		form.OverheadPercentage = p.OverheadPercentage
	}
	if p.Tags != nil {
		form.Tags = *p.Tags
	}
}

func orderedIngredients(db *gorm.DB) *gorm.DB {
	return db.Order("position, id")
}

func loadRecipe(ctx context.Context, db *gorm.DB, userId string, id int) (*Recipe, error) {
	var result Recipe
	err := db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userId).
		First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}

// invalidateRecipe drops the cached recipe and the owner's dashboard.
func invalidateRecipe(userId string, id int) {
	logger := config.GetLogger()
	if err := utils.RemoveRedisItem[Recipe](id); err != nil {
		config.LogError(logger, "Recipe", "invalidateRecipe", "remove recipe cache", id, err)
	}
	if err := config.RemoveRedisKey(DashboardCacheKey(userId)); err != nil {
		config.LogError(logger, "Recipe", "invalidateRecipe", "remove dashboard cache", userId, err)
	}
}

// createRecipeTx validates, computes and inserts form inside tx, with its
// history row and outbox event.
func createRecipeTx(ctx context.Context, tx *gorm.DB, userId string, form costing.RecipeFormData, isFavorite bool) (*Recipe, error) {
	if err := costing.Validate(form).Err(); err != nil {
		return nil, err
	}

	recipe := Recipe{
		UserId:     userId,
		IsActive:   utils.NewTrue(),
		IsFavorite: isFavorite,
	}
	recipe.applyForm(form)

	if err := tx.Create(&recipe).Error; err != nil {
		return nil, err
	}
	if err := SaveHistoryCreate(tx, ReferenceTypeRecipe, recipe.ID, &recipe, "Created recipe "+recipe.Title); err != nil {
		return nil, err
	}
	if err := writeRecipeEvent(ctx, tx, userId, recipe.ID, RecipeEventCreate, &recipe, nil); err != nil {
		return nil, err
	}
	return &recipe, nil
}

func CreateRecipe(ctx context.Context, input *NewRecipe) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "CreateRecipe")
	defer span.End()

	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	recipe, err := createRecipeTx(ctx, tx, userId, input.RecipeFormData, input.IsFavorite)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	span.SetAttributes(attribute.Int("recipe.id", recipe.ID))
	invalidateRecipe(userId, recipe.ID)
	return recipe, nil
}

func GetRecipe(ctx context.Context, id int) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	cached, err := utils.RetrieveRedis[Recipe](id)
	if err != nil {
		config.LogError(config.GetLogger(), "Recipe", "GetRecipe", "read cache", id, err)
	}
	if cached != nil {
		if cached.UserId != userId {
			return nil, utils.ErrorRecordNotFound
		}
		return cached, nil
	}

	recipe, err := loadRecipe(ctx, config.GetDB(), userId, id)
	if err != nil {
		return nil, err
	}
	if err := utils.StoreRedis(recipe, id); err != nil {
		config.LogError(config.GetLogger(), "Recipe", "GetRecipe", "write cache", id, err)
	}
	return recipe, nil
}

// UpdateRecipe merges patch onto the stored recipe, re-validates and
// recomputes cost and pricing as a pair. Ingredients are replaced.
func UpdateRecipe(ctx context.Context, id int, patch *RecipePatch) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "UpdateRecipe")
	defer span.End()
	span.SetAttributes(attribute.Int("recipe.id", id))

	db := config.GetDB()
	old, err := loadRecipe(ctx, db, userId, id)
	if err != nil {
		return nil, err
	}

	form := old.FormData()
	patch.Apply(&form)
	if err := costing.Validate(form).Err(); err != nil {
		return nil, err
	}

	updated := *old
	updated.applyForm(form)
	if patch.IsFavorite != nil {
		updated.IsFavorite = *patch.IsFavorite
	}
	if patch.IsActive != nil {
		updated.IsActive = patch.IsActive
	}
	updated.UpdatedAt = time.Now()

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Model(&Recipe{ID: id}).
		Select("*").
		Omit("ID", "UserId", "CreatedAt", "Ingredients", "ImageUrl", "ThumbnailUrl").
		Where("user_id = ?", userId).
		Updates(&updated).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if len(updated.Ingredients) > 0 {
		if err := tx.Create(&updated.Ingredients).Error; err != nil {
			tx.Rollback()
			return nil, err
		}
	}
	if err := SaveHistoryUpdate(tx, ReferenceTypeRecipe, id, old, &updated, "Updated recipe "+updated.Title); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeRecipeEvent(ctx, tx, userId, id, RecipeEventUpdate, &updated, old); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateRecipe(userId, id)
	return &updated, nil
}

func DeleteRecipe(ctx context.Context, id int) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "DeleteRecipe")
	defer span.End()
	span.SetAttributes(attribute.Int("recipe.id", id))

	db := config.GetDB()
	result, err := loadRecipe(ctx, db, userId, id)
	if err != nil {
		return nil, err
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Where("recipe_id = ?", id).Delete(&RecipeIngredient{}).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Where("user_id = ?", userId).Delete(&Recipe{}, id).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryDelete(tx, ReferenceTypeRecipe, id, result, "Deleted recipe "+result.Title); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeRecipeEvent(ctx, tx, userId, id, RecipeEventDelete, nil, result); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateRecipe(userId, id)
	return result, nil
}

// GetUserRecipes returns the caller's recipes, newest first. limit <= 0
// means DefaultRecipeLimit; it is capped at MaxRecipeLimit.
func GetUserRecipes(ctx context.Context, limit int) ([]*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Recipe
	err = db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userId).
		Order("created_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

// GetAllUserRecipes loads every recipe of the caller, oldest first.
func GetAllUserRecipes(ctx context.Context) ([]*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Recipe
	err = db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userId).
		Order("id").
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func PaginateRecipes(ctx context.Context, filter RecipeFilter) (*RecipesConnection, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		Where("user_id = ?", userId)
	if search := strings.TrimSpace(filter.Search); search != "" {
		dbCtx = dbCtx.Where("LOWER(title) LIKE ?", "%"+strings.ToLower(search)+"%")
	}
	if category := strings.TrimSpace(filter.Category); category != "" {
		dbCtx = dbCtx.Where("category = ?", strings.ToLower(category))
	}
	if filter.Favorite != nil {
		dbCtx = dbCtx.Where("is_favorite = ?", *filter.Favorite)
	}
	if filter.Active != nil {
		dbCtx = dbCtx.Where("is_active = ?", *filter.Active)
	}

	limit := clampLimit(filter.Limit)
	var edges []Edge[Recipe]
	var pageInfo *PageInfo
	if filter.SortBy == "title" {
		edges, pageInfo, err = FetchPageCompositeCursor[Recipe](dbCtx, limit, filter.After, "title", ">")
	} else {
		edges, pageInfo, err = FetchPageById[Recipe](dbCtx, limit, filter.After)
	}
	if err != nil {
		return nil, err
	}

	conn := RecipesConnection{PageInfo: pageInfo, Edges: make([]*RecipesEdge, 0, len(edges))}
	for _, edge := range edges {
		recipesEdge := RecipesEdge(edge)
		conn.Edges = append(conn.Edges, &recipesEdge)
	}
	return &conn, nil
}

func toggleRecipeFlag(ctx context.Context, id int, column string, description string) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	recipe, err := loadRecipe(ctx, db, userId, id)
	if err != nil {
		return nil, err
	}
	before := *recipe

	var value bool
	switch column {
	case "is_favorite":
		recipe.IsFavorite = !recipe.IsFavorite
		value = recipe.IsFavorite
	case "is_active":
		value = !utils.DereferencePtr(recipe.IsActive, true)
		recipe.IsActive = &value
	default:
		return nil, fmt.Errorf("unknown flag %q", column)
	}

	tx := db.WithContext(ctx).Begin()
	if err := tx.Model(&Recipe{}).Where("id = ? AND user_id = ?", id, userId).UpdateColumn(column, value).Error; err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := SaveHistoryUpdate(tx, ReferenceTypeRecipe, id, &before, recipe, description); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := writeRecipeEvent(ctx, tx, userId, id, RecipeEventUpdate, recipe, &before); err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	invalidateRecipe(userId, id)
	return recipe, nil
}

// ToggleFavoriteRecipe flips the favorite flag. Cost and pricing are untouched.
func ToggleFavoriteRecipe(ctx context.Context, id int) (*Recipe, error) {
	return toggleRecipeFlag(ctx, id, "is_favorite", "Toggled favorite")
}

// ToggleActiveRecipe flips the active flag. Cost and pricing are untouched.
func ToggleActiveRecipe(ctx context.Context, id int) (*Recipe, error) {
	return toggleRecipeFlag(ctx, id, "is_active", "Toggled active")
}

// DuplicateRecipe creates a recomputed copy titled "<title> (copy)".
func DuplicateRecipe(ctx context.Context, id int) (*Recipe, error) {
	original, err := GetRecipe(ctx, id)
	if err != nil {
		return nil, err
	}
	form := original.FormData()
	form.Title = original.Title + " (copy)"
	return CreateRecipe(ctx, &NewRecipe{RecipeFormData: form})
}

// SetRecipeImage stores the photo URLs. Empty strings clear them.
func SetRecipeImage(ctx context.Context, id int, imageUrl string, thumbnailUrl string) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	recipe, err := loadRecipe(ctx, db, userId, id)
	if err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&Recipe{}).
		Where("id = ? AND user_id = ?", id, userId).
		Updates(map[string]interface{}{
			"image_url":     imageUrl,
			"thumbnail_url": thumbnailUrl,
		}).Error; err != nil {
		return nil, err
	}
	recipe.ImageUrl = imageUrl
	recipe.ThumbnailUrl = thumbnailUrl

	invalidateRecipe(userId, id)
	return recipe, nil
}

/* admin */

// GetAllRecipes lists recipes of every user, newest first.
func GetAllRecipes(ctx context.Context, limit int) ([]*Recipe, error) {
	db := config.GetDB()
	var results []*Recipe
	err := db.WithContext(utils.SetSkipOwnerScopeInContext(ctx, true)).
		Order("id DESC").
		Limit(clampLimit(limit)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

type PlatformStats struct {
	TotalUsers   int64            `json:"totalUsers"`
	ActiveUsers  int64            `json:"activeUsers"`
	TotalRecipes int64            `json:"totalRecipes"`
	TotalDrafts  int64            `json:"totalDrafts"`
	Outbox       map[string]int64 `json:"outbox"`
}

func GetPlatformStats(ctx context.Context) (*PlatformStats, error) {
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)
	db := config.GetDB().WithContext(ctx)

	var stats PlatformStats
	if err := db.Model(&User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&User{}).Where("is_active = ?", true).Count(&stats.ActiveUsers).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Recipe{}).Count(&stats.TotalRecipes).Error; err != nil {
		return nil, err
	}
	if err := db.Model(&Draft{}).Count(&stats.TotalDrafts).Error; err != nil {
		return nil, err
	}
	outbox, err := CountOutboxByStatus(ctx)
	if err != nil {
		return nil, err
	}
	stats.Outbox = outbox
	return &stats, nil
}

// RecomputeAllRecipes re-runs the engine over every stored recipe and
// rewrites cost and pricing. It returns the number of rows changed.
func RecomputeAllRecipes(ctx context.Context, dryRun bool) (int, error) {
	ctx = utils.SetSkipOwnerScopeInContext(ctx, true)
	db := config.GetDB()

	changed := 0
	var batch []*Recipe
	err := db.WithContext(ctx).
		Preload("Ingredients", orderedIngredients).
		FindInBatches(&batch, 200, func(tx *gorm.DB, _ int) error {
			for _, r := range batch {
				breakdown := costing.Compute(r.FormData())
				if sameBreakdown(r.Costs, r.Pricing, breakdown) {
					continue
				}
				changed++
				if dryRun {
					continue
				}
				if err := db.WithContext(ctx).Model(&Recipe{}).
					Where("id = ?", r.ID).
					UpdateColumns(breakdownColumns(breakdown)).Error; err != nil {
					return err
				}
				invalidateRecipe(r.UserId, r.ID)
			}
			return nil
		}).Error
	return changed, err
}

func breakdownColumns(b costing.Breakdown) map[string]interface{} {
	return map[string]interface{}{
		"cost_total_ingredients_cost": b.Costs.TotalIngredientsCost,
		"cost_labor_cost":             b.Costs.LaborCost,
		"cost_overhead_cost":          b.Costs.OverheadCost,
		"cost_total_cost":             b.Costs.TotalCost,
		"cost_cost_per_serving":       b.Costs.CostPerServing,
		"pricing_margin_percentage":   b.Pricing.MarginPercentage,
		"pricing_suggested_price":     b.Pricing.SuggestedPrice,
		"pricing_final_price":         b.Pricing.FinalPrice,
		"pricing_profit":              b.Pricing.Profit,
		"pricing_profit_margin":       b.Pricing.ProfitMargin,
	}
}

func sameBreakdown(costs costing.CostBreakdown, pricing costing.PricingBreakdown, b costing.Breakdown) bool {
	eq := func(a, b decimal.Decimal) bool { return a.Round(6).Equal(b.Round(6)) }
	return eq(costs.TotalIngredientsCost, b.Costs.TotalIngredientsCost) &&
		eq(costs.LaborCost, b.Costs.LaborCost) &&
		eq(costs.OverheadCost, b.Costs.OverheadCost) &&
		eq(costs.TotalCost, b.Costs.TotalCost) &&
		eq(costs.CostPerServing, b.Costs.CostPerServing) &&
		eq(pricing.SuggestedPrice, b.Pricing.SuggestedPrice) &&
		eq(pricing.FinalPrice, b.Pricing.FinalPrice) &&
		eq(pricing.Profit, b.Pricing.Profit) &&
		eq(pricing.ProfitMargin, b.Pricing.ProfitMargin)
}
