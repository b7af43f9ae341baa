package main

import (
	"context"

	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/models/reports"
)

// recipeReader is the read side of the recipe and draft collaborators.
// Reads are idempotent, so handlers retry them on network faults.
type recipeReader interface {
	GetRecipe(ctx context.Context, id int) (*models.Recipe, error)
	GetUserRecipes(ctx context.Context, limit int) ([]*models.Recipe, error)
	PaginateRecipes(ctx context.Context, filter models.RecipeFilter) (*models.RecipesConnection, error)
	GetUserDrafts(ctx context.Context, limit int) ([]*models.Draft, error)
	GetDashboardStats(ctx context.Context) (*reports.DashboardStats, error)
	ExportRecipes(ctx context.Context) (*models.RecipeBackup, error)
}

type modelReader struct{}

func (modelReader) GetRecipe(ctx context.Context, id int) (*models.Recipe, error) {
	return models.GetRecipe(ctx, id)
}

func (modelReader) GetUserRecipes(ctx context.Context, limit int) ([]*models.Recipe, error) {
	return models.GetUserRecipes(ctx, limit)
}

func (modelReader) PaginateRecipes(ctx context.Context, filter models.RecipeFilter) (*models.RecipesConnection, error) {
	return models.PaginateRecipes(ctx, filter)
}

func (modelReader) GetUserDrafts(ctx context.Context, limit int) ([]*models.Draft, error) {
	return models.GetUserDrafts(ctx, limit)
}

func (modelReader) GetDashboardStats(ctx context.Context) (*reports.DashboardStats, error) {
	return reports.GetDashboardStats(ctx)
}

func (modelReader) ExportRecipes(ctx context.Context) (*models.RecipeBackup, error) {
	return models.ExportRecipes(ctx)
}
