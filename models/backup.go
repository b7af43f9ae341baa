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
)

const BackupVersion = "1.0"

type RecipeBackup struct {
	Version      string    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
	Recipes      []*Recipe `json:"recipes"`
	TotalRecipes int       `json:"totalRecipes"`
}

type ImportError struct {
	Index  int      `json:"index"`
	Title  string   `json:"title"`
	Errors []string `json:"errors"`
}

type ImportResult struct {
	Imported int           `json:"imported"`
	Skipped  int           `json:"skipped"`
	Errors   []ImportError `json:"errors"`
	Recipes  []*Recipe     `json:"-"`
}

// ExportRecipes snapshots every recipe of the caller.
func ExportRecipes(ctx context.Context) (*RecipeBackup, error) {
	recipes, err := GetAllUserRecipes(ctx)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []*Recipe{}
	}
	return &RecipeBackup{
		Version:      BackupVersion,
		Timestamp:    time.Now().UTC(),
		Recipes:      recipes,
		TotalRecipes: len(recipes),
	}, nil
}

// ImportRecipes re-validates and recomputes each backed-up recipe. Stored
// cost and pricing in the backup are ignored. Invalid entries are skipped
// and reported by index; the valid ones are created in one transaction.
func ImportRecipes(ctx context.Context, backup *RecipeBackup) (*ImportResult, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	if backup == nil {
		return nil, fmt.Errorf("%w: empty backup", utils.ErrInvalidInput)
	}
	if !strings.HasPrefix(backup.Version, "1.") {
		return nil, fmt.Errorf("%w: unsupported backup version %q", utils.ErrInvalidInput, backup.Version)
	}
	ctx, span := tracer.Start(ctx, "ImportRecipes")
	defer span.End()

	result := ImportResult{Errors: []ImportError{}}
	db := config.GetDB()
	tx := db.WithContext(ctx).Begin()
	for i, entry := range backup.Recipes {
		if entry == nil {
			result.Skipped++
			result.Errors = append(result.Errors, ImportError{Index: i, Errors: []string{"Recipe is empty"}})
			continue
		}
		recipe, err := createRecipeTx(ctx, tx, userId, entry.FormData(), entry.IsFavorite)
		if err != nil {
			var validationErr *costing.ValidationError
			if errors.As(err, &validationErr) {
				result.Skipped++
				result.Errors = append(result.Errors, ImportError{Index: i, Title: entry.Title, Errors: validationErr.Errors})
				continue
			}
			tx.Rollback()
			return nil, err
		}
		result.Imported++
		result.Recipes = append(result.Recipes, recipe)
	}
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	if result.Imported > 0 {
		if err := config.RemoveRedisKey(DashboardCacheKey(userId)); err != nil {
			config.LogError(config.GetLogger(), "Backup", "ImportRecipes", "remove dashboard cache", userId, err)
		}
	}
	return &result, nil
}
