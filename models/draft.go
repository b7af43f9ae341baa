package models

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/utils"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Draft is an unvalidated snapshot of the recipe form. It never carries
// cost or pricing.
type Draft struct {
	ID        int                                        `gorm:"primary_key" json:"id"`
	UserId    string                                     `gorm:"size:36;index;not null" json:"userId"`
	Title     string                                     `gorm:"size:255" json:"title"`
	Data      datatypes.JSONType[costing.RecipeFormData] `json:"data"`
	IsDraft   bool                                       `gorm:"not null;default:true" json:"isDraft"`
	CreatedAt time.Time                                  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time                                  `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (d Draft) FormData() costing.RecipeFormData {
	return d.Data.Data()
}

func SaveDraft(ctx context.Context, input *costing.RecipeFormData) (*Draft, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	draft := Draft{
		UserId:  userId,
		Title:   strings.TrimSpace(input.Title),
		Data:    datatypes.NewJSONType(*input),
		IsDraft: true,
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&draft).Error; err != nil {
		return nil, err
	}
	return &draft, nil
}

func UpdateDraft(ctx context.Context, id int, input *costing.RecipeFormData) (*Draft, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := utils.FetchOwnedModel[Draft](ctx, userId, id)
	if err != nil {
		return nil, err
	}

	draft.Title = strings.TrimSpace(input.Title)
	draft.Data = datatypes.NewJSONType(*input)
	db := config.GetDB()
	if err := db.WithContext(ctx).Model(draft).
		Where("user_id = ?", userId).
		Updates(map[string]interface{}{
			"title": draft.Title,
			"data":  draft.Data,
		}).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// GetUserDrafts lists the caller's drafts, most recently edited first.
func GetUserDrafts(ctx context.Context, limit int) ([]*Draft, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	db := config.GetDB()
	var results []*Draft
	err = db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("updated_at DESC, id DESC").
		Limit(clampLimit(limit)).
		Find(&results).Error
	if err != nil {
		return nil, err
	}
	return results, nil
}

func DeleteDraft(ctx context.Context, id int) (*Draft, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}

	draft, err := utils.FetchOwnedModel[Draft](ctx, userId, id)
	if err != nil {
		return nil, err
	}
	db := config.GetDB()
	if err := db.WithContext(ctx).Where("user_id = ?", userId).Delete(&Draft{}, id).Error; err != nil {
		return nil, err
	}
	return draft, nil
}

// PromoteDraft turns a draft into a recipe and deletes the draft in the
// same transaction. A second concurrent promote of the same draft gets
// ErrLockBusy or ErrorRecordNotFound, with or without Redis.
func PromoteDraft(ctx context.Context, id int) (*Recipe, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	ctx, span := tracer.Start(ctx, "PromoteDraft")
	defer span.End()

	var recipe *Recipe
	err = utils.WithLock(ctx, "DraftPromote", strconv.Itoa(id), 30*time.Second, "Draft", "PromoteDraft", func() error {
		draft, err := utils.FetchOwnedModel[Draft](ctx, userId, id)
		if err != nil {
			return err
		}

		db := config.GetDB()
		tx := db.WithContext(ctx).Begin()
		created, err := promoteDraftTx(ctx, tx, userId, draft)
		if err != nil {
			tx.Rollback()
			return err
		}
		if err := tx.Commit().Error; err != nil {
			return err
		}
		recipe = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	invalidateRecipe(userId, recipe.ID)
	return recipe, nil
}

// promoteDraftTx creates the recipe and removes the draft row. The draft
// must still exist when the delete runs; a promote that lost the race
// returns ErrorRecordNotFound and the caller rolls back.
func promoteDraftTx(ctx context.Context, tx *gorm.DB, userId string, draft *Draft) (*Recipe, error) {
	created, err := createRecipeTx(ctx, tx, userId, draft.FormData(), false)
	if err != nil {
		return nil, err
	}
	result := tx.Where("user_id = ?", userId).Delete(&Draft{}, draft.ID)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected != 1 {
		return nil, utils.ErrorRecordNotFound
	}
	return created, nil
}
