package utils

import (
	"context"
	"errors"

	"github.com/mmdatafocus/costbook_backend/config"
	"gorm.io/gorm"
)

/* DB fetching */

// FetchOwnedModel loads id scoped to userId. Returns ErrorRecordNotFound
// when the row is missing or belongs to someone else.
func FetchOwnedModel[T any](ctx context.Context, userId string, id int, associations ...string) (*T, error) {
	dbCtx := config.GetDB().WithContext(ctx).Where("user_id = ?", userId)
	for _, field := range associations {
		dbCtx = dbCtx.Preload(field)
	}
	var result T
	err := dbCtx.First(&result, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrorRecordNotFound
		}
		return nil, err
	}
	return &result, nil
}
