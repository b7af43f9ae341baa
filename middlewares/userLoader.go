package middlewares

import (
	"context"

	"github.com/graph-gophers/dataloader/v7"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
)

// UserSummary is the owner block shown next to recipes in admin listings.
type UserSummary struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	IsActive bool   `json:"isActive"`
}

type userReader struct{}

func (r *userReader) getUsers(ctx context.Context, ids []string) []*dataloader.Result[*UserSummary] {
	byId, err := models.GetUsersByIds(ctx, ids)
	if err != nil {
		return handleError[*UserSummary](len(ids), err)
	}
	loaderResults := make([]*dataloader.Result[*UserSummary], 0, len(ids))
	for _, id := range ids {
		summary := &UserSummary{ID: id}
		if u, ok := byId[id]; ok {
			summary.Name = u.Name
			summary.Email = u.Email
			summary.IsActive = utils.DereferencePtr(u.IsActive, true)
		}
		loaderResults = append(loaderResults, &dataloader.Result[*UserSummary]{Data: summary})
	}
	return loaderResults
}

// GetUserSummary returns single user by id efficiently
func GetUserSummary(ctx context.Context, id string) (*UserSummary, error) {
	loaders := For(ctx)
	return loaders.userLoader.Load(ctx, id)()
}

// GetUserSummaries returns many users by ids efficiently
func GetUserSummaries(ctx context.Context, ids []string) ([]*UserSummary, []error) {
	loaders := For(ctx)
	return loaders.userLoader.LoadMany(ctx, ids)()
}
