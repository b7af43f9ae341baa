package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/middlewares"
	"github.com/mmdatafocus/costbook_backend/models"
)

type adminRecipe struct {
	*models.Recipe
	Owner *middlewares.UserSummary `json:"owner"`
}

type setActiveRequest struct {
	IsActive *bool `json:"isActive" binding:"required"`
}

type outboxReplayRequest struct {
	RecordId int `json:"recordId" binding:"required,gt=0"`
}

func (a *api) adminStats(c *gin.Context) {
	stats, err := models.GetPlatformStats(c.Request.Context())
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminStats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (a *api) adminUsers(c *gin.Context) {
	users, err := models.GetAllUsers(c.Request.Context())
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminUsers", err)
		return
	}
	c.JSON(http.StatusOK, users)
}

func (a *api) adminSetUserActive(c *gin.Context) {
	var req setActiveRequest
	if err := bindJSON(c, &req); err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminSetUserActive", err)
		return
	}
	user, err := models.SetUserActive(c.Request.Context(), c.Param("id"), *req.IsActive)
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminSetUserActive", err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// adminRecipes lists recent recipes across users with their owners,
// batched through the user loader.
func (a *api) adminRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	recipes, err := models.GetAllRecipes(ctx, queryInt(c, "limit"))
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminRecipes", err)
		return
	}
	ownerIds := make([]string, len(recipes))
	for i, r := range recipes {
		ownerIds[i] = r.UserId
	}
	owners, errs := middlewares.GetUserSummaries(ctx, ownerIds)
	for _, err := range errs {
		if err != nil {
			a.faults.Respond(c, "AdminHandlers", "adminRecipes", err)
			return
		}
	}
	out := make([]adminRecipe, len(recipes))
	for i, r := range recipes {
		out[i] = adminRecipe{Recipe: r, Owner: owners[i]}
	}
	c.JSON(http.StatusOK, out)
}

// adminRecompute re-runs the engine over stored recipes. dryRun=true
// only counts what would change.
func (a *api) adminRecompute(c *gin.Context) {
	dryRun := c.Query("dryRun") == "true"
	changed, err := models.RecomputeAllRecipes(c.Request.Context(), dryRun)
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminRecompute", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"changed": changed, "dryRun": dryRun})
}

func (a *api) adminOutboxReplay(c *gin.Context) {
	var req outboxReplayRequest
	if err := bindJSON(c, &req); err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminOutboxReplay", err)
		return
	}
	rec, err := models.ReplayOutboxRecord(c.Request.Context(), req.RecordId)
	if err != nil {
		a.faults.Respond(c, "AdminHandlers", "adminOutboxReplay", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"recordId":         rec.ID,
		"userId":           rec.UserId,
		"publishStatus":    rec.PublishStatus,
		"processingStatus": rec.ProcessingStatus,
		"nextAttemptAt":    rec.NextAttemptAt,
	})
}
