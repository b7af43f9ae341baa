package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/faults"
	"github.com/mmdatafocus/costbook_backend/models"
)

func (a *api) listDrafts(c *gin.Context) {
	ctx := c.Request.Context()
	drafts, err := faults.Do(ctx, a.faults, "listDrafts", func() ([]*models.Draft, error) {
		return a.reader.GetUserDrafts(ctx, queryInt(c, "limit"))
	})
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "listDrafts", err)
		return
	}
	c.JSON(http.StatusOK, drafts)
}

// saveDraft stores whatever the form holds; nothing is validated.
func (a *api) saveDraft(c *gin.Context) {
	var form costing.RecipeFormData
	if err := bindJSON(c, &form); err != nil {
		a.faults.Respond(c, "DraftHandlers", "saveDraft", err)
		return
	}
	draft, err := models.SaveDraft(c.Request.Context(), &form)
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "saveDraft", err)
		return
	}
	c.JSON(http.StatusCreated, draft)
}

func (a *api) updateDraft(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "updateDraft", err)
		return
	}
	var form costing.RecipeFormData
	if err := bindJSON(c, &form); err != nil {
		a.faults.Respond(c, "DraftHandlers", "updateDraft", err)
		return
	}
	draft, err := models.UpdateDraft(c.Request.Context(), id, &form)
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "updateDraft", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}

func (a *api) deleteDraft(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "deleteDraft", err)
		return
	}
	draft, err := models.DeleteDraft(c.Request.Context(), id)
	if err != nil {
		a.faults.Respond(c, "DraftHandlers", "deleteDraft", err)
		return
	}
	c.JSON(http.StatusOK, draft)
}
