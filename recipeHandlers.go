package main

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/costbook_backend/costing"
	"github.com/mmdatafocus/costbook_backend/faults"
	"github.com/mmdatafocus/costbook_backend/models"
)

type previewResponse struct {
	costing.ValidationResult
	// KnownCategory is false for categories outside costing.Categories.
	// They are accepted but not offered by the editor.
	KnownCategory bool                      `json:"knownCategory"`
	Costs         *costing.CostBreakdown    `json:"costs,omitempty"`
	Pricing       *costing.PricingBreakdown `json:"pricing,omitempty"`
}

func (a *api) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"categories": costing.Categories,
		"units":      costing.UnitSuggestions,
	})
}

// previewRecipe validates and prices a form without storing anything.
func (a *api) previewRecipe(c *gin.Context) {
	var form costing.RecipeFormData
	if err := bindJSON(c, &form); err != nil {
		a.faults.Respond(c, "RecipeHandlers", "previewRecipe", err)
		return
	}
	resp := previewResponse{
		ValidationResult: costing.Validate(form),
		KnownCategory:    costing.IsKnownCategory(form.Category),
	}
	if resp.IsValid {
		b := costing.Compute(form)
		resp.Costs = &b.Costs
		resp.Pricing = &b.Pricing
	}
	c.JSON(http.StatusOK, resp)
}

func (a *api) listRecipes(c *gin.Context) {
	filter := models.RecipeFilter{
		Limit:    queryInt(c, "limit"),
		Search:   c.Query("search"),
		Category: c.Query("category"),
		Favorite: queryBool(c, "favorite"),
		Active:   queryBool(c, "active"),
		SortBy:   c.Query("sort"),
	}
	if after := c.Query("after"); after != "" {
		filter.After = &after
	}
	ctx := c.Request.Context()
	conn, err := faults.Do(ctx, a.faults, "listRecipes", func() (*models.RecipesConnection, error) {
		return a.reader.PaginateRecipes(ctx, filter)
	})
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "listRecipes", err)
		return
	}
	c.JSON(http.StatusOK, conn)
}

func (a *api) recentRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	recipes, err := faults.Do(ctx, a.faults, "recentRecipes", func() ([]*models.Recipe, error) {
		return a.reader.GetUserRecipes(ctx, queryInt(c, "limit"))
	})
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "recentRecipes", err)
		return
	}
	c.JSON(http.StatusOK, recipes)
}

func (a *api) createRecipe(c *gin.Context) {
	var input models.NewRecipe
	if err := bindJSON(c, &input); err != nil {
		a.faults.Respond(c, "RecipeHandlers", "createRecipe", err)
		return
	}
	recipe, err := models.CreateRecipe(c.Request.Context(), &input)
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "createRecipe", err)
		return
	}
	c.JSON(http.StatusCreated, recipe)
}

func (a *api) getRecipe(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "getRecipe", err)
		return
	}
	ctx := c.Request.Context()
	recipe, err := faults.Do(ctx, a.faults, "getRecipe", func() (*models.Recipe, error) {
		return a.reader.GetRecipe(ctx, id)
	})
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "getRecipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (a *api) updateRecipe(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "updateRecipe", err)
		return
	}
	var patch models.RecipePatch
	if err := bindJSON(c, &patch); err != nil {
		a.faults.Respond(c, "RecipeHandlers", "updateRecipe", err)
		return
	}
	recipe, err := models.UpdateRecipe(c.Request.Context(), id, &patch)
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "updateRecipe", err)
		return
	}
	c.JSON(http.StatusOK, recipe)
}

func (a *api) deleteRecipe(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "deleteRecipe", err)
		return
	}
	recipe, err := models.DeleteRecipe(c.Request.Context(), id)
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "deleteRecipe", err)
		return
	}
	// best effort; the row is already gone
	a.deleteRecipeImages(c.Request.Context(), recipe)
	c.JSON(http.StatusOK, recipe)
}

// recipeAction adapts the id-only recipe operations.
func (a *api) recipeAction(funcName string, op func(ctx context.Context, id int) (*models.Recipe, error), status int) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := paramId(c, "id")
		if err != nil {
			a.faults.Respond(c, "RecipeHandlers", funcName, err)
			return
		}
		recipe, err := op(c.Request.Context(), id)
		if err != nil {
			a.faults.Respond(c, "RecipeHandlers", funcName, err)
			return
		}
		c.JSON(status, recipe)
	}
}

func (a *api) recipeHistory(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "recipeHistory", err)
		return
	}
	histories, err := models.GetHistories(c.Request.Context(), models.ReferenceTypeRecipe, id, queryInt(c, "limit"))
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "recipeHistory", err)
		return
	}
	c.JSON(http.StatusOK, histories)
}

func (a *api) recipeEventStatus(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "recipeEventStatus", err)
		return
	}
	status, err := models.GetRecipeEventStatus(c.Request.Context(), id)
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "recipeEventStatus", err)
		return
	}
	c.JSON(http.StatusOK, status)
}

func (a *api) reprocessRecipeEvents(c *gin.Context) {
	id, err := paramId(c, "id")
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "reprocessRecipeEvents", err)
		return
	}
	status, err := models.ReprocessRecipeEvents(c.Request.Context(), id)
	if err != nil {
		a.faults.Respond(c, "RecipeHandlers", "reprocessRecipeEvents", err)
		return
	}
	c.JSON(http.StatusOK, status)
}
