package reports

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/xuri/excelize/v2"
)

const (
	recipeSheet     = "Recipes"
	ingredientSheet = "Ingredients"
)

var recipeHeadings = []string{
	"ID", "Title", "Category", "Servings", "Prep Time", "Cook Time",
	"Ingredients Cost", "Labor Cost", "Overhead Cost", "Total Cost", "Cost Per Serving",
	"Margin %", "Final Price", "Profit", "Profit Margin %", "Favorite", "Active", "Tags",
}

var ingredientHeadings = []string{
	"Recipe ID", "Recipe", "Ingredient", "Quantity", "Unit", "Cost Per Unit", "Cost", "Supplier", "Notes",
}

func cellName(col int, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	return f.SetSheetRow(sheet, cellName(1, row), &values)
}

// BuildRecipesWorkbook lays out one summary row per recipe and one row per
// ingredient on a second sheet.
func BuildRecipesWorkbook(recipes []*models.Recipe) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", recipeSheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(ingredientSheet); err != nil {
		return nil, err
	}

	headings := make([]interface{}, len(recipeHeadings))
	for i, h := range recipeHeadings {
		headings[i] = h
	}
	if err := writeRow(f, recipeSheet, 1, headings); err != nil {
		return nil, err
	}
	headings = make([]interface{}, len(ingredientHeadings))
	for i, h := range ingredientHeadings {
		headings[i] = h
	}
	if err := writeRow(f, ingredientSheet, 1, headings); err != nil {
		return nil, err
	}

	ingredientRow := 2
	for i, r := range recipes {
		values := []interface{}{
			r.ID, r.Title, r.Category, r.Servings, r.PrepTime, r.CookTime,
			r.Costs.TotalIngredientsCost.Round(2).InexactFloat64(),
			r.Costs.LaborCost.Round(2).InexactFloat64(),
			r.Costs.OverheadCost.Round(2).InexactFloat64(),
			r.Costs.TotalCost.Round(2).InexactFloat64(),
			r.Costs.CostPerServing.Round(2).InexactFloat64(),
			r.Pricing.MarginPercentage.Round(2).InexactFloat64(),
			r.Pricing.FinalPrice.Round(2).InexactFloat64(),
			r.Pricing.Profit.Round(2).InexactFloat64(),
			r.Pricing.ProfitMargin.Round(2).InexactFloat64(),
			r.IsFavorite,
			utils.DereferencePtr(r.IsActive, true),
			strings.Join(r.Tags, ", "),
		}
		if err := writeRow(f, recipeSheet, i+2, values); err != nil {
			return nil, err
		}

		for _, ing := range r.Ingredients {
			values := []interface{}{
				r.ID, r.Title, ing.Name,
				ing.Quantity.InexactFloat64(), ing.Unit,
				ing.CostPerUnit.InexactFloat64(),
				ing.Quantity.Mul(ing.CostPerUnit).Round(2).InexactFloat64(),
				ing.Supplier, ing.Notes,
			}
			if err := writeRow(f, ingredientSheet, ingredientRow, values); err != nil {
				return nil, err
			}
			ingredientRow++
		}
	}

	f.SetActiveSheet(0)
	return f, nil
}

// ExportRecipesExcel writes the caller's recipes as an .xlsx workbook.
func ExportRecipesExcel(ctx context.Context, w io.Writer) error {
	recipes, err := models.GetAllUserRecipes(ctx)
	if err != nil {
		return err
	}
	f, err := BuildRecipesWorkbook(recipes)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
