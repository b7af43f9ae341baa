package costing

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

type ValidationResult struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// ValidationError carries every rule a form violated.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return "invalid recipe: " + strings.Join(e.Errors, "; ")
}

// Err returns nil for a valid result and a *ValidationError otherwise.
func (r ValidationResult) Err() error {
	if r.IsValid {
		return nil
	}
	return &ValidationError{Errors: r.Errors}
}

// Validate checks every rule and reports all violations in a fixed order:
// title, category, servings, ingredient list, each ingredient, margin.
func Validate(form RecipeFormData) ValidationResult {
	errs := []string{}

	if strings.TrimSpace(form.Title) == "" {
		errs = append(errs, "Title is required")
	}
	if strings.TrimSpace(form.Category) == "" {
		errs = append(errs, "Category is required")
	}
	if form.Servings <= 0 {
		errs = append(errs, "Servings must be greater than 0")
	}
	if len(form.Ingredients) == 0 {
		errs = append(errs, "At least one ingredient is required")
	}
	for i, ing := range form.Ingredients {
		n := i + 1
		if strings.TrimSpace(ing.Name) == "" {
			errs = append(errs, fmt.Sprintf("Ingredient %d: name is required", n))
		}
		if !ing.Quantity.IsPositive() {
			errs = append(errs, fmt.Sprintf("Ingredient %d: quantity must be greater than 0", n))
		}
		if !ing.CostPerUnit.IsPositive() {
			errs = append(errs, fmt.Sprintf("Ingredient %d: cost per unit must be greater than 0", n))
		}
	}
	if !form.MarginPercentage.IsPositive() || form.MarginPercentage.GreaterThanOrEqual(decimal.NewFromInt(100)) {
		errs = append(errs, "Margin must be between 0 and 100")
	}

	return ValidationResult{IsValid: len(errs) == 0, Errors: errs}
}
