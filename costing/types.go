// Package costing turns a recipe's ingredients, timing and margin into a
// cost breakdown and a suggested price, and validates recipe input before
// anything is computed or stored.
package costing

import "github.com/shopspring/decimal"

var (
	DefaultLaborCostPerHour   = decimal.NewFromInt(15)
	DefaultOverheadPercentage = decimal.NewFromInt(10)
)

type Ingredient struct {
	Name        string          `json:"name"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	CostPerUnit decimal.Decimal `json:"costPerUnit"`
	Supplier    string          `json:"supplier,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

// Cost is quantity × costPerUnit.
func (i Ingredient) Cost() decimal.Decimal {
	return i.Quantity.Mul(i.CostPerUnit)
}

// RecipeFormData is the user-editable part of a recipe. Drafts store it as is.
type RecipeFormData struct {
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Category           string           `json:"category"`
	Servings           int              `json:"servings"`
	Ingredients        []Ingredient     `json:"ingredients"`
	Instructions       []string         `json:"instructions"`
	PrepTime           int              `json:"prepTime"`
	CookTime           int              `json:"cookTime"`
	MarginPercentage   decimal.Decimal  `json:"marginPercentage"`
	LaborCostPerHour   *decimal.Decimal `json:"laborCostPerHour,omitempty"`
	OverheadPercentage *decimal.Decimal `json:"overheadPercentage,omitempty"`
	Tags               []string         `json:"tags,omitempty"`
}

type CostBreakdown struct {
	TotalIngredientsCost decimal.Decimal `gorm:"type:decimal(20,6)" json:"totalIngredientsCost"`
	LaborCost            decimal.Decimal `gorm:"type:decimal(20,6)" json:"laborCost"`
	OverheadCost         decimal.Decimal `gorm:"type:decimal(20,6)" json:"overheadCost"`
	TotalCost            decimal.Decimal `gorm:"type:decimal(20,6)" json:"totalCost"`
	CostPerServing       decimal.Decimal `gorm:"type:decimal(20,6)" json:"costPerServing"`
}

// PricingBreakdown is per serving. MarginPercentage is the requested
// margin on price; ProfitMargin is the resulting margin on cost.
type PricingBreakdown struct {
	MarginPercentage decimal.Decimal `gorm:"type:decimal(20,6)" json:"marginPercentage"`
	SuggestedPrice   decimal.Decimal `gorm:"type:decimal(20,6)" json:"suggestedPrice"`
	FinalPrice       decimal.Decimal `gorm:"type:decimal(20,6)" json:"finalPrice"`
	Profit           decimal.Decimal `gorm:"type:decimal(20,6)" json:"profit"`
	ProfitMargin     decimal.Decimal `gorm:"type:decimal(20,6)" json:"profitMargin"`
}

// Breakdown is a cost and pricing pair computed from the same input.
type Breakdown struct {
	Costs   CostBreakdown    `json:"costs"`
	Pricing PricingBreakdown `json:"pricing"`
}
