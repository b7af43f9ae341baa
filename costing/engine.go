package costing

import "github.com/shopspring/decimal"

var (
	sixty   = decimal.NewFromInt(60)
	hundred = decimal.NewFromInt(100)
)

// ComputeCosts sums ingredient, labor and overhead cost. Overhead is a
// percentage of ingredient cost only. Input is assumed validated.
func ComputeCosts(form RecipeFormData) CostBreakdown {
	ingredients := decimal.Zero
	for _, ing := range form.Ingredients {
		ingredients = ingredients.Add(ing.Cost())
	}

	rate := DefaultLaborCostPerHour
	if form.LaborCostPerHour != nil {
		rate = *form.LaborCostPerHour
	}
	overheadPct := DefaultOverheadPercentage
	if form.OverheadPercentage != nil {
		overheadPct = *form.OverheadPercentage
	}

	// minutes × rate / 60 keeps whole-hour results exact.
	minutes := decimal.NewFromInt(int64(form.PrepTime + form.CookTime))
	labor := minutes.Mul(rate).Div(sixty)
	overhead := ingredients.Mul(overheadPct).Div(hundred)
	total := ingredients.Add(labor).Add(overhead)

	servings := form.Servings
	if servings < 1 {
		servings = 1
	}

	return CostBreakdown{
		TotalIngredientsCost: ingredients,
		LaborCost:            labor,
		OverheadCost:         overhead,
		TotalCost:            total,
		CostPerServing:       total.Div(decimal.NewFromInt(int64(servings))),
	}
}

// ComputePricing prices one serving so that profit is marginPercentage of
// the price. A margin of 100 or more yields a zero price.
func ComputePricing(costs CostBreakdown, marginPercentage decimal.Decimal) PricingBreakdown {
	cps := costs.CostPerServing

	price := decimal.Zero
	if marginPercentage.LessThan(hundred) {
		// cps / (1 - m/100) == cps × 100 / (100 - m)
		price = cps.Mul(hundred).Div(hundred.Sub(marginPercentage))
	}

	profit := price.Sub(cps)
	profitMargin := decimal.Zero
	if cps.IsPositive() {
		profitMargin = profit.Div(cps).Mul(hundred)
	}

	return PricingBreakdown{
		MarginPercentage: marginPercentage,
		SuggestedPrice:   price,
		FinalPrice:       price,
		Profit:           profit,
		ProfitMargin:     profitMargin,
	}
}

// Compute runs ComputeCosts and feeds the result into ComputePricing.
func Compute(form RecipeFormData) Breakdown {
	costs := ComputeCosts(form)
	return Breakdown{
		Costs:   costs,
		Pricing: ComputePricing(costs, form.MarginPercentage),
	}
}
