package costing

import (
	"errors"
	"reflect"
	"testing"

	"github.com/shopspring/decimal"
)

func TestValidateAcceptsCompleteForm(t *testing.T) {
	res := Validate(cakeForm())
	if !res.IsValid || len(res.Errors) != 0 {
		t.Fatalf("expected valid, got %+v", res)
	}
	if res.Err() != nil {
		t.Fatalf("Err() expected nil, got %v", res.Err())
	}
}

func TestValidateReportsEveryRuleInOrder(t *testing.T) {
	form := RecipeFormData{
		Title:    "   ",
		Category: "",
		Servings: 0,
		Ingredients: []Ingredient{
			{Name: "ok", Quantity: d("1"), CostPerUnit: d("1")},
			{Name: " ", Quantity: d("0"), CostPerUnit: d("-1")},
		},
		MarginPercentage: d("100"),
	}
	want := []string{
		"Title is required",
		"Category is required",
		"Servings must be greater than 0",
		"Ingredient 2: name is required",
		"Ingredient 2: quantity must be greater than 0",
		"Ingredient 2: cost per unit must be greater than 0",
		"Margin must be between 0 and 100",
	}

	res := Validate(form)
	if res.IsValid {
		t.Fatalf("expected invalid")
	}
	if !reflect.DeepEqual(res.Errors, want) {
		t.Fatalf("errors expected %q, got %q", want, res.Errors)
	}

	var verr *ValidationError
	if !errors.As(res.Err(), &verr) || len(verr.Errors) != len(want) {
		t.Fatalf("Err() expected *ValidationError with %d errors, got %v", len(want), res.Err())
	}
}

func TestValidateMissingIngredients(t *testing.T) {
	form := cakeForm()
	form.Ingredients = nil
	res := Validate(form)
	if !reflect.DeepEqual(res.Errors, []string{"At least one ingredient is required"}) {
		t.Fatalf("unexpected errors %q", res.Errors)
	}
}

func TestValidateBoundaries(t *testing.T) {
	cases := []struct {
		margin   string
		servings int
		valid    bool
	}{
		{"0", 1, false},
		{"-5", 1, false},
		{"0.01", 1, true},
		{"99.99", 1, true},
		{"100", 1, false},
		{"120", 1, false},
		{"35", 0, false},
		{"35", 1, true},
		{"35", -2, false},
	}
	for _, tc := range cases {
		form := cakeForm()
		form.MarginPercentage = decimal.RequireFromString(tc.margin)
		form.Servings = tc.servings
		res := Validate(form)
		if res.IsValid != tc.valid {
			t.Fatalf("Validate(margin=%s, servings=%d) expected valid=%v, got %q", tc.margin, tc.servings, tc.valid, res.Errors)
		}
		if !tc.valid && len(res.Errors) != 1 {
			t.Fatalf("Validate(margin=%s, servings=%d) expected one error, got %q", tc.margin, tc.servings, res.Errors)
		}
	}
}

func TestValidateIgnoresOptionalFields(t *testing.T) {
	form := cakeForm()
	form.Description = ""
	form.Instructions = nil
	form.Tags = nil
	form.PrepTime = 0
	form.CookTime = 0
	form.LaborCostPerHour = nil
	form.OverheadPercentage = nil
	form.Category = "something-new"
	if res := Validate(form); !res.IsValid {
		t.Fatalf("optional fields should not fail validation, got %q", res.Errors)
	}
}

func TestIsKnownCategory(t *testing.T) {
	if !IsKnownCategory(" Bolos ") {
		t.Fatalf("expected bolos to be known")
	}
	if IsKnownCategory("pizza") {
		t.Fatalf("expected pizza to be unknown")
	}
}
