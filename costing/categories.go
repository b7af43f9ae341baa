package costing

import "strings"

// Categories is the closed set offered to clients. Validate only requires
// a non-empty category.
var Categories = []string{
	"bolos",
	"tortas",
	"doces",
	"salgados",
	"bebidas",
	"pães",
	"biscoitos",
	"sobremesas",
	"outros",
}

// UnitSuggestions are the unit labels offered by the ingredient editor.
var UnitSuggestions = []string{"g", "kg", "ml", "l", "un", "xícara", "colher", "pitada"}

func IsKnownCategory(category string) bool {
	category = strings.ToLower(strings.TrimSpace(category))
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
