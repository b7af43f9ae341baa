package reports

import (
	"context"
	"sort"
	"time"

	"github.com/mmdatafocus/costbook_backend/config"
	"github.com/mmdatafocus/costbook_backend/models"
	"github.com/mmdatafocus/costbook_backend/utils"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const dashboardListSize = 5

type RecipeSummary struct {
	ID             int             `json:"id"`
	Title          string          `json:"title"`
	Category       string          `json:"category"`
	TotalCost      decimal.Decimal `json:"totalCost"`
	CostPerServing decimal.Decimal `json:"costPerServing"`
	FinalPrice     decimal.Decimal `json:"finalPrice"`
	Profit         decimal.Decimal `json:"profit"`
	ProfitMargin   decimal.Decimal `json:"profitMargin"`
	IsFavorite     bool            `json:"isFavorite"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type CategoryStats struct {
	Category    string          `json:"category"`
	Count       int             `json:"count"`
	AverageCost decimal.Decimal `json:"averageCost"`
}

type DashboardStats struct {
	TotalRecipes         int             `json:"totalRecipes"`
	AverageCost          decimal.Decimal `json:"averageCost"`
	AverageMargin        decimal.Decimal `json:"averageMargin"`
	MostProfitableRecipe *RecipeSummary  `json:"mostProfitableRecipe"`
	TotalFavorites       int             `json:"totalFavorites"`
	ActiveRecipes        int             `json:"activeRecipes"`
	Categories           []CategoryStats `json:"categories"`
	RecentRecipes        []RecipeSummary `json:"recentRecipes"`
	TopRecipes           []RecipeSummary `json:"topRecipes"`
	GeneratedAt          time.Time       `json:"generatedAt"`
}

var dashboardGroup singleflight.Group

func summaryOf(r *models.Recipe) RecipeSummary {
	return RecipeSummary{
		ID:             r.ID,
		Title:          r.Title,
		Category:       r.Category,
		TotalCost:      r.Costs.TotalCost,
		CostPerServing: r.Costs.CostPerServing,
		FinalPrice:     r.Pricing.FinalPrice,
		Profit:         r.Pricing.Profit,
		ProfitMargin:   r.Pricing.ProfitMargin,
		IsFavorite:     r.IsFavorite,
		CreatedAt:      r.CreatedAt,
	}
}

// SummarizeRecipes aggregates a user's recipes. Averages are arithmetic
// means of costs.totalCost and pricing.profitMargin; the most profitable
// recipe is the first one with the highest pricing.profit. An empty input
// gives zeros and no most profitable recipe.
func SummarizeRecipes(recipes []*models.Recipe) *DashboardStats {
	stats := &DashboardStats{
		AverageCost:   decimal.Zero,
		AverageMargin: decimal.Zero,
		Categories:    []CategoryStats{},
		RecentRecipes: []RecipeSummary{},
		TopRecipes:    []RecipeSummary{},
		GeneratedAt:   time.Now().UTC(),
	}
	if len(recipes) == 0 {
		return stats
	}

	totalCost := decimal.Zero
	totalMargin := decimal.Zero
	var best *models.Recipe
	type categoryTotals struct {
		count int
		cost  decimal.Decimal
	}
	byCategory := map[string]*categoryTotals{}

	for _, r := range recipes {
		totalCost = totalCost.Add(r.Costs.TotalCost)
		totalMargin = totalMargin.Add(r.Pricing.ProfitMargin)
		if best == nil || r.Pricing.Profit.GreaterThan(best.Pricing.Profit) {
			best = r
		}
		if r.IsFavorite {
			stats.TotalFavorites++
		}
		if utils.DereferencePtr(r.IsActive, true) {
			stats.ActiveRecipes++
		}
		c, ok := byCategory[r.Category]
		if !ok {
			c = &categoryTotals{cost: decimal.Zero}
			byCategory[r.Category] = c
		}
		c.count++
		c.cost = c.cost.Add(r.Costs.TotalCost)
	}

	n := decimal.NewFromInt(int64(len(recipes)))
	stats.TotalRecipes = len(recipes)
	stats.AverageCost = totalCost.Div(n)
	stats.AverageMargin = totalMargin.Div(n)
	bestSummary := summaryOf(best)
	stats.MostProfitableRecipe = &bestSummary

	for name, c := range byCategory {
		stats.Categories = append(stats.Categories, CategoryStats{
			Category:    name,
			Count:       c.count,
			AverageCost: c.cost.Div(decimal.NewFromInt(int64(c.count))),
		})
	}
	sort.Slice(stats.Categories, func(i, j int) bool {
		return stats.Categories[i].Category < stats.Categories[j].Category
	})

	ordered := make([]*models.Recipe, len(recipes))
	copy(ordered, recipes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.After(ordered[j].CreatedAt)
	})
	for i := 0; i < len(ordered) && i < dashboardListSize; i++ {
		stats.RecentRecipes = append(stats.RecentRecipes, summaryOf(ordered[i]))
	}

	copy(ordered, recipes)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Pricing.Profit.GreaterThan(ordered[j].Pricing.Profit)
	})
	for i := 0; i < len(ordered) && i < dashboardListSize; i++ {
		stats.TopRecipes = append(stats.TopRecipes, summaryOf(ordered[i]))
	}

	return stats
}

// GetDashboardStats returns the caller's dashboard, from cache when
// ENABLE_REPORT_CACHE is on. Concurrent misses for one user share a
// single computation.
func GetDashboardStats(ctx context.Context) (*DashboardStats, error) {
	userId, err := utils.RequireUserId(ctx)
	if err != nil {
		return nil, err
	}
	key := models.DashboardCacheKey(userId)

	var cached DashboardStats
	if ok, err := cacheGet(key, &cached); err != nil {
		config.LogError(config.GetLogger(), "DashboardReport", "GetDashboardStats", "read cache", key, err)
	} else if ok {
		return &cached, nil
	}

	v, err, _ := dashboardGroup.Do(key, func() (interface{}, error) {
		return computeDashboardStats(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardStats), nil
}

// RefreshDashboardStats recomputes and re-caches userId's dashboard.
func RefreshDashboardStats(ctx context.Context, userId string) (*DashboardStats, error) {
	key := models.DashboardCacheKey(userId)
	if err := config.RemoveRedisKey(key); err != nil {
		return nil, err
	}
	ctx = utils.SetUserIdInContext(ctx, userId)
	v, err, _ := dashboardGroup.Do(key, func() (interface{}, error) {
		return computeDashboardStats(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	return v.(*DashboardStats), nil
}

func computeDashboardStats(ctx context.Context, key string) (*DashboardStats, error) {
	started := time.Now()
	recipes, err := models.GetAllUserRecipes(ctx)
	if err != nil {
		return nil, err
	}
	stats := SummarizeRecipes(recipes)
	if err := cacheSet(key, stats, reportCacheTTL()); err != nil {
		config.LogError(config.GetLogger(), "DashboardReport", "computeDashboardStats", "write cache", key, err)
	}
	logSlowReport(ctx, "dashboard", started, map[string]any{"recipes": len(recipes)})
	return stats, nil
}
