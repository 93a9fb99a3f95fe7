// Package plan 串接食譜擷取、食材解析與營養彙總，提供計畫層級的操作
package plan

import (
	"context"
	"errors"
	"fmt"

	"nutriplan/internal/core/cache"
	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/core/recipe"
	"nutriplan/internal/core/shopping"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SourceFavoritePlan 由計畫食譜建立的備餐來源標記
const SourceFavoritePlan = "favorita_ia_plan"

const analysisNamespace = "analysis"

// ErrNoIngredients 食譜沒有可用的食材行
var ErrNoIngredients = errors.New("recipe has no ingredients")

// Options 服務選項
type Options struct {
	Workers  int
	Observer diag.Observer
	Cache    cache.Store
}

// Service 計畫分析服務
type Service struct {
	extractor  *recipe.Extractor
	aggregator *nutrition.Aggregator
	cache      cache.Store
	workers    int
	observer   diag.Observer
}

// NewService 創建計畫服務
func NewService(resolver *nutrition.Resolver, opts Options) *Service {
	observer := diag.OrNop(opts.Observer)
	store := opts.Cache
	if store == nil {
		store = cache.Disabled{}
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 1
	}
	return &Service{
		extractor:  recipe.NewExtractor(observer),
		aggregator: nutrition.NewAggregator(resolver, observer),
		cache:      store,
		workers:    workers,
		observer:   observer,
	}
}

// RecipeView 擷取出的食譜與逐行解析結果
type RecipeView struct {
	recipe.Block
	Parsed []ingredient.ParsedLine `json:"parsed_ingredients"`
}

// RecipesResult 計畫中的食譜與每日引用
type RecipesResult struct {
	HasRecipeBook bool                   `json:"has_recipe_book"`
	Recipes       []RecipeView           `json:"recipes"`
	References    []recipe.DishReference `json:"references"`
}

// Recipes 擷取計畫中的所有食譜。沒有食譜區段時回傳空清單
func (s *Service) Recipes(planText string) RecipesResult {
	structure, book, ok := recipe.SplitPlan(planText)
	result := RecipesResult{
		HasRecipeBook: ok,
		Recipes:       []RecipeView{},
		References:    recipe.ExtractDishReferences(structure),
	}
	if !ok {
		return result
	}
	for _, b := range s.extractor.ExtractBlocks(book) {
		result.Recipes = append(result.Recipes, RecipeView{Block: b, Parsed: b.ParsedIngredients()})
	}
	return result
}

// RecipeAnalysis 單一食譜的營養分析
type RecipeAnalysis struct {
	Number      string                   `json:"number"`
	Name        string                   `json:"name"`
	Servings    recipe.Servings          `json:"servings"`
	Totals      nutrition.NutrientTotals `json:"totals"`
	PerServing  nutrition.NutrientTotals `json:"per_serving"`
	Ingredients []nutrition.Resolution   `json:"ingredients"`
	Unresolved  []string                 `json:"unresolved"`
	Skipped     bool                     `json:"skipped,omitempty"`
}

// PlanAnalysis 整份計畫的營養分析
type PlanAnalysis struct {
	Hash       string                   `json:"hash"`
	Recipes    []RecipeAnalysis         `json:"recipes"`
	References []recipe.DishReference   `json:"references"`
	Totals     nutrition.NutrientTotals `json:"totals"`
	Cached     bool                     `json:"cached"`
}

// Analyze 重新計算計畫中每份食譜的總量與每份營養素，結果依計畫文字雜湊快取
func (s *Service) Analyze(ctx context.Context, planText string) (*PlanAnalysis, error) {
	structure, book, ok := recipe.SplitPlan(planText)
	if !ok {
		return nil, recipe.ErrSectionMissing
	}

	hash := common.HashString(planText)
	var cached PlanAnalysis
	switch err := cache.GetJSON(ctx, s.cache, analysisNamespace, hash, &cached); {
	case err == nil:
		cached.Cached = true
		return &cached, nil
	case !errors.Is(err, cache.ErrCacheMiss):
		common.LogWarn("讀取分析快取失敗", zap.Error(err))
	}

	blocks := s.extractor.ExtractBlocks(book)
	results := make([]RecipeAnalysis, len(blocks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range blocks {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = s.analyzeBlock(gctx, blocks[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze plan: %w", err)
	}

	analysis := &PlanAnalysis{
		Hash:       hash,
		Recipes:    results,
		References: recipe.ExtractDishReferences(structure),
	}
	totals := nutrition.ZeroTotals()
	for _, r := range results {
		totals.Add(r.Totals)
	}
	analysis.Totals = totals.Rounded()

	if err := cache.SetJSON(ctx, s.cache, analysisNamespace, hash, analysis); err != nil {
		common.LogWarn("寫入分析快取失敗", zap.Error(err))
	}
	return analysis, nil
}

func (s *Service) analyzeBlock(ctx context.Context, b recipe.Block) RecipeAnalysis {
	ra := RecipeAnalysis{
		Number:      b.Number,
		Name:        b.Name,
		Servings:    b.Servings,
		Totals:      nutrition.ZeroTotals(),
		PerServing:  nutrition.ZeroTotals(),
		Ingredients: []nutrition.Resolution{},
		Unresolved:  []string{},
	}
	if len(b.Ingredients) == 0 {
		ra.Skipped = true
		return ra
	}
	a := s.aggregator.Analyze(ctx, nutrition.EntriesFromLines(b.ParsedIngredients()))
	ra.Totals = a.Totals
	ra.PerServing = nutrition.PerServing(a.Totals, b.Servings.Divisor())
	ra.Ingredients = a.Ingredients
	ra.Unresolved = a.Unresolved
	return ra
}

// ShoppingList 由計畫中的所有食譜建立採買清單
func (s *Service) ShoppingList(planText string) (*shopping.List, error) {
	_, book, ok := recipe.SplitPlan(planText)
	if !ok {
		return nil, recipe.ErrSectionMissing
	}
	return shopping.Build(s.extractor.ExtractBlocks(book)), nil
}
