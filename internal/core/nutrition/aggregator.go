package nutrition

import (
	"context"
	"strings"

	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/ingredient"

	"go.uber.org/zap"
)

// Entry 一筆已解析的食材
type Entry struct {
	ItemName string  `json:"item_name"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// EntriesFromLines 由解析後的食材行建立彙總輸入
func EntriesFromLines(lines []ingredient.ParsedLine) []Entry {
	entries := make([]Entry, 0, len(lines))
	for _, l := range lines {
		entries = append(entries, Entry{ItemName: l.ItemName, Quantity: l.Quantity, Unit: l.Unit})
	}
	return entries
}

// Analysis 彙總結果與每個食材的明細
type Analysis struct {
	Totals      NutrientTotals `json:"totals"`
	Ingredients []Resolution   `json:"ingredients"`
	Unresolved  []string       `json:"unresolved"`
}

// Aggregator 加總多個食材的營養素
type Aggregator struct {
	resolver *Resolver
	observer diag.Observer
}

// NewAggregator 建立彙總器
func NewAggregator(resolver *Resolver, observer diag.Observer) *Aggregator {
	return &Aggregator{resolver: resolver, observer: diag.OrNop(observer)}
}

// Aggregate 加總營養素，熱量與三大營養素取兩位小數
func (a *Aggregator) Aggregate(ctx context.Context, entries []Entry) NutrientTotals {
	return a.Analyze(ctx, entries).Totals
}

// Analyze 依序解析每個食材並加總；沒有名稱的食材略過
func (a *Aggregator) Analyze(ctx context.Context, entries []Entry) Analysis {
	totals := ZeroTotals()
	analysis := Analysis{Ingredients: []Resolution{}, Unresolved: []string{}}
	for i, e := range entries {
		if strings.TrimSpace(e.ItemName) == "" {
			a.observer.Observe(diag.Event{Kind: diag.IngredientSkipped, Subject: "", Fields: []zap.Field{zap.Int("index", i)}})
			continue
		}
		res := a.resolver.Resolve(ctx, e.ItemName, e.Quantity, e.Unit)
		analysis.Ingredients = append(analysis.Ingredients, res)
		switch res.Status {
		case StatusResolved:
			totals.Add(res.Nutrients)
		case StatusNotFound, StatusUnconvertible, StatusLookupFailed:
			analysis.Unresolved = append(analysis.Unresolved, e.ItemName)
		}
	}
	analysis.Totals = totals.Rounded()
	return analysis
}
