package plan

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/core/units"

	"go.uber.org/zap"
)

// ErrInvalidPreparation 備餐缺少名稱或食材
var ErrInvalidPreparation = errors.New("invalid preparation")

// Amount 使用者輸入的數量，JSON 可為數字或字串
type Amount string

// UnmarshalJSON 接受數字、字串或 null
func (a *Amount) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*a = ""
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err == nil {
		*a = Amount(strconv.FormatFloat(f, 'f', -1, 64))
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("quantity must be a number or string: %w", err)
	}
	*a = Amount(s)
	return nil
}

// PreparationRow 使用者輸入的一列食材
type PreparationRow struct {
	Description string `json:"description"`
	Quantity    Amount `json:"quantity"`
	Unit        string `json:"unit"`
}

// PreparationInput 計算備餐營養素的輸入
type PreparationInput struct {
	Name        string           `json:"name"`
	Servings    float64          `json:"servings"`
	Ingredients []PreparationRow `json:"ingredients"`
}

// PreparationIngredient 整理後的食材列
type PreparationIngredient struct {
	Description string  `json:"description"`
	ItemName    string  `json:"item_name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
}

// Preparation 備餐與其營養素
type Preparation struct {
	Name         string                   `json:"name"`
	Source       string                   `json:"source,omitempty"`
	Servings     float64                  `json:"servings"`
	Ingredients  []PreparationIngredient  `json:"ingredients"`
	Instructions string                   `json:"instructions,omitempty"`
	Condiments   string                   `json:"condiments,omitempty"`
	Presentation string                   `json:"presentation,omitempty"`
	Totals       nutrition.NutrientTotals `json:"totals"`
	PerServing   nutrition.NutrientTotals `json:"per_serving"`
	Resolutions  []nutrition.Resolution   `json:"resolutions"`
	Unresolved   []string                 `json:"unresolved"`
}

// Favorite 將計畫中指定的食譜轉為備餐，識別字可為編號（N°3）或標題
func (s *Service) Favorite(ctx context.Context, planText, identifier string) (*Preparation, error) {
	block, err := s.extractor.FindRecipe(planText, identifier)
	if err != nil {
		return nil, err
	}
	if len(block.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoIngredients, block.Name)
	}

	prep := &Preparation{
		Name:         block.Name,
		Source:       SourceFavoritePlan,
		Servings:     block.Servings.Divisor(),
		Ingredients:  make([]PreparationIngredient, 0, len(block.Ingredients)),
		Instructions: block.Instructions,
		Condiments:   block.Condiments,
		Presentation: block.Presentation,
	}
	for _, line := range block.ParsedIngredients() {
		prep.Ingredients = append(prep.Ingredients, PreparationIngredient{
			Description: strings.TrimSpace(strings.TrimLeft(line.RawLine, "*-•· \t")),
			ItemName:    line.ItemName,
			Quantity:    line.Quantity,
			Unit:        line.Unit,
		})
	}
	s.computeNutrition(ctx, prep)
	return prep, nil
}

// Preparation 計算使用者輸入之備餐的總營養素與每份營養素
func (s *Service) Preparation(ctx context.Context, in PreparationInput) (*Preparation, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidPreparation)
	}

	prep := &Preparation{
		Name:        name,
		Servings:    max(in.Servings, 1),
		Ingredients: make([]PreparationIngredient, 0, len(in.Ingredients)),
	}
	for _, row := range in.Ingredients {
		if strings.TrimSpace(row.Description) == "" {
			continue
		}
		prep.Ingredients = append(prep.Ingredients, s.normalizeRow(row))
	}
	if len(prep.Ingredients) == 0 {
		return nil, fmt.Errorf("%w: at least one ingredient is required", ErrInvalidPreparation)
	}

	s.computeNutrition(ctx, prep)
	return prep, nil
}

// normalizeRow 名稱取自描述的解析結果；數量與單位以使用者輸入為準
func (s *Service) normalizeRow(row PreparationRow) PreparationIngredient {
	desc := strings.TrimSpace(row.Description)
	parsed := ingredient.ParseLine(desc)
	item := PreparationIngredient{Description: desc, ItemName: parsed.ItemName}

	qtyText := strings.TrimSpace(string(row.Quantity))
	unitText := strings.TrimSpace(row.Unit)

	switch {
	case qtyText == "" && unitText == "" && (ingredient.IsToTaste(desc) || ingredient.IsSeasoning(parsed.ItemName)):
		item.Quantity, item.Unit = 1, units.Pinch
	case qtyText == "" && unitText == "":
		item.Quantity, item.Unit = parsed.Quantity, parsed.Unit
	default:
		qty, err := ingredient.ParseQuantity(qtyText)
		if err != nil {
			s.observer.Observe(diag.Event{
				Kind:    diag.LineDegraded,
				Subject: desc,
				Detail:  err.Error(),
				Fields:  []zap.Field{zap.String("unit", unitText)},
			})
			item.Quantity, item.Unit = 0, units.None
			break
		}
		item.Quantity, item.Unit = applyUnit(qty, unitText)
	}
	return item
}

// applyUnit 已知單位正規化（kg、l 轉為 g、ml），未填時視為 unidad，其他單位原樣保留
func applyUnit(qty float64, unit string) (float64, string) {
	if unit == "" {
		return qty, units.Unit
	}
	if m, ok := units.LookupLineUnit(unit); ok {
		return qty * m.Scale, m.Unit
	}
	return qty, strings.ToLower(unit)
}

func (s *Service) computeNutrition(ctx context.Context, prep *Preparation) {
	entries := make([]nutrition.Entry, 0, len(prep.Ingredients))
	for _, ing := range prep.Ingredients {
		entries = append(entries, nutrition.Entry{ItemName: ing.ItemName, Quantity: ing.Quantity, Unit: ing.Unit})
	}
	a := s.aggregator.Analyze(ctx, entries)
	prep.Totals = a.Totals
	prep.PerServing = nutrition.PerServing(a.Totals, prep.Servings)
	prep.Resolutions = a.Ingredients
	prep.Unresolved = a.Unresolved
}
