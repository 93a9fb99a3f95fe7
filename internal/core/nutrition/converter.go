package nutrition

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"nutriplan/internal/core/units"
)

// DefaultPinchGrams 一小撮的近似公克數
const DefaultPinchGrams = 0.5

// DensityRule 名稱包含 Match 的食材密度（g/ml）
type DensityRule struct {
	Match      string  `mapstructure:"match" json:"match" yaml:"match"`
	GramsPerML float64 `mapstructure:"grams_per_ml" json:"grams_per_ml" yaml:"grams_per_ml"`
}

// DensityTable 依序比對的密度規則，未命中時為 1.0
type DensityTable []DensityRule

// DefaultDensities 內建密度
var DefaultDensities = DensityTable{
	{Match: "aceite", GramsPerML: 0.92},
	{Match: "salsa de soja", GramsPerML: 1.18},
	{Match: "salsa de soya", GramsPerML: 1.18},
	{Match: "leche", GramsPerML: 1.03},
}

// Lookup 以名稱子字串找密度
func (t DensityTable) Lookup(name string) float64 {
	key := units.Fold(name)
	for _, rule := range t {
		if rule.GramsPerML > 0 && strings.Contains(key, units.Fold(rule.Match)) {
			return rule.GramsPerML
		}
	}
	return 1.0
}

// EquivalenceSource 家用量具等值查詢
type EquivalenceSource interface {
	Equivalence(ctx context.Context, ingredientKey, householdUnit string) (*UnitEquivalence, error)
}

// Converter 將食材數量換算成參考單位
type Converter struct {
	equivalences EquivalenceSource
	densities    DensityTable
	pinchGrams   float64
}

// ConverterOption 換算器選項
type ConverterOption func(*Converter)

// WithDensities 額外密度規則，優先於內建規則
func WithDensities(rules ...DensityRule) ConverterOption {
	return func(c *Converter) {
		c.densities = append(append(DensityTable{}, rules...), c.densities...)
	}
}

// WithPinchGrams 設定一小撮的公克數
func WithPinchGrams(grams float64) ConverterOption {
	return func(c *Converter) {
		if grams > 0 {
			c.pinchGrams = grams
		}
	}
}

// NewConverter 建立換算器，equivalences 可為 nil（只做固定換算）
func NewConverter(equivalences EquivalenceSource, opts ...ConverterOption) *Converter {
	c := &Converter{
		equivalences: equivalences,
		densities:    append(DensityTable{}, DefaultDensities...),
		pinchGrams:   DefaultPinchGrams,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Density 食材的 g/ml 密度
func (c *Converter) Density(ingredientKey string) float64 {
	return c.densities.Lookup(ingredientKey)
}

// Convert 將 quantity unit 換算為 referenceUnit。
// 無法換算時回傳 ErrUnconvertible；等值查詢故障時回傳該錯誤
func (c *Converter) Convert(ctx context.Context, ingredientKey string, quantity float64, unit, referenceUnit string) (float64, error) {
	if !(quantity > 0) || math.IsInf(quantity, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, quantity)
	}
	from := units.NormalizeHousehold(unit)
	to := units.NormalizeHousehold(referenceUnit)
	if from == "" || from == units.Fold(units.None) {
		return 0, fmt.Errorf("%w: no unit for %q", ErrUnconvertible, ingredientKey)
	}
	if from == to {
		return quantity, nil
	}

	quantity, from = flatten(quantity, from)
	to, toScale := targetScale(to)
	if from == to {
		return quantity / toScale, nil
	}

	var grams float64
	switch from {
	case units.Gram:
		grams = quantity
	case units.Milliliter:
		grams = quantity * c.Density(ingredientKey)
	case units.Pinch:
		grams = quantity * c.pinchGrams
	default:
		perUnit, err := c.gramsPerUnit(ctx, ingredientKey, from)
		if err != nil {
			return 0, err
		}
		grams = quantity * perUnit
	}

	switch to {
	case units.Gram:
		return grams / toScale, nil
	case units.Milliliter:
		return grams / c.Density(ingredientKey) / toScale, nil
	}
	return 0, fmt.Errorf("%w: %s to %s for %q", ErrUnconvertible, unit, referenceUnit, ingredientKey)
}

// flatten kg 與 l 先乘 1000 轉成 g 與 ml
func flatten(quantity float64, unit string) (float64, string) {
	switch unit {
	case units.Kilogram:
		return quantity * 1000, units.Gram
	case units.Liter:
		return quantity * 1000, units.Milliliter
	}
	return quantity, unit
}

func targetScale(unit string) (string, float64) {
	switch unit {
	case units.Kilogram:
		return units.Gram, 1000
	case units.Liter:
		return units.Milliliter, 1000
	}
	return unit, 1
}

func (c *Converter) gramsPerUnit(ctx context.Context, ingredientKey, unit string) (float64, error) {
	if c.equivalences == nil {
		return 0, fmt.Errorf("%w: %s for %q", ErrUnconvertible, unit, ingredientKey)
	}
	for _, candidate := range units.HouseholdCandidates(unit) {
		eq, err := c.equivalences.Equivalence(ctx, ingredientKey, candidate)
		switch {
		case err == nil && eq.GramsPerUnit > 0:
			return eq.GramsPerUnit, nil
		case err != nil && !errors.Is(err, ErrReferenceNotFound):
			return 0, err
		}
	}
	return 0, fmt.Errorf("%w: no equivalence %s for %q", ErrUnconvertible, unit, ingredientKey)
}
