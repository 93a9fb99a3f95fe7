package ingredient

import (
	"testing"

	"nutriplan/internal/core/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		item     string
		quantity float64
		unit     string
		strategy Strategy
	}{
		{"fraction cup", "* 1/2 taza de harina de trigo", "harina de trigo", 0.5, units.Cup, StrategyQuantityFirst},
		{"grams glued", "* 200g de pechuga de pollo cocida", "pechuga de pollo", 200, units.Gram, StrategyQuantityFirst},
		{"standard parenthetical", "* Pechuga de pollo (aprox. 150 g)", "Pechuga de pollo", 150, units.Gram, StrategyStandardParen},
		{"parenthetical kg", "- Papas (1,5 kg)", "Papas", 1500, units.Gram, StrategyStandardParen},
		{"parenthetical liters", "• Caldo de verduras (2 litros)", "Caldo de verduras", 2000, units.Milliliter, StrategyStandardParen},
		{"parenthetical wins over household", "* 1 taza de arroz cocido (aprox. 158 g)", "arroz", 158, units.Gram, StrategyStandardParen},
		{"compound teaspoon", "* 1 cucharadita de té de azúcar", "azúcar", 1, units.Teaspoon, StrategyQuantityFirst},
		{"tablespoon abbreviation", "* 2 cdas de aceite de oliva", "aceite de oliva", 2, units.Tablespoon, StrategyQuantityFirst},
		{"kilograms scaled", "* 1 kg de papas", "papas", 1000, units.Gram, StrategyQuantityFirst},
		{"unit de", "* 1 unidad de cebolla mediana picada", "cebolla", 1, units.Unit, StrategyQuantityFirst},
		{"mixed fraction", "* 1 1/2 tazas de leche", "leche", 1.5, units.Cup, StrategyQuantityFirst},
		{"decimal comma", "* 0,5 l de leche", "leche", 500, units.Milliliter, StrategyQuantityFirst},
		{"item then quantity", "* Pechuga de pollo: 200 g", "Pechuga de pollo", 200, units.Gram, StrategyQuantityLast},
		{"item then household", "* Aceite de oliva 2 cucharadas soperas", "Aceite de oliva", 2, units.Tablespoon, StrategyQuantityLast},
		{"unknown unit small count", "* 1 huevo", "huevo", 1, units.Unit, StrategyQuantityFirst},
		{"unknown unit half", "* 1/2 palta madura", "palta", 0.5, units.Unit, StrategyQuantityFirst},
		{"unknown unit large count", "* 3 huevos", "huevos", 0, units.None, StrategyQuantityFirst},
		{"to taste", "* Sal y pimienta a gusto", "Sal y pimienta", 1, units.Pinch, StrategySeasoning},
		{"bare seasoning", "* Sal", "Sal", 1, units.Pinch, StrategySeasoning},
		{"seasoning with descriptor", "* Orégano seco", "Orégano", 1, units.Pinch, StrategySeasoning},
		{"ground clove", "* Clavo molido", "Clavo", 1, units.Pinch, StrategySeasoning},
		{"dried parsley", "* Perejil seco", "Perejil", 1, units.Pinch, StrategySeasoning},
		{"seasoning without accent", "* Oregano", "Oregano", 1, units.Pinch, StrategySeasoning},
		{"ground black pepper", "* Pimienta negra molida", "Pimienta negra", 1, units.Pinch, StrategySeasoning},
		{"sea salt", "* Sal marina", "Sal marina", 1, units.Pinch, StrategySeasoning},
		{"al gusto only", "al gusto", "al gusto", 1, units.Pinch, StrategySeasoning},
		{"cantidad necesaria", "* Perejil fresco c.n.", "Perejil", 1, units.Pinch, StrategySeasoning},
		{"no quantity", "* Lechuga romana", "Lechuga romana", 0, units.None, StrategyDegraded},
		{"zero quantity falls back", "* 0 g de azúcar", "azúcar", 0, units.None, StrategyDegraded},
		{"bad fraction falls back", "* 1/0 taza de avena", "avena", 0, units.None, StrategyDegraded},
		{"scientific name kept", "* Maiz (Zea mays)", "Maiz (Zea mays)", 0, units.None, StrategyDegraded},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseLine(tt.raw)
			assert.Equal(t, tt.raw, got.RawLine)
			assert.Equal(t, tt.item, got.ItemName)
			assert.InDelta(t, tt.quantity, got.Quantity, 1e-9)
			assert.Equal(t, tt.unit, got.Unit)
			assert.Equal(t, tt.strategy, got.Strategy)
		})
	}
}

func TestParseLineQuantityAndUnitAgree(t *testing.T) {
	lines := []string{
		"* 3 huevos", "* Lechuga", "* 2 dientes de ajo", "* 250 ml de leche", "* pan integral 2 rebanadas",
		"* 1/0 taza", "", "   ", "* (opcional)",
	}
	for _, raw := range lines {
		got := ParseLine(raw)
		if got.Unit == units.None {
			assert.Zero(t, got.Quantity, raw)
		} else {
			assert.Greater(t, got.Quantity, 0.0, raw)
		}
	}
}

func TestParseLineNeverEmptyName(t *testing.T) {
	got := ParseLine("* 200 g")
	require.Equal(t, units.Gram, got.Unit)
	assert.NotEmpty(t, got.ItemName)
}

func TestParseQuantity(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"1/2", 0.5, true},
		{"1 1/2", 1.5, true},
		{"2,5", 2.5, true},
		{"3.25", 3.25, true},
		{"1/0", 0, false},
		{"0", 0, false},
		{"abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseQuantity(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, ErrMalformedQuantity)
				return
			}
			assert.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}
