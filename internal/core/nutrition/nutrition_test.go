package nutrition

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/units"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seededStore(t *testing.T) *MemoryStore {
	t.Helper()
	ctx := context.Background()
	store := NewMemoryStore()
	refs := []NutrientReference{
		{CanonicalName: "Arroz blanco", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 200, ProteinG: 4, CarbG: 44, FatG: 0.4,
			Micros: Micros{"hierro_mg": Number(0.8), "fuente": Text("USDA")}},
		{CanonicalName: "Arroz integral", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 111, ProteinG: 2.6, CarbG: 23, FatG: 0.9},
		{CanonicalName: "Aceite de oliva", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 884, FatG: 100},
		{CanonicalName: "Leche descremada", ReferenceQuantity: 100, ReferenceUnit: "ml", Calories: 35, ProteinG: 3.4, CarbG: 5, FatG: 0.1},
		{CanonicalName: "Palta", Synonyms: []string{"Aguacate"}, ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 160, ProteinG: 2, CarbG: 8.5, FatG: 14.7},
		{CanonicalName: "Huevo", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 155, ProteinG: 13, CarbG: 1.1, FatG: 11},
		{CanonicalName: "Pechuga de pollo sin piel cocida al vapor", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 165, ProteinG: 31, FatG: 3.6},
		{CanonicalName: "Sal", ReferenceQuantity: 100, ReferenceUnit: "g", Micros: Micros{"sodio_mg": Number(38758)}},
	}
	for _, ref := range refs {
		require.NoError(t, store.UpsertReference(ctx, ref))
	}
	require.NoError(t, store.UpsertEquivalence(ctx, UnitEquivalence{IngredientKey: "Huevo", HouseholdUnit: "unidad mediana", GramsPerUnit: 50}))
	require.NoError(t, store.UpsertEquivalence(ctx, UnitEquivalence{IngredientKey: "Arroz blanco", HouseholdUnit: "tazas", GramsPerUnit: 158}))
	require.NoError(t, store.UpsertEquivalence(ctx, UnitEquivalence{IngredientKey: "aceite de oliva", HouseholdUnit: "cda", GramsPerUnit: 13.5}))
	return store
}

func TestConverter(t *testing.T) {
	ctx := context.Background()
	conv := NewConverter(seededStore(t))

	tests := []struct {
		name string
		key  string
		qty  float64
		unit string
		ref  string
		want float64
	}{
		{"same unit", "Arroz blanco", 37.5, "g", "g", 37.5},
		{"same unit synonym", "Arroz blanco", 12, "gramos", "g", 12},
		{"oil ml to g", "Aceite de oliva", 15, "ml", "g", 13.8},
		{"milk g to ml", "Leche descremada", 103, "g", "ml", 100},
		{"water-like default density", "Caldo", 250, "ml", "g", 250},
		{"kilograms", "Arroz blanco", 1.5, "kg", "g", 1500},
		{"liters to ml", "Leche descremada", 0.5, "l", "ml", 500},
		{"pinch", "Sal", 2, "pizca", "g", 1},
		{"household cup", "Arroz blanco", 0.5, "taza", "g", 79},
		{"household tablespoon alias", "Aceite de oliva", 2, "cucharadas", "g", 27},
		{"household to ml", "Aceite de oliva", 1, "cucharada sopera", "ml", 13.5 / 0.92},
		{"unit falls back to medium", "Huevo", 2, "unidad", "g", 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := conv.Convert(ctx, tt.key, tt.qty, tt.unit, tt.ref)
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestConverterFailures(t *testing.T) {
	ctx := context.Background()
	conv := NewConverter(seededStore(t))

	_, err := conv.Convert(ctx, "Huevo", 1, "taza", "g")
	assert.ErrorIs(t, err, ErrUnconvertible)

	_, err = conv.Convert(ctx, "Huevo", 1, units.None, "g")
	assert.ErrorIs(t, err, ErrUnconvertible)

	_, err = conv.Convert(ctx, "Huevo", 0, "g", "g")
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = NewConverter(nil).Convert(ctx, "Huevo", 1, "unidad", "g")
	assert.ErrorIs(t, err, ErrUnconvertible)
}

type failingEquivalences struct{}

func (failingEquivalences) Equivalence(context.Context, string, string) (*UnitEquivalence, error) {
	return nil, errors.New("connection refused")
}

func TestConverterPropagatesStoreErrors(t *testing.T) {
	_, err := NewConverter(failingEquivalences{}).Convert(context.Background(), "Huevo", 1, "unidad", "g")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnconvertible)
}

func TestConverterSameUnitRoundTrip(t *testing.T) {
	conv := NewConverter(nil)
	for _, q := range []float64{0.001, 0.1, 1, 3.3333, 250, 1e6} {
		for _, u := range []string{"g", "ml", "kg", "taza", "unidad", "cucharada"} {
			got, err := conv.Convert(context.Background(), "Cualquiera", q, u, u)
			require.NoError(t, err)
			assert.Equal(t, q, got)
		}
	}
}

func TestDensityOverrides(t *testing.T) {
	conv := NewConverter(nil, WithDensities(DensityRule{Match: "aceite de coco", GramsPerML: 0.9}), WithPinchGrams(0.3))
	assert.Equal(t, 0.9, conv.Density("Aceite de coco"))
	assert.Equal(t, 0.92, conv.Density("Aceite de oliva"))
	assert.Equal(t, 1.18, conv.Density("Salsa de soja baja en sodio"))
	assert.Equal(t, 1.0, conv.Density("Agua"))

	got, err := conv.Convert(context.Background(), "Sal", 1, "pizca", "g")
	require.NoError(t, err)
	assert.Equal(t, 0.3, got)
}

func TestResolverStrategies(t *testing.T) {
	ctx := context.Background()
	r := NewResolver(seededStore(t))

	tests := []struct {
		query    string
		ref      string
		strategy MatchStrategy
		weak     bool
	}{
		{"arroz blanco", "Arroz blanco", MatchExact, false},
		{"ARROZ BLANCO cocido", "Arroz blanco", MatchExact, false},
		{"arroz", "Arroz blanco", MatchPrefix, false},
		{"oliva", "Aceite de oliva", MatchSubstring, false},
		{"aguacate", "Palta", MatchSynonym, false},
		{"huevo de campo", "Huevo", MatchToken, false},
		{"pechuga marinada", "Pechuga de pollo sin piel cocida al vapor", MatchToken, true},
		{"pechuga de pollo a la plancha", "Pechuga de pollo sin piel cocida al vapor", MatchToken, false},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			ref, strategy, weak, err := r.Match(ctx, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.ref, ref.CanonicalName)
			assert.Equal(t, tt.strategy, strategy)
			assert.Equal(t, tt.weak, weak)
		})
	}

	_, _, _, err := r.Match(ctx, "sal")
	assert.NoError(t, err)
	_, _, _, err = r.Match(ctx, "lim")
	assert.ErrorIs(t, err, ErrReferenceNotFound)
}

func TestResolveScalesByFactor(t *testing.T) {
	rec := &diag.Recorder{}
	r := NewResolver(seededStore(t), WithObserver(rec))

	res := r.Resolve(context.Background(), "Arroz blanco", 50, "g")
	require.Equal(t, StatusResolved, res.Status)
	assert.Equal(t, 100.0, res.Nutrients.Calories)
	assert.Equal(t, 2.0, res.Nutrients.ProteinG)
	assert.Equal(t, 22.0, res.Nutrients.CarbG)
	assert.Equal(t, 0.2, res.Nutrients.FatG)
	assert.InDelta(t, 0.4, res.Nutrients.Micros["hierro_mg"].Number, 1e-12)
	assert.Equal(t, Text("USDA"), res.Nutrients.Micros["fuente"])
	assert.Equal(t, []string{"Arroz blanco"}, rec.Subjects(diag.ReferenceMatched))
}

func TestResolveDegradesToZero(t *testing.T) {
	rec := &diag.Recorder{}
	r := NewResolver(seededStore(t), WithObserver(rec))
	ctx := context.Background()

	missing := r.Resolve(ctx, "Quinoa roja", 100, "g")
	assert.Equal(t, StatusNotFound, missing.Status)
	assert.Equal(t, ZeroTotals(), missing.Nutrients)
	assert.Equal(t, []string{"Quinoa roja"}, rec.Subjects(diag.ReferenceMissed))

	unconvertible := r.Resolve(ctx, "Huevo", 1, "taza")
	assert.Equal(t, StatusUnconvertible, unconvertible.Status)
	assert.Equal(t, ZeroTotals(), unconvertible.Nutrients)
	assert.Equal(t, []string{"Huevo"}, rec.Subjects(diag.UnitUnconvertible))

	none := r.Resolve(ctx, "Lechuga", 0, units.None)
	assert.Equal(t, StatusNoQuantity, none.Status)
	assert.Equal(t, ZeroTotals(), none.Nutrients)
}

func TestAggregate(t *testing.T) {
	ctx := context.Background()
	rec := &diag.Recorder{}
	store := seededStore(t)
	agg := NewAggregator(NewResolver(store, WithObserver(rec)), rec)

	empty := agg.Aggregate(ctx, nil)
	assert.Equal(t, ZeroTotals(), empty)
	assert.NotNil(t, empty.Micros)

	analysis := agg.Analyze(ctx, []Entry{
		{ItemName: "Arroz blanco", Quantity: 50, Unit: "g"},
		{ItemName: "Arroz blanco", Quantity: 0.5, Unit: "taza"},
		{ItemName: "", Quantity: 10, Unit: "g"},
		{ItemName: "Quinoa", Quantity: 10, Unit: "g"},
		{ItemName: "Sal", Quantity: 1, Unit: units.Pinch},
	})
	// 50 g + 79 g de arroz
	assert.Equal(t, 258.0, analysis.Totals.Calories)
	assert.Equal(t, 5.16, analysis.Totals.ProteinG)
	assert.InDelta(t, 1.032, analysis.Totals.Micros["hierro_mg"].Number, 1e-9)
	assert.InDelta(t, 193.79, analysis.Totals.Micros["sodio_mg"].Number, 1e-9)
	assert.Len(t, analysis.Ingredients, 4)
	assert.Equal(t, []string{"Quinoa"}, analysis.Unresolved)
	assert.Len(t, rec.Subjects(diag.IngredientSkipped), 1)
}

func TestMicrosAddAndPerServing(t *testing.T) {
	m := Micros{}
	m.Add("calcio_mg", Number(10))
	m.Add("calcio_mg", Number(5))
	m.Add("nota", Text("alto"))
	m.Add("nota", Text("moderado"))
	m.Add("vit_c", Text("trazas"))
	m.Add("vit_c", Number(3))
	assert.Equal(t, Number(15), m["calcio_mg"])
	assert.Equal(t, Text("moderado"), m["nota"])
	assert.Equal(t, Number(3), m["vit_c"])

	per := PerServing(NutrientTotals{Calories: 301, ProteinG: 10, Micros: m}, 2)
	assert.Equal(t, 150.5, per.Calories)
	assert.Equal(t, 5.0, per.ProteinG)
	assert.Equal(t, Number(7.5), per.Micros["calcio_mg"])
	assert.Equal(t, Text("moderado"), per.Micros["nota"])

	assert.Equal(t, 301.0, PerServing(NutrientTotals{Calories: 301}, 0).Calories)
	assert.NotNil(t, PerServing(NutrientTotals{}, 3).Micros)
}

func TestMicroValueJSON(t *testing.T) {
	out, err := json.Marshal(Micros{"hierro_mg": Number(1.5), "fuente": Text("tabla")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"hierro_mg":1.5,"fuente":"tabla"}`, string(out))

	var back Micros
	require.NoError(t, json.Unmarshal([]byte(`{"zinc_mg": 2, "nota": "alto"}`), &back))
	assert.Equal(t, Number(2), back["zinc_mg"])
	assert.Equal(t, Text("alto"), back["nota"])
}

func TestUpsertEquivalenceRequiresReference(t *testing.T) {
	store := NewMemoryStore()
	err := store.UpsertEquivalence(context.Background(), UnitEquivalence{IngredientKey: "Nada", HouseholdUnit: "taza", GramsPerUnit: 10})
	assert.ErrorIs(t, err, ErrReferenceNotFound)

	err = store.UpsertReference(context.Background(), NutrientReference{CanonicalName: "Nada", ReferenceUnit: "g"})
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}
