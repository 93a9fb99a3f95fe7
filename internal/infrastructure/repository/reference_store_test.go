package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/infrastructure/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := database.Open(context.Background(), &config.DatabaseConfig{Driver: config.DriverSQLite, DSN: dsn, MaxRetries: 1}, false)
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	require.NoError(t, database.AutoMigrate(db, Models()...))

	store := NewGormStore(db)
	ctx := context.Background()
	refs := []nutrition.NutrientReference{
		{CanonicalName: "Arroz blanco", ReferenceQuantity: 100, ReferenceUnit: "gramos", Calories: 200, ProteinG: 4, CarbG: 44, FatG: 0.4,
			Micros: nutrition.Micros{"hierro_mg": nutrition.Number(0.8), "fuente": nutrition.Text("USDA")}},
		{CanonicalName: "Arroz integral", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 111},
		{CanonicalName: "Palta", Synonyms: []string{"Aguacate", " aguacate "}, ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 160},
		{CanonicalName: "Pechuga de pollo sin piel", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 165},
		{CanonicalName: "Harina 100%_integral", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 340},
	}
	for _, ref := range refs {
		require.NoError(t, store.UpsertReference(ctx, ref))
	}
	require.NoError(t, store.UpsertEquivalence(ctx, nutrition.UnitEquivalence{IngredientKey: "arroz blanco", HouseholdUnit: "tazas", GramsPerUnit: 158}))
	return store
}

func TestGormStoreLookups(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	ref, err := store.Exact(ctx, "ARROZ  Blanco")
	require.NoError(t, err)
	assert.Equal(t, "Arroz blanco", ref.CanonicalName)
	assert.Equal(t, "g", ref.ReferenceUnit)
	assert.Equal(t, nutrition.Number(0.8), ref.Micros["hierro_mg"])
	assert.Equal(t, nutrition.Text("USDA"), ref.Micros["fuente"])

	ref, err = store.Prefix(ctx, "arroz")
	require.NoError(t, err)
	assert.Equal(t, "Arroz blanco", ref.CanonicalName)

	ref, err = store.Substring(ctx, "pollo")
	require.NoError(t, err)
	assert.Equal(t, "Pechuga de pollo sin piel", ref.CanonicalName)

	ref, err = store.Synonym(ctx, "Aguacate")
	require.NoError(t, err)
	assert.Equal(t, "Palta", ref.CanonicalName)
	assert.Equal(t, []string{"aguacate"}, ref.Synonyms)

	_, err = store.Exact(ctx, "quinoa")
	assert.ErrorIs(t, err, nutrition.ErrReferenceNotFound)

	// 萬用字元照字面比對
	_, err = store.Substring(ctx, "100%")
	assert.NoError(t, err)
	_, err = store.Prefix(ctx, "h_rina")
	assert.ErrorIs(t, err, nutrition.ErrReferenceNotFound)
}

func TestGormStoreContainingToken(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	refs, err := store.ContainingToken(ctx, "integral", 5)
	require.NoError(t, err)
	require.Len(t, refs, 2)
	assert.Equal(t, "Arroz integral", refs[0].CanonicalName)

	refs, err = store.ContainingToken(ctx, "arroz", 1)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, "Arroz blanco", refs[0].CanonicalName)
}

func TestGormStoreEquivalence(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	eq, err := store.Equivalence(ctx, "Arroz Blanco", "taza")
	require.NoError(t, err)
	assert.Equal(t, 158.0, eq.GramsPerUnit)

	_, err = store.Equivalence(ctx, "Arroz blanco", "cucharada")
	assert.ErrorIs(t, err, nutrition.ErrReferenceNotFound)

	err = store.UpsertEquivalence(ctx, nutrition.UnitEquivalence{IngredientKey: "Quinoa", HouseholdUnit: "taza", GramsPerUnit: 170})
	assert.ErrorIs(t, err, nutrition.ErrReferenceNotFound)

	require.NoError(t, store.UpsertEquivalence(ctx, nutrition.UnitEquivalence{IngredientKey: "Arroz blanco", HouseholdUnit: "taza", GramsPerUnit: 160}))
	eq, err = store.Equivalence(ctx, "arroz blanco", "tz")
	require.NoError(t, err)
	assert.Equal(t, 160.0, eq.GramsPerUnit)
}

func TestGormStoreUpsertUpdatesInPlace(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	before, err := store.Count(ctx)
	require.NoError(t, err)

	require.NoError(t, store.UpsertReference(ctx, nutrition.NutrientReference{
		CanonicalName: "palta", ReferenceQuantity: 100, ReferenceUnit: "g", Calories: 167,
	}))
	after, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	ref, err := store.Exact(ctx, "Palta")
	require.NoError(t, err)
	assert.Equal(t, 167.0, ref.Calories)
	assert.Empty(t, ref.Synonyms)

	err = store.UpsertReference(ctx, nutrition.NutrientReference{CanonicalName: "Nada", ReferenceQuantity: 0})
	assert.ErrorIs(t, err, nutrition.ErrInvalidQuantity)
	assert.NoError(t, store.Ping(ctx))
}

func TestResolverOverGormStore(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	resolver := nutrition.NewResolver(store)

	res := resolver.Resolve(ctx, "Arroz blanco", 0.5, "taza")
	assert.Equal(t, nutrition.StatusResolved, res.Status)
	assert.Equal(t, 79.0, res.ConvertedQuantity)
	assert.Equal(t, 158.0, res.Nutrients.Calories)
}
