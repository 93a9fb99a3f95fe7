package recipe

import (
	"encoding/json"
	"testing"

	"nutriplan/internal/core/diag"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePlan = `**Lunes**
Desayuno: Avena con frutas (Ver Receta N°1)
Almuerzo: Pollo al horno con papas (Ver Receta N°2)
Cena: Avena con frutas (Ver Receta N°1)

**Martes**
Almuerzo: Pollo al horno con papas (Ver Receta N°2)

== RECETARIO DETALLADO ==

**Receta N°1: Avena con Frutas**

**Porciones que Rinde:** 2 porciones

**Ingredientes:**
* 1/2 taza de avena
* 1 taza de leche descremada
  (puede ser vegetal)
* 1 plátano en rodajas
* Canela al gusto

**Preparación:**
1. Cocinar la avena en la leche.
2. Servir con el plátano.

**Condimentos Sugeridos:** Canela.

**Sugerencia de Presentación/Servicio:** Servir tibia.

**Receta N°2: Pollo al Horno con Papas**

**Rinde:** cuatro porciones

**Ingredientes:**
Para el pollo:
* Pechuga de pollo (aprox. 600 g)
* 2 cucharadas de aceite de oliva
Para las papas:
* Papas (1 kg)
1. Este paso no es un ingrediente

**Instrucciones:**
Hornear 40 minutos.

**Sugerencia de Presentación:** Acompañar con ensalada verde.
`

func TestExtractBlocksTwoRecipes(t *testing.T) {
	_, book, ok := SplitPlan(samplePlan)
	require.True(t, ok)

	blocks := ExtractBlocks(book)
	require.Len(t, blocks, 2)

	first := blocks[0]
	assert.Equal(t, "N°1", first.Number)
	assert.Equal(t, "Avena con Frutas", first.Name)
	assert.True(t, first.Servings.Numeric)
	assert.Equal(t, 2.0, first.Servings.Value)
	assert.Equal(t, []string{
		"* 1/2 taza de avena",
		"* 1 taza de leche descremada (puede ser vegetal)",
		"* 1 plátano en rodajas",
		"* Canela al gusto",
	}, first.Ingredients)
	assert.Contains(t, first.Instructions, "1. Cocinar la avena en la leche.\n2. Servir con el plátano.")
	assert.Equal(t, "Canela.", first.Condiments)
	assert.Equal(t, "Servir tibia.", first.Presentation)

	second := blocks[1]
	assert.Equal(t, "N°2", second.Number)
	assert.Equal(t, "Pollo al Horno con Papas", second.Name)
	assert.False(t, second.Servings.Numeric)
	assert.Equal(t, "cuatro porciones", second.Servings.Text)
	assert.Equal(t, []string{
		"* Pechuga de pollo (aprox. 600 g)",
		"* 2 cucharadas de aceite de oliva",
		"* Papas (1 kg)",
	}, second.Ingredients)
	assert.Equal(t, "Hornear 40 minutos.", second.Instructions)
	assert.Equal(t, "Acompañar con ensalada verde.", second.Presentation)
}

func TestExtractBlocksParsedIngredients(t *testing.T) {
	_, book, _ := SplitPlan(samplePlan)
	blocks := ExtractBlocks(book)
	require.Len(t, blocks, 2)

	parsed := blocks[1].ParsedIngredients()
	require.Len(t, parsed, 3)
	assert.Equal(t, "Pechuga de pollo", parsed[0].ItemName)
	assert.Equal(t, 600.0, parsed[0].Quantity)
	assert.Equal(t, "Papas", parsed[2].ItemName)
	assert.Equal(t, 1000.0, parsed[2].Quantity)
}

func TestExtractBlocksDegradedInput(t *testing.T) {
	tests := []struct {
		name string
		book string
	}{
		{"empty", ""},
		{"whitespace", "  \n\t "},
		{"failure text", "No se pudieron parsear las recetas detalladas."},
		{"error marker", "---\nError: La IA bloqueó la generación de recetas detalladas."},
		{"no titles", "Solo texto libre sin recetas."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := ExtractBlocks(tt.book)
			assert.NotNil(t, blocks)
			assert.Empty(t, blocks)
		})
	}
}

func TestExtractBlocksKeepsEmptyRecipe(t *testing.T) {
	rec := &diag.Recorder{}
	blocks := NewExtractor(rec).ExtractBlocks("Receta 3: Agua de limón\n\nSin detalles.")

	require.Len(t, blocks, 1)
	assert.Equal(t, "N°3", blocks[0].Number)
	assert.Equal(t, "Agua de limón", blocks[0].Name)
	assert.Empty(t, blocks[0].Ingredients)
	assert.Equal(t, []string{"Agua de limón"}, rec.Subjects(diag.RecipeDegraded))
}

func TestExtractBlocksTitleOnNextLine(t *testing.T) {
	book := "== RECETARIO DETALLADO ==\n### Receta No. 7:\nTortilla de espinaca\n\nIngredientes:\n- 2 huevos\n- 1 taza de espinaca\n"
	blocks := ExtractBlocks(book)

	require.Len(t, blocks, 1)
	assert.Equal(t, "N°7", blocks[0].Number)
	assert.Equal(t, "Tortilla de espinaca", blocks[0].Name)
	assert.Equal(t, []string{"- 2 huevos", "- 1 taza de espinaca"}, blocks[0].Ingredients)
}

func TestExtractBlocksDiscardsUntitledPreamble(t *testing.T) {
	rec := &diag.Recorder{}
	blocks := NewExtractor(rec).ExtractBlocks("Notas generales del recetario.\n\n**Receta N°1: Batido**\nIngredientes:\n* 1 plátano\n")

	require.Len(t, blocks, 1)
	assert.Equal(t, "Batido", blocks[0].Name)
	assert.Equal(t, []string{"Notas generales del recetario."}, rec.Subjects(diag.RecipeDiscarded))
}

func TestServingsJSON(t *testing.T) {
	numeric, err := json.Marshal(ParseServings("4 porciones"))
	require.NoError(t, err)
	assert.JSONEq(t, `4`, string(numeric))

	text, err := json.Marshal(ParseServings("varias"))
	require.NoError(t, err)
	assert.JSONEq(t, `"varias"`, string(text))

	var s Servings
	require.NoError(t, json.Unmarshal([]byte(`"2,5 porciones"`), &s))
	assert.Equal(t, 2.5, s.Value)
	assert.Equal(t, 2.5, s.Divisor())
	assert.Equal(t, 1.0, ParseServings("media").Divisor())
	assert.Equal(t, 1.0, ParseServings("0").Divisor())
}
