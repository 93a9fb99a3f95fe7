package commands

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const planText = `Lunes
Almuerzo: Arroz con huevo (Ver Receta N°1)

== RECETARIO DETALLADO ==

**Receta N°1: Arroz con Huevo**

**Porciones que Rinde:** 2

**Ingredientes:**
* Arroz blanco (aprox. 100 g)
* 2 unidades de huevo
* Sal al gusto

**Preparación:**
Cocinar el arroz y agregar el huevo.
`

func setupEnv(t *testing.T) string {
	t.Helper()
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("SEED_FILE", "../../../data/reference_seed.yaml")
	t.Setenv("CACHE_ENABLED", "false")

	path := filepath.Join(t.TempDir(), "plan.txt")
	require.NoError(t, os.WriteFile(path, []byte(planText), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestParseLineCommand(t *testing.T) {
	out, err := run(t, "", "parse-line", "2 tazas de arroz", "Pimienta al gusto")
	require.NoError(t, err)

	var lines []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &lines))
	require.Len(t, lines, 2)
	assert.Equal(t, "taza", lines[0]["unit"])
	assert.Equal(t, "pizca", lines[1]["unit"])

	_, err = run(t, "", "parse-line")
	assert.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "", "analyze", "--plan", path)
	require.NoError(t, err)

	var result struct {
		Recipes []struct {
			Name   string `json:"name"`
			Totals struct {
				Calories float64 `json:"calories"`
			} `json:"totals"`
		} `json:"recipes"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Recipes, 1)
	assert.Equal(t, "Arroz con Huevo", result.Recipes[0].Name)
	assert.Equal(t, 285.0, result.Recipes[0].Totals.Calories)
}

func TestRecipesFromStdin(t *testing.T) {
	setupEnv(t)

	out, err := run(t, planText, "recipes")
	require.NoError(t, err)
	assert.Contains(t, out, `"has_recipe_book": true`)
	assert.Contains(t, out, "Arroz con Huevo")

	_, err = run(t, "   ", "recipes")
	assert.Error(t, err)
}

func TestFavoriteCommand(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "", "favorite", "--plan", path, "--recipe", "N°1")
	require.NoError(t, err)
	assert.Contains(t, out, `"source": "favorita_ia_plan"`)

	_, err = run(t, "", "favorite", "--plan", path)
	assert.Error(t, err)

	_, err = run(t, "", "favorite", "--plan", path, "--recipe", "N°4")
	assert.ErrorContains(t, err, "recipe not found")
}

func TestShoppingListCommand(t *testing.T) {
	path := setupEnv(t)

	out, err := run(t, "", "shopping-list", "--plan", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Granos, Legumbres y Pasta")
	assert.Contains(t, out, "Lácteos y Huevos")
}

func TestPrepareCommand(t *testing.T) {
	setupEnv(t)

	in := `{"name": "Huevos revueltos", "servings": 2, "ingredients": [{"description": "Huevo", "quantity": 2, "unit": "unidad"}]}`
	out, err := run(t, in, "prepare")
	require.NoError(t, err)
	assert.Contains(t, out, `"name": "Huevos revueltos"`)

	_, err = run(t, `{"name": "x", "unknown": 1}`, "prepare")
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	setupEnv(t)

	out, err := run(t, "", "seed", "--file", "../../../data/reference_seed.yaml")
	require.NoError(t, err)
	assert.Contains(t, out, "references: ")
	assert.NotContains(t, out, "skipped")
}
