package ingredient

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanItemName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Pechuga de pollo cocida", "Pechuga de pollo"},
		{"* Arroz integral (aprox. 150 g):", "Arroz integral"},
		{"diente de ajo picado", "ajo"},
		{"Pollo (opcional)", "Pollo"},
		{"Maiz (Zea mays)", "Maiz (Zea mays)"},
		{"Maiz, grano, entero (Zea mays spp)", "Maiz, grano, entero (Zea mays spp)"},
		{"Leche (1 taza)", "Leche"},
		{"Zanahoria rallada (1 unidad mediana)", "Zanahoria"},
		{"Zanahoria (en bastones) rallada", "Zanahoria"},
		{"Tomate entero pelado", "Tomate"},
		{"Aceite de oliva virgen extra", "Aceite de oliva"},
		{"Cebolla mediana, picada", "Cebolla"},
		{"2 unidades de huevo", "huevo"},
		{"1/2 palta madura", "palta"},
		{"Avena 1/2", "Avena"},
		{"de pechuga de pavo", "pechuga de pavo"},
		{"de pollo", "de pollo"},
		{"Cocido", "Cocido"},
		{"Sal y pimienta a gusto", "Sal y pimienta"},
		{"Queso fresco (bajo en grasa)", "Queso"},
		{"Garbanzos (en conserva) escurridos", "Garbanzos"},
		{"Pimiento encurtido", "Pimiento encurtido"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanItemName(tt.in))
		})
	}
}

func TestCleanItemNameIsIdempotent(t *testing.T) {
	inputs := []string{
		"Pollo (opcional) cocido",
		"Maiz (Zea mays)",
		"* 1 unidad de cebolla mediana picada (aprox. 110 g)",
		"bloque de tofu firme, prensado y cortado en cubos",
		"Filete de merluza fresco sin piel",
		"de lentejas rojas secas 1/2",
		"Garbanzos (en conserva) escurridos",
	}
	for _, in := range inputs {
		once := CleanItemName(in)
		assert.Equal(t, once, CleanItemName(once), in)
	}
}
