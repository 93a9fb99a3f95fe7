// Package shopping 由食譜的食材行產生購物清單
package shopping

import (
	"math"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/recipe"
	"nutriplan/internal/core/units"
)

// 分類名稱，輸出順序固定
const (
	CategoryProduce  = "Frutas y Verduras"
	CategoryProteins = "Proteínas (Carnes, Aves, Pescado, Tofu)"
	CategoryGrains   = "Granos, Legumbres y Pasta"
	CategoryDairy    = "Lácteos y Huevos"
	CategoryPantry   = "Despensa (Aceites, Condimentos, Salsas, etc.)"
)

var categoryOrder = []string{
	CategoryProduce, CategoryProteins, CategoryGrains, CategoryDairy, CategoryPantry,
}

// 常備品只列名稱，不列數量；以整個字（可含複數）比對
var pantryKeywords = []string{
	"aceite", "sal", "pimienta", "vinagre", "salsa de soja", "curry", "comino", "orégano", "laurel",
	"tomillo", "romero", "pimentón", "jengibre", "canela", "nuez moscada", "ajo en polvo",
	"cebolla en polvo", "caldo", "levadura", "miel", "azúcar", "edulcorante", "mostaza", "ketchup",
}

// 其餘食材依字首比對分類，未命中者歸為蔬果
var categoryKeywords = []struct {
	category string
	words    []string
}{
	{CategoryProteins, []string{"pollo", "carne", "pescado", "salmón", "merluza", "atún", "tofu", "ternera", "cerdo", "pavo"}},
	{CategoryGrains, []string{"arroz", "quinoa", "lenteja", "garbanzo", "fideo", "pasta", "pan"}},
	{CategoryDairy, []string{"leche", "queso", "yogur", "huevo"}},
}

// 不需要購買
var skippedItems = []string{"agua"}

// Quantity 某單位的加總數量
type Quantity struct {
	Unit   string  `json:"unit"`
	Amount float64 `json:"amount"`
}

// Item 一個購物項目
type Item struct {
	Name       string     `json:"name"`
	Category   string     `json:"category"`
	Quantities []Quantity `json:"quantities"`
}

// String 常備品只有名稱，其他為「名稱: 數量 單位, ...」
func (i Item) String() string {
	if i.Category == CategoryPantry || len(i.Quantities) == 0 {
		return i.Name
	}
	parts := make([]string, 0, len(i.Quantities))
	for _, q := range i.Quantities {
		parts = append(parts, FormatAmount(q.Amount)+" "+q.Unit)
	}
	return i.Name + ": " + strings.Join(parts, ", ")
}

// Category 一個分類與其顯示文字
type Category struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// List 購物清單
type List struct {
	Categories []Category `json:"categories"`
	Items      []Item     `json:"items"`
}

// ByCategory 分類名稱對應顯示文字
func (l *List) ByCategory() map[string][]string {
	out := make(map[string][]string, len(l.Categories))
	for _, c := range l.Categories {
		out[c.Name] = c.Items
	}
	return out
}

// Build 重新解析所有食譜的食材行並產生購物清單
func Build(blocks []recipe.Block) *List {
	var lines []ingredient.ParsedLine
	for _, b := range blocks {
		lines = append(lines, b.ParsedIngredients()...)
	}
	return FromLines(lines)
}

// FromLines 依名稱（不分大小寫）分組並依單位加總，略過沒有數量的行
func FromLines(lines []ingredient.ParsedLine) *List {
	var (
		items []*Item
		index = make(map[string]*Item)
	)
	for _, l := range lines {
		if l.ItemName == "" || !l.HasAmount() {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(l.ItemName))
		item, ok := index[key]
		if !ok {
			item = &Item{Name: capitalize(key), Category: categorize(key)}
			index[key] = item
			items = append(items, item)
		}
		item.add(l.Unit, l.Quantity)
	}

	list := &List{Items: []Item{}}
	grouped := make(map[string][]string, len(categoryOrder))
	for _, item := range items {
		if item.Category == "" {
			continue
		}
		list.Items = append(list.Items, *item)
		grouped[item.Category] = append(grouped[item.Category], item.String())
	}
	for _, name := range categoryOrder {
		entries := grouped[name]
		if entries == nil {
			entries = []string{}
		}
		list.Categories = append(list.Categories, Category{Name: name, Items: entries})
	}
	return list
}

func (i *Item) add(unit string, amount float64) {
	for k := range i.Quantities {
		if i.Quantities[k].Unit == unit {
			i.Quantities[k].Amount += amount
			return
		}
	}
	i.Quantities = append(i.Quantities, Quantity{Unit: unit, Amount: amount})
}

// categorize 回傳分類；不需購買的項目回傳空字串
func categorize(key string) string {
	words := strings.Fields(units.Fold(key))
	for _, kw := range pantryKeywords {
		if containsPhrase(words, strings.Fields(units.Fold(kw)), false) {
			return CategoryPantry
		}
	}
	for _, c := range categoryKeywords {
		for _, kw := range c.words {
			if containsPhrase(words, strings.Fields(units.Fold(kw)), true) {
				return c.category
			}
		}
	}
	for _, kw := range skippedItems {
		if containsPhrase(words, []string{kw}, false) {
			return ""
		}
	}
	return CategoryProduce
}

// containsPhrase 片語是否以連續的字出現；prefix 時最後一個字只需字首相符，否則容許複數字尾
func containsPhrase(words, phrase []string, prefix bool) bool {
	if len(phrase) == 0 {
		return false
	}
	for start := 0; start+len(phrase) <= len(words); start++ {
		ok := true
		for j, p := range phrase {
			w := words[start+j]
			last := j == len(phrase)-1
			switch {
			case w == p:
			case last && prefix && strings.HasPrefix(w, p):
			case last && !prefix && (w == p+"s" || w == p+"es"):
			default:
				ok = false
			}
			if !ok {
				break
			}
		}
		if ok {
			return true
		}
	}
	return false
}

// FormatAmount 整數不帶小數，其餘取兩位
func FormatAmount(v float64) string {
	if v == math.Trunc(v) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
