// Package units 食材單位詞彙表，行解析器與單位換算共用同一份資料
package units

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// 標準單位
const (
	Gram       = "g"
	Milliliter = "ml"
	Kilogram   = "kg"
	Liter      = "l"
	Cup        = "taza"
	Tablespoon = "cucharada"
	Teaspoon   = "cucharadita"
	Unit       = "unidad"
	Piece      = "pieza"
	Fillet     = "filete"
	Slice      = "rebanada"
	Portion    = "porcion"
	Pinch      = "pizca"
	None       = "N/A"
)

// 家用量具（等值表使用的正規形式）
const (
	HouseholdTablespoon    = "cucharada sopera"
	HouseholdTeaspoon      = "cucharadita de té"
	HouseholdMediumUnit    = "unidad mediana"
	HouseholdMediumSlice   = "rebanada mediana"
	HouseholdMediumPortion = "porción mediana"
)

// Measure 單位查詢結果，Scale 為換算到 Unit 的倍數
type Measure struct {
	Unit  string
	Scale float64
}

func synonyms(target Measure, words ...string) map[string]Measure {
	m := make(map[string]Measure, len(words))
	for _, w := range words {
		m[Fold(w)] = target
	}
	return m
}

func merge(tables ...map[string]Measure) map[string]Measure {
	out := make(map[string]Measure)
	for _, t := range tables {
		for k, v := range t {
			out[k] = v
		}
	}
	return out
}

var (
	gramWords       = []string{"g", "gr", "grs", "grm", "gramo", "gramos"}
	milliliterWords = []string{"ml", "mls", "mlt", "cc", "mililitro", "mililitros"}
	kilogramWords   = []string{"kg", "kgs", "kilo", "kilos", "kilogramo", "kilogramos"}
	literWords      = []string{"l", "lt", "lts", "litro", "litros"}

	// standardTable 括號內「標準」份量可接受的單位
	standardTable = merge(
		synonyms(Measure{Gram, 1}, gramWords...),
		synonyms(Measure{Milliliter, 1}, milliliterWords...),
		synonyms(Measure{Gram, 1000}, kilogramWords...),
		synonyms(Measure{Milliliter, 1000}, literWords...),
	)

	// lineTable 食材行中數量後面可出現的單位
	lineTable = merge(
		standardTable,
		synonyms(Measure{Teaspoon, 1},
			"cucharadita", "cucharaditas", "cdta", "cdtas", "cdita", "cditas", "cdte",
			"cucharadita de té", "cucharaditas de té", "cucharadita té", "cucharita", "cucharitas"),
		synonyms(Measure{Tablespoon, 1},
			"cucharada", "cucharadas", "cda", "cdas", "cs",
			"cucharada sopera", "cucharadas soperas"),
		synonyms(Measure{Cup, 1}, "taza", "tazas", "tz"),
		synonyms(Measure{Unit, 1}, "unidad", "unidades", "unid", "u", "ud", "uds", "un"),
		synonyms(Measure{Piece, 1}, "pieza", "piezas", "pz", "pzs"),
		synonyms(Measure{Fillet, 1}, "filete", "filetes"),
		synonyms(Measure{Slice, 1}, "rebanada", "rebanadas"),
		synonyms(Measure{Portion, 1}, "porcion", "porciones"),
		synonyms(Measure{Pinch, 1}, "pizca", "pizcas"),
	)

	// householdTable 換算器的單位正規化，順序上先比對較長的片語
	householdTable = merge(
		synonyms(Measure{Gram, 1}, gramWords...),
		synonyms(Measure{Milliliter, 1}, milliliterWords...),
		synonyms(Measure{Kilogram, 1}, kilogramWords...),
		synonyms(Measure{Liter, 1}, literWords...),
		synonyms(Measure{Cup, 1}, "taza", "tazas", "tz", "tzs"),
		synonyms(Measure{HouseholdTablespoon, 1},
			"cucharada sopera", "cucharadas soperas", "cda sopera", "cdas soperas",
			"cs", "cucharada", "cucharadas", "cda", "cdas"),
		synonyms(Measure{HouseholdTeaspoon, 1},
			"cucharadita de té", "cucharaditas de té", "cdta de té", "cucharadita té",
			"cucharadita", "cucharaditas", "cdta", "cdtas", "cdita", "cditas", "cucharita", "cucharitas"),
		synonyms(Measure{HouseholdMediumUnit, 1}, "unidad mediana", "unidades medianas", "unid mediana", "ud mediana"),
		synonyms(Measure{HouseholdMediumSlice, 1}, "rebanada mediana", "rebanadas medianas"),
		synonyms(Measure{HouseholdMediumPortion, 1}, "porción mediana", "porciones medianas"),
		synonyms(Measure{Unit, 1}, "unidad", "unidades", "unid", "unids", "un", "ud", "u"),
		synonyms(Measure{Piece, 1}, "pieza", "piezas", "pz", "pzs"),
		synonyms(Measure{Fillet, 1}, "filete", "filetes"),
		synonyms(Measure{Slice, 1}, "rebanada", "rebanadas"),
		synonyms(Measure{Portion, 1}, "porcion", "porciones"),
		synonyms(Measure{Pinch, 1}, "pizca", "pizcas"),
	)

	// 找不到等值列時依序嘗試的替代家用量具
	householdFallbacks = map[string][]string{
		Unit:    {HouseholdMediumUnit},
		Slice:   {HouseholdMediumSlice},
		Portion: {HouseholdMediumPortion},
	}
)

// Fold 轉小寫、去除重音並壓縮空白，作為詞彙表的比對鍵
func Fold(s string) string {
	decomposed := norm.NFD.String(strings.ToLower(s))
	var b strings.Builder
	b.Grow(len(decomposed))
	for _, r := range decomposed {
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(norm.NFC.String(b.String())), " ")
}

func key(token string) string {
	return strings.TrimRight(Fold(token), ".")
}

// LookupStandardUnit 查詢括號標準份量的單位（g/ml/kg/l 變體），kg 與 l 回傳 ×1000
func LookupStandardUnit(token string) (Measure, bool) {
	m, ok := standardTable[key(token)]
	return m, ok
}

// LookupLineUnit 查詢食材行單位
func LookupLineUnit(token string) (Measure, bool) {
	m, ok := lineTable[key(token)]
	return m, ok
}

// MatchLeadingUnit 從文字開頭比對最長的單位片語（最多三個字），
// 回傳單位與剩餘文字；單位後的 "de" 一併移除
func MatchLeadingUnit(text string) (Measure, string, bool) {
	words := strings.Fields(text)
	for n := min(3, len(words)); n >= 1; n-- {
		m, ok := LookupLineUnit(strings.Join(words[:n], " "))
		if !ok {
			continue
		}
		rest := words[n:]
		if len(rest) > 0 && Fold(rest[0]) == "de" {
			rest = rest[1:]
		}
		return m, strings.Join(rest, " "), true
	}
	return Measure{}, text, false
}

// NormalizeHousehold 將任意單位寫法正規化為換算器詞彙，未知單位回傳折疊後的原字串
func NormalizeHousehold(unit string) string {
	k := key(unit)
	if m, ok := householdTable[k]; ok {
		return m.Unit
	}
	return k
}

// HouseholdCandidates 等值表查詢順序：單位本身，再加上預設的「中等」量具
func HouseholdCandidates(unit string) []string {
	return append([]string{unit}, householdFallbacks[unit]...)
}

// SameUnit 兩個單位寫法是否代表同一單位
func SameUnit(a, b string) bool {
	return NormalizeHousehold(a) == NormalizeHousehold(b)
}

// 在一般文字中也常出現的縮寫，不視為單位字
var ambiguousWords = map[string]bool{"u": true, "un": true, "ud": true, "uds": true, "cs": true, "l": true}

// IsUnitWord 判斷單字是否為任何已知單位
func IsUnitWord(word string) bool {
	k := key(word)
	if ambiguousWords[k] {
		return false
	}
	if _, ok := lineTable[k]; ok {
		return true
	}
	_, ok := householdTable[k]
	return ok
}
