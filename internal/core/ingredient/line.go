// Package ingredient 解析自由文字的食材行並清理食材名稱
package ingredient

import (
	"regexp"
	"strings"

	"nutriplan/internal/core/units"
)

// Strategy 產生解析結果的規則名稱
type Strategy string

const (
	StrategyStandardParen Strategy = "standard_parenthetical" // "(aprox. 150 g)"
	StrategyQuantityFirst Strategy = "quantity_unit_item"     // "200 g de pollo"
	StrategyQuantityLast  Strategy = "item_quantity_unit"     // "pollo: 200 g"
	StrategySeasoning     Strategy = "seasoning"              // "sal al gusto"
	StrategyDegraded      Strategy = "degraded"
)

// ParsedLine 一行食材的解析結果。數量與單位同時有效，或同時為 0 與 "N/A"
type ParsedLine struct {
	RawLine  string   `json:"raw_line"`
	ItemName string   `json:"item_name"`
	Quantity float64  `json:"quantity"`
	Unit     string   `json:"unit"`
	Strategy Strategy `json:"strategy"`
}

// HasAmount 是否帶有可用的數量與單位
func (p ParsedLine) HasAmount() bool {
	return p.Quantity > 0 && p.Unit != units.None
}

type lineStrategy struct {
	name  Strategy
	parse func(text string) (ParsedLine, bool)
}

// lineStrategies 依信心由高到低排列，第一個成功者勝出；順序本身就是行為的一部分
var lineStrategies = []lineStrategy{
	{StrategyStandardParen, parseStandardParenthetical},
	{StrategyQuantityFirst, parseQuantityFirst},
	{StrategyQuantityLast, parseQuantityLast},
	{StrategySeasoning, parseSeasoning},
}

var (
	standardParenRe = regexp.MustCompile(`(?i)\(\s*(?:aprox\.?\s*|~\s*)?` + quantityPattern + `\s*(\p{L}+)\.?\s*\)`)
	quantityFirstRe = regexp.MustCompile(`^` + quantityPattern + `\s*(.+)$`)
	quantityLastRe  = regexp.MustCompile(`^(.+?)[\s:,]+` + quantityPattern + `\s*(\p{L}[\p{L}.]*(?:\s+\p{L}[\p{L}.]*){0,2})$`)
	toTasteRe       = regexp.MustCompile(`(?i)(?:^|[\s,(])(?:al gusto|a gusto|a su gusto|cantidad necesaria|c\.\s?n\.?|c/n)(?:$|[\s,.)])`)
)

// seasonings 沒有數量時視為「一小撮」的調味料，以去重音的小寫形式比對
var seasonings = foldSet(
	"sal y pimienta", "sal", "sal marina", "pimienta", "pimienta negra", "especias", "orégano",
	"comino", "nuez moscada", "pimentón", "curry", "cúrcuma",
	"jengibre en polvo", "ajo en polvo", "cebolla en polvo", "canela",
	"clavo molido", "laurel", "tomillo", "romero", "albahaca",
	"perejil seco", "cilantro seco",
)

func foldSet(names ...string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[units.Fold(n)] = true
	}
	return set
}

// ParseLine 將一行自由文字食材轉為名稱、數量與單位。不會失敗：
// 無法判斷時回傳數量 0、單位 "N/A" 與盡量清理過的名稱
func ParseLine(raw string) ParsedLine {
	text := stripMarkers(raw)
	for _, s := range lineStrategies {
		if p, ok := s.parse(text); ok {
			p.RawLine = raw
			p.Strategy = s.name
			if p.ItemName == "" {
				p.ItemName = text
			}
			return p
		}
	}
	return degraded(raw, text)
}

func degraded(raw, text string) ParsedLine {
	name := CleanItemName(stripLeadingMeasure(text))
	if name == "" {
		name = strings.TrimSpace(raw)
	}
	return ParsedLine{RawLine: raw, ItemName: name, Quantity: 0, Unit: units.None, Strategy: StrategyDegraded}
}

// stripMarkers 去除清單符號與結尾標點
func stripMarkers(raw string) string {
	text := strings.TrimLeft(strings.TrimSpace(raw), "*-•· \t")
	return strings.TrimSpace(strings.TrimRight(text, ".,;:* \t"))
}

// parseStandardParenthetical 取最後一個單位為 g/ml/kg/l 的括號份量
func parseStandardParenthetical(text string) (ParsedLine, bool) {
	matches := standardParenRe.FindAllStringSubmatchIndex(text, -1)
	for i := len(matches) - 1; i >= 0; i-- {
		m := matches[i]
		measure, ok := units.LookupStandardUnit(text[m[4]:m[5]])
		if !ok {
			continue
		}
		qty, err := ParseQuantity(text[m[2]:m[3]])
		if err != nil {
			continue
		}
		rest := strings.TrimSpace(text[:m[0]] + " " + text[m[1]:])
		return ParsedLine{
			ItemName: CleanItemName(stripLeadingMeasure(rest)),
			Quantity: qty * measure.Scale,
			Unit:     measure.Unit,
		}, true
	}
	return ParsedLine{}, false
}

// stripLeadingMeasure 移除開頭已被括號份量取代的「數量 + 單位 (+ de)」
func stripLeadingMeasure(text string) string {
	m := quantityFirstRe.FindStringSubmatch(text)
	if m == nil {
		return text
	}
	if _, rest, ok := units.MatchLeadingUnit(m[2]); ok {
		return rest
	}
	return text
}

func parseQuantityFirst(text string) (ParsedLine, bool) {
	m := quantityFirstRe.FindStringSubmatch(text)
	if m == nil {
		return ParsedLine{}, false
	}
	qty, err := ParseQuantity(m[1])
	if err != nil {
		return ParsedLine{}, false
	}
	if measure, rest, ok := units.MatchLeadingUnit(m[2]); ok {
		return ParsedLine{ItemName: CleanItemName(rest), Quantity: qty * measure.Scale, Unit: measure.Unit}, true
	}
	return withUnknownUnit(m[2], qty, m[1]), true
}

func parseQuantityLast(text string) (ParsedLine, bool) {
	m := quantityLastRe.FindStringSubmatch(text)
	if m == nil {
		return ParsedLine{}, false
	}
	qty, err := ParseQuantity(m[2])
	if err != nil {
		return ParsedLine{}, false
	}
	if measure, ok := units.LookupLineUnit(m[3]); ok {
		return ParsedLine{ItemName: CleanItemName(m[1]), Quantity: qty * measure.Scale, Unit: measure.Unit}, true
	}
	return withUnknownUnit(m[1]+" "+m[3], qty, m[2]), true
}

// withUnknownUnit 未知單位字併回名稱；只有像「一個」的數量才推定為 unidad
func withUnknownUnit(item string, qty float64, rawQty string) ParsedLine {
	name := CleanItemName(item)
	if isSmallCount(qty, rawQty) {
		return ParsedLine{ItemName: name, Quantity: qty, Unit: units.Unit}
	}
	return ParsedLine{ItemName: name, Quantity: 0, Unit: units.None}
}

func parseSeasoning(text string) (ParsedLine, bool) {
	bare := stripLeadingMeasure(text)
	name := CleanItemName(bare)
	// 清理會去掉「molido」「seco」等字，兩種形式都要比對
	if toTasteRe.MatchString(text) || IsSeasoning(bare) || IsSeasoning(name) {
		return ParsedLine{ItemName: name, Quantity: 1, Unit: units.Pinch}, true
	}
	return ParsedLine{}, false
}

// IsSeasoning 名稱是否屬於調味料清單
func IsSeasoning(name string) bool {
	return seasonings[units.Fold(name)]
}

// IsToTaste 文字是否含「適量」類片語
func IsToTaste(text string) bool {
	return toTasteRe.MatchString(text)
}
