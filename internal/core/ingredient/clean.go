package ingredient

import (
	"regexp"
	"strings"
	"unicode"

	"nutriplan/internal/core/units"
)

// 開頭的填充片語，移除後留下食材本體
var leadingFillers = []string{
	"bloque de ", "diente de ", "dientes de ", "loncha de ", "lonchas de ", "filete de ",
	"cabeza de ", "ramita de ", "ramitas de ", "hojas de ", "hoja de ", "trozo de ", "trozos de ",
}

// 結尾的狀態描述，依序逐一檢查；只在字串結尾且前面還有內容時移除
var trailingDescriptors = []string{
	"cocidos", "cocidas", "crudos", "crudas", "picados", "picadas", "molidos", "molidas", "rallados", "ralladas",
	"cocido", "cocida", "crudo", "cruda", "picado", "picada", "molido", "molida", "rallado", "rallada",
	"en cubos", "en trozos", "en juliana", "en rodajas", "en floretes", "fileteado", "troceado", "troceada",
	"laminado", "laminada",
	"frescos", "frescas", "enteros", "enteras", "congelados", "congeladas", "secos", "secas",
	"fresco", "fresca", "entero", "entera", "congelado", "congelada", "seco", "seca",
	"medianos", "medianas", "pequeños", "pequeñas", "grandes", "mediano", "mediana", "pequeño", "pequeña", "grande",
	"cortado", "cortada", "pelado", "pelada", "desmenuzado", "desmenuzada", "deshuesado", "deshuesada",
	"maduro", "madura", "etc", "aprox",
	"sin piel", "con piel", "escurrido", "escurrida", "escurridos", "escurridas", "en conserva", "al natural", "en agua",
	"firme, prensado y", "firme", "prensado", "triturado", "virgen extra", "en lonchas", "asadas", "salteadas",
	"al gusto", "a gusto", "a su gusto", "cantidad necesaria", "c.n", "c/n", "opcional",
}

// ProtectedScientificNames 括號內含這些字樣時保留括號（學名屬於食材名稱的一部分）
var ProtectedScientificNames = []string{
	"zea mays", "spp", "oryza sativa", "phaseolus vulgaris", "cicer arietinum", "glycine max", "triticum",
}

var (
	consumedQuantityParenRe = regexp.MustCompile(`(?i)\s*\((?:aprox\.?\s*)?[\d.,/\s]*\d[\d.,/\s]*(?:g|ml|kg|l|unidad|taza|cucharada|cucharadita|pizca|porci[oó]n|rebanada|filete|pieza)[\p{L}]*(?:\s+\p{L}+)?\.?\s*\)$`)
	trailingParenRe         = regexp.MustCompile(`\s*\(([^()]*)\)$`)
	leadingQuantityRe       = regexp.MustCompile(`(?i)^(?:\d+\s*/\s*\d+\s+|\d+(?:[.,]\d+)?\s+(?:unidad(?:es)?\s+de\s+)?)`)
	trailingFractionRe      = regexp.MustCompile(`\s+\d+/\d+$`)
	wordSplitRe             = regexp.MustCompile(`[^\p{L}]+`)
)

// CleanItemName 將食材片語清理為查詢用的基本名稱。
// 各步驟依序作用在前一步的結果上，並重複到字串不再變化，因此對已清理的輸入是冪等的。
func CleanItemName(text string) string {
	name := strings.TrimSpace(text)
	for {
		next := cleanOnce(name)
		if next == name {
			return name
		}
		name = next
	}
}

func cleanOnce(s string) string {
	name := strings.TrimLeft(s, "*-•· \t")
	name = strings.TrimSpace(strings.TrimRight(name, ":,*-.; \t"))

	name = strings.TrimSpace(consumedQuantityParenRe.ReplaceAllString(name, ""))

	lower := strings.ToLower(name)
	for _, filler := range leadingFillers {
		if strings.HasPrefix(lower, filler) {
			name = strings.TrimSpace(name[len(filler):])
			lower = strings.ToLower(name)
		}
	}

	name = stripDescriptiveParen(name)

	for _, phrase := range trailingDescriptors {
		name = stripTrailingPhrase(name, phrase)
	}

	name = leadingQuantityRe.ReplaceAllString(name, "")
	name = strings.TrimSpace(trailingFractionRe.ReplaceAllString(name, ""))

	if strings.HasPrefix(strings.ToLower(name), "de ") && len(strings.Fields(name)) > 2 {
		name = strings.TrimSpace(name[3:])
	}
	return strings.TrimSpace(name)
}

// stripDescriptiveParen 移除結尾純描述性的括號（無數字、無單位字），學名除外
func stripDescriptiveParen(name string) string {
	loc := trailingParenRe.FindStringSubmatchIndex(name)
	if loc == nil {
		return name
	}
	content := name[loc[2]:loc[3]]
	if isProtected(content) || strings.IndexFunc(content, unicode.IsDigit) >= 0 {
		return name
	}
	for _, word := range wordSplitRe.Split(content, -1) {
		if word != "" && units.IsUnitWord(word) {
			return name
		}
	}
	if rest := strings.TrimSpace(name[:loc[0]]); rest != "" {
		return rest
	}
	return name
}

func isProtected(content string) bool {
	lower := strings.ToLower(content)
	for _, p := range ProtectedScientificNames {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// stripTrailingPhrase 移除以空白或逗號分隔的結尾片語
func stripTrailingPhrase(name, phrase string) string {
	lower := strings.ToLower(name)
	if len(lower) != len(name) || !strings.HasSuffix(lower, phrase) {
		return name
	}
	prefix := name[:len(name)-len(phrase)]
	rest := strings.TrimRight(prefix, " \t")
	if len(rest) == len(prefix) && !strings.HasSuffix(rest, ",") {
		// 片語必須是獨立的字
		return name
	}
	rest = strings.TrimSpace(strings.TrimRight(rest, ", \t"))
	if rest == "" {
		return name
	}
	return rest
}
