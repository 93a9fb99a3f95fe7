package recipe

import (
	"regexp"
	"strings"

	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/units"
)

// parseFailureText 產生食譜失敗時寫入計畫的固定文字
const parseFailureText = "No se pudieron parsear las recetas detalladas."

var (
	sectionMarkerRe = regexp.MustCompile(`(?i)=+[ \t]*RECETARIO[ \t]+DETALLADO[ \t]*=+`)
	errorMarkerRe   = regexp.MustCompile(`(?m)^[ \t]*Error\b`)

	titleLineRe = regexp.MustCompile(`(?im)^[ \t]*(?:[*#_]+[ \t]*)?receta[ \t]*(?:n[°º]|nro\.?|no\.|n\.)?[ \t]*\d+[ \t]*[*_]*[ \t]*:`)
	titleRe     = regexp.MustCompile(`(?i)^[ \t]*(?:[*#_]+[ \t]*)?receta[ \t]*(?:n[°º]|nro\.?|no\.|n\.)?[ \t]*(\d+)[ \t]*[*_]*[ \t]*:[ \t]*(.*)$`)

	headerRe = regexp.MustCompile(`(?im)^[ \t]*(?:[*#_]+[ \t]*)?(porciones que rinde|porciones|rinde|ingredientes(?:[ \t]*\([^)\n]*\))?|modo de preparaci[oó]n|preparaci[oó]n|instrucciones|condimentos sugeridos|condimentos|sugerencia de presentaci[oó]n(?:[ \t]*/[ \t]*servicio)?|presentaci[oó]n)[ \t]*[*_]*[ \t]*:[ \t]*[*_]*`)

	numberedStepRe = regexp.MustCompile(`^\d+[.)]\s`)
)

type section int

const (
	sectionUnknown section = iota
	sectionServings
	sectionIngredients
	sectionInstructions
	sectionCondiments
	sectionPresentation
)

func sectionOf(header string) section {
	h := units.Fold(header)
	switch {
	case strings.HasPrefix(h, "porciones"), strings.HasPrefix(h, "rinde"):
		return sectionServings
	case strings.HasPrefix(h, "ingredientes"):
		return sectionIngredients
	case strings.Contains(h, "preparacion"), strings.HasPrefix(h, "instrucciones"):
		return sectionInstructions
	case strings.HasPrefix(h, "condimentos"):
		return sectionCondiments
	case strings.HasPrefix(h, "sugerencia"), strings.HasPrefix(h, "presentacion"):
		return sectionPresentation
	}
	return sectionUnknown
}

// titleStrategy 嘗試從區塊開頭取得編號與標題，並回傳剩餘內容
type titleStrategy struct {
	name  string
	parse func(block string) (number, name, body string, ok bool)
}

// titleStrategies 先要求標題行後緊接段落標題，再退回只看第一行
var titleStrategies = []titleStrategy{
	{"title_before_header", titleBeforeHeader},
	{"title_first_line", titleFirstLine},
}

// Extractor 食譜區塊擷取器
type Extractor struct {
	observer diag.Observer
}

// NewExtractor 建立擷取器，observer 可為 nil
func NewExtractor(observer diag.Observer) *Extractor {
	return &Extractor{observer: diag.OrNop(observer)}
}

// ExtractBlocks 以預設（不記錄）擷取器擷取食譜
func ExtractBlocks(book string) []Block {
	return NewExtractor(nil).ExtractBlocks(book)
}

// ExtractBlocks 將食譜區段切成各自的食譜。空白或帶錯誤標記的文字回傳空清單
func (e *Extractor) ExtractBlocks(book string) []Block {
	text := strings.TrimSpace(book)
	if text == "" || text == parseFailureText || errorMarkerRe.MatchString(text) {
		return []Block{}
	}
	if loc := sectionMarkerRe.FindStringIndex(text); loc != nil && strings.TrimSpace(text[:loc[0]]) == "" {
		text = text[loc[1]:]
	}

	blocks := []Block{}
	for _, raw := range splitBefore(text, titleLineRe) {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		block, ok := e.parseBlock(raw)
		if !ok {
			continue
		}
		blocks = append(blocks, block)
	}
	return blocks
}

// splitBefore 在每個符合處之前切開，分隔行保留在下一段開頭
func splitBefore(text string, re *regexp.Regexp) []string {
	locs := re.FindAllStringIndex(text, -1)
	if len(locs) == 0 {
		return []string{text}
	}
	parts := make([]string, 0, len(locs)+1)
	if locs[0][0] > 0 {
		parts = append(parts, text[:locs[0][0]])
	}
	for i, loc := range locs {
		end := len(text)
		if i+1 < len(locs) {
			end = locs[i+1][0]
		}
		parts = append(parts, text[loc[0]:end])
	}
	return parts
}

func (e *Extractor) parseBlock(raw string) (Block, bool) {
	block := strings.Trim(raw, "\r\n")
	var (
		number, name, body string
		found              bool
	)
	for _, s := range titleStrategies {
		if number, name, body, found = s.parse(block); found {
			break
		}
	}
	if !found {
		e.observer.Observe(diag.Event{Kind: diag.RecipeDiscarded, Subject: firstLine(block), Detail: "no title"})
		return Block{}, false
	}

	b := Block{Number: "N°" + number, Name: name, Ingredients: []string{}}
	fillSections(&b, body)
	if b.Empty() {
		e.observer.Observe(diag.Event{Kind: diag.RecipeDegraded, Subject: b.Name, Detail: "all sections empty"})
	}
	return b, true
}

func titleBeforeHeader(block string) (string, string, string, bool) {
	head, rest := splitFirstLine(block)
	m := titleRe.FindStringSubmatch(head)
	if m == nil {
		return "", "", "", false
	}
	name := cleanTitle(m[2])
	if name == "" {
		return "", "", "", false
	}
	next, _ := splitFirstLine(strings.TrimLeft(rest, " \t\r\n"))
	if next != "" && !headerRe.MatchString(next) {
		return "", "", "", false
	}
	return m[1], name, rest, true
}

// titleFirstLine 標題可能獨占一行，名稱寫在下一行
func titleFirstLine(block string) (string, string, string, bool) {
	head, rest := splitFirstLine(block)
	m := titleRe.FindStringSubmatch(head)
	if m == nil {
		return "", "", "", false
	}
	if name := cleanTitle(m[2]); name != "" {
		return m[1], name, rest, true
	}
	next, after := splitFirstLine(strings.TrimLeft(rest, " \t\r\n"))
	if next == "" || headerRe.MatchString(next) {
		return "", "", "", false
	}
	if name := cleanTitle(next); name != "" {
		return m[1], name, after, true
	}
	return "", "", "", false
}

func splitFirstLine(s string) (string, string) {
	line, rest, _ := strings.Cut(s, "\n")
	return strings.TrimRight(line, "\r"), rest
}

func firstLine(s string) string {
	line, _ := splitFirstLine(strings.TrimSpace(s))
	return line
}

func cleanTitle(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_#"))
}

// fillSections 每個段落從標題延伸到下一個已知標題或區塊結尾
func fillSections(b *Block, body string) {
	headers := headerRe.FindAllStringSubmatchIndex(body, -1)
	for i, h := range headers {
		end := len(body)
		if i+1 < len(headers) {
			end = headers[i+1][0]
		}
		content := body[h[1]:end]

		switch sectionOf(body[h[2]:h[3]]) {
		case sectionServings:
			if b.Servings.Text == "" {
				b.Servings = ParseServings(collapseSpaces(content))
			}
		case sectionIngredients:
			b.Ingredients = append(b.Ingredients, ingredientLines(content)...)
		case sectionInstructions:
			b.Instructions = appendText(b.Instructions, content)
		case sectionCondiments:
			b.Condiments = appendText(b.Condiments, content)
		case sectionPresentation:
			b.Presentation = appendText(b.Presentation, content)
		}
	}
}

func appendText(existing, content string) string {
	content = strings.TrimSpace(strings.Trim(strings.TrimSpace(content), "-"))
	switch {
	case content == "":
		return existing
	case existing == "":
		return content
	}
	return existing + "\n\n" + content
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(strings.Trim(strings.TrimSpace(s), "-")), " ")
}

// ingredientLines 清單項目各為一行食材；緊接在項目後的非項目行視為上一行的折行
func ingredientLines(content string) []string {
	var (
		lines    []string
		previous = -1
	)
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.Trim(trimmed, "-*_=•· ") == "":
			previous = -1
		case isSubHeader(trimmed):
			previous = -1
		case numberedStepRe.MatchString(trimmed):
			return lines
		case isBullet(trimmed):
			lines = append(lines, trimmed)
			previous = len(lines) - 1
		case previous >= 0:
			lines[previous] += " " + trimmed
		}
	}
	return lines
}

func isBullet(line string) bool {
	return strings.HasPrefix(line, "*") || strings.HasPrefix(line, "-") ||
		strings.HasPrefix(line, "•") || strings.HasPrefix(line, "·")
}

// isSubHeader 「Para la salsa:」這類分組標題
func isSubHeader(line string) bool {
	s := strings.TrimSpace(strings.Trim(line, "*_#-• \t"))
	return strings.HasSuffix(s, ":") && len([]rune(s)) <= 60
}
