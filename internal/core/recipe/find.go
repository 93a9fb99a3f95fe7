package recipe

import (
	"fmt"
	"regexp"
	"strings"

	"nutriplan/internal/core/units"
)

var (
	numberTokenRe = regexp.MustCompile(`(?i)\bn(?:[°º]|ro\.?|o\.|\.)[ \t]*(\d+)`)
	referenceRe   = regexp.MustCompile(`(?i)([\p{L}\d][\p{L}\d \t,.'/-]*?)[ \t]*\([ \t]*ver[ \t]+receta[ \t]*(?:n[°º]|nro\.?|no\.|n\.)?[ \t]*(\d+)[ \t]*\)`)
)

// SplitPlan 以「== RECETARIO DETALLADO ==」將計畫分為每日結構與食譜區段
func SplitPlan(text string) (structure, book string, ok bool) {
	loc := sectionMarkerRe.FindStringIndex(text)
	if loc == nil {
		return text, "", false
	}
	return strings.TrimSpace(text[:loc[0]]), strings.TrimSpace(text[loc[1]:]), true
}

// FindRecipe 在完整計畫中找出一份食譜。識別字含編號（N°5）時優先以編號比對，
// 否則以標題（不分大小寫與重音）比對，完全相同者優先於前綴相同者
func FindRecipe(planText, identifier string) (*Block, error) {
	return NewExtractor(nil).FindRecipe(planText, identifier)
}

// FindRecipe 見 FindRecipe
func (e *Extractor) FindRecipe(planText, identifier string) (*Block, error) {
	_, book, ok := SplitPlan(planText)
	if !ok {
		return nil, ErrSectionMissing
	}
	blocks := e.ExtractBlocks(book)

	if m := numberTokenRe.FindStringSubmatch(identifier); m != nil {
		want := "N°" + strings.TrimLeft(m[1], "0")
		for i := range blocks {
			if "N°"+strings.TrimLeft(strings.TrimPrefix(blocks[i].Number, "N°"), "0") == want {
				return &blocks[i], nil
			}
		}
	}

	title := units.Fold(strings.Trim(referenceRe.ReplaceAllString(identifier, "$1"), " *_#"))
	if title == "" {
		return nil, fmt.Errorf("%w: %q", ErrRecipeNotFound, identifier)
	}
	for i := range blocks {
		if units.Fold(blocks[i].Name) == title {
			return &blocks[i], nil
		}
	}
	for i := range blocks {
		if strings.HasPrefix(units.Fold(blocks[i].Name), title) {
			return &blocks[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrRecipeNotFound, identifier)
}

// ExtractDishReferences 找出每日結構中的「菜名 (Ver Receta N°X)」，依出現順序，同一編號只取第一次
func ExtractDishReferences(structure string) []DishReference {
	refs := []DishReference{}
	seen := make(map[string]bool)
	for _, m := range referenceRe.FindAllStringSubmatch(structure, -1) {
		number := "N°" + m[2]
		if seen[number] {
			continue
		}
		dish := strings.TrimSpace(strings.Trim(m[1], " \t,.-/"))
		if dish == "" {
			continue
		}
		seen[number] = true
		refs = append(refs, DishReference{Number: number, Dish: dish})
	}
	return refs
}
