// Package recipe 從計畫文字中的「詳細食譜」區段擷取食譜區塊
package recipe

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"nutriplan/internal/core/ingredient"
)

var (
	// ErrSectionMissing 計畫文字沒有詳細食譜區段標記
	ErrSectionMissing = errors.New("recipe book section missing")
	// ErrRecipeNotFound 找不到指定編號或標題的食譜
	ErrRecipeNotFound = errors.New("recipe not found")
)

// Block 一份從文字擷取的食譜
type Block struct {
	Number       string   `json:"number"`
	Name         string   `json:"name"`
	Servings     Servings `json:"servings"`
	Ingredients  []string `json:"ingredients"`
	Instructions string   `json:"instructions"`
	Condiments   string   `json:"condiments"`
	Presentation string   `json:"presentation"`
}

// ParsedIngredients 逐行解析食材
func (b Block) ParsedIngredients() []ingredient.ParsedLine {
	lines := make([]ingredient.ParsedLine, 0, len(b.Ingredients))
	for _, raw := range b.Ingredients {
		lines = append(lines, ingredient.ParseLine(raw))
	}
	return lines
}

// Empty 所有段落皆空
func (b Block) Empty() bool {
	return len(b.Ingredients) == 0 && b.Instructions == "" && b.Condiments == "" &&
		b.Presentation == "" && b.Servings.Text == ""
}

var servingsNumberRe = regexp.MustCompile(`\d+(?:[.,]\d+)?`)

// Servings 份數：文字中含數字時取數值，否則保留原文字
type Servings struct {
	Text    string
	Value   float64
	Numeric bool
}

// ParseServings 解析份數文字
func ParseServings(text string) Servings {
	s := Servings{Text: strings.TrimSpace(text)}
	if m := servingsNumberRe.FindString(s.Text); m != "" {
		if v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64); err == nil {
			s.Value = v
			s.Numeric = true
		}
	}
	return s
}

// Divisor 每份計算用的除數，至少為 1
func (s Servings) Divisor() float64 {
	if s.Numeric && s.Value > 1 {
		return s.Value
	}
	return 1
}

// MarshalJSON 數值份數輸出數字，否則輸出文字
func (s Servings) MarshalJSON() ([]byte, error) {
	if s.Numeric {
		return json.Marshal(s.Value)
	}
	return json.Marshal(s.Text)
}

// UnmarshalJSON 接受數字或文字
func (s *Servings) UnmarshalJSON(data []byte) error {
	var v float64
	if err := json.Unmarshal(data, &v); err == nil {
		*s = Servings{Text: strconv.FormatFloat(v, 'f', -1, 64), Value: v, Numeric: true}
		return nil
	}
	var text string
	if err := json.Unmarshal(data, &text); err != nil {
		return err
	}
	*s = ParseServings(text)
	return nil
}

// DishReference 每日計畫中「菜名 (Ver Receta N°X)」的引用
type DishReference struct {
	Number string `json:"number"`
	Dish   string `json:"dish"`
}
