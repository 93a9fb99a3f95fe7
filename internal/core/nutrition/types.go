// Package nutrition 食材比對、單位換算與營養素彙總
package nutrition

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
)

var (
	// ErrReferenceNotFound 參考資料中沒有符合的食材或等值列
	ErrReferenceNotFound = errors.New("nutrient reference not found")
	// ErrUnconvertible 沒有任何規則能把單位換算成參考單位
	ErrUnconvertible = errors.New("unit not convertible")
	// ErrInvalidQuantity 數量不是正數
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// MicroKind 微量營養素的值種類
type MicroKind int

const (
	MicroNumber MicroKind = iota
	MicroText
)

// MicroValue 微量營養素值：數值或無法計算的描述文字
type MicroValue struct {
	Kind   MicroKind
	Number float64
	Text   string
}

// Number 建立數值
func Number(v float64) MicroValue { return MicroValue{Kind: MicroNumber, Number: v} }

// Text 建立文字值
func Text(s string) MicroValue { return MicroValue{Kind: MicroText, Text: s} }

// IsNumber 是否為數值
func (v MicroValue) IsNumber() bool { return v.Kind == MicroNumber }

// Scale 數值乘上倍數，文字原樣保留
func (v MicroValue) Scale(factor float64) MicroValue {
	if v.Kind != MicroNumber {
		return v
	}
	return Number(v.Number * factor)
}

// MarshalJSON 數值輸出數字，文字輸出字串
func (v MicroValue) MarshalJSON() ([]byte, error) {
	if v.Kind == MicroNumber {
		return json.Marshal(v.Number)
	}
	return json.Marshal(v.Text)
}

// UnmarshalJSON 接受數字或字串
func (v *MicroValue) UnmarshalJSON(data []byte) error {
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*v = Number(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("micronutrient must be number or string: %w", err)
	}
	*v = Text(s)
	return nil
}

// UnmarshalYAML 種子檔中同樣接受數字或字串
func (v *MicroValue) UnmarshalYAML(unmarshal func(any) error) error {
	var raw any
	if err := unmarshal(&raw); err != nil {
		return err
	}
	switch x := raw.(type) {
	case int:
		*v = Number(float64(x))
	case float64:
		*v = Number(x)
	case string:
		*v = Text(x)
	default:
		*v = Text(fmt.Sprint(x))
	}
	return nil
}

// String 顯示用
func (v MicroValue) String() string {
	if v.Kind == MicroNumber {
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	}
	return v.Text
}

// Micros 微量營養素，鍵為任意名稱
type Micros map[string]MicroValue

// Add 數值與數值相加；其他組合以後寫入者為準
func (m Micros) Add(key string, v MicroValue) {
	if cur, ok := m[key]; ok && cur.IsNumber() && v.IsNumber() {
		m[key] = Number(cur.Number + v.Number)
		return
	}
	m[key] = v
}

// Scale 回傳乘上倍數後的副本
func (m Micros) Scale(factor float64) Micros {
	out := make(Micros, len(m))
	for k, v := range m {
		out[k] = v.Scale(factor)
	}
	return out
}

// NutrientTotals 熱量、三大營養素與微量營養素
type NutrientTotals struct {
	Calories float64 `json:"calories"`
	ProteinG float64 `json:"protein_g"`
	CarbG    float64 `json:"carb_g"`
	FatG     float64 `json:"fat_g"`
	Micros   Micros  `json:"micros"`
}

// ZeroTotals 全為零且 Micros 非 nil
func ZeroTotals() NutrientTotals {
	return NutrientTotals{Micros: Micros{}}
}

// Add 累加另一筆結果
func (t *NutrientTotals) Add(o NutrientTotals) {
	if t.Micros == nil {
		t.Micros = Micros{}
	}
	t.Calories += o.Calories
	t.ProteinG += o.ProteinG
	t.CarbG += o.CarbG
	t.FatG += o.FatG
	for k, v := range o.Micros {
		t.Micros.Add(k, v)
	}
}

// Rounded 三大營養素與熱量四捨五入到兩位小數
func (t NutrientTotals) Rounded() NutrientTotals {
	micros := t.Micros
	if micros == nil {
		micros = Micros{}
	}
	return NutrientTotals{
		Calories: round2(t.Calories),
		ProteinG: round2(t.ProteinG),
		CarbG:    round2(t.CarbG),
		FatG:     round2(t.FatG),
		Micros:   micros,
	}
}

// PerServing 每份營養素，除數至少為 1；文字型微量營養素原樣保留
func PerServing(t NutrientTotals, servings float64) NutrientTotals {
	divisor := math.Max(servings, 1)
	if math.IsNaN(divisor) || math.IsInf(divisor, 0) {
		divisor = 1
	}
	out := NutrientTotals{
		Calories: t.Calories / divisor,
		ProteinG: t.ProteinG / divisor,
		CarbG:    t.CarbG / divisor,
		FatG:     t.FatG / divisor,
		Micros:   t.Micros.Scale(1 / divisor),
	}
	return out.Rounded()
}

func round2(v float64) float64 {
	r := math.Round(v*100) / 100
	if r == 0 {
		return 0
	}
	return r
}

// NutrientReference 一筆食材營養參考資料，數值以 ReferenceQuantity ReferenceUnit 為準
type NutrientReference struct {
	CanonicalName     string   `json:"canonical_name" yaml:"name"`
	Synonyms          []string `json:"synonyms,omitempty" yaml:"synonyms"`
	ReferenceQuantity float64  `json:"reference_quantity" yaml:"reference_quantity"`
	ReferenceUnit     string   `json:"reference_unit" yaml:"reference_unit"`
	Calories          float64  `json:"calories" yaml:"calories"`
	ProteinG          float64  `json:"protein_g" yaml:"protein_g"`
	CarbG             float64  `json:"carb_g" yaml:"carb_g"`
	FatG              float64  `json:"fat_g" yaml:"fat_g"`
	Micros            Micros   `json:"micros,omitempty" yaml:"micros"`
}

// Validate 檢查參考份量
func (r NutrientReference) Validate() error {
	if r.CanonicalName == "" {
		return errors.New("reference name is empty")
	}
	if !(r.ReferenceQuantity > 0) {
		return fmt.Errorf("reference %q: %w: %v", r.CanonicalName, ErrInvalidQuantity, r.ReferenceQuantity)
	}
	return nil
}

// Totals 依倍數換算營養素：熱量與三大營養素取兩位小數，微量營養素保留完整精度
func (r NutrientReference) Totals(factor float64) NutrientTotals {
	micros := Micros{}
	if r.Micros != nil {
		micros = r.Micros.Scale(factor)
	}
	return NutrientTotals{
		Calories: round2(r.Calories * factor),
		ProteinG: round2(r.ProteinG * factor),
		CarbG:    round2(r.CarbG * factor),
		FatG:     round2(r.FatG * factor),
		Micros:   micros,
	}
}

// UnitEquivalence 某食材一個家用量具等於多少公克
type UnitEquivalence struct {
	IngredientKey string  `json:"ingredient" yaml:"ingredient"`
	HouseholdUnit string  `json:"unit" yaml:"unit"`
	GramsPerUnit  float64 `json:"grams_per_unit" yaml:"grams_per_unit"`
}
