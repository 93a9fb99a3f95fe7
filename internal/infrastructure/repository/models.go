// Package repository 以 gorm 保存營養參考資料與家用量具等值表
package repository

import (
	"time"

	"gorm.io/datatypes"
)

// Ingredient 食材；NameKey 為正規化後的比對鍵
type Ingredient struct {
	ID        uint                `gorm:"primaryKey"`
	Name      string              `gorm:"size:255;not null"`
	NameKey   string              `gorm:"size:255;not null;uniqueIndex"`
	Nutrient  *IngredientNutrient `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	Synonyms  []IngredientSynonym `gorm:"foreignKey:IngredientID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// IngredientNutrient 每個參考份量的營養素
type IngredientNutrient struct {
	ID                uint    `gorm:"primaryKey"`
	IngredientID      uint    `gorm:"not null;uniqueIndex"`
	ReferenceQuantity float64 `gorm:"not null"`
	ReferenceUnit     string  `gorm:"size:32;not null"`
	Calories          float64
	ProteinG          float64
	CarbG             float64
	FatG              float64
	Micronutrients    datatypes.JSON
	UpdatedAt         time.Time
}

// IngredientSynonym 食材的其他名稱
type IngredientSynonym struct {
	ID           uint   `gorm:"primaryKey"`
	IngredientID uint   `gorm:"not null;index"`
	Name         string `gorm:"size:255;not null"`
	NameKey      string `gorm:"size:255;not null;index"`
}

// HouseholdEquivalence 一個家用量具等於多少公克
type HouseholdEquivalence struct {
	ID            uint    `gorm:"primaryKey"`
	IngredientID  uint    `gorm:"not null;uniqueIndex:idx_equivalence_unit"`
	HouseholdUnit string  `gorm:"size:64;not null;uniqueIndex:idx_equivalence_unit"`
	GramsPerUnit  float64 `gorm:"not null"`
	UpdatedAt     time.Time
}

// TableName 資料表名稱
func (HouseholdEquivalence) TableName() string {
	return "unit_equivalences"
}

// Models 需要遷移的資料表
func Models() []any {
	return []any{&Ingredient{}, &IngredientNutrient{}, &IngredientSynonym{}, &HouseholdEquivalence{}}
}
