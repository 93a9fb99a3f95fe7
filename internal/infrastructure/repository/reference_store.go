package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/core/units"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStore 實作 nutrition.ReferenceStore 與 nutrition.Writer
type GormStore struct {
	db *gorm.DB
}

var (
	_ nutrition.ReferenceStore = (*GormStore)(nil)
	_ nutrition.Writer         = (*GormStore)(nil)
)

// NewGormStore 創建資料庫參考資料
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// escapeLike 跳脫 LIKE 萬用字元
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

const likeNameKey = `ingredients.name_key LIKE ? ESCAPE '\'`

// references 只查有營養素列的食材
func (s *GormStore) references(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Model(&Ingredient{}).
		InnerJoins("Nutrient").
		Preload("Synonyms")
}

func byLength(tx *gorm.DB) *gorm.DB {
	return tx.Order("LENGTH(ingredients.name_key)").Order("ingredients.name_key")
}

func (s *GormStore) first(tx *gorm.DB) (*nutrition.NutrientReference, error) {
	var ing Ingredient
	if err := tx.First(&ing).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nutrition.ErrReferenceNotFound
		}
		return nil, fmt.Errorf("query reference: %w", err)
	}
	return toReference(ing)
}

// Exact 實作 nutrition.ReferenceStore
func (s *GormStore) Exact(ctx context.Context, name string) (*nutrition.NutrientReference, error) {
	return s.first(s.references(ctx).Where("ingredients.name_key = ?", nutrition.NormalizeName(name)))
}

// Prefix 實作 nutrition.ReferenceStore
func (s *GormStore) Prefix(ctx context.Context, name string) (*nutrition.NutrientReference, error) {
	q := escapeLike(nutrition.NormalizeName(name)) + "%"
	return s.first(byLength(s.references(ctx).Where(likeNameKey, q)))
}

// Substring 實作 nutrition.ReferenceStore
func (s *GormStore) Substring(ctx context.Context, name string) (*nutrition.NutrientReference, error) {
	q := "%" + escapeLike(nutrition.NormalizeName(name)) + "%"
	return s.first(byLength(s.references(ctx).Where(likeNameKey, q)))
}

// Synonym 實作 nutrition.ReferenceStore
func (s *GormStore) Synonym(ctx context.Context, name string) (*nutrition.NutrientReference, error) {
	tx := s.references(ctx).
		Joins("JOIN ingredient_synonyms ON ingredient_synonyms.ingredient_id = ingredients.id").
		Where("ingredient_synonyms.name_key = ?", nutrition.NormalizeName(name)).
		Order("ingredients.name_key")
	return s.first(tx)
}

// ContainingToken 實作 nutrition.ReferenceStore
func (s *GormStore) ContainingToken(ctx context.Context, token string, limit int) ([]nutrition.NutrientReference, error) {
	q := escapeLike(nutrition.NormalizeName(token))
	tx := s.references(ctx).
		Where(likeNameKey, "%"+q+"%").
		Order(clause.OrderBy{Expression: clause.Expr{
			SQL:                `CASE WHEN ingredients.name_key LIKE ? ESCAPE '\' THEN 0 ELSE 1 END`,
			Vars:               []any{q + "%"},
			WithoutParentheses: true,
		}})
	tx = byLength(tx)
	if limit > 0 {
		tx = tx.Limit(limit)
	}

	var rows []Ingredient
	if err := tx.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query token candidates: %w", err)
	}
	out := make([]nutrition.NutrientReference, 0, len(rows))
	for _, row := range rows {
		ref, err := toReference(row)
		if err != nil {
			return nil, err
		}
		out = append(out, *ref)
	}
	return out, nil
}

// Equivalence 實作 nutrition.ReferenceStore
func (s *GormStore) Equivalence(ctx context.Context, ingredientKey, householdUnit string) (*nutrition.UnitEquivalence, error) {
	var row HouseholdEquivalence
	err := s.db.WithContext(ctx).
		Joins("JOIN ingredients ON ingredients.id = unit_equivalences.ingredient_id").
		Where("ingredients.name_key = ? AND unit_equivalences.household_unit = ?",
			nutrition.NormalizeName(ingredientKey), units.NormalizeHousehold(householdUnit)).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nutrition.ErrReferenceNotFound
		}
		return nil, fmt.Errorf("query equivalence: %w", err)
	}
	return &nutrition.UnitEquivalence{
		IngredientKey: ingredientKey,
		HouseholdUnit: row.HouseholdUnit,
		GramsPerUnit:  row.GramsPerUnit,
	}, nil
}

// UpsertReference 實作 nutrition.Writer：已存在的食材就地更新，同義詞整批取代
func (s *GormStore) UpsertReference(ctx context.Context, ref nutrition.NutrientReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	micros, err := json.Marshal(ref.Micros)
	if err != nil {
		return fmt.Errorf("marshal micronutrients: %w", err)
	}
	if ref.Micros == nil {
		micros = []byte("{}")
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ing := Ingredient{NameKey: nutrition.NormalizeName(ref.CanonicalName)}
		if err := tx.Where("name_key = ?", ing.NameKey).FirstOrInit(&ing).Error; err != nil {
			return err
		}
		ing.Name = strings.TrimSpace(ref.CanonicalName)
		if err := tx.Omit(clause.Associations).Save(&ing).Error; err != nil {
			return fmt.Errorf("save ingredient %q: %w", ref.CanonicalName, err)
		}

		nutrient := IngredientNutrient{IngredientID: ing.ID}
		if err := tx.Where("ingredient_id = ?", ing.ID).FirstOrInit(&nutrient).Error; err != nil {
			return err
		}
		nutrient.ReferenceQuantity = ref.ReferenceQuantity
		nutrient.ReferenceUnit = units.NormalizeHousehold(ref.ReferenceUnit)
		nutrient.Calories = ref.Calories
		nutrient.ProteinG = ref.ProteinG
		nutrient.CarbG = ref.CarbG
		nutrient.FatG = ref.FatG
		nutrient.Micronutrients = datatypes.JSON(micros)
		if err := tx.Save(&nutrient).Error; err != nil {
			return fmt.Errorf("save nutrients %q: %w", ref.CanonicalName, err)
		}

		if err := tx.Where("ingredient_id = ?", ing.ID).Delete(&IngredientSynonym{}).Error; err != nil {
			return err
		}
		seen := make(map[string]bool)
		var synonyms []IngredientSynonym
		for _, syn := range ref.Synonyms {
			key := nutrition.NormalizeName(syn)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			synonyms = append(synonyms, IngredientSynonym{IngredientID: ing.ID, Name: strings.TrimSpace(syn), NameKey: key})
		}
		if len(synonyms) > 0 {
			if err := tx.Create(&synonyms).Error; err != nil {
				return fmt.Errorf("save synonyms %q: %w", ref.CanonicalName, err)
			}
		}
		return nil
	})
}

// UpsertEquivalence 實作 nutrition.Writer
func (s *GormStore) UpsertEquivalence(ctx context.Context, eq nutrition.UnitEquivalence) error {
	if !(eq.GramsPerUnit > 0) {
		return fmt.Errorf("equivalence %s/%s: %w", eq.IngredientKey, eq.HouseholdUnit, nutrition.ErrInvalidQuantity)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ing Ingredient
		if err := tx.Where("name_key = ?", nutrition.NormalizeName(eq.IngredientKey)).First(&ing).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("equivalence for %q: %w", eq.IngredientKey, nutrition.ErrReferenceNotFound)
			}
			return err
		}
		row := HouseholdEquivalence{IngredientID: ing.ID, HouseholdUnit: units.NormalizeHousehold(eq.HouseholdUnit)}
		if err := tx.Where("ingredient_id = ? AND household_unit = ?", row.IngredientID, row.HouseholdUnit).FirstOrInit(&row).Error; err != nil {
			return err
		}
		row.GramsPerUnit = eq.GramsPerUnit
		return tx.Save(&row).Error
	})
}

// Count 有營養素列的食材數
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&IngredientNutrient{}).Count(&n).Error
	return n, err
}

// Ping 檢查資料庫連線
func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func toReference(ing Ingredient) (*nutrition.NutrientReference, error) {
	if ing.Nutrient == nil {
		return nil, nutrition.ErrReferenceNotFound
	}
	n := ing.Nutrient
	ref := &nutrition.NutrientReference{
		CanonicalName:     ing.Name,
		ReferenceQuantity: n.ReferenceQuantity,
		ReferenceUnit:     n.ReferenceUnit,
		Calories:          n.Calories,
		ProteinG:          n.ProteinG,
		CarbG:             n.CarbG,
		FatG:              n.FatG,
		Micros:            nutrition.Micros{},
	}
	for _, syn := range ing.Synonyms {
		ref.Synonyms = append(ref.Synonyms, syn.NameKey)
	}
	if len(n.Micronutrients) > 0 {
		if err := json.Unmarshal(n.Micronutrients, &ref.Micros); err != nil {
			return nil, fmt.Errorf("decode micronutrients for %q: %w", ing.Name, err)
		}
	}
	return ref, nil
}
