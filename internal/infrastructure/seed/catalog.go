// Package seed 載入營養參考目錄（YAML/JSON）並寫入參考資料庫
package seed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Format 目錄檔格式
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// Catalog 營養參考目錄
type Catalog struct {
	Ingredients  []nutrition.NutrientReference `json:"ingredients" yaml:"ingredients"`
	Equivalences []nutrition.UnitEquivalence   `json:"equivalences" yaml:"equivalences"`
}

// Report 寫入結果
type Report struct {
	References          int      `json:"references"`
	Equivalences        int      `json:"equivalences"`
	SkippedReferences   []string `json:"skipped_references"`
	SkippedEquivalences []string `json:"skipped_equivalences"`
}

// FormatFor 依副檔名判斷格式，未知時視為 YAML
func FormatFor(path string) Format {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatYAML
}

// LoadFile 讀取目錄檔
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	defer f.Close()
	return Load(f, FormatFor(path))
}

// Load 解析目錄內容
func Load(r io.Reader, format Format) (*Catalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var cat Catalog
	switch format {
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		if err := dec.Decode(&cat); err != nil {
			return nil, fmt.Errorf("decode json catalog: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, &cat); err != nil {
			return nil, fmt.Errorf("decode yaml catalog: %w", err)
		}
	}
	return &cat, nil
}

// Apply 寫入目錄：無效的參考資料與找不到食材的等值列略過並記錄，其他錯誤中止
func Apply(ctx context.Context, w nutrition.Writer, cat *Catalog) (*Report, error) {
	report := &Report{SkippedReferences: []string{}, SkippedEquivalences: []string{}}

	for _, ref := range cat.Ingredients {
		if err := ref.Validate(); err != nil {
			report.SkippedReferences = append(report.SkippedReferences, ref.CanonicalName)
			common.LogWarn("略過無效的參考資料", zap.String("name", ref.CanonicalName), zap.Error(err))
			continue
		}
		if err := w.UpsertReference(ctx, ref); err != nil {
			return report, fmt.Errorf("upsert %q: %w", ref.CanonicalName, err)
		}
		report.References++
	}

	for _, eq := range cat.Equivalences {
		err := w.UpsertEquivalence(ctx, eq)
		switch {
		case err == nil:
			report.Equivalences++
		case errors.Is(err, nutrition.ErrReferenceNotFound), errors.Is(err, nutrition.ErrInvalidQuantity):
			report.SkippedEquivalences = append(report.SkippedEquivalences, eq.IngredientKey+"/"+eq.HouseholdUnit)
			common.LogWarn("略過等值列", zap.String("ingredient", eq.IngredientKey), zap.String("unit", eq.HouseholdUnit), zap.Error(err))
		default:
			return report, fmt.Errorf("upsert equivalence %s/%s: %w", eq.IngredientKey, eq.HouseholdUnit, err)
		}
	}

	common.LogInfo("參考目錄已寫入",
		zap.Int("references", report.References),
		zap.Int("equivalences", report.Equivalences),
		zap.Int("skipped_references", len(report.SkippedReferences)),
		zap.Int("skipped_equivalences", len(report.SkippedEquivalences)),
	)
	return report, nil
}
