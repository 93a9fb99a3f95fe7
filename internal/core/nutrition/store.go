package nutrition

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"nutriplan/internal/core/units"
)

// ReferenceStore 營養參考資料的唯讀查詢，名稱比對不分大小寫。
// 查無資料時回傳 ErrReferenceNotFound，其他錯誤代表儲存層故障
type ReferenceStore interface {
	// Exact 名稱完全相同
	Exact(ctx context.Context, name string) (*NutrientReference, error)
	// Prefix 以 name 開頭，名稱最短者優先
	Prefix(ctx context.Context, name string) (*NutrientReference, error)
	// Substring 名稱包含 name，名稱最短者優先
	Substring(ctx context.Context, name string) (*NutrientReference, error)
	// Synonym 同義詞完全相同
	Synonym(ctx context.Context, name string) (*NutrientReference, error)
	// ContainingToken 名稱包含 token 的候選，以 token 開頭者優先，其次名稱最短
	ContainingToken(ctx context.Context, token string, limit int) ([]NutrientReference, error)
	// Equivalence 某食材某家用量具的公克數
	Equivalence(ctx context.Context, ingredientKey, householdUnit string) (*UnitEquivalence, error)
}

// Writer 種子資料寫入
type Writer interface {
	UpsertReference(ctx context.Context, ref NutrientReference) error
	// UpsertEquivalence 食材不存在時回傳 ErrReferenceNotFound
	UpsertEquivalence(ctx context.Context, eq UnitEquivalence) error
}

// NormalizeName 參考資料名稱的比對鍵
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// MemoryStore 記憶體中的參考資料，可同時讀寫
type MemoryStore struct {
	mu    sync.RWMutex
	refs  map[string]NutrientReference
	equiv map[string]UnitEquivalence
}

// NewMemoryStore 建立空的記憶體參考資料
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		refs:  make(map[string]NutrientReference),
		equiv: make(map[string]UnitEquivalence),
	}
}

func equivalenceKey(ingredientKey, unit string) string {
	return NormalizeName(ingredientKey) + "|" + units.NormalizeHousehold(unit)
}

// UpsertReference 新增或更新參考資料
func (s *MemoryStore) UpsertReference(_ context.Context, ref NutrientReference) error {
	if err := ref.Validate(); err != nil {
		return err
	}
	synonyms := make([]string, 0, len(ref.Synonyms))
	for _, syn := range ref.Synonyms {
		if n := NormalizeName(syn); n != "" {
			synonyms = append(synonyms, n)
		}
	}
	ref.Synonyms = synonyms
	ref.ReferenceUnit = units.NormalizeHousehold(ref.ReferenceUnit)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.refs[NormalizeName(ref.CanonicalName)] = ref
	return nil
}

// UpsertEquivalence 新增或更新等值列
func (s *MemoryStore) UpsertEquivalence(_ context.Context, eq UnitEquivalence) error {
	if !(eq.GramsPerUnit > 0) {
		return fmt.Errorf("equivalence %s/%s: %w", eq.IngredientKey, eq.HouseholdUnit, ErrInvalidQuantity)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.refs[NormalizeName(eq.IngredientKey)]; !ok {
		return fmt.Errorf("equivalence for %q: %w", eq.IngredientKey, ErrReferenceNotFound)
	}
	eq.HouseholdUnit = units.NormalizeHousehold(eq.HouseholdUnit)
	s.equiv[equivalenceKey(eq.IngredientKey, eq.HouseholdUnit)] = eq
	return nil
}

// Len 參考資料筆數
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.refs)
}

// Exact 實作 ReferenceStore
func (s *MemoryStore) Exact(_ context.Context, name string) (*NutrientReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref, ok := s.refs[NormalizeName(name)]; ok {
		return &ref, nil
	}
	return nil, ErrReferenceNotFound
}

// Prefix 實作 ReferenceStore
func (s *MemoryStore) Prefix(_ context.Context, name string) (*NutrientReference, error) {
	q := NormalizeName(name)
	return s.shortest(func(key string) bool { return strings.HasPrefix(key, q) })
}

// Substring 實作 ReferenceStore
func (s *MemoryStore) Substring(_ context.Context, name string) (*NutrientReference, error) {
	q := NormalizeName(name)
	return s.shortest(func(key string) bool { return strings.Contains(key, q) })
}

// Synonym 實作 ReferenceStore
func (s *MemoryStore) Synonym(_ context.Context, name string) (*NutrientReference, error) {
	q := NormalizeName(name)
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.sortedKeysLocked() {
		ref := s.refs[key]
		for _, syn := range ref.Synonyms {
			if syn == q {
				return &ref, nil
			}
		}
	}
	return nil, ErrReferenceNotFound
}

// ContainingToken 實作 ReferenceStore
func (s *MemoryStore) ContainingToken(_ context.Context, token string, limit int) ([]NutrientReference, error) {
	q := NormalizeName(token)
	s.mu.RLock()
	var keys []string
	for key := range s.refs {
		if strings.Contains(key, q) {
			keys = append(keys, key)
		}
	}
	sort.Slice(keys, func(i, j int) bool {
		pi, pj := strings.HasPrefix(keys[i], q), strings.HasPrefix(keys[j], q)
		if pi != pj {
			return pi
		}
		return lessByLength(keys[i], keys[j])
	})
	if limit > 0 && len(keys) > limit {
		keys = keys[:limit]
	}
	out := make([]NutrientReference, 0, len(keys))
	for _, key := range keys {
		out = append(out, s.refs[key])
	}
	s.mu.RUnlock()
	return out, nil
}

// Equivalence 實作 ReferenceStore
func (s *MemoryStore) Equivalence(_ context.Context, ingredientKey, householdUnit string) (*UnitEquivalence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if eq, ok := s.equiv[equivalenceKey(ingredientKey, householdUnit)]; ok {
		return &eq, nil
	}
	return nil, ErrReferenceNotFound
}

func (s *MemoryStore) shortest(match func(key string) bool) (*NutrientReference, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	best := ""
	for key := range s.refs {
		if match(key) && (best == "" || lessByLength(key, best)) {
			best = key
		}
	}
	if best == "" {
		return nil, ErrReferenceNotFound
	}
	ref := s.refs[best]
	return &ref, nil
}

func (s *MemoryStore) sortedKeysLocked() []string {
	keys := make([]string, 0, len(s.refs))
	for key := range s.refs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// lessByLength 名稱較短者優先，同長度依字母序
func lessByLength(a, b string) bool {
	la, lb := len([]rune(a)), len([]rune(b))
	if la != lb {
		return la < lb
	}
	return a < b
}
