package nutrition

import (
	"context"
	"errors"
	"strings"

	"nutriplan/internal/core/diag"
	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/units"

	"go.uber.org/zap"
)

// MatchStrategy 找到參考資料的比對方式
type MatchStrategy string

const (
	MatchExact     MatchStrategy = "exact"
	MatchPrefix    MatchStrategy = "prefix"
	MatchSubstring MatchStrategy = "substring"
	MatchSynonym   MatchStrategy = "synonym"
	MatchToken     MatchStrategy = "token"
)

// Status 解析結果狀態
type Status string

const (
	StatusResolved      Status = "resolved"
	StatusNoQuantity    Status = "no_quantity"
	StatusNotFound      Status = "not_found"
	StatusUnconvertible Status = "unconvertible"
	StatusLookupFailed  Status = "lookup_failed"
)

// MatchConfig 模糊比對參數
type MatchConfig struct {
	// MinSubstringLength 子字串比對需要的最短查詢長度（不含）
	MinSubstringLength int
	// MinTokenLength 可作為字詞比對的最短字長（不含）
	MinTokenLength int
	// MaxExtraWords 候選名稱比查詢多出的字數超過此值視為弱比對
	MaxExtraWords int
	// MaxLengthDelta 候選名稱與查詢的長度差超過此值視為弱比對
	MaxLengthDelta int
	// CandidateLimit 字詞比對取回的候選數
	CandidateLimit int
}

// DefaultMatchConfig 預設比對參數
func DefaultMatchConfig() MatchConfig {
	return MatchConfig{
		MinSubstringLength: 3,
		MinTokenLength:     2,
		MaxExtraWords:      2,
		MaxLengthDelta:     15,
		CandidateLimit:     5,
	}
}

// Resolution 一個食材的解析與換算結果
type Resolution struct {
	Query             string         `json:"query"`
	Quantity          float64        `json:"quantity"`
	Unit              string         `json:"unit"`
	Status            Status         `json:"status"`
	Strategy          MatchStrategy  `json:"strategy,omitempty"`
	Reference         string         `json:"reference,omitempty"`
	WeakMatch         bool           `json:"weak_match,omitempty"`
	ConvertedQuantity float64        `json:"converted_quantity"`
	ReferenceUnit     string         `json:"reference_unit,omitempty"`
	Nutrients         NutrientTotals `json:"nutrients"`
}

type matchStrategy struct {
	name MatchStrategy
	find func(ctx context.Context, r *Resolver, query string) (*NutrientReference, bool, error)
}

// matchStrategies 由最精確到最寬鬆，第一個命中者勝出
var matchStrategies = []matchStrategy{
	{MatchExact, matchExact},
	{MatchPrefix, matchPrefix},
	{MatchSubstring, matchSubstring},
	{MatchSynonym, matchSynonym},
	{MatchToken, matchToken},
}

// Resolver 食材名稱比對參考資料並換算營養素
type Resolver struct {
	store     ReferenceStore
	converter *Converter
	match     MatchConfig
	observer  diag.Observer
}

// ResolverOption 解析器選項
type ResolverOption func(*Resolver)

// WithConverter 使用自訂換算器
func WithConverter(c *Converter) ResolverOption {
	return func(r *Resolver) { r.converter = c }
}

// WithMatchConfig 使用自訂比對參數，零值欄位沿用預設
func WithMatchConfig(cfg MatchConfig) ResolverOption {
	return func(r *Resolver) {
		def := DefaultMatchConfig()
		if cfg.MinSubstringLength <= 0 {
			cfg.MinSubstringLength = def.MinSubstringLength
		}
		if cfg.MinTokenLength <= 0 {
			cfg.MinTokenLength = def.MinTokenLength
		}
		if cfg.MaxExtraWords <= 0 {
			cfg.MaxExtraWords = def.MaxExtraWords
		}
		if cfg.MaxLengthDelta <= 0 {
			cfg.MaxLengthDelta = def.MaxLengthDelta
		}
		if cfg.CandidateLimit <= 0 {
			cfg.CandidateLimit = def.CandidateLimit
		}
		r.match = cfg
	}
}

// WithObserver 設定診斷事件接收者
func WithObserver(o diag.Observer) ResolverOption {
	return func(r *Resolver) { r.observer = diag.OrNop(o) }
}

// NewResolver 建立解析器
func NewResolver(store ReferenceStore, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:    store,
		match:    DefaultMatchConfig(),
		observer: diag.Nop,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.converter == nil {
		r.converter = NewConverter(store)
	}
	return r
}

// Match 依序嘗試各比對策略。查無資料回傳 ErrReferenceNotFound
func (r *Resolver) Match(ctx context.Context, name string) (*NutrientReference, MatchStrategy, bool, error) {
	query := NormalizeName(ingredient.CleanItemName(name))
	if query == "" {
		return nil, "", false, ErrReferenceNotFound
	}
	for _, s := range matchStrategies {
		ref, weak, err := s.find(ctx, r, query)
		if errors.Is(err, ErrReferenceNotFound) {
			continue
		}
		if err != nil {
			return nil, "", false, err
		}
		return ref, s.name, weak, nil
	}
	return nil, "", false, ErrReferenceNotFound
}

// Resolve 解析一個食材的營養素。不回傳錯誤：
// 找不到、無法換算或查詢失敗時營養素為零，原因記錄在 Status 並送出診斷事件
func (r *Resolver) Resolve(ctx context.Context, item string, quantity float64, unit string) Resolution {
	res := Resolution{
		Query:     item,
		Quantity:  quantity,
		Unit:      unit,
		Nutrients: ZeroTotals(),
	}
	if strings.TrimSpace(item) == "" || !(quantity > 0) || unit == units.None || unit == "" {
		res.Status = StatusNoQuantity
		return res
	}

	ref, strategy, weak, err := r.Match(ctx, item)
	switch {
	case errors.Is(err, ErrReferenceNotFound):
		res.Status = StatusNotFound
		r.observer.Observe(diag.Event{Kind: diag.ReferenceMissed, Subject: item})
		return res
	case err != nil:
		res.Status = StatusLookupFailed
		r.observer.Observe(diag.Event{Kind: diag.StoreFailed, Subject: item, Fields: []zap.Field{zap.Error(err)}})
		return res
	}

	res.Strategy = strategy
	res.Reference = ref.CanonicalName
	res.WeakMatch = weak
	res.ReferenceUnit = ref.ReferenceUnit
	kind := diag.ReferenceMatched
	if weak {
		kind = diag.ReferenceWeakMatch
	}
	r.observer.Observe(diag.Event{
		Kind:    kind,
		Subject: item,
		Detail:  ref.CanonicalName,
		Fields:  []zap.Field{zap.String("strategy", string(strategy))},
	})

	converted, err := r.converter.Convert(ctx, ref.CanonicalName, quantity, unit, ref.ReferenceUnit)
	if err != nil {
		if errors.Is(err, ErrUnconvertible) || errors.Is(err, ErrInvalidQuantity) {
			res.Status = StatusUnconvertible
			r.observer.Observe(diag.Event{Kind: diag.UnitUnconvertible, Subject: item, Detail: err.Error()})
		} else {
			res.Status = StatusLookupFailed
			r.observer.Observe(diag.Event{Kind: diag.StoreFailed, Subject: item, Fields: []zap.Field{zap.Error(err)}})
		}
		return res
	}
	if !(ref.ReferenceQuantity > 0) {
		res.Status = StatusUnconvertible
		r.observer.Observe(diag.Event{Kind: diag.UnitUnconvertible, Subject: item, Detail: "reference quantity is not positive"})
		return res
	}

	res.Status = StatusResolved
	res.ConvertedQuantity = converted
	res.Nutrients = ref.Totals(converted / ref.ReferenceQuantity)
	return res
}

func matchExact(ctx context.Context, r *Resolver, q string) (*NutrientReference, bool, error) {
	ref, err := r.store.Exact(ctx, q)
	return ref, false, err
}

func matchPrefix(ctx context.Context, r *Resolver, q string) (*NutrientReference, bool, error) {
	ref, err := r.store.Prefix(ctx, q)
	return ref, false, err
}

func matchSubstring(ctx context.Context, r *Resolver, q string) (*NutrientReference, bool, error) {
	if len([]rune(q)) <= r.match.MinSubstringLength {
		return nil, false, ErrReferenceNotFound
	}
	ref, err := r.store.Substring(ctx, q)
	return ref, false, err
}

func matchSynonym(ctx context.Context, r *Resolver, q string) (*NutrientReference, bool, error) {
	ref, err := r.store.Synonym(ctx, q)
	return ref, false, err
}

// matchToken 多字查詢時以第一個夠長的字找候選，差異過大仍採用但標記為弱比對
func matchToken(ctx context.Context, r *Resolver, q string) (*NutrientReference, bool, error) {
	words := strings.Fields(q)
	if len(words) < 2 {
		return nil, false, ErrReferenceNotFound
	}
	var tokens []string
	for _, w := range words {
		if len([]rune(w)) > r.match.MinTokenLength {
			tokens = append(tokens, w)
		}
	}
	if len(tokens) == 0 {
		return nil, false, ErrReferenceNotFound
	}

	candidates, err := r.store.ContainingToken(ctx, tokens[0], r.match.CandidateLimit)
	if err != nil {
		return nil, false, err
	}
	if len(candidates) == 0 {
		return nil, false, ErrReferenceNotFound
	}
	best := candidates[0]
	name := NormalizeName(best.CanonicalName)
	weak := len(strings.Fields(name)) > len(words)+r.match.MaxExtraWords ||
		abs(len([]rune(name))-len([]rune(q))) > r.match.MaxLengthDelta
	return &best, weak, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
