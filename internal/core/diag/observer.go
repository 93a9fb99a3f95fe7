// Package diag 解析與營養計算流程的診斷事件
package diag

import (
	"sync"

	"nutriplan/internal/pkg/common"

	"go.uber.org/zap"
)

// Kind 事件種類
type Kind string

const (
	LineDegraded       Kind = "line_degraded"        // 食材行無法取得數量
	RecipeDiscarded    Kind = "recipe_discarded"     // 區塊沒有可用標題
	RecipeDegraded     Kind = "recipe_degraded"      // 區塊所有段落皆空
	ReferenceMatched   Kind = "reference_matched"    // 某個比對策略命中
	ReferenceWeakMatch Kind = "reference_weak_match" // 字詞比對結果與查詢差異大
	ReferenceMissed    Kind = "reference_missed"     // 所有策略皆未命中
	UnitUnconvertible  Kind = "unit_unconvertible"   // 單位無法換算
	StoreFailed        Kind = "store_failed"         // 參考資料查詢出錯
	IngredientSkipped  Kind = "ingredient_skipped"   // 彙總時略過無名稱食材
)

// Event 診斷事件
type Event struct {
	Kind    Kind
	Subject string // 食材名稱、食譜標題或原始行
	Detail  string
	Fields  []zap.Field
}

// Observer 接收診斷事件，只用於觀察，不影響流程
type Observer interface {
	Observe(Event)
}

// ObserverFunc 函式轉 Observer
type ObserverFunc func(Event)

// Observe 實作 Observer
func (f ObserverFunc) Observe(e Event) { f(e) }

// Nop 丟棄所有事件
var Nop Observer = ObserverFunc(func(Event) {})

// OrNop nil 時回傳 Nop
func OrNop(o Observer) Observer {
	if o == nil {
		return Nop
	}
	return o
}

type zapObserver struct{}

// ZapObserver 透過共用 logger 輸出事件
func ZapObserver() Observer {
	return zapObserver{}
}

func (zapObserver) Observe(e Event) {
	fields := append([]zap.Field{
		zap.String("event", string(e.Kind)),
		zap.String("subject", e.Subject),
	}, e.Fields...)
	if e.Detail != "" {
		fields = append(fields, zap.String("detail", e.Detail))
	}

	switch e.Kind {
	case ReferenceMissed, UnitUnconvertible, ReferenceWeakMatch, RecipeDiscarded, RecipeDegraded:
		common.LogWarn("營養解析診斷", fields...)
	case StoreFailed:
		common.LogError("營養參考資料查詢失敗", fields...)
	default:
		common.LogDebug("營養解析診斷", fields...)
	}
}

// Recorder 收集事件，供測試與批次報告使用
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Observe 實作 Observer
func (r *Recorder) Observe(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events 回傳目前收集到的事件副本
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Subjects 回傳指定種類事件的主體
func (r *Recorder) Subjects(kind Kind) []string {
	var out []string
	for _, e := range r.Events() {
		if e.Kind == kind {
			out = append(out, e.Subject)
		}
	}
	return out
}
