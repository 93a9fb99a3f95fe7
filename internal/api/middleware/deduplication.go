package middleware

import (
	"bytes"
	"io"
	"net/http"
	"sync"
	"time"

	"nutriplan/internal/pkg/common"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Deduplicator 在時間窗內拒絕相同的 POST 請求（同一來源、路徑與內容）
type Deduplicator struct {
	window time.Duration
	mu     sync.Mutex
	seen   map[string]time.Time
	done   chan struct{}
	once   sync.Once
	now    func() time.Time
}

// NewDeduplicator 創建去重器並啟動定期清理
func NewDeduplicator(window time.Duration) *Deduplicator {
	if window <= 0 {
		window = time.Second
	}
	d := &Deduplicator{
		window: window,
		seen:   make(map[string]time.Time),
		done:   make(chan struct{}),
		now:    time.Now,
	}
	go d.cleanupLoop(10 * window)
	return d
}

func (d *Deduplicator) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			d.cleanup()
		case <-d.done:
			return
		}
	}
}

func (d *Deduplicator) cleanup() {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	for k, t := range d.seen {
		if now.Sub(t) > d.window {
			delete(d.seen, k)
		}
	}
}

// Stop 停止清理
func (d *Deduplicator) Stop() {
	d.once.Do(func() { close(d.done) })
}

// seenRecently 記錄指紋，時間窗內重複時回傳 true
func (d *Deduplicator) seenRecently(fingerprint string) bool {
	now := d.now()
	d.mu.Lock()
	defer d.mu.Unlock()
	if last, ok := d.seen[fingerprint]; ok && now.Sub(last) <= d.window {
		return true
	}
	d.seen[fingerprint] = now
	return false
}

// Middleware 請求去重中間件
func (d *Deduplicator) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// 只處理 POST 請求
		if c.Request.Method != http.MethodPost || c.Request.Body == nil {
			c.Next()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			common.LogWarn("Failed to read request body", zap.Error(err))
			c.AbortWithStatusJSON(http.StatusBadRequest, common.ErrInvalidRequest.Response(false))
			return
		}
		// 恢復請求體
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		fingerprint := c.ClientIP() + ":" + c.Request.URL.Path + ":" + common.HashString(string(body))
		if d.seenRecently(fingerprint) {
			common.LogInfo("Duplicate request rejected",
				zap.String("path", c.Request.URL.Path),
				zap.String("ip", c.ClientIP()),
			)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, common.ErrTooManyRequests.Response(false))
			return
		}

		c.Next()
	}
}
