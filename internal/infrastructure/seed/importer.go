package seed

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"nutriplan/internal/infrastructure/config"
	"nutriplan/internal/pkg/common"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Importer 從遠端下載 JSON 目錄
type Importer struct {
	client *resty.Client
}

// NewImporter 創建匯入器
func NewImporter(cfg config.ImporterConfig) *Importer {
	client := resty.New().
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", "nutriplan-importer")
	if cfg.Timeout > 0 {
		client.SetTimeout(cfg.Timeout)
	}
	return &Importer{client: client}
}

// Fetch 下載並解析目錄
func (i *Importer) Fetch(ctx context.Context, url string) (*Catalog, error) {
	if url == "" {
		return nil, fmt.Errorf("catalog url is required")
	}

	resp, err := i.client.R().
		SetContext(ctx).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("catalog server returned %d: %s", resp.StatusCode(), resp.String())
	}

	cat, err := Load(bytes.NewReader(resp.Body()), FormatJSON)
	if err != nil {
		return nil, err
	}
	common.LogInfo("已下載參考目錄",
		zap.String("url", url),
		zap.Int("ingredients", len(cat.Ingredients)),
		zap.Int("equivalences", len(cat.Equivalences)),
		zap.Duration("elapsed", resp.Time()),
	)
	return cat, nil
}
