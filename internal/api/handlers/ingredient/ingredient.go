package ingredient

import (
	"errors"
	"net/http"
	"strings"

	"nutriplan/internal/api/handlers"
	"nutriplan/internal/core/ingredient"
	"nutriplan/internal/core/nutrition"
	"nutriplan/internal/core/units"
	"nutriplan/internal/pkg/common"

	"github.com/gin-gonic/gin"
)

// ParseRequest 食材行解析請求
type ParseRequest struct {
	Lines []string `json:"lines" binding:"required,min=1,max=500"`
}

// ParseResponse 食材行解析響應
type ParseResponse struct {
	Lines []ingredient.ParsedLine `json:"lines"`
}

// NutrientsRequest 單一食材營養素請求；提供 line 時忽略其他欄位
type NutrientsRequest struct {
	Line     string  `json:"line"`
	Item     string  `json:"item"`
	Quantity float64 `json:"quantity"`
	Unit     string  `json:"unit"`
}

// Handler 食材處理器
type Handler struct {
	resolver *nutrition.Resolver
	debug    bool
}

// NewHandler 創建食材處理器
func NewHandler(resolver *nutrition.Resolver, debug bool) *Handler {
	return &Handler{resolver: resolver, debug: debug}
}

// HandleParse 逐行解析食材數量與單位
func (h *Handler) HandleParse(c *gin.Context) {
	var req ParseRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	resp := ParseResponse{Lines: make([]ingredient.ParsedLine, 0, len(req.Lines))}
	for _, line := range req.Lines {
		resp.Lines = append(resp.Lines, ingredient.ParseLine(line))
	}
	c.JSON(http.StatusOK, resp)
}

// HandleNutrients 比對參考資料並換算單一食材的營養素
func (h *Handler) HandleNutrients(c *gin.Context) {
	var req NutrientsRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	item, qty, unit := req.Item, req.Quantity, req.Unit
	if strings.TrimSpace(req.Line) != "" {
		parsed := ingredient.ParseLine(req.Line)
		item, qty, unit = parsed.ItemName, parsed.Quantity, parsed.Unit
	} else if m, ok := units.LookupLineUnit(unit); ok {
		qty, unit = qty*m.Scale, m.Unit
	}

	if strings.TrimSpace(item) == "" {
		handlers.Fail(c, common.ErrInvalidRequest.WithErr(errors.New("item or line is required")), h.debug)
		return
	}

	c.JSON(http.StatusOK, h.resolver.Resolve(c.Request.Context(), item, qty, unit))
}
