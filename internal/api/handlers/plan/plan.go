package plan

import (
	"net/http"

	"nutriplan/internal/api/handlers"
	"nutriplan/internal/core/plan"
	"nutriplan/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// PlanRequest 帶有計畫全文的請求
type PlanRequest struct {
	PlanText string `json:"plan_text" binding:"required"`
}

// FavoriteRequest 以編號或名稱選擇計畫中的食譜
type FavoriteRequest struct {
	PlanText   string `json:"plan_text" binding:"required"`
	Identifier string `json:"identifier" binding:"required"`
}

// Handler 計畫與備餐處理器
type Handler struct {
	plans *plan.Service
	debug bool
}

// NewHandler 創建計畫處理器
func NewHandler(plans *plan.Service, debug bool) *Handler {
	return &Handler{plans: plans, debug: debug}
}

// HandleRecipes 擷取計畫中的食譜與每日引用
func (h *Handler) HandleRecipes(c *gin.Context) {
	var req PlanRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}
	c.JSON(http.StatusOK, h.plans.Recipes(req.PlanText))
}

// HandleAnalyze 計算每份食譜的營養素
func (h *Handler) HandleAnalyze(c *gin.Context) {
	var req PlanRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	result, err := h.plans.Analyze(c.Request.Context(), req.PlanText)
	if err != nil {
		handlers.Fail(c, err, h.debug)
		return
	}

	common.LogInfo("Plan analyzed",
		zap.String("request_id", requestid.Get(c)),
		zap.Int("recipes", len(result.Recipes)),
		zap.Bool("cached", result.Cached),
		zap.Float64("calories", result.Totals.Calories),
	)
	c.JSON(http.StatusOK, result)
}

// HandleFavorite 將計畫中的一份食譜轉為備餐並計算營養素
func (h *Handler) HandleFavorite(c *gin.Context) {
	var req FavoriteRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	prep, err := h.plans.Favorite(c.Request.Context(), req.PlanText, req.Identifier)
	if err != nil {
		handlers.Fail(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, prep)
}

// HandleShoppingList 彙整計畫所有食譜的購物清單
func (h *Handler) HandleShoppingList(c *gin.Context) {
	var req PlanRequest
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	list, err := h.plans.ShoppingList(req.PlanText)
	if err != nil {
		handlers.Fail(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, list)
}

// HandlePreparation 計算使用者輸入備餐的營養素
func (h *Handler) HandlePreparation(c *gin.Context) {
	var req plan.PreparationInput
	if !handlers.Bind(c, &req, h.debug) {
		return
	}

	prep, err := h.plans.Preparation(c.Request.Context(), req)
	if err != nil {
		handlers.Fail(c, err, h.debug)
		return
	}
	c.JSON(http.StatusOK, prep)
}
