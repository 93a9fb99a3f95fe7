// Package handlers API 處理器共用的請求綁定與錯誤回應
package handlers

import (
	"context"
	"errors"

	"nutriplan/internal/core/plan"
	"nutriplan/internal/core/recipe"
	"nutriplan/internal/pkg/common"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Bind 解析 JSON 請求體，失敗時回應 400 並回傳 false
func Bind(c *gin.Context, req any, debug bool) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		common.LogWarn("Invalid request body",
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestid.Get(c)),
			zap.Error(err),
		)
		c.AbortWithStatusJSON(common.ErrInvalidRequest.Status, common.ErrInvalidRequest.WithErr(err).Response(debug))
		return false
	}
	return true
}

// Classify 將服務層錯誤對應到 API 錯誤
func Classify(err error) *common.CustomError {
	switch {
	case errors.Is(err, recipe.ErrSectionMissing):
		return common.ErrSectionMissing.WithErr(err)
	case errors.Is(err, recipe.ErrRecipeNotFound):
		return common.ErrRecipeNotFound.WithErr(err)
	case errors.Is(err, plan.ErrNoIngredients):
		return common.ErrNoIngredients.WithErr(err)
	case errors.Is(err, plan.ErrInvalidPreparation):
		return common.ErrInvalidRequest.WithErr(err)
	case errors.Is(err, context.DeadlineExceeded):
		return common.ErrGatewayTimeout.WithErr(err)
	case errors.Is(err, context.Canceled):
		return common.ErrRequestTimeout.WithErr(err)
	}
	return common.AsCustomError(err)
}

// Fail 記錄並回應錯誤
func Fail(c *gin.Context, err error, debug bool) {
	ce := Classify(err)
	fields := []zap.Field{
		zap.String("path", c.Request.URL.Path),
		zap.String("request_id", requestid.Get(c)),
		zap.String("code", ce.Code),
		zap.Error(err),
	}
	if ce.Status >= 500 {
		common.LogError("Request failed", fields...)
	} else {
		common.LogWarn("Request rejected", fields...)
	}
	c.AbortWithStatusJSON(ce.Status, ce.Response(debug))
}
