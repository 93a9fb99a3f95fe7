package api

import (
	"time"

	"nutriplan/internal/api/handlers/health"
	ingredientHandler "nutriplan/internal/api/handlers/ingredient"
	planHandler "nutriplan/internal/api/handlers/plan"
	"nutriplan/internal/api/middleware"
	"nutriplan/internal/app"
	"nutriplan/internal/pkg/common"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const defaultMaxBodySize = 1 << 20

// Router 路由與需要在關閉時停止的背景工作
type Router struct {
	Engine *gin.Engine
	dedup  *middleware.Deduplicator
}

// Close 停止去重清理
func (r *Router) Close() {
	if r.dedup != nil {
		r.dedup.Stop()
	}
}

// SetupRouter 設置路由
func SetupRouter(a *app.App) *Router {
	cfg := a.Config
	common.LogInfo("Starting router setup",
		zap.Bool("debug_mode", cfg.App.Debug),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Env),
	)

	// 設置 gin 模式
	if !cfg.App.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 註冊基礎中間件
	router.Use(middleware.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(common.GenerateUUID)))
	router.Use(middleware.Logger())

	// CORS 設置
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}))

	maxBody := cfg.Server.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodySize
	}
	router.Use(middleware.BodySizeLimit(maxBody))

	r := &Router{Engine: router}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(common.ErrNotFound.Status, common.ErrNotFound.Response(false))
	})

	// 健康檢查路由
	healthHandler := health.NewHandler(cfg.App.Version, a)
	router.GET("/health", healthHandler.HealthCheck)
	router.GET("/ready", healthHandler.ReadinessCheck)
	router.GET("/live", healthHandler.LivenessCheck)

	// API 路由組
	api := router.Group("/api/v1")
	if cfg.RateLimit.Enabled {
		api.Use(middleware.RateLimit(middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)))
	}
	if cfg.DedupWindow > 0 {
		r.dedup = middleware.NewDeduplicator(cfg.DedupWindow)
		api.Use(r.dedup.Middleware())
	}
	api.Use(middleware.Timeout(cfg.Analysis.RequestTimeout))
	{
		ingredients := ingredientHandler.NewHandler(a.Resolver, cfg.App.Debug)
		ingredientGroup := api.Group("/ingredients")
		{
			ingredientGroup.POST("/parse", ingredients.HandleParse)
			ingredientGroup.POST("/nutrients", ingredients.HandleNutrients)
		}

		plans := planHandler.NewHandler(a.Plans, cfg.App.Debug)
		planGroup := api.Group("/plans")
		{
			planGroup.POST("/recipes", plans.HandleRecipes)
			planGroup.POST("/analyze", plans.HandleAnalyze)
			planGroup.POST("/favorite", plans.HandleFavorite)
			planGroup.POST("/shopping-list", plans.HandleShoppingList)
		}

		api.POST("/preparations/nutrition", plans.HandlePreparation)
	}

	common.LogInfo("Router setup completed successfully",
		zap.Bool("rate_limit", cfg.RateLimit.Enabled),
		zap.Duration("dedup_window", cfg.DedupWindow),
		zap.Duration("timeout", cfg.Analysis.RequestTimeout),
		zap.Int64("max_body_size", maxBody),
	)
	return r
}
