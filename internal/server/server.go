package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/meditrade/pricing/internal/authorization"
	"github.com/meditrade/pricing/internal/catalog"
	catalogdomain "github.com/meditrade/pricing/internal/catalog/domain"
	"github.com/meditrade/pricing/internal/config"
	"github.com/meditrade/pricing/internal/discount"
	discountdomain "github.com/meditrade/pricing/internal/discount/domain"
	"github.com/meditrade/pricing/internal/observability"
	obsmiddleware "github.com/meditrade/pricing/internal/observability/logger"
	obstracing "github.com/meditrade/pricing/internal/observability/tracing"
	"github.com/meditrade/pricing/internal/pricing"
	pricingdomain "github.com/meditrade/pricing/internal/pricing/domain"
	"github.com/meditrade/pricing/internal/pricingevent"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	pricingevent.Module,
	discount.Module,
	catalog.Module,
	pricing.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	return NewEngine(obsCfg)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	discountSvc discountdomain.Service
	catalogSvc  catalogdomain.Service
	pricingSvc  pricingdomain.Service
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	DiscountSvc discountdomain.Service
	CatalogSvc  catalogdomain.Service
	PricingSvc  pricingdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		discountSvc: p.DiscountSvc,
		catalogSvc:  p.CatalogSvc,
		pricingSvc:  p.PricingSvc,
	}

	svc.registerAdminRoutes()
	svc.registerPricingRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")

	admin.GET("/discounts", s.RequirePermission(authorization.PermDiscountView), s.ListDiscounts)
	admin.POST("/discounts", s.RequirePermission(authorization.PermDiscountCreate), s.CreateDiscount)
	admin.GET("/discounts/:id", s.RequirePermission(authorization.PermDiscountView), s.GetDiscountByID)
	admin.PATCH("/discounts/:id", s.RequirePermission(authorization.PermDiscountUpdate), s.UpdateDiscount)
	admin.DELETE("/discounts/:id", s.RequirePermission(authorization.PermDiscountDelete), s.DeleteDiscount)
}

func (s *Server) registerPricingRoutes() {
	api := s.engine.Group("/api")

	api.POST("/pricing/preview", s.RequirePermission(authorization.PermOrderPrice), s.PreviewOrder)
	api.POST("/pricing/line", s.RequirePermission(authorization.PermOrderPrice), s.CalculateLine)
	api.POST("/pricing/commit", s.RequirePermission(authorization.PermOrderCommit), s.CommitOrder)
}
