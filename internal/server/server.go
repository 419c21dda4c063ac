package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/bizplannaija/internal/activity"
	activitydomain "github.com/smallbiznis/bizplannaija/internal/activity/domain"
	"github.com/smallbiznis/bizplannaija/internal/authorization"
	"github.com/smallbiznis/bizplannaija/internal/business"
	businessdomain "github.com/smallbiznis/bizplannaija/internal/business/domain"
	"github.com/smallbiznis/bizplannaija/internal/cache"
	"github.com/smallbiznis/bizplannaija/internal/config"
	"github.com/smallbiznis/bizplannaija/internal/entitlement"
	"github.com/smallbiznis/bizplannaija/internal/observability"
	obslogger "github.com/smallbiznis/bizplannaija/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/bizplannaija/internal/observability/metrics"
	obstracing "github.com/smallbiznis/bizplannaija/internal/observability/tracing"
	"github.com/smallbiznis/bizplannaija/internal/ratelimit"
	"github.com/smallbiznis/bizplannaija/internal/scheduler"
	"github.com/smallbiznis/bizplannaija/internal/subscription"
	subscriptiondomain "github.com/smallbiznis/bizplannaija/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	entitlement.Module,
	activity.Module,
	subscription.Module,
	cache.Module,
	business.Module,
	authorization.Module,
	ratelimit.Module,
	scheduler.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, srv *Server, log *zap.Logger) {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           srv.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return httpServer.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	log             *zap.Logger
	tokens          *TokenVerifier
	catalogs        *config.CatalogHolder
	authzSvc        authorization.Service
	activitySvc     activitydomain.Service
	subscriptionSvc subscriptiondomain.Service
	businessSvc     businessdomain.Service
	limiter         ratelimit.Limiter
	obsMetrics      *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	Log             *zap.Logger
	Catalogs        *config.CatalogHolder
	AuthzSvc        authorization.Service
	ActivitySvc     activitydomain.Service
	SubscriptionSvc subscriptiondomain.Service
	BusinessSvc     businessdomain.Service
	Limiter         ratelimit.Limiter   `optional:"true"`
	ObsMetrics      *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		log:             p.Log.Named("http.server"),
		tokens:          NewTokenVerifier(p.Cfg.AuthJWTSecret, p.Cfg.AuthJWTIssuer),
		catalogs:        p.Catalogs,
		authzSvc:        p.AuthzSvc,
		activitySvc:     p.ActivitySvc,
		subscriptionSvc: p.SubscriptionSvc,
		businessSvc:     p.BusinessSvc,
		limiter:         p.Limiter,
		obsMetrics:      p.ObsMetrics,
	}

	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerPublicRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.GET("/pricing", s.RateLimit(), s.ListPricing)

	authed := api.Group("", s.AuthRequired(), s.RateLimit())

	// -------- Entitlements --------
	authed.GET("/me/entitlements", s.authorize(authorization.ObjectEntitlements, authorization.ActionRead), s.GetMyEntitlements)
	authed.GET("/me/features/:feature", s.authorize(authorization.ObjectEntitlements, authorization.ActionRead), s.GetMyFeature)
	authed.GET("/users/:id/entitlements", s.authorize(authorization.ObjectEntitlements, authorization.ActionRead), s.GetUserEntitlements)

	// -------- Activity --------
	authed.POST("/activity", s.authorize(authorization.ObjectActivity, authorization.ActionWrite), s.RecordActivity)

	// -------- Businesses --------
	authed.GET("/businesses", s.authorize(authorization.ObjectBusinesses, authorization.ActionWrite), s.ListBusinesses)
	authed.POST("/businesses", s.authorize(authorization.ObjectBusinesses, authorization.ActionWrite), s.CreateBusiness)
	authed.GET("/businesses/:id", s.authorize(authorization.ObjectBusinesses, authorization.ActionWrite), s.GetBusiness)
	authed.PATCH("/businesses/:id", s.authorize(authorization.ObjectBusinesses, authorization.ActionWrite), s.UpdateBusiness)
	authed.DELETE("/businesses/:id", s.authorize(authorization.ObjectBusinesses, authorization.ActionWrite), s.DeleteBusiness)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.Use(s.AuthRequired())
	admin.Use(s.RateLimit())

	admin.GET("/users/:id", s.authorize(authorization.ObjectUsers, authorization.ActionRead), s.GetUser)
	admin.PUT("/users/:id", s.authorize(authorization.ObjectUsers, authorization.ActionUpdate), s.UpdateUserPlan)
	admin.POST("/users/:id/expiration", s.authorize(authorization.ObjectUsers, authorization.ActionUpdate), s.ApplyUserExpiration)

	admin.GET("/activity", s.authorize(authorization.ObjectActivity, authorization.ActionRead), s.ListActivity)
}

func (s *Server) registerPublicRoutes() {
	public := s.engine.Group("/public")
	public.Use(s.RateLimit())

	public.GET("/businesses/:slug", s.GetPublicBusiness)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
