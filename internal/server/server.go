package server

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	authdomain "github.com/smallbiznis/jewelbill/internal/auth/domain"
	"github.com/smallbiznis/jewelbill/internal/authorization"
	billdomain "github.com/smallbiznis/jewelbill/internal/bill/domain"
	"github.com/smallbiznis/jewelbill/internal/config"
	metalratedomain "github.com/smallbiznis/jewelbill/internal/metalrate/domain"
	"github.com/smallbiznis/jewelbill/internal/observability"
	obsmiddleware "github.com/smallbiznis/jewelbill/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/jewelbill/internal/observability/metrics"
	obstracing "github.com/smallbiznis/jewelbill/internal/observability/tracing"
	productdomain "github.com/smallbiznis/jewelbill/internal/product/domain"
	"github.com/smallbiznis/jewelbill/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(func(*Server) {}),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics, allowOrigins []string) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(allowOrigins)))
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(obsmetrics.GinMiddleware(httpMetrics))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func corsConfig(allowOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", obsmiddleware.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Disposition", "Retry-After", obsmiddleware.RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	origins := make([]string, 0, len(allowOrigins))
	for _, origin := range allowOrigins {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

func registerGin(cfg config.Config, obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics, cfg.CORSAllowOrigins)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	addr := strings.TrimSpace(cfg.HTTPAddr)
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server stopped", zap.Error(err))
				}
			}()
			log.Info("http server listening", zap.String("addr", addr))
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
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	authsvc      authdomain.Service
	authzSvc     authorization.Service
	billSvc      billdomain.Service
	productSvc   productdomain.Service
	metalRateSvc metalratedomain.Service
	limiter      *ratelimit.Limiter
	obsMetrics   *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	Authsvc      authdomain.Service
	AuthzSvc     authorization.Service
	BillSvc      billdomain.Service
	ProductSvc   productdomain.Service
	MetalRateSvc metalratedomain.Service
	Limiter      *ratelimit.Limiter  `optional:"true"`
	ObsMetrics   *obsmetrics.Metrics `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		log:          p.Log.Named("http.server"),
		authsvc:      p.Authsvc,
		authzSvc:     p.AuthzSvc,
		billSvc:      p.BillSvc,
		productSvc:   p.ProductSvc,
		metalRateSvc: p.MetalRateSvc,
		limiter:      p.Limiter,
		obsMetrics:   p.ObsMetrics,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()
	svc.registerAdminRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	auth := s.engine.Group("/auth")
	auth.POST("/login", s.Login)
	auth.GET("/me", s.AdminRequired(), s.Me)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/bills", s.RateLimit(ratelimit.EndpointBillCreate), s.CreateBill)
	api.POST("/bills/preview", s.PreviewBill)
	api.GET("/bills/:id/pdf", s.RateLimit(ratelimit.EndpointBillPDF), s.DownloadBillPDF)

	api.GET("/products", s.ListProducts)
	api.GET("/products/:id", s.GetProductByID)

	api.GET("/metal-rates", s.ListMetalRates)
}

func (s *Server) registerAdminRoutes() {
	api := s.engine.Group("/api")

	api.GET("/bills", s.Authorize(authorization.ObjectBill, authorization.ActionBillView), s.ListBills)
	api.GET("/bills/:id", s.Authorize(authorization.ObjectBill, authorization.ActionBillView), s.GetBillByID)
	api.GET("/bills/:id/html", s.Authorize(authorization.ObjectBill, authorization.ActionBillRender), s.RenderBillHTML)
	api.GET("/bills/number/*number", s.Authorize(authorization.ObjectBill, authorization.ActionBillView), s.GetBillByNumber)

	api.POST("/metal-rates/update", s.Authorize(authorization.ObjectMetalRate, authorization.ActionMetalRateRefresh), s.RefreshMetalRates)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
