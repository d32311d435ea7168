package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/fatflowers/resumely/docs"
	"github.com/fatflowers/resumely/internal/app/api/handlers"
	mw "github.com/fatflowers/resumely/internal/app/api/middleware"
	"github.com/fatflowers/resumely/internal/app/service/draft"
	"github.com/fatflowers/resumely/internal/app/service/entitlement"
	"github.com/fatflowers/resumely/internal/app/service/gate"
	"github.com/fatflowers/resumely/internal/app/service/payment"
	"github.com/fatflowers/resumely/internal/app/service/statistics"
	"github.com/fatflowers/resumely/internal/app/service/usage"
	"github.com/fatflowers/resumely/internal/platform/identity"
	cfgpkg "github.com/fatflowers/resumely/pkg/config"
	"github.com/fatflowers/resumely/pkg/metrics"
)

type routeDeps struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	DB         *gorm.DB
	Verifier   identity.Verifier
	Resolver   *entitlement.Resolver
	Usage      *usage.Service
	Payments   payment.PaymentManager
	Gate       *gate.Service
	Drafts     *draft.Service
	Statistics *statistics.Service
}

func newEngine(cfg *cfgpkg.Config) *gin.Engine {
	if cfg.Env == cfgpkg.EnvProd {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	// request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

func registerRoutes(r *gin.Engine, d routeDeps) error {
	log := d.Log
	if d.Cfg.MetricsAddr != "" {
		p := metrics.NewPrometheus(metrics.NewPrometheusOptions{
			ReqCntURLLabelMappingFn: func(c *gin.Context) string {
				if fp := c.FullPath(); fp != "" {
					return fp
				}
				return "unmatched"
			},
			Logger: log,
		})
		p.SetListenAddress(d.Cfg.MetricsAddr)
		p.Use(r)
		log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
	}

	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB: %w", err)
	}
	handlers.RegisterHealthRoutes(pub, sqlDB)
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))

	// signature-verified, no bearer token
	handlers.RegisterWebhookRoutes(apiV1.Group("/webhook"), d.Payments, log)

	if len(d.Cfg.Admin.Accounts) > 0 {
		admin := apiV1.Group("/admin", gin.BasicAuth(d.Cfg.Admin.Accounts))
		handlers.RegisterAdminRoutes(admin, d.Payments, d.Statistics, log)
	} else {
		log.Warnw("admin routes disabled: no admin accounts configured")
	}

	user := apiV1.Group("")
	user.Use(mw.AuthMiddleware(d.Verifier, log))
	handlers.RegisterEntitlementRoutes(user, d.Resolver, d.Usage, log)
	handlers.RegisterPaymentRoutes(user.Group("/payments"), d.Payments, log)
	handlers.RegisterGatedRoutes(user, d.Gate, log)
	handlers.RegisterDraftRoutes(user.Group("/drafts"), d.Drafts, log)
	return nil
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorf("server error: %v", err)
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			shutdownCtx, cancel := context.WithTimeout(ctx, 120*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
