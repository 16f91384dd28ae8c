package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hydranet/hydrabill/internal/config"
	customerdomain "github.com/hydranet/hydrabill/internal/customer/domain"
	paymentdomain "github.com/hydranet/hydrabill/internal/payment/domain"
	"github.com/hydranet/hydrabill/internal/scheduler"
	settingsdomain "github.com/hydranet/hydrabill/internal/settings/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Params struct {
	fx.In

	Engine       *gin.Engine
	Cfg          config.Config
	Log          *zap.Logger
	CustomerSvc  customerdomain.Service
	Intake       paymentdomain.Intake
	Orchestrator *scheduler.Orchestrator
	SettingsSvc  settingsdomain.Service
}

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	log          *zap.Logger
	customerSvc  customerdomain.Service
	intake       paymentdomain.Intake
	orchestrator *scheduler.Orchestrator
	settingsSvc  settingsdomain.Service
}

func NewEngine(cfg config.Config) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:       p.Engine,
		cfg:          p.Cfg,
		log:          p.Log.Named("server"),
		customerSvc:  p.CustomerSvc,
		intake:       p.Intake,
		orchestrator: p.Orchestrator,
		settingsSvc:  p.SettingsSvc,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	hooks := s.engine.Group("/webhooks")
	hooks.Use(s.SharedSecretRequired())
	hooks.POST("/payment", s.HandlePaymentEvent)

	v1 := s.engine.Group("/v1")
	v1.Use(s.SharedSecretRequired())
	v1.GET("/customers/:account_number/validate", s.HandleValidateCustomer)

	admin := s.engine.Group("/admin")
	admin.Use(s.SharedSecretRequired())
	admin.GET("/jobs", s.HandleJobStatus)
	admin.POST("/jobs/:name/run", s.HandleRunJob)
	admin.POST("/jobs/:name/start", s.HandleStartJob)
	admin.POST("/jobs/:name/stop", s.HandleStopJob)
	admin.PUT("/settings/:key", s.HandleUpdateSetting)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
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

var Module = fx.Module("server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)
