package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/smallbiznis/punchline/internal/analytics"
	analyticsdomain "github.com/smallbiznis/punchline/internal/analytics/domain"
	"github.com/smallbiznis/punchline/internal/auth"
	"github.com/smallbiznis/punchline/internal/checkout"
	"github.com/smallbiznis/punchline/internal/clock"
	"github.com/smallbiznis/punchline/internal/config"
	"github.com/smallbiznis/punchline/internal/invoicing"
	"github.com/smallbiznis/punchline/internal/locale"
	"github.com/smallbiznis/punchline/internal/metrics"
	"github.com/smallbiznis/punchline/internal/payment"
	paymentdomain "github.com/smallbiznis/punchline/internal/payment/domain"
	"github.com/smallbiznis/punchline/internal/providers/email"
	"github.com/smallbiznis/punchline/internal/providers/pdf"
)

var Module = fx.Module("http.server",
	config.Module,
	metrics.Module,
	fx.Provide(registerGin),
	auth.Module,
	email.Module,
	pdf.Module,
	locale.Module,
	analytics.Module,
	checkout.Module,
	invoicing.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
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
	engine       *gin.Engine
	log          *zap.Logger
	cfg          config.Config
	funnel       *config.FunnelConfigHolder
	sessions     *auth.Manager
	localeSvc    *locale.Service
	checkoutSvc  checkout.Service
	paymentSvc   paymentdomain.Service
	paymentRepo  paymentdomain.Repository
	analyticsSvc analyticsdomain.Service
	pdfProvider  pdf.Provider
	metrics      *metrics.Metrics
	clock        clock.Clock
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Log          *zap.Logger
	Cfg          config.Config
	Funnel       *config.FunnelConfigHolder
	Sessions     *auth.Manager
	LocaleSvc    *locale.Service
	CheckoutSvc  checkout.Service
	PaymentSvc   paymentdomain.Service
	PaymentRepo  paymentdomain.Repository
	AnalyticsSvc analyticsdomain.Service
	PDFProvider  pdf.Provider
	Metrics      *metrics.Metrics `optional:"true"`
	Clock        clock.Clock
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:       p.Gin,
		log:          p.Log.Named("http"),
		cfg:          p.Cfg,
		funnel:       p.Funnel,
		sessions:     p.Sessions,
		localeSvc:    p.LocaleSvc,
		checkoutSvc:  p.CheckoutSvc,
		paymentSvc:   p.PaymentSvc,
		paymentRepo:  p.PaymentRepo,
		analyticsSvc: p.AnalyticsSvc,
		pdfProvider:  p.PDFProvider,
		metrics:      p.Metrics,
		clock:        p.Clock,
	}

	s.registerPublicRoutes()
	s.registerWebhookRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerPublicRoutes() {
	s.engine.Use(s.PageviewRecorder())

	api := s.engine.Group("/api")
	api.GET("/locale/:lang", s.GetLocale)
	api.POST("/checkout", s.CreateCheckoutSession)

	s.registerPageRoutes()
}

func (s *Server) registerWebhookRoutes() {
	s.engine.POST("/webhooks/stripe", s.HandleStripeWebhook)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/admin")
	admin.POST("/login", s.AdminLogin)
	admin.POST("/logout", s.AdminLogout)

	authed := admin.Group("/api", s.AdminRequired())
	authed.GET("/stats", s.AdminStats)
	authed.GET("/receipt/:sessionID", s.AdminReceipt)
}
