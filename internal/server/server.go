package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/folio/internal/backup"
	"github.com/smallbiznis/folio/internal/clock"
	companydomain "github.com/smallbiznis/folio/internal/company/domain"
	"github.com/smallbiznis/folio/internal/config"
	invoiceservice "github.com/smallbiznis/folio/internal/invoice/service"
	obslogger "github.com/smallbiznis/folio/internal/observability/logger"
	obstracing "github.com/smallbiznis/folio/internal/observability/tracing"
	productdomain "github.com/smallbiznis/folio/internal/product/domain"
	"github.com/smallbiznis/folio/internal/providers/pdf"
	"github.com/smallbiznis/folio/internal/ratelimit"
	"github.com/smallbiznis/folio/internal/render"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, gatherer prometheus.Gatherer) *gin.Engine {
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log, obslogger.MiddlewareConfig{
		Debug:           cfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	log = log.Named("http.server")

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return err
			}
			log.Info("listening", zap.String("addr", ln.Addr().String()))
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
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
	engine     *gin.Engine
	cfg        config.Config
	clock      clock.Clock
	companySvc companydomain.Service
	productSvc productdomain.Service
	invoiceSvc *invoiceservice.Service
	backupSvc  *backup.Service
	renderer   *render.Renderer
	receipts   *pdf.ReceiptProvider
	limiter    *ratelimit.Limiter
	log        *zap.Logger
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Clock      clock.Clock
	CompanySvc companydomain.Service
	ProductSvc productdomain.Service
	InvoiceSvc *invoiceservice.Service
	BackupSvc  *backup.Service
	Renderer   *render.Renderer
	Receipts   *pdf.ReceiptProvider
	Limiter    *ratelimit.Limiter `optional:"true"`
	Log        *zap.Logger
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		clock:      p.Clock,
		companySvc: p.CompanySvc,
		productSvc: p.ProductSvc,
		invoiceSvc: p.InvoiceSvc,
		backupSvc:  p.BackupSvc,
		renderer:   p.Renderer,
		receipts:   p.Receipts,
		limiter:    p.Limiter,
		log:        p.Log.Named("http.server"),
	}

	svc.registerAPIRoutes()
	svc.registerFallback()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	// -------- Companies --------
	api.GET("/companies", s.ListCompanies)
	api.POST("/companies", s.CreateCompany)
	api.GET("/companies/:id", s.GetCompany)
	api.PATCH("/companies/:id", s.UpdateCompany)
	api.DELETE("/companies/:id", s.DeleteCompany)
	api.POST("/companies/:id/activate", s.ActivateCompany)
	api.POST("/companies/:id/primary", s.MakePrimaryCompany)

	// -------- Backups --------
	api.GET("/backups", s.ListBackups)
	api.POST("/backups", s.CreateBackup)
	api.POST("/backups/:id/restore", s.RestoreBackup)

	api.POST("/reminders", s.RunReminders)

	scoped := api.Group("", s.CompanyScope())

	// -------- Invoices --------
	scoped.GET("/invoices", s.ListInvoices)
	scoped.POST("/invoices", s.CreateInvoice)
	scoped.POST("/invoices/pdf", s.RenderRateLimit(), s.RenderInvoiceBatch)
	scoped.GET("/invoices/:id", s.GetInvoice)
	scoped.PATCH("/invoices/:id", s.UpdateInvoice)
	scoped.DELETE("/invoices/:id", s.DeleteInvoice)
	scoped.PUT("/invoices/:id/status", s.UpdateInvoiceStatus)
	scoped.POST("/invoices/:id/duplicate", s.DuplicateInvoice)
	scoped.GET("/invoices/:id/pdf", s.RenderRateLimit(), s.RenderInvoice)
	scoped.GET("/invoices/:id/receipt", s.RenderRateLimit(), s.InvoiceReceipt)

	// -------- Products --------
	scoped.GET("/products", s.ListProducts)
	scoped.POST("/products", s.CreateProduct)
	scoped.GET("/products/export.csv", s.ExportProducts)
	scoped.GET("/products/:id", s.GetProduct)
	scoped.PATCH("/products/:id", s.UpdateProduct)
	scoped.DELETE("/products/:id", s.DeleteProduct)
}

func (s *Server) registerFallback() {
	s.engine.NoRoute(func(c *gin.Context) {
		AbortWithError(c, ErrNotFound)
	})
}
