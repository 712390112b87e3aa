package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ledgerly/ledgerly/internal/audit"
	auditdomain "github.com/ledgerly/ledgerly/internal/audit/domain"
	"github.com/ledgerly/ledgerly/internal/auth"
	authdomain "github.com/ledgerly/ledgerly/internal/auth/domain"
	authoauth "github.com/ledgerly/ledgerly/internal/auth/oauth"
	"github.com/ledgerly/ledgerly/internal/auth/session"
	"github.com/ledgerly/ledgerly/internal/authorization"
	"github.com/ledgerly/ledgerly/internal/client"
	clientdomain "github.com/ledgerly/ledgerly/internal/client/domain"
	"github.com/ledgerly/ledgerly/internal/config"
	"github.com/ledgerly/ledgerly/internal/currency"
	currencydomain "github.com/ledgerly/ledgerly/internal/currency/domain"
	"github.com/ledgerly/ledgerly/internal/dashboard"
	"github.com/ledgerly/ledgerly/internal/export"
	"github.com/ledgerly/ledgerly/internal/invoice"
	invoicedomain "github.com/ledgerly/ledgerly/internal/invoice/domain"
	"github.com/ledgerly/ledgerly/internal/observability"
	obsmetrics "github.com/ledgerly/ledgerly/internal/observability/metrics"
	"github.com/ledgerly/ledgerly/internal/observability/requestlog"
	obstracing "github.com/ledgerly/ledgerly/internal/observability/tracing"
	"github.com/ledgerly/ledgerly/internal/payment"
	paymentdomain "github.com/ledgerly/ledgerly/internal/payment/domain"
	"github.com/ledgerly/ledgerly/internal/providers/email"
	"github.com/ledgerly/ledgerly/internal/providers/pdf"
	"github.com/ledgerly/ledgerly/internal/ratelimit"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	auth.Module,
	session.Module,
	client.Module,
	invoice.Module,
	payment.Module,
	currency.Module,
	dashboard.Module,
	export.Module,
	email.Module,
	pdf.Module,
	ratelimit.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestlog.GinMiddleware(log))
	r.Use(obstracing.GinMiddleware(obsCfg.ServiceName))
	r.Use(httpMetrics.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", httpMetrics.Handler())

	return r
}

func registerGin(cfg config.Config, obsCfg observability.Config, log *zap.Logger, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(cfg, obsCfg, log, httpMetrics)
}

func run(lc fx.Lifecycle, r *gin.Engine, cfg config.Config, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				log.Info("http server listening", zap.String("addr", srv.Addr))
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

type Server struct {
	engine       *gin.Engine
	cfg          config.Config
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	authsvc      authdomain.Service
	oauthsvc     authoauth.Service
	sessions     *session.Manager
	authzSvc     authorization.Service
	auditSvc     auditdomain.Service
	clientSvc    clientdomain.Service
	invoiceSvc   invoicedomain.Service
	paymentSvc   paymentdomain.Service
	currencySvc  currencydomain.Service
	dashboardSvc dashboard.Service
	exportSvc    export.Service
	emailer      email.Provider
	pdfRenderer  pdf.Provider
	loginLimiter *ratelimit.LoginLimiter
}

type ServerParams struct {
	fx.In

	Gin          *gin.Engine
	Cfg          config.Config
	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Authsvc      authdomain.Service
	OAuthsvc     authoauth.Service
	Sessions     *session.Manager
	AuthzSvc     authorization.Service
	AuditSvc     auditdomain.Service
	ClientSvc    clientdomain.Service
	InvoiceSvc   invoicedomain.Service
	PaymentSvc   paymentdomain.Service
	CurrencySvc  currencydomain.Service
	DashboardSvc dashboard.Service
	ExportSvc    export.Service
	Emailer      email.Provider
	PDFRenderer  pdf.Provider
	LoginLimiter *ratelimit.LoginLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:       p.Gin,
		cfg:          p.Cfg,
		db:           p.DB,
		log:          p.Log.Named("http.server"),
		genID:        p.GenID,
		authsvc:      p.Authsvc,
		oauthsvc:     p.OAuthsvc,
		sessions:     p.Sessions,
		authzSvc:     p.AuthzSvc,
		auditSvc:     p.AuditSvc,
		clientSvc:    p.ClientSvc,
		invoiceSvc:   p.InvoiceSvc,
		paymentSvc:   p.PaymentSvc,
		currencySvc:  p.CurrencySvc,
		dashboardSvc: p.DashboardSvc,
		exportSvc:    p.ExportSvc,
		emailer:      p.Emailer,
		pdfRenderer:  p.PDFRenderer,
		loginLimiter: p.LoginLimiter,
	}

	svc.registerAuthRoutes()
	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAuthRoutes() {
	authGroup := s.engine.Group("/auth")

	authGroup.POST("/register", s.AuthRequired(), s.authorize(authorization.ObjectUser, authorization.ActionCreate), s.Register)
	authGroup.POST("/login", s.Login)
	authGroup.POST("/logout", s.Logout)
	authGroup.GET("/me", s.AuthRequired(), s.Me)
	authGroup.PATCH("/profile", s.AuthRequired(), s.authorize(authorization.ObjectProfile, authorization.ActionManage), s.UpdateProfile)
	authGroup.POST("/change-password", s.AuthRequired(), s.authorize(authorization.ObjectProfile, authorization.ActionManage), s.ChangePassword)

	authGroup.GET("/oauth/login", s.OAuthLogin)
	authGroup.GET("/oauth/callback", s.OAuthCallback)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	// -------- Clients --------
	api.GET("/clients", s.authorize(authorization.ObjectClient, authorization.ActionView), s.ListClients)
	api.POST("/clients", s.authorize(authorization.ObjectClient, authorization.ActionCreate), s.CreateClient)
	api.GET("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionView), s.GetClientByID)
	api.PATCH("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionUpdate), s.UpdateClient)
	api.DELETE("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionDelete), s.DeleteClient)

	// -------- Invoices --------
	api.GET("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListInvoices)
	api.POST("/invoices", s.authorize(authorization.ObjectInvoice, authorization.ActionCreate), s.CreateInvoice)
	api.GET("/invoices/overdue", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.ListOverdueInvoices)
	api.GET("/invoices/:id", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.GetInvoiceByID)
	api.PATCH("/invoices/:id/status", s.authorize(authorization.ObjectInvoice, authorization.ActionUpdate), s.OverrideInvoiceStatus)
	api.GET("/invoices/:id/pdf", s.authorize(authorization.ObjectInvoice, authorization.ActionView), s.RenderInvoicePDF)
	api.POST("/invoices/:id/send", s.authorize(authorization.ObjectEmail, authorization.ActionSend), s.SendInvoiceEmail)
	api.GET("/invoices/:id/email-preview", s.authorize(authorization.ObjectEmail, authorization.ActionSend), s.PreviewInvoiceEmail)

	// -------- Payments --------
	api.GET("/invoices/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionView), s.ListInvoicePayments)
	api.POST("/invoices/:id/recompute", s.authorize(authorization.ObjectPayment, authorization.ActionUpdate), s.RecomputeInvoice)
	api.POST("/payments", s.authorize(authorization.ObjectPayment, authorization.ActionCreate), s.RecordPayment)
	api.DELETE("/payments/:id", s.authorize(authorization.ObjectPayment, authorization.ActionDelete), s.DeletePayment)

	// -------- Currencies --------
	api.GET("/currencies", s.authorize(authorization.ObjectCurrency, authorization.ActionView), s.ListCurrencies)
	api.GET("/currencies/rate", s.authorize(authorization.ObjectCurrency, authorization.ActionView), s.GetCurrencyRate)
	api.POST("/currencies/convert", s.authorize(authorization.ObjectCurrency, authorization.ActionView), s.ConvertCurrency)

	// -------- Dashboard --------
	api.GET("/dashboard/stats", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetDashboardStats)
	api.GET("/dashboard/activity", s.authorize(authorization.ObjectDashboard, authorization.ActionView), s.GetRecentActivity)

	// -------- Export / Import --------
	api.GET("/export/invoices", s.authorize(authorization.ObjectExport, authorization.ActionManage), s.ExportInvoicesCSV)
	api.GET("/export/clients", s.authorize(authorization.ObjectExport, authorization.ActionManage), s.ExportClientsCSV)
	api.POST("/import/clients", s.authorize(authorization.ObjectExport, authorization.ActionImport), s.ImportClientsCSV)
	api.GET("/templates/clients", s.authorize(authorization.ObjectExport, authorization.ActionView), s.ClientTemplateCSV)
	api.GET("/templates/invoices", s.authorize(authorization.ObjectExport, authorization.ActionView), s.InvoiceTemplateCSV)

	// -------- Users / Audit --------
	api.GET("/users", s.authorize(authorization.ObjectUser, authorization.ActionView), s.ListUsers)
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionView), s.ListAuditLogs)
}
