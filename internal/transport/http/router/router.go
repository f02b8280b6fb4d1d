package router

import (
	"net/http"

	"shop-service/internal/metrics"
	"shop-service/internal/ratelimit"
	"shop-service/internal/transport/http/handlers"
	"shop-service/internal/transport/http/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

type Deps struct {
	Carts         handlers.CartService
	Discounts     handlers.DiscountService
	Orders        handlers.OrderService
	Payments      handlers.PaymentService
	AdminPayments handlers.AdminPaymentService
	Notifications handlers.NotificationService

	Tokens      *middleware.TokenParser
	Session     middleware.SessionConfig
	CORSOrigins []string

	// опционально: без Metrics нет /metrics, без Limiter нет ограничения частоты
	Metrics      *metrics.Metrics
	Limiter      ratelimit.Limiter
	PaymentLimit ratelimit.Limit
}

func Router(d Deps, log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	var observer handlers.PaymentObserver
	if d.Metrics != nil {
		r.Use(d.Metrics.GinMiddleware())
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
		observer = d.Metrics
	}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	corsCfg := cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(origins) == 1 && origins[0] == "*" {
		// cors не допускает "*" вместе с credentials
		corsCfg.AllowOrigins = nil
		corsCfg.AllowOriginFunc = func(string) bool { return true }
	}
	r.Use(cors.New(corsCfg))

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	cartH := handlers.NewCartHandler(d.Carts, d.Discounts, log)
	orderH := handlers.NewOrderHandler(d.Orders, log)
	payH := handlers.NewPaymentHandler(d.Payments, observer, log)
	adminH := handlers.NewAdminPaymentHandler(d.AdminPayments, log)
	notifH := handlers.NewNotificationHandler(d.Notifications, log)

	shop := r.Group("/", middleware.Session(d.Session, log), middleware.Authenticate(d.Tokens, log))

	api := shop.Group("/api/v1")
	{
		c := api.Group("/cart")
		c.GET("", cartH.Get)
		c.GET("/count", cartH.Count)
		c.POST("/add", cartH.Add)
		c.POST("/remove", cartH.Remove)
		c.POST("/update", cartH.Update)
		c.POST("/clear", cartH.Clear)

		api.GET("/discounts/amazing", cartH.Amazing)
	}

	authed := api.Group("", middleware.RequireAuth())
	{
		authed.POST("/orders", orderH.Place)
		authed.GET("/orders", orderH.List)
		authed.GET("/orders/:id", orderH.Get)
		authed.GET("/orders/:id/checkout", orderH.Checkout)
		authed.POST("/orders/:id/checkout", orderH.UpdateCheckout)
		authed.POST("/orders/:id/coupon", orderH.ApplyCoupon)
		authed.GET("/orders/:id/invoice", orderH.Invoice)

		authed.GET("/addresses", orderH.ListAddresses)
		authed.POST("/addresses", orderH.CreateAddress)

		authed.GET("/notifications", notifH.List)
		authed.POST("/notifications/:id/read", notifH.MarkRead)
	}

	admin := api.Group("/admin", middleware.RequireAdmin())
	{
		admin.GET("/payments", adminH.List)
		admin.GET("/payments/report", adminH.Report)
		admin.POST("/payments/bulk-verify", adminH.BulkVerify)
		admin.POST("/payments/bulk-delete", adminH.BulkDelete)
		admin.POST("/payments/:id/toggle", adminH.Toggle)
		admin.POST("/payments/:id/verify", adminH.Verify)
		admin.POST("/payments/:id/cancel", adminH.Cancel)
		admin.DELETE("/payments/:id", adminH.Delete)

		admin.PATCH("/orders/:id/status", orderH.SetStatus)
	}

	var payLimit gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if d.Limiter != nil {
		payLimit = middleware.RateLimit(d.Limiter, "payment_request", d.PaymentLimit, log)
	}

	pay := shop.Group("/payment")
	{
		pay.GET("/request/:order_id", middleware.RequireAuth(), payLimit, payH.Request)
		pay.GET("/verify", payH.Verify)
		pay.GET("/success", payH.Success)
		pay.GET("/failure", payH.Failure)
	}

	return r
}
