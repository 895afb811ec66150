package ginserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	gin "github.com/gin-gonic/gin"

	"rentflow/internal/infra/config"
	"rentflow/internal/infra/obs"
)

type CheckoutHTTP interface {
	Open(c *gin.Context)
	Get(c *gin.Context)
	Close(c *gin.Context)
	Calendar(c *gin.Context)
	RefreshCalendar(c *gin.Context)
	Tap(c *gin.Context)
	ClearSelection(c *gin.Context)
	Quote(c *gin.Context)
	StartBooking(c *gin.Context)
	PaymentCallback(c *gin.Context)
}

type AvailabilityHTTP interface {
	Availability(c *gin.Context)
}

// PaymentPageHTTP serves the local stand-in for the hosted payment page.
type PaymentPageHTTP interface {
	Show(c *gin.Context)
	Pay(c *gin.Context)
}

type Handlers struct {
	Checkout       CheckoutHTTP
	Availability   AvailabilityHTTP
	PaymentPage    PaymentPageHTTP
	AuthMiddleware gin.HandlerFunc
}

func NewServer(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(cfg, obsMW, health, h),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func NewRouter(cfg config.Config, obsMW obs.Middleware, health obs.HealthHandlers, h Handlers) *gin.Engine {
	mode := configureGinMode(cfg.Env)
	if obsMW.Logger != nil {
		obsMW.Logger.Info("gin initialized", "mode", mode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(obsMW.RequestID())
	router.Use(obsMW.LoggerMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization", "Idempotency-Key", "X-Refresh-Token"},
		ExposeHeaders: []string{
			"Content-Length",
			"Content-Type",
			"X-Request-ID",
		},
		MaxAge: 12 * time.Hour,
	}))
	if h.AuthMiddleware != nil {
		router.Use(h.AuthMiddleware)
	}

	registerSwaggerRoutes(router)

	router.GET("/livez", health.Livez)
	router.GET("/readyz", health.Readyz)
	if h.PaymentPage != nil {
		router.GET("/pay/:id", h.PaymentPage.Show)
		router.POST("/pay/:id", h.PaymentPage.Pay)
	}

	api := router.Group("/api/v1")
	if h.Checkout != nil {
		sessions := api.Group("/checkout/sessions")
		sessions.POST("", h.Checkout.Open)
		sessions.GET("/:id", h.Checkout.Get)
		sessions.DELETE("/:id", h.Checkout.Close)
		sessions.GET("/:id/calendar", h.Checkout.Calendar)
		sessions.POST("/:id/calendar/refresh", h.Checkout.RefreshCalendar)
		sessions.POST("/:id/taps", h.Checkout.Tap)
		sessions.DELETE("/:id/selection", h.Checkout.ClearSelection)
		sessions.GET("/:id/quote", h.Checkout.Quote)
		sessions.POST("/:id/booking", h.Checkout.StartBooking)
		sessions.POST("/:id/payment/:result", h.Checkout.PaymentCallback)
	}
	if h.Availability != nil {
		api.GET("/listings/:id/availability", h.Availability.Availability)
	}
	return router
}

func configureGinMode(env string) string {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "debug":
		gin.SetMode(gin.DebugMode)
		return gin.DebugMode
	case "test", "testing":
		gin.SetMode(gin.TestMode)
		return gin.TestMode
	default:
		gin.SetMode(gin.ReleaseMode)
		return gin.ReleaseMode
	}
}
