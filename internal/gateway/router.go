// Package gateway is the edge router in front of the accounts, loans and
// cards services.
package gateway

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/eaglebank/accounts/internal/config"
	"github.com/eaglebank/accounts/internal/logger"
	"github.com/eaglebank/accounts/internal/metrics"
	"github.com/eaglebank/accounts/internal/middleware"
	"github.com/eaglebank/accounts/internal/models"
)

const (
	accountsPrefix = "/eazybank/accounts"
	loansPrefix    = "/eazybank/loans"
	cardsPrefix    = "/eazybank/cards"
)

func NewRouter(cfg config.GatewayConfig, log *logger.Logger) *gin.Engine {
	client := &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware(cfg.ServiceName))
	router.Use(corsMiddleware(cfg.AllowedOrigins))
	router.Use(middleware.CorrelationID(true))
	router.Use(middleware.LoggingMiddleware(log))
	router.Use(metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": cfg.ServiceName})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	accounts := proxyTo(cfg.AccountsURL, accountsPrefix, client, log)
	accountsWrite := []gin.HandlerFunc{accounts}
	if cfg.JWTSecret != "" {
		accountsWrite = []gin.HandlerFunc{middleware.AuthMiddleware([]byte(cfg.JWTSecret), cfg.RequiredRole), accounts}
	} else {
		log.Warn("JWT_SECRET not set; accounts write routes are unauthenticated")
	}
	router.GET(accountsPrefix+"/*path", accounts)
	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete} {
		router.Handle(method, accountsPrefix+"/*path", accountsWrite...)
	}

	router.Any(loansPrefix+"/*path", proxyTo(cfg.LoansURL, loansPrefix, client, log))
	router.Any(cardsPrefix+"/*path", proxyTo(cfg.CardsURL, cardsPrefix, client, log))
	return router
}

// corsMiddleware allows any origin without credentials when no origins are
// configured.
func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", models.CorrelationIDHeader},
		ExposeHeaders: []string{models.CorrelationIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
