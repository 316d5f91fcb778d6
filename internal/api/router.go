package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/printbridge/printbridge/internal/api/handlers"
	"github.com/printbridge/printbridge/internal/api/middleware"
	"github.com/printbridge/printbridge/internal/dispatch"
)

type RouterDeps struct {
	Jobs     *handlers.JobHandler
	Payments *handlers.PaymentHandler
	Printers *handlers.PrinterHandler
	Auth     *middleware.AuthMiddleware
	Dispatch *dispatch.Server
}

// NewRouter wires all HTTP surfaces: the public job/payment API, the
// admin group behind the session middleware, and the dispatch channel
// upgrade endpoint.
func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/ws", func(c *gin.Context) {
		deps.Dispatch.HandleConnection(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	deps.Jobs.RegisterRoutes(apiGroup)
	deps.Payments.RegisterRoutes(apiGroup)
	deps.Auth.RegisterRoutes(apiGroup)

	admin := apiGroup.Group("", deps.Auth.RequireAuth())
	deps.Jobs.RegisterAdminRoutes(admin)
	deps.Printers.RegisterAdminRoutes(admin)

	return r
}
