package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/sanchey92/order-intake/internal/http/handlers"
	"github.com/sanchey92/order-intake/internal/http/middlewares"
)

func New(log *slog.Logger, service handlers.OrderService, corsOrigin string) *gin.Engine {
	r := gin.New()
	r.Use(
		middlewares.Recovery(log),
		middlewares.RequestID(),
		middlewares.Logger(log),
		middlewares.CORS(corsOrigin),
	)

	r.GET("/health", handlers.Health())

	api := r.Group("/api")
	api.GET("/products", handlers.ListProducts(service))
	api.POST("/orders", handlers.Create(service))
	api.GET("/orders/:id", handlers.Status(service))

	return r
}
