package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/internal/http/lib/api/response"
)

type OrderService interface {
	Products(ctx context.Context) ([]model.Product, error)
	Place(ctx context.Context, cmd *model.PlaceOrderCommand) (int64, error)
	Status(ctx context.Context, orderID int64) (*model.OrderDetail, error)
}

type healthResponse struct {
	Status string `json:"status"`
}

func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.OK(c.Writer, healthResponse{Status: "healthy"})
	}
}

// internalError records err for the access log and replies 500.
func internalError(c *gin.Context, err error) {
	_ = c.Error(err)
	response.InternalError(c.Writer, err.Error())
}
