package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/internal/http/lib/api/decode"
	"github.com/sanchey92/order-intake/internal/http/lib/api/response"
)

const msgMissingFields = "Missing required order information"

type createRequest struct {
	CustomerName  string           `json:"customer_name"  binding:"required"`
	CustomerEmail string           `json:"customer_email" binding:"required"`
	Items         []model.LineItem `json:"items"          binding:"required,dive"`
}

type createResponse struct {
	Message string `json:"message"`
	OrderID int64  `json:"order_id"`
}

func Create(service OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRequest

		if err := decode.Validated(c.Request, &req); err != nil {
			var vErr *decode.ValidationError
			if errors.As(err, &vErr) {
				response.BadRequest(c.Writer, msgMissingFields, vErr.Error())
				return
			}
			response.BadRequest(c.Writer, err.Error(), "")
			return
		}

		orderID, err := service.Place(c.Request.Context(), &model.PlaceOrderCommand{
			CustomerName:  req.CustomerName,
			CustomerEmail: req.CustomerEmail,
			Items:         req.Items,
		})
		if err != nil {
			var pnf *model.ProductNotFoundError
			if errors.As(err, &pnf) {
				response.NotFound(c.Writer, pnf.Error())
				return
			}
			internalError(c, err)
			return
		}

		response.Created(c.Writer, createResponse{
			Message: "Order placed successfully",
			OrderID: orderID,
		})
	}
}
