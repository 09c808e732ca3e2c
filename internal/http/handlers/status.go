package handlers

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/internal/http/lib/api/response"
)

func Status(service OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			response.BadRequest(c.Writer, "invalid order id", "")
			return
		}

		order, err := service.Status(c.Request.Context(), id)
		if err != nil {
			if errors.Is(err, model.ErrOrderNotFound) {
				response.NotFound(c.Writer, "Order not found")
				return
			}
			internalError(c, err)
			return
		}

		response.OK(c.Writer, order)
	}
}
