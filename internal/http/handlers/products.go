package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/sanchey92/order-intake/internal/domain/model"
	"github.com/sanchey92/order-intake/internal/http/lib/api/response"
)

type emptyProductsResponse struct {
	Warning  string          `json:"warning"`
	Products []model.Product `json:"products"`
}

func ListProducts(service OrderService) gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := service.Products(c.Request.Context())
		if err != nil {
			internalError(c, err)
			return
		}

		if len(products) == 0 {
			response.OK(c.Writer, emptyProductsResponse{
				Warning:  "No products found",
				Products: []model.Product{},
			})
			return
		}

		response.OK(c.Writer, products)
	}
}
