package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/retail/internal/service/ordering"
)

type orderLineRequest struct {
	ArticleID string `json:"article_id" binding:"required"`
	Units     int    `json:"units"`
}

type placeOrderRequest struct {
	CustomerID *int64             `json:"customer_id" binding:"required"`
	Items      []orderLineRequest `json:"items"`
}

func (h *Handler) placeOrder(c *gin.Context) {
	var req placeOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	lines := make([]ordering.PlaceOrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, ordering.PlaceOrderLine{ArticleID: item.ArticleID, Units: item.Units})
	}

	confirmation, err := h.ordering.PlaceOrder(c.Request.Context(), ordering.PlaceOrderRequest{
		CustomerID: *req.CustomerID,
		Items:      lines,
	})
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, confirmation)
}

func (h *Handler) orderInvoice(c *gin.Context) {
	invoice, err := h.ordering.Invoice(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, invoice)
}

func (h *Handler) orderTotals(c *gin.Context) {
	totals, err := h.ordering.Totals()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, totals)
}
