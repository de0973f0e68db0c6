package httpapi

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
)

type createArticleRequest struct {
	ID          string `json:"id" binding:"required"`
	Description string `json:"description"`
	UnitPrice   int64  `json:"unit_price" binding:"min=0"`
	Currency    string `json:"currency"`
	Tax         string `json:"tax"`
	// Units: начальный остаток; без него остаток не меняется.
	Units *int `json:"units"`
}

type unitsRequest struct {
	Units *int `json:"units" binding:"required"`
}

type articleView struct {
	ID             string          `json:"id"`
	Description    string          `json:"description"`
	UnitPrice      int64           `json:"unit_price"`
	FormattedPrice string          `json:"formatted_price"`
	Currency       domain.Currency `json:"currency"`
	Tax            domain.TaxRate  `json:"tax"`
	UnitsInStock   int             `json:"units_in_stock"`
	ValueMinor     int64           `json:"value_minor"`
}

func newArticleView(a *domain.Article, units int) articleView {
	return articleView{
		ID:             a.ID(),
		Description:    a.Description(),
		UnitPrice:      a.UnitPrice(),
		FormattedPrice: a.FormattedPrice(),
		Currency:       a.Currency(),
		Tax:            a.Tax(),
		UnitsInStock:   units,
		ValueMinor:     a.UnitPrice() * int64(units),
	}
}

type inventoryQuery struct {
	Sort  string `form:"sort"`
	Desc  bool   `form:"desc"`
	Limit int    `form:"limit" binding:"min=0"`
}

type inventoryResponse struct {
	Entries        []articleView `json:"entries"`
	InventoryValue int64         `json:"inventory_value"`
}

func (h *Handler) createArticle(c *gin.Context) {
	var req createArticleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	currency := domain.CurrencyEUR
	if req.Currency != "" {
		currency = domain.Currency(req.Currency)
	}
	if !currency.Valid() {
		badRequest(c, fmt.Errorf("%w: unsupported currency %q", domain.ErrInvalidArgument, req.Currency))
		return
	}
	tax := domain.GermanVAT
	if req.Tax != "" {
		tax = domain.TaxRate(req.Tax)
	}
	if !tax.Valid() {
		badRequest(c, fmt.Errorf("%w: unsupported tax rate %q", domain.ErrInvalidArgument, req.Tax))
		return
	}

	article := domain.NewArticle(req.ID, req.Description, req.UnitPrice, currency, tax)
	if err := h.inventory.RegisterArticle(article); err != nil {
		h.writeError(c, err)
		return
	}
	if req.Units != nil {
		if err := h.inventory.SetStock(article.ID(), *req.Units); err != nil {
			h.writeError(c, err)
			return
		}
	}
	h.respondArticle(c, http.StatusCreated, article.ID())
}

func (h *Handler) getArticle(c *gin.Context) {
	h.respondArticle(c, http.StatusOK, c.Param("id"))
}

func (h *Handler) setStock(c *gin.Context) {
	var req unitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.inventory.SetStock(c.Param("id"), *req.Units); err != nil {
		h.writeError(c, err)
		return
	}
	h.respondArticle(c, http.StatusOK, c.Param("id"))
}

func (h *Handler) restock(c *gin.Context) {
	var req unitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.inventory.Restock(c.Param("id"), *req.Units); err != nil {
		h.writeError(c, err)
		return
	}
	h.respondArticle(c, http.StatusOK, c.Param("id"))
}

// respondArticle отдаёт артикул с текущим остатком.
func (h *Handler) respondArticle(c *gin.Context, status int, articleID string) {
	article, found, err := h.inventory.FindArticle(articleID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !found {
		h.writeError(c, fmt.Errorf("%w: %s", domain.ErrUnknownArticle, articleID))
		return
	}
	units, err := h.inventory.StockLevel(articleID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(status, newArticleView(article, units))
}

func (h *Handler) listInventory(c *gin.Context) {
	var q inventoryQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}
	sortBy, err := inventory.ParseSortKey(q.Sort)
	if err != nil {
		h.writeError(c, err)
		return
	}

	rows, err := h.inventory.Snapshot(sortBy, q.Desc, q.Limit)
	if err != nil {
		h.writeError(c, err)
		return
	}
	total, err := h.inventory.InventoryValue()
	if err != nil {
		h.writeError(c, err)
		return
	}

	resp := inventoryResponse{
		Entries:        make([]articleView, 0, len(rows)),
		InventoryValue: total,
	}
	for _, row := range rows {
		resp.Entries = append(resp.Entries, newArticleView(row.Article, row.UnitsInStock))
	}
	c.JSON(http.StatusOK, resp)
}
