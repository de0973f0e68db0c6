// Package httpapi публикует операции склада и приёма заказов через HTTP (gin).
package httpapi

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/ordering"
)

// Handler обслуживает REST API /api/v1.
type Handler struct {
	customers domain.CustomerRepository
	inventory *inventory.Manager
	ordering  *ordering.Service
	logger    *log.Entry

	// customerMu сериализует выдачу идентификаторов клиентов.
	customerMu sync.Mutex
}

// NewHandler создаёт обработчики API.
func NewHandler(customers domain.CustomerRepository, inv *inventory.Manager, svc *ordering.Service, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "httpapi")
	}
	return &Handler{
		customers: customers,
		inventory: inv,
		ordering:  svc,
		logger:    logger,
	}
}

// Router собирает gin.Engine с middleware и маршрутами API.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(h.logger))
	h.Register(r)
	return r
}

// Register регистрирует маршруты API в группе /api/v1.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")

	v1.POST("/customers", h.createCustomer)
	v1.GET("/customers/:id", h.getCustomer)

	v1.POST("/articles", h.createArticle)
	v1.GET("/articles/:id", h.getArticle)
	v1.PUT("/articles/:id/stock", h.setStock)
	v1.POST("/articles/:id/restock", h.restock)
	v1.GET("/inventory", h.listInventory)

	v1.POST("/orders", h.placeOrder)
	v1.GET("/orders/totals", h.orderTotals)
	v1.GET("/orders/:id/invoice", h.orderInvoice)
}

var errCustomerExists = errors.New("customer already exists")

type errorResponse struct {
	Error string `json:"error"`
}

// writeError переводит доменную ошибку в HTTP-статус.
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrOrderNotFillable),
		errors.Is(err, domain.ErrOrderExists),
		errors.Is(err, errCustomerExists):
		status = http.StatusConflict
	case domain.IsInvalidArgument(err), errors.Is(err, domain.ErrInvalidEntity):
		status = http.StatusBadRequest
	case domain.IsUnknownEntity(err):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		h.logger.WithError(err).WithField("path", c.FullPath()).Error("request failed")
		message = "internal error"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: message})
}

func badRequest(c *gin.Context, err error) {
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: err.Error()})
}

// requestLogger пишет одну запись logrus на запрос.
func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		entry := logger.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.Errors())
		}

		switch status := c.Writer.Status(); {
		case status >= http.StatusInternalServerError:
			entry.Error("http request")
		case status >= http.StatusBadRequest:
			entry.Warn("http request")
		default:
			entry.Debug("http request")
		}
	}
}
