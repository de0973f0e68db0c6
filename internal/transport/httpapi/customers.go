package httpapi

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type createCustomerRequest struct {
	// ID необязателен; без него выдаётся следующий свободный.
	ID       *int64   `json:"id"`
	Name     string   `json:"name" binding:"required"`
	Contacts []string `json:"contacts"`
}

type customerView struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	FirstName string   `json:"first_name"`
	LastName  string   `json:"last_name"`
	Contacts  []string `json:"contacts"`
}

func newCustomerView(c *domain.Customer) customerView {
	contacts := c.Contacts()
	if contacts == nil {
		contacts = []string{}
	}
	return customerView{
		ID:        c.ID(),
		Name:      c.Name(),
		FirstName: c.FirstName(),
		LastName:  c.LastName(),
		Contacts:  contacts,
	}
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req createCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if req.ID != nil && *req.ID < 0 {
		badRequest(c, fmt.Errorf("%w: customer id must be non-negative", domain.ErrInvalidArgument))
		return
	}

	h.customerMu.Lock()
	defer h.customerMu.Unlock()

	id, err := h.customerID(req.ID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	customer := domain.NewCustomerWithName(req.Name).SetID(id)
	for _, contact := range req.Contacts {
		customer.AddContact(contact)
	}
	if _, err := h.customers.Save(customer); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newCustomerView(customer))
}

// customerID проверяет занятость явного id или выдаёт max(id)+1.
// Вызывается под customerMu.
func (h *Handler) customerID(requested *int64) (int64, error) {
	if requested != nil {
		_, exists, err := h.customers.FindByID(*requested)
		if err != nil {
			return 0, err
		}
		if exists {
			return 0, fmt.Errorf("%w: %d", errCustomerExists, *requested)
		}
		return *requested, nil
	}

	all, err := h.customers.FindAll()
	if err != nil {
		return 0, err
	}
	var next int64 = 1
	for _, customer := range all {
		if customer.ID() >= next {
			next = customer.ID() + 1
		}
	}
	return next, nil
}

func (h *Handler) getCustomer(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		badRequest(c, fmt.Errorf("%w: customer id %q", domain.ErrInvalidArgument, c.Param("id")))
		return
	}
	customer, found, err := h.customers.FindByID(id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !found {
		h.writeError(c, fmt.Errorf("%w: %d", domain.ErrUnknownCustomer, id))
		return
	}
	c.JSON(http.StatusOK, newCustomerView(customer))
}
