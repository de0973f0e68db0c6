package ordering

import (
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// InvoiceLine: строка счёта по одной позиции заказа.
type InvoiceLine struct {
	ArticleID      string         `json:"article_id"`
	Description    string         `json:"description"`
	UnitPriceMinor int64          `json:"unit_price_minor"`
	Units          int            `json:"units"`
	Tax            domain.TaxRate `json:"tax"`
	ValueMinor     int64          `json:"value_minor"`
	VATMinor       int64          `json:"vat_minor"`
}

// Invoice: данные счёта по сохранённому заказу.
type Invoice struct {
	OrderID      string          `json:"order_id"`
	CustomerID   int64           `json:"customer_id"`
	CustomerName string          `json:"customer_name"`
	CreatedAt    time.Time       `json:"created_at"`
	Currency     domain.Currency `json:"currency"`
	Lines        []InvoiceLine   `json:"lines"`
	ValueMinor   int64           `json:"value_minor"`
	VATMinor     int64           `json:"vat_minor"`
}

// Totals: суммы по всем сохранённым заказам.
type Totals struct {
	Orders     int   `json:"orders"`
	ValueMinor int64 `json:"value_minor"`
	VATMinor   int64 `json:"vat_minor"`
}

// Invoice строит счёт по заказу. Итоги равны Value и OrderVAT калькулятора.
func (s *Service) Invoice(orderID string) (Invoice, error) {
	order, found, err := s.orders.FindByID(orderID)
	if err != nil {
		return Invoice{}, fmt.Errorf("find order %s: %w", orderID, err)
	}
	if !found {
		return Invoice{}, fmt.Errorf("%w: %s", domain.ErrUnknownOrder, orderID)
	}

	items := order.Items()
	invoice := Invoice{
		OrderID:      order.ID(),
		CustomerID:   order.Customer().ID(),
		CustomerName: order.Customer().Name(),
		CreatedAt:    order.CreatedAt(),
		Currency:     orderCurrency(order),
		Lines:        make([]InvoiceLine, 0, len(items)),
	}
	for _, item := range items {
		article := item.Article()
		line := InvoiceLine{
			ArticleID:      article.ID(),
			Description:    article.Description(),
			UnitPriceMinor: article.UnitPrice(),
			Units:          item.UnitsOrdered(),
			Tax:            article.Tax(),
			ValueMinor:     s.calculator.ItemValue(item),
			VATMinor:       s.calculator.ItemVAT(item),
		}
		invoice.Lines = append(invoice.Lines, line)
		invoice.ValueMinor += line.ValueMinor
		invoice.VATMinor += line.VATMinor
	}
	return invoice, nil
}

// Totals возвращает стоимость и НДС по всем сохранённым заказам.
func (s *Service) Totals() (Totals, error) {
	orders, err := s.orders.FindAll()
	if err != nil {
		return Totals{}, fmt.Errorf("list orders: %w", err)
	}
	return Totals{
		Orders:     len(orders),
		ValueMinor: s.calculator.ValueOf(orders),
		VATMinor:   s.calculator.OrdersVAT(orders),
	}, nil
}
