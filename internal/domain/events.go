package domain

import "time"

// Типы агрегатов и событий transactional outbox.
const (
	AggregateTypeOrder   = "order"
	EventTypeOrderFilled = "order.filled"
)

// OrderFilledEvent: полезная нагрузка события исполненного заказа.
type OrderFilledEvent struct {
	OrderID    string                 `json:"order_id"`
	CustomerID int64                  `json:"customer_id"`
	ValueMinor int64                  `json:"value_minor"`
	VATMinor   int64                  `json:"vat_minor"`
	Currency   Currency               `json:"currency"`
	Items      []OrderFilledEventItem `json:"items"`
	FilledAt   time.Time              `json:"filled_at"`
}

// OrderFilledEventItem: списанная позиция заказа.
type OrderFilledEventItem struct {
	ArticleID string `json:"article_id"`
	Units     int    `json:"units"`
}
