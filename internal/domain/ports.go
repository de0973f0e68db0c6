package domain

import "time"

// Inventory ведёт складские остатки по идентификаторам артикулов.
type Inventory interface {
	// RegisterArticle добавляет артикул в учёт; существующий остаток не сбрасывается.
	RegisterArticle(article *Article) error
	// StockLevel возвращает остаток или ErrUnknownArticle.
	StockLevel(articleID string) (int, error)
	// SetStock перезаписывает остаток.
	SetStock(articleID string, units int) error
	// IsFillable проверяет, покрывает ли остаток каждую позицию заказа.
	IsFillable(order *Order) (bool, error)
	// Fill атомарно списывает остатки, если заказ исполним.
	Fill(order *Order) (bool, error)
}

// Calculator рассчитывает стоимость заказов и включённый в неё НДС.
type Calculator interface {
	Value(order *Order) int64
	ValueOf(orders []*Order) int64
	IncludedVAT(price int64, rate TaxRate) int64
	OrderVAT(order *Order) int64
	OrdersVAT(orders []*Order) int64
	// ItemValue и ItemVAT дают построчную разбивку для счёта.
	ItemValue(item *OrderItem) int64
	ItemVAT(item *OrderItem) int64
}

// OutboxPublisher публикует события из transactional outbox.
type OutboxPublisher interface {
	// Publish передаёт событие наружу; должен быть идемпотентным.
	Publish(event OutboxMessage) error
}

// OutboxRepository позволяет сохранять события для последующей публикации.
type OutboxRepository interface {
	Enqueue(msg OutboxMessage) (OutboxMessage, error)
	PullPending(limit int) ([]OutboxMessage, error)
	Stats() (OutboxStats, error)
	MarkSent(id string) error
	MarkFailed(id string) error
}

// OutboxMessage хранит данные для публикуемого события.
type OutboxMessage struct {
	ID            string
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// OutboxStats описывает текущее состояние backlog transactional outbox.
type OutboxStats struct {
	PendingCount    int
	OldestPendingAt time.Time
}
