package domain

import (
	"slices"
	"time"
)

// OrderItem представляет одну позицию заказа.
type OrderItem struct {
	// article не меняется после создания позиции.
	article      *Article
	unitsOrdered int
}

// NewOrderItem создаёт позицию. Возвращает ErrArticleRequired, если артикул nil.
// Отрицательное количество обрабатывается как в SetUnitsOrdered и оставляет 0.
func NewOrderItem(article *Article, unitsOrdered int) (*OrderItem, error) {
	if article == nil {
		return nil, ErrArticleRequired
	}
	item := &OrderItem{article: article}
	item.SetUnitsOrdered(unitsOrdered)
	return item, nil
}

// Article возвращает заказанный артикул.
func (i *OrderItem) Article() *Article {
	return i.article
}

// UnitsOrdered возвращает заказанное количество единиц.
func (i *OrderItem) UnitsOrdered() int {
	return i.unitsOrdered
}

// SetUnitsOrdered обновляет количество; отрицательные значения игнорируются,
// ноль допустим.
func (i *OrderItem) SetUnitsOrdered(units int) {
	if units >= 0 {
		i.unitsOrdered = units
	}
}

// Order описывает договорное отношение между клиентом и продавцом на покупку позиций.
//
// После исполнения (Fill) позиции заказа считаются списанными со склада;
// за их дальнейшее изменение отвечает вызывающий код.
type Order struct {
	id        string
	customer  *Customer
	createdAt time.Time
	items     []*OrderItem
}

// NewOrder создаёт заказ клиента. Возвращает ErrCustomerRequired, если клиент nil.
func NewOrder(customer *Customer) (*Order, error) {
	if customer == nil {
		return nil, ErrCustomerRequired
	}
	return &Order{
		customer:  customer,
		createdAt: time.Now().UTC(),
	}, nil
}

// ID возвращает идентификатор заказа; "" означает, что он ещё не присвоен.
func (o *Order) ID() string {
	return o.id
}

// HasID сообщает, присвоен ли заказу идентификатор.
func (o *Order) HasID() bool {
	return o.id != ""
}

// SetID присваивает идентификатор один раз; пустое значение или повторное
// присваивание игнорируются.
func (o *Order) SetID(id string) *Order {
	if id != "" && o.id == "" {
		o.id = id
	}
	return o
}

// Customer возвращает владельца заказа, никогда не nil.
func (o *Order) Customer() *Customer {
	return o.customer
}

// CreatedAt возвращает момент создания заказа.
func (o *Order) CreatedAt() time.Time {
	return o.createdAt
}

// ItemsCount возвращает количество позиций.
func (o *Order) ItemsCount() int {
	return len(o.items)
}

// Items возвращает позиции в порядке добавления. Срез копируется, позиции общие.
func (o *Order) Items() []*OrderItem {
	return slices.Clone(o.items)
}

// AddItem создаёт и добавляет позицию. Артикул обязателен, units > 0.
func (o *Order) AddItem(article *Article, units int) error {
	if article == nil {
		return ErrArticleRequired
	}
	if units <= 0 {
		return ErrUnitsInvalid
	}
	o.items = append(o.items, &OrderItem{article: article, unitsOrdered: units})
	return nil
}

// DeleteItem удаляет i-ю позицию; индекс вне [0, count) ничего не меняет.
func (o *Order) DeleteItem(i int) {
	if i >= 0 && i < len(o.items) {
		o.items = slices.Delete(o.items, i, i+1)
	}
}

// DeleteAllItems удаляет все позиции.
func (o *Order) DeleteAllItems() {
	o.items = nil
}

// RestoreOrder восстанавливает заказ из хранилища с исходным временем создания.
// Позиции добавляются как есть, включая нулевые количества.
func RestoreOrder(id string, customer *Customer, createdAt time.Time, items []*OrderItem) (*Order, error) {
	order, err := NewOrder(customer)
	if err != nil {
		return nil, err
	}
	order.SetID(id)
	if !createdAt.IsZero() {
		order.createdAt = createdAt
	}
	for _, item := range items {
		if item == nil || item.article == nil {
			return nil, ErrArticleRequired
		}
		order.items = append(order.items, item)
	}
	return order, nil
}
