// Package ordering принимает заказы: проверяет их, исполняет со склада,
// сохраняет и ставит событие в transactional outbox.
package ordering

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Причины отклонения для метрик.
const (
	rejectNotFillable = "not_fillable"
	rejectInvalid     = "invalid"
	rejectUnknown     = "unknown_entity"
)

// Metrics принимает события приёма заказов. Реализуется metrics.InventoryMetrics.
type Metrics interface {
	RecordOrderAccepted(valueMinor, vatMinor int64)
	RecordOrderRejected(reason string)
}

// restocker возвращает списанные единицы на склад при ошибке сохранения.
type restocker interface {
	Restock(articleID string, units int) error
}

// Confirmation: результат принятия заказа.
type Confirmation struct {
	OrderID    string          `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	ValueMinor int64           `json:"value_minor"`
	VATMinor   int64           `json:"vat_minor"`
	Currency   domain.Currency `json:"currency"`
}

// PlaceOrderLine: строка заказа по идентификатору артикула.
type PlaceOrderLine struct {
	ArticleID string
	Units     int
}

// PlaceOrderRequest описывает заказ в терминах идентификаторов.
type PlaceOrderRequest struct {
	CustomerID int64
	Items      []PlaceOrderLine
}

// Service оркестрирует приём заказа.
type Service struct {
	customers  domain.CustomerRepository
	articles   domain.ArticleRepository
	orders     domain.OrderRepository
	inventory  domain.Inventory
	calculator domain.Calculator
	outbox     domain.OutboxRepository

	logger  *log.Entry
	metrics Metrics
	newID   func() string
	now     func() time.Time

	// inflight хранит идентификаторы заказов, принимаемых прямо сейчас.
	inflightMu sync.Mutex
	inflight   map[string]struct{}
}

// Option настраивает Service.
type Option func(*Service)

// WithLogger задаёт logger сервиса.
func WithLogger(logger *log.Entry) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics подключает сбор метрик.
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) {
		s.metrics = metrics
	}
}

// WithIDGenerator заменяет генератор идентификаторов заказов.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// NewService создаёт сервис приёма заказов. outbox может быть nil:
// тогда события не публикуются.
func NewService(
	customers domain.CustomerRepository,
	articles domain.ArticleRepository,
	orders domain.OrderRepository,
	inventory domain.Inventory,
	calculator domain.Calculator,
	outbox domain.OutboxRepository,
	opts ...Option,
) *Service {
	s := &Service{
		customers:  customers,
		articles:   articles,
		orders:     orders,
		inventory:  inventory,
		calculator: calculator,
		outbox:     outbox,
		logger:     log.WithField("component", "ordering"),
		newID:      uuid.NewString,
		now:        func() time.Time { return time.Now().UTC() },
		inflight:   make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Accept проверяет заказ, списывает остатки и сохраняет его.
//
// Неисполнимый заказ возвращает ErrOrderNotFillable и ничего не меняет,
// идентификатор заказу присваивается только после списания.
// Одновременный приём заказов с одним идентификатором даёт ErrOrderExists.
// Ошибка постановки события в outbox не отменяет принятый заказ.
func (s *Service) Accept(ctx context.Context, order *domain.Order) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, err
	}
	if order == nil {
		err := fmt.Errorf("%w: order is nil", domain.ErrInvalidArgument)
		s.reject(err)
		return Confirmation{}, err
	}

	orderID := order.ID()
	if orderID == "" {
		orderID = s.newID()
	}
	if !s.claim(orderID) {
		err := fmt.Errorf("%w: %s", domain.ErrOrderExists, orderID)
		s.reject(err)
		return Confirmation{}, err
	}
	defer s.release(orderID)

	if err := s.validate(order, orderID); err != nil {
		s.reject(err)
		return Confirmation{}, err
	}

	logger := s.logger.WithFields(log.Fields{
		"order_id":    orderID,
		"customer_id": order.Customer().ID(),
	})

	filled, err := s.inventory.Fill(order)
	if err != nil {
		s.reject(err)
		return Confirmation{}, fmt.Errorf("fill order %s: %w", orderID, err)
	}
	if !filled {
		s.recordRejected(rejectNotFillable)
		logger.Info("order rejected: insufficient stock")
		return Confirmation{}, fmt.Errorf("%w: order %s", domain.ErrOrderNotFillable, orderID)
	}

	order.SetID(orderID)
	if _, err := s.orders.Save(order); err != nil {
		s.compensate(logger, order)
		return Confirmation{}, fmt.Errorf("save order %s: %w", order.ID(), err)
	}

	confirmation := Confirmation{
		OrderID:    order.ID(),
		CustomerID: order.Customer().ID(),
		ValueMinor: s.calculator.Value(order),
		VATMinor:   s.calculator.OrderVAT(order),
		Currency:   orderCurrency(order),
	}

	if err := s.enqueueFilled(order, confirmation); err != nil {
		logger.WithError(err).Warn("failed to enqueue order.filled event")
	}

	if s.metrics != nil {
		s.metrics.RecordOrderAccepted(confirmation.ValueMinor, confirmation.VATMinor)
	}
	logger.WithFields(log.Fields{
		"value_minor": confirmation.ValueMinor,
		"vat_minor":   confirmation.VATMinor,
	}).Info("order accepted")

	return confirmation, nil
}

// PlaceOrder собирает заказ из идентификаторов клиента и артикулов и
// передаёт его в Accept.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (Confirmation, error) {
	customer, found, err := s.customers.FindByID(req.CustomerID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("find customer %d: %w", req.CustomerID, err)
	}
	if !found {
		s.recordRejected(rejectUnknown)
		return Confirmation{}, fmt.Errorf("%w: %d", domain.ErrUnknownCustomer, req.CustomerID)
	}

	order, err := domain.NewOrder(customer)
	if err != nil {
		return Confirmation{}, err
	}
	for _, line := range req.Items {
		article, found, err := s.articles.FindByID(line.ArticleID)
		if err != nil {
			return Confirmation{}, fmt.Errorf("find article %s: %w", line.ArticleID, err)
		}
		if !found {
			s.recordRejected(rejectUnknown)
			return Confirmation{}, fmt.Errorf("%w: %s", domain.ErrUnknownArticle, line.ArticleID)
		}
		if err := order.AddItem(article, line.Units); err != nil {
			s.recordRejected(rejectInvalid)
			return Confirmation{}, fmt.Errorf("article %s: %w", line.ArticleID, err)
		}
	}

	return s.Accept(ctx, order)
}

func (s *Service) validate(order *domain.Order, orderID string) error {
	customer := order.Customer()
	if !customer.HasID() {
		return fmt.Errorf("%w: customer has no id", domain.ErrUnknownCustomer)
	}
	if _, found, err := s.customers.FindByID(customer.ID()); err != nil {
		return fmt.Errorf("find customer %d: %w", customer.ID(), err)
	} else if !found {
		return fmt.Errorf("%w: %d", domain.ErrUnknownCustomer, customer.ID())
	}

	if order.ItemsCount() == 0 {
		return domain.ErrItemsRequired
	}
	for _, item := range order.Items() {
		id := item.Article().ID()
		if _, found, err := s.articles.FindByID(id); err != nil {
			return fmt.Errorf("find article %s: %w", id, err)
		} else if !found {
			return fmt.Errorf("%w: %s", domain.ErrUnknownArticle, id)
		}
	}

	if _, found, err := s.orders.FindByID(orderID); err != nil {
		return fmt.Errorf("find order %s: %w", orderID, err)
	} else if found {
		return fmt.Errorf("%w: %s", domain.ErrOrderExists, orderID)
	}
	return nil
}

// claim резервирует идентификатор на время приёма заказа.
func (s *Service) claim(orderID string) bool {
	s.inflightMu.Lock()
	defer s.inflightMu.Unlock()
	if _, busy := s.inflight[orderID]; busy {
		return false
	}
	s.inflight[orderID] = struct{}{}
	return true
}

func (s *Service) release(orderID string) {
	s.inflightMu.Lock()
	delete(s.inflight, orderID)
	s.inflightMu.Unlock()
}

// compensate возвращает списанные остатки, если склад это поддерживает.
func (s *Service) compensate(logger *log.Entry, order *domain.Order) {
	r, ok := s.inventory.(restocker)
	if !ok {
		logger.Error("order filled but not saved, stock cannot be returned")
		return
	}
	for _, item := range order.Items() {
		if item.UnitsOrdered() == 0 {
			continue
		}
		if err := r.Restock(item.Article().ID(), item.UnitsOrdered()); err != nil {
			logger.WithError(err).WithField("article_id", item.Article().ID()).Error("failed to return stock")
		}
	}
	logger.Warn("order filled but not saved, stock returned")
}

func (s *Service) enqueueFilled(order *domain.Order, c Confirmation) error {
	if s.outbox == nil {
		return nil
	}

	event := domain.OrderFilledEvent{
		OrderID:    c.OrderID,
		CustomerID: c.CustomerID,
		ValueMinor: c.ValueMinor,
		VATMinor:   c.VATMinor,
		Currency:   c.Currency,
		FilledAt:   s.now(),
	}
	for _, item := range order.Items() {
		event.Items = append(event.Items, domain.OrderFilledEventItem{
			ArticleID: item.Article().ID(),
			Units:     item.UnitsOrdered(),
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal order.filled payload: %w", err)
	}

	_, err = s.outbox.Enqueue(domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: domain.AggregateTypeOrder,
		AggregateID:   order.ID(),
		EventType:     domain.EventTypeOrderFilled,
		Payload:       payload,
	})
	return err
}

func (s *Service) reject(err error) {
	switch {
	case domain.IsUnknownEntity(err):
		s.recordRejected(rejectUnknown)
	case domain.IsInvalidArgument(err), errors.Is(err, domain.ErrOrderExists):
		s.recordRejected(rejectInvalid)
	}
}

func (s *Service) recordRejected(reason string) {
	if s.metrics != nil {
		s.metrics.RecordOrderRejected(reason)
	}
}

// orderCurrency возвращает валюту первой позиции; конвертация валют не выполняется.
func orderCurrency(order *domain.Order) domain.Currency {
	items := order.Items()
	if len(items) == 0 {
		return domain.CurrencyNone
	}
	return items[0].Article().Currency()
}
