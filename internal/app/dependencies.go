package app

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
	"github.com/vladislavdragonenkov/retail/internal/metrics"
	"github.com/vladislavdragonenkov/retail/internal/service/calculator"
	"github.com/vladislavdragonenkov/retail/internal/service/inventory"
	"github.com/vladislavdragonenkov/retail/internal/service/ordering"
)

// Dependencies содержит сервисы приложения поверх выбранного хранилища.
type Dependencies struct {
	Customers  domain.CustomerRepository
	Articles   domain.ArticleRepository
	Orders     domain.OrderRepository
	Outbox     domain.OutboxRepository
	Inventory  *inventory.Manager
	Calculator domain.Calculator
	Ordering   *ordering.Service
	Logger     *log.Entry
}

// NewDependencies собирает сервисы поверх in-memory хранилища без метрик.
func NewDependencies(logger *log.Entry) *Dependencies {
	return newDependencies(newMemoryStorage(), nil, logger)
}

func newDependencies(storage storageDependencies, m *metrics.InventoryMetrics, logger *log.Entry) *Dependencies {
	if logger == nil {
		logger = log.WithField("component", "app")
	}

	inventoryOpts := []inventory.Option{inventory.WithLogger(logger.WithField("component", "inventory"))}
	orderingOpts := []ordering.Option{ordering.WithLogger(logger.WithField("component", "ordering"))}
	if m != nil {
		inventoryOpts = append(inventoryOpts, inventory.WithMetrics(m))
		orderingOpts = append(orderingOpts, ordering.WithMetrics(m))
	}

	manager := inventory.NewManager(storage.articles, inventoryOpts...)
	calc := calculator.New()

	return &Dependencies{
		Customers:  storage.customers,
		Articles:   storage.articles,
		Orders:     storage.orders,
		Outbox:     storage.outboxRepo,
		Inventory:  manager,
		Calculator: calc,
		Ordering: ordering.NewService(
			storage.customers,
			storage.articles,
			storage.orders,
			manager,
			calc,
			storage.outboxRepo,
			orderingOpts...,
		),
		Logger: logger,
	}
}

// restoreInventory ставит на учёт артикулы, сохранённые в прошлых запусках.
// Остатки не хранятся и начинаются с нуля.
func (d *Dependencies) restoreInventory() error {
	articles, err := d.Articles.FindAll()
	if err != nil {
		return fmt.Errorf("load articles: %w", err)
	}
	for _, article := range articles {
		if err := d.Inventory.RegisterArticle(article); err != nil {
			return fmt.Errorf("register article %s: %w", article.ID(), err)
		}
	}
	if len(articles) > 0 {
		d.Logger.WithField("articles", len(articles)).Info("inventory restored from storage")
	}
	return nil
}
