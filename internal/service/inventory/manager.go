// Package inventory ведёт складские остатки и атомарно исполняет заказы.
package inventory

import (
	"fmt"
	"sort"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// Metrics принимает события складского учёта. Реализуется metrics.InventoryMetrics.
type Metrics interface {
	RecordArticleRegistered()
	RecordStockLevel(articleID string, units int)
	RecordFill(filled bool, duration time.Duration)
}

// stockEntry: остаток одного артикула под собственным мьютексом.
type stockEntry struct {
	mu    sync.Mutex
	id    string
	units int
}

// Manager хранит остатки отдельно от атрибутов артикулов в ArticleRepository.
//
// Проверка и списание по заказу выполняются под блокировками всех
// затронутых артикулов, которые берутся в порядке возрастания id.
type Manager struct {
	articles domain.ArticleRepository
	logger   *log.Entry
	metrics  Metrics

	mu    sync.RWMutex
	stock map[string]*stockEntry
}

// Option настраивает Manager.
type Option func(*Manager)

// WithLogger задаёт logger менеджера.
func WithLogger(logger *log.Entry) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithMetrics подключает сбор метрик.
func WithMetrics(metrics Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// NewManager создаёт менеджер поверх репозитория артикулов.
func NewManager(articles domain.ArticleRepository, opts ...Option) *Manager {
	m := &Manager{
		articles: articles,
		logger:   log.WithField("component", "inventory"),
		stock:    make(map[string]*stockEntry),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RegisterArticle сохраняет артикул в репозиторий, если его там нет, и
// заводит нулевой остаток, если артикул ещё не учитывается. Повторная
// регистрация остаток не сбрасывает.
func (m *Manager) RegisterArticle(article *domain.Article) error {
	if article == nil || article.ID() == "" {
		return domain.ErrInvalidArticle
	}
	id := article.ID()

	if _, found, err := m.articles.FindByID(id); err != nil {
		return fmt.Errorf("find article %s: %w", id, err)
	} else if !found {
		if _, err := m.articles.Save(article); err != nil {
			return fmt.Errorf("save article %s: %w", id, err)
		}
	}

	m.mu.Lock()
	_, tracked := m.stock[id]
	if !tracked {
		m.stock[id] = &stockEntry{id: id}
	}
	m.mu.Unlock()

	if !tracked {
		m.logger.WithField("article_id", id).Debug("article registered in inventory")
		if m.metrics != nil {
			m.metrics.RecordArticleRegistered()
			m.metrics.RecordStockLevel(id, 0)
		}
	}
	return nil
}

// StockLevel возвращает текущий остаток артикула.
func (m *Manager) StockLevel(articleID string) (int, error) {
	entry, err := m.entry(articleID)
	if err != nil {
		return 0, err
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.units, nil
}

// SetStock перезаписывает остаток. Отрицательные значения отклоняются.
func (m *Manager) SetStock(articleID string, units int) error {
	if units < 0 {
		return domain.ErrStockNegative
	}
	entry, err := m.entry(articleID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.units = units
	entry.mu.Unlock()

	m.recordStock(articleID, units)
	return nil
}

// Restock увеличивает остаток на units > 0.
func (m *Manager) Restock(articleID string, units int) error {
	if units <= 0 {
		return domain.ErrUnitsInvalid
	}
	entry, err := m.entry(articleID)
	if err != nil {
		return err
	}

	entry.mu.Lock()
	entry.units += units
	level := entry.units
	entry.mu.Unlock()

	m.logger.WithFields(log.Fields{
		"article_id": articleID,
		"units":      units,
		"in_stock":   level,
	}).Info("article restocked")
	m.recordStock(articleID, level)
	return nil
}

// IsFillable сообщает, покрывает ли остаток каждую позицию заказа.
// Заказ без позиций исполним. Позиции с одним артикулом суммируются.
func (m *Manager) IsFillable(order *domain.Order) (bool, error) {
	demand, entries, err := m.prepare(order)
	if err != nil {
		return false, err
	}

	unlock := lockAll(entries)
	defer unlock()

	return covers(demand, entries), nil
}

// Fill списывает остатки по всем позициям заказа, если он исполним.
// Проверка и списание выполняются как одна критическая секция.
// Неисполнимый заказ возвращает false и не меняет остатки.
func (m *Manager) Fill(order *domain.Order) (bool, error) {
	start := time.Now()

	demand, entries, err := m.prepare(order)
	if err != nil {
		return false, err
	}

	unlock := lockAll(entries)
	filled := covers(demand, entries)
	levels := make(map[string]int, len(entries))
	if filled {
		for _, entry := range entries {
			entry.units -= demand[entry.id]
			levels[entry.id] = entry.units
		}
	}
	unlock()

	logger := m.logger.WithFields(log.Fields{
		"order_id": order.ID(),
		"articles": len(entries),
	})
	if filled {
		logger.Debug("order filled from inventory")
	} else {
		logger.Debug("order is not fillable")
	}

	if m.metrics != nil {
		for id, units := range levels {
			m.metrics.RecordStockLevel(id, units)
		}
		m.metrics.RecordFill(filled, time.Since(start))
	}
	return filled, nil
}

// FindArticle возвращает артикул из репозитория.
func (m *Manager) FindArticle(articleID string) (*domain.Article, bool, error) {
	return m.articles.FindByID(articleID)
}

// Articles возвращает все артикулы репозитория.
func (m *Manager) Articles() ([]*domain.Article, error) {
	return m.articles.FindAll()
}

// ArticleCount возвращает количество артикулов в репозитории.
func (m *Manager) ArticleCount() (int, error) {
	return m.articles.Count()
}

func (m *Manager) entry(articleID string) (*stockEntry, error) {
	m.mu.RLock()
	entry, ok := m.stock[articleID]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownArticle, articleID)
	}
	return entry, nil
}

// prepare собирает спрос по артикулам и записи остатков в порядке id.
func (m *Manager) prepare(order *domain.Order) (map[string]int, []*stockEntry, error) {
	if order == nil {
		return nil, nil, fmt.Errorf("%w: order is nil", domain.ErrInvalidArgument)
	}

	demand := make(map[string]int)
	for _, item := range order.Items() {
		demand[item.Article().ID()] += item.UnitsOrdered()
	}

	entries := make([]*stockEntry, 0, len(demand))
	for id := range demand {
		entry, err := m.entry(id)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	return demand, entries, nil
}

func (m *Manager) recordStock(articleID string, units int) {
	if m.metrics != nil {
		m.metrics.RecordStockLevel(articleID, units)
	}
}

// lockAll блокирует записи в переданном порядке и возвращает функцию
// разблокировки в обратном порядке.
func lockAll(entries []*stockEntry) func() {
	for _, entry := range entries {
		entry.mu.Lock()
	}
	return func() {
		for i := len(entries) - 1; i >= 0; i-- {
			entries[i].mu.Unlock()
		}
	}
}

func covers(demand map[string]int, entries []*stockEntry) bool {
	fillable := true
	for _, entry := range entries {
		if demand[entry.id] > entry.units {
			fillable = false
		}
	}
	return fillable
}

var _ domain.Inventory = (*Manager)(nil)
