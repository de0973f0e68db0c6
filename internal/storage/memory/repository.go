package memory

import (
	"sync"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// keyFunc извлекает ключ сущности; false означает, что идентификатор не присвоен.
type keyFunc[K comparable, E any] func(entity E) (K, bool)

// repositoryInMemory: in-memory реализация domain.Repository на map под RWMutex.
type repositoryInMemory[K comparable, E any] struct {
	mu    sync.RWMutex
	items map[K]E
	key   keyFunc[K, E]
}

func newRepository[K comparable, E any](key keyFunc[K, E]) *repositoryInMemory[K, E] {
	return &repositoryInMemory[K, E]{
		items: make(map[K]E),
		key:   key,
	}
}

// NewCustomerRepository возвращает in-memory репозиторий клиентов.
func NewCustomerRepository() domain.CustomerRepository {
	return newRepository[int64, *domain.Customer](func(c *domain.Customer) (int64, bool) {
		if c == nil || !c.HasID() {
			return 0, false
		}
		return c.ID(), true
	})
}

// NewArticleRepository возвращает in-memory репозиторий артикулов.
func NewArticleRepository() domain.ArticleRepository {
	return newRepository[string, *domain.Article](func(a *domain.Article) (string, bool) {
		if a == nil || a.ID() == "" {
			return "", false
		}
		return a.ID(), true
	})
}

// NewOrderRepository возвращает in-memory репозиторий заказов.
func NewOrderRepository() domain.OrderRepository {
	return newRepository[string, *domain.Order](func(o *domain.Order) (string, bool) {
		if o == nil || !o.HasID() {
			return "", false
		}
		return o.ID(), true
	})
}

// FindByID возвращает сущность по ключу; при отсутствии ключа (zero, false, nil).
func (r *repositoryInMemory[K, E]) FindByID(id K) (E, bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.items[id]
	return entity, ok, nil
}

// FindAll возвращает все сущности в произвольном порядке.
func (r *repositoryInMemory[K, E]) FindAll() ([]E, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]E, 0, len(r.items))
	for _, entity := range r.items {
		result = append(result, entity)
	}
	return result, nil
}

func (r *repositoryInMemory[K, E]) Count() (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.items), nil
}

// Save вставляет или перезаписывает сущность по её идентификатору.
func (r *repositoryInMemory[K, E]) Save(entity E) (E, error) {
	id, ok := r.key(entity)
	if !ok {
		var zero E
		return zero, domain.ErrInvalidEntity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[id] = entity
	return entity, nil
}

var (
	_ domain.CustomerRepository = (*repositoryInMemory[int64, *domain.Customer])(nil)
	_ domain.ArticleRepository  = (*repositoryInMemory[string, *domain.Article])(nil)
	_ domain.OrderRepository    = (*repositoryInMemory[string, *domain.Order])(nil)
)
