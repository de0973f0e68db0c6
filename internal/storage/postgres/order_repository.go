package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository.
// Клиент и артикулы заказа должны быть сохранены до заказа.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) FindByID(id string) (*domain.Order, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	orders, err := r.load(ctx, "WHERE id = $1", id)
	if err != nil {
		return nil, false, err
	}
	if len(orders) == 0 {
		return nil, false, nil
	}
	return orders[0], true, nil
}

func (r *orderRepository) FindAll() ([]*domain.Order, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return r.load(ctx, "")
}

func (r *orderRepository) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM orders`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count orders: %w", err)
	}
	return count, nil
}

// Save перезаписывает заказ и его позиции в одной транзакции.
func (r *orderRepository) Save(order *domain.Order) (*domain.Order, error) {
	if order == nil || !order.HasID() {
		return nil, domain.ErrInvalidEntity
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO orders (id, customer_id, created_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE
			SET customer_id = EXCLUDED.customer_id
		`, order.ID(), order.Customer().ID(), order.CreatedAt()); err != nil {
			if pgErrorCode(err) == pgForeignKeyViolation {
				return fmt.Errorf("%w: %d", domain.ErrUnknownCustomer, order.Customer().ID())
			}
			return fmt.Errorf("upsert order: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM order_items WHERE order_id = $1`, order.ID()); err != nil {
			return fmt.Errorf("delete order items: %w", err)
		}
		for i, item := range order.Items() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO order_items (order_id, position, article_id, units_ordered)
				VALUES ($1, $2, $3, $4)
			`, order.ID(), i, item.Article().ID(), item.UnitsOrdered()); err != nil {
				if pgErrorCode(err) == pgForeignKeyViolation {
					return fmt.Errorf("%w: %s", domain.ErrUnknownArticle, item.Article().ID())
				}
				return fmt.Errorf("insert order item: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// load восстанавливает заказы вместе с клиентами и артикулами позиций.
func (r *orderRepository) load(ctx context.Context, where string, args ...any) ([]*domain.Order, error) {
	type orderRow struct {
		id         string
		customerID int64
		createdAt  time.Time
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT id, customer_id, created_at
		FROM orders
		`+where+`
		ORDER BY created_at, id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select orders: %w", err)
	}
	defer rows.Close()

	var orderRows []orderRow
	for rows.Next() {
		var row orderRow
		if err := rows.Scan(&row.id, &row.customerID, &row.createdAt); err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orderRows = append(orderRows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	if len(orderRows) == 0 {
		return []*domain.Order{}, nil
	}

	subquery := "SELECT id FROM orders " + where
	customers, err := loadCustomers(ctx, r.store.db, "WHERE id IN (SELECT customer_id FROM orders "+where+")", args...)
	if err != nil {
		return nil, err
	}
	customerByID := make(map[int64]*domain.Customer, len(customers))
	for _, c := range customers {
		customerByID[c.ID()] = c
	}

	items, err := r.loadItems(ctx, "WHERE oi.order_id IN ("+subquery+")", args...)
	if err != nil {
		return nil, err
	}

	orders := make([]*domain.Order, 0, len(orderRows))
	for _, row := range orderRows {
		customer, ok := customerByID[row.customerID]
		if !ok {
			return nil, fmt.Errorf("order %s: %w: %d", row.id, domain.ErrUnknownCustomer, row.customerID)
		}
		order, err := domain.RestoreOrder(row.id, customer, row.createdAt.UTC(), items[row.id])
		if err != nil {
			return nil, fmt.Errorf("restore order %s: %w", row.id, err)
		}
		orders = append(orders, order)
	}
	return orders, nil
}

// loadItems возвращает позиции по идентификатору заказа в порядке добавления.
// Один артикул разделяется позициями всех загруженных заказов.
func (r *orderRepository) loadItems(ctx context.Context, where string, args ...any) (map[string][]*domain.OrderItem, error) {
	rows, err := r.store.db.QueryContext(ctx, `
		SELECT a.id, a.description, a.unit_price_minor, a.currency, a.tax,
		       oi.order_id, oi.units_ordered
		FROM order_items oi
		JOIN articles a ON a.id = oi.article_id
		`+where+`
		ORDER BY oi.order_id, oi.position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select order items: %w", err)
	}
	defer rows.Close()

	articles := make(map[string]*domain.Article)
	items := make(map[string][]*domain.OrderItem)
	for rows.Next() {
		var (
			orderID string
			units   int
		)
		article, err := scanArticle(rows, &orderID, &units)
		if err != nil {
			return nil, err
		}
		if shared, ok := articles[article.ID()]; ok {
			article = shared
		} else {
			articles[article.ID()] = article
		}
		item, err := domain.NewOrderItem(article, units)
		if err != nil {
			return nil, err
		}
		items[orderID] = append(items[orderID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order items: %w", err)
	}
	return items, nil
}

var _ domain.OrderRepository = (*orderRepository)(nil)
