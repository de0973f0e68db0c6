package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// querier: общий интерфейс *sql.DB и *sql.Tx.
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type customerRepository struct {
	store *Store
}

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

func (r *customerRepository) FindByID(id int64) (*domain.Customer, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	customers, err := loadCustomers(ctx, r.store.db, "WHERE id = $1", id)
	if err != nil {
		return nil, false, err
	}
	if len(customers) == 0 {
		return nil, false, nil
	}
	return customers[0], true, nil
}

func (r *customerRepository) FindAll() ([]*domain.Customer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return loadCustomers(ctx, r.store.db, "")
}

func (r *customerRepository) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count customers: %w", err)
	}
	return count, nil
}

// Save перезаписывает клиента и полностью заменяет список контактов.
func (r *customerRepository) Save(customer *domain.Customer) (*domain.Customer, error) {
	if customer == nil || !customer.HasID() {
		return nil, domain.ErrInvalidEntity
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	now := time.Now().UTC()
	err := r.store.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO customers (id, first_name, last_name, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $4)
			ON CONFLICT (id) DO UPDATE
			SET first_name = EXCLUDED.first_name,
			    last_name  = EXCLUDED.last_name,
			    updated_at = EXCLUDED.updated_at
		`, customer.ID(), customer.FirstName(), customer.LastName(), now); err != nil {
			return fmt.Errorf("upsert customer: %w", err)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM customer_contacts WHERE customer_id = $1`, customer.ID()); err != nil {
			return fmt.Errorf("delete customer contacts: %w", err)
		}
		for i, contact := range customer.Contacts() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO customer_contacts (customer_id, position, contact)
				VALUES ($1, $2, $3)
			`, customer.ID(), i, contact); err != nil {
				return fmt.Errorf("insert customer contact: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return customer, nil
}

// loadCustomers читает клиентов с контактами. where применяется к таблице customers.
func loadCustomers(ctx context.Context, q querier, where string, args ...any) ([]*domain.Customer, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, first_name, last_name
		FROM customers
		`+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select customers: %w", err)
	}
	defer rows.Close()

	customers := make([]*domain.Customer, 0)
	byID := make(map[int64]*domain.Customer)
	for rows.Next() {
		var (
			id          int64
			first, last string
		)
		if err := rows.Scan(&id, &first, &last); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		customer := domain.NewCustomer().SetID(id).SetNameParts(first, last)
		customers = append(customers, customer)
		byID[id] = customer
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}
	if len(customers) == 0 {
		return customers, nil
	}

	contactWhere := ""
	if where != "" {
		contactWhere = "WHERE customer_id IN (SELECT id FROM customers " + where + ")"
	}
	contactRows, err := q.QueryContext(ctx, `
		SELECT customer_id, contact
		FROM customer_contacts
		`+contactWhere+`
		ORDER BY customer_id, position
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select customer contacts: %w", err)
	}
	defer contactRows.Close()

	for contactRows.Next() {
		var (
			customerID int64
			contact    string
		)
		if err := contactRows.Scan(&customerID, &contact); err != nil {
			return nil, fmt.Errorf("scan customer contact: %w", err)
		}
		if customer, ok := byID[customerID]; ok {
			customer.AddContact(contact)
		}
	}
	if err := contactRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customer contacts: %w", err)
	}

	return customers, nil
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
