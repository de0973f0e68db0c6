package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

type articleRepository struct {
	store *Store
}

// NewArticleRepository создаёт PostgreSQL-реализацию ArticleRepository.
func NewArticleRepository(store *Store) domain.ArticleRepository {
	return &articleRepository{store: store}
}

func (r *articleRepository) FindByID(id string) (*domain.Article, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	articles, err := loadArticles(ctx, r.store.db, "WHERE id = $1", id)
	if err != nil {
		return nil, false, err
	}
	if len(articles) == 0 {
		return nil, false, nil
	}
	return articles[0], true, nil
}

func (r *articleRepository) FindAll() ([]*domain.Article, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	return loadArticles(ctx, r.store.db, "")
}

func (r *articleRepository) Count() (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	var count int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM articles`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count articles: %w", err)
	}
	return count, nil
}

func (r *articleRepository) Save(article *domain.Article) (*domain.Article, error) {
	if article == nil || article.ID() == "" {
		return nil, domain.ErrInvalidEntity
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	_, err := r.store.db.ExecContext(ctx, `
		INSERT INTO articles (id, description, unit_price_minor, currency, tax, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (id) DO UPDATE
		SET description      = EXCLUDED.description,
		    unit_price_minor = EXCLUDED.unit_price_minor,
		    currency         = EXCLUDED.currency,
		    tax              = EXCLUDED.tax,
		    updated_at       = EXCLUDED.updated_at
	`,
		article.ID(), article.Description(), article.UnitPrice(),
		string(article.Currency()), string(article.Tax()), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("upsert article: %w", err)
	}
	return article, nil
}

func loadArticles(ctx context.Context, q querier, where string, args ...any) ([]*domain.Article, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, description, unit_price_minor, currency, tax
		FROM articles
		`+where+`
		ORDER BY id
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("select articles: %w", err)
	}
	defer rows.Close()

	articles := make([]*domain.Article, 0)
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, article)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanArticle(row scanner, extra ...any) (*domain.Article, error) {
	var (
		id, description, currency, tax string
		price                          int64
	)
	dest := append([]any{&id, &description, &price, &currency, &tax}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan article: %w", err)
	}
	return domain.NewArticle(id, description, price, domain.Currency(currency), domain.TaxRate(tax)), nil
}

var _ domain.ArticleRepository = (*articleRepository)(nil)
