package inventory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

// SortKey задаёт порядок строк складской ведомости.
type SortKey string

const (
	SortByID          SortKey = "id"
	SortByPrice       SortKey = "price"
	SortByValue       SortKey = "value"
	SortByUnits       SortKey = "units"
	SortByDescription SortKey = "description"
)

// ParseSortKey разбирает ключ сортировки; пустая строка означает SortByID.
func ParseSortKey(raw string) (SortKey, error) {
	switch key := SortKey(strings.ToLower(strings.TrimSpace(raw))); key {
	case "":
		return SortByID, nil
	case SortByID, SortByPrice, SortByValue, SortByUnits, SortByDescription:
		return key, nil
	default:
		return "", fmt.Errorf("%w: unsupported sort key %q", domain.ErrInvalidArgument, raw)
	}
}

// StockEntry: строка складской ведомости.
type StockEntry struct {
	Article      *domain.Article
	UnitsInStock int
	// ValueMinor: unitPrice × unitsInStock в минимальных единицах.
	ValueMinor int64
}

// Snapshot возвращает учитываемые артикулы с остатками, отсортированные по
// sortBy. descending разворачивает только ключ сортировки, равные по ключу
// строки идут по возрастанию id. При limit <= 0 ограничения нет.
func (m *Manager) Snapshot(sortBy SortKey, descending bool, limit int) ([]StockEntry, error) {
	articles, err := m.articles.FindAll()
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}

	rows := make([]StockEntry, 0, len(articles))
	for _, article := range articles {
		units, err := m.StockLevel(article.ID())
		if err != nil {
			// Артикул сохранён в репозиторий в обход менеджера.
			continue
		}
		rows = append(rows, StockEntry{
			Article:      article,
			UnitsInStock: units,
			ValueMinor:   article.UnitPrice() * int64(units),
		})
	}

	less := lessFunc(sortBy)
	if descending {
		asc := less
		less = func(a, b StockEntry) bool { return asc(b, a) }
	}
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if less(a, b) {
			return true
		}
		if less(b, a) {
			return false
		}
		return a.Article.ID() < b.Article.ID()
	})

	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// InventoryValue возвращает суммарную стоимость всех остатков.
func (m *Manager) InventoryValue() (int64, error) {
	rows, err := m.Snapshot(SortByID, false, 0)
	if err != nil {
		return 0, err
	}
	var total int64
	for _, row := range rows {
		total += row.ValueMinor
	}
	return total, nil
}

func lessFunc(sortBy SortKey) func(a, b StockEntry) bool {
	switch sortBy {
	case SortByPrice:
		return func(a, b StockEntry) bool { return a.Article.UnitPrice() < b.Article.UnitPrice() }
	case SortByValue:
		return func(a, b StockEntry) bool { return a.ValueMinor < b.ValueMinor }
	case SortByUnits:
		return func(a, b StockEntry) bool { return a.UnitsInStock < b.UnitsInStock }
	case SortByDescription:
		return func(a, b StockEntry) bool { return a.Article.Description() < b.Article.Description() }
	default:
		return func(a, b StockEntry) bool { return a.Article.ID() < b.Article.ID() }
	}
}
