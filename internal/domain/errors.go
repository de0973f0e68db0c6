package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument: отсутствует обязательная ссылка или передано недопустимое значение.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnknownEntity: сущность с указанным идентификатором не найдена.
	ErrUnknownEntity = errors.New("unknown entity")
	// ErrInvalidEntity: попытка сохранить сущность без валидного идентификатора.
	ErrInvalidEntity = errors.New("invalid entity")

	// ErrUnknownArticle: артикул не зарегистрирован в складском учёте.
	ErrUnknownArticle = fmt.Errorf("%w: article is not registered in inventory", ErrUnknownEntity)
	// ErrInvalidArticle: артикул отсутствует или не имеет идентификатора.
	ErrInvalidArticle = fmt.Errorf("%w: article is nil or has no id", ErrInvalidArgument)
	// ErrUnknownCustomer: клиент не найден в репозитории.
	ErrUnknownCustomer = fmt.Errorf("%w: customer not found", ErrUnknownEntity)
	// ErrUnknownOrder: заказ не найден в репозитории.
	ErrUnknownOrder = fmt.Errorf("%w: order not found", ErrUnknownEntity)

	// Ошибка отсутствующего клиента при создании заказа.
	ErrCustomerRequired = fmt.Errorf("%w: customer is required", ErrInvalidArgument)
	// Ошибка отсутствующего артикула в позиции заказа.
	ErrArticleRequired = fmt.Errorf("%w: article is required", ErrInvalidArgument)
	// Ошибка при некорректном количестве товара (<= 0).
	ErrUnitsInvalid = fmt.Errorf("%w: units must be greater than zero", ErrInvalidArgument)
	// Ошибка отрицательного остатка на складе.
	ErrStockNegative = fmt.Errorf("%w: units in stock must be non-negative", ErrInvalidArgument)
	// Ошибка отсутствия хотя бы одной позиции в заказе.
	ErrItemsRequired = fmt.Errorf("%w: order must contain at least one item", ErrInvalidArgument)

	// ErrOrderNotFillable: текущего остатка недостаточно хотя бы для одной позиции.
	ErrOrderNotFillable = errors.New("order is not fillable from current inventory")
	// ErrOrderExists: заказ с таким идентификатором уже принят.
	ErrOrderExists = errors.New("order already exists")
	// ErrOutboxPublish: ошибка при публикации сообщения из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")
)

// IsInvalidArgument проверяет, относится ли ошибка к нарушению предусловий.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}

// IsUnknownEntity проверяет, является ли ошибка отсутствием сущности.
func IsUnknownEntity(err error) bool {
	return errors.Is(err, ErrUnknownEntity)
}
