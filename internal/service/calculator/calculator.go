// Package calculator рассчитывает стоимость заказов и включённый в цены НДС.
//
// Все суммы выражены целыми числами в минимальных денежных единицах. Промежуточные
// вычисления выполняются в decimal, наружу значения с плавающей точкой не выходят.
package calculator

import (
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/retail/internal/domain"
)

var (
	hundred = decimal.NewFromInt(100)
)

// Calculator не хранит состояния и безопасен для конкурентного использования.
type Calculator struct{}

// New возвращает калькулятор.
func New() Calculator {
	return Calculator{}
}

// Value возвращает сумму unitPrice × unitsOrdered по всем позициям заказа.
func (Calculator) Value(order *domain.Order) int64 {
	if order == nil {
		return 0
	}
	var value int64
	for _, item := range order.Items() {
		value += LineValue(item)
	}
	return value
}

// ValueOf возвращает суммарную стоимость заказов.
func (c Calculator) ValueOf(orders []*domain.Order) int64 {
	var value int64
	for _, order := range orders {
		value += c.Value(order)
	}
	return value
}

// IncludedVAT выделяет НДС из цены, которая его уже включает:
// price − price/(1 + rate/100), с округлением half-up до минимальной единицы.
func (Calculator) IncludedVAT(price int64, rate domain.TaxRate) int64 {
	return includedVAT(decimal.NewFromInt(price), rate).Round(0).IntPart()
}

// OrderVAT суммирует НДС по позициям. Округление выполняется для каждой
// позиции отдельно, а не один раз для итога.
func (Calculator) OrderVAT(order *domain.Order) int64 {
	if order == nil {
		return 0
	}
	var vat int64
	for _, item := range order.Items() {
		vat += LineVAT(item)
	}
	return vat
}

// OrdersVAT возвращает суммарный НДС заказов.
func (c Calculator) OrdersVAT(orders []*domain.Order) int64 {
	var vat int64
	for _, order := range orders {
		vat += c.OrderVAT(order)
	}
	return vat
}

// ItemValue возвращает стоимость позиции.
func (Calculator) ItemValue(item *domain.OrderItem) int64 {
	return LineValue(item)
}

// ItemVAT возвращает НДС позиции, см. LineVAT.
func (Calculator) ItemVAT(item *domain.OrderItem) int64 {
	return LineVAT(item)
}

// LineValue возвращает стоимость одной позиции.
func LineValue(item *domain.OrderItem) int64 {
	if item == nil || item.Article() == nil {
		return 0
	}
	return item.Article().UnitPrice() * int64(item.UnitsOrdered())
}

// LineVAT возвращает НДС одной позиции. НДС единицы хранится с точностью
// до 1/100 минимальной единицы (с отбрасыванием остатка), затем умножается
// на количество и округляется half-up.
func LineVAT(item *domain.OrderItem) int64 {
	if item == nil || item.Article() == nil {
		return 0
	}
	article := item.Article()
	unitVAT := includedVAT(decimal.NewFromInt(article.UnitPrice()), article.Tax()).
		Mul(hundred).
		Truncate(0)

	return unitVAT.
		Mul(decimal.NewFromInt(int64(item.UnitsOrdered()))).
		Div(hundred).
		Round(0).
		IntPart()
}

func includedVAT(price decimal.Decimal, rate domain.TaxRate) decimal.Decimal {
	percent := rate.Percent()
	if percent == 0 {
		return decimal.Zero
	}
	gross := decimal.NewFromInt(100 + percent).Div(hundred)
	return price.Sub(price.Div(gross))
}

var _ domain.Calculator = Calculator{}
