package domain

// Article описывает товар каталога: статические атрибуты без складского остатка.
type Article struct {
	id          string
	description string
	// unitPrice: цена за единицу в минимальных денежных единицах, НДС включён.
	unitPrice int64
	currency  Currency
	tax       TaxRate
}

// NewArticle создаёт артикул. Отрицательная цена сводится к нулю.
func NewArticle(id, description string, unitPrice int64, currency Currency, tax TaxRate) *Article {
	a := &Article{
		id:          id,
		description: description,
		currency:    currency,
		tax:         tax,
	}
	a.SetUnitPrice(unitPrice)
	return a
}

// ID возвращает неизменяемый идентификатор артикула.
func (a *Article) ID() string {
	return a.id
}

func (a *Article) Description() string {
	return a.description
}

func (a *Article) SetDescription(description string) *Article {
	a.description = description
	return a
}

// UnitPrice возвращает цену за единицу в минимальных денежных единицах.
func (a *Article) UnitPrice() int64 {
	return a.unitPrice
}

// SetUnitPrice обновляет цену; отрицательные значения игнорируются.
func (a *Article) SetUnitPrice(price int64) *Article {
	if price >= 0 {
		a.unitPrice = price
	}
	return a
}

func (a *Article) Currency() Currency {
	return a.currency
}

func (a *Article) Tax() TaxRate {
	return a.tax
}

// FormattedPrice возвращает цену за единицу для отображения, например "5.00€".
func (a *Article) FormattedPrice() string {
	return a.currency.FormatAmount(a.unitPrice)
}
