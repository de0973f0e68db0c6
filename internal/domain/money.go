package domain

import "github.com/shopspring/decimal"

// Currency: код валюты, в которой указана цена артикула.
type Currency string

const (
	CurrencyNone Currency = "NONE"
	CurrencyEUR  Currency = "EUR"
	CurrencyUSD  Currency = "USD"
	CurrencyGBP  Currency = "GBP"
	CurrencyCHF  Currency = "CHF"
	CurrencyYEN  Currency = "YEN"
)

var currencySymbols = map[Currency]string{
	CurrencyNone: "",
	CurrencyEUR:  "€",
	CurrencyUSD:  "$",
	CurrencyGBP:  "£",
	CurrencyCHF:  "CHF",
	CurrencyYEN:  "¥",
}

// Valid сообщает, поддерживается ли валюта.
func (c Currency) Valid() bool {
	_, ok := currencySymbols[c]
	return ok
}

// Symbol возвращает символ валюты для отображения.
func (c Currency) Symbol() string {
	return currencySymbols[c]
}

// FormatAmount форматирует сумму в минимальных единицах, например 500 → "5.00€".
func (c Currency) FormatAmount(minor int64) string {
	return decimal.New(minor, -2).StringFixed(2) + c.Symbol()
}

// TaxRate: категория НДС, уже включённого в цену артикула.
type TaxRate string

const (
	// TaxFree: товар не облагается НДС.
	TaxFree TaxRate = "tax_free"
	// GermanVATReduced: льготная ставка 7%.
	GermanVATReduced TaxRate = "german_vat_reduced"
	// GermanVAT: стандартная ставка 19%.
	GermanVAT TaxRate = "german_vat"
)

var taxPercents = map[TaxRate]int64{
	TaxFree:          0,
	GermanVATReduced: 7,
	GermanVAT:        19,
}

// Valid сообщает, известна ли ставка.
func (t TaxRate) Valid() bool {
	_, ok := taxPercents[t]
	return ok
}

// Percent возвращает ставку в процентах; для неизвестной категории 0.
func (t TaxRate) Percent() int64 {
	return taxPercents[t]
}
