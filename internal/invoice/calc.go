package invoice

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

func LineTotal(it LineItem) decimal.Decimal {
	return it.Quantity.Mul(it.UnitPrice)
}

func Subtotal(items []LineItem) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineTotal(it))
	}
	return sum
}

// Tax rounds to whole currency units, halves away from zero.
func Tax(subtotal, rate decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(rate).Round(0)
}

// GrandTotal does not clamp: a discount larger than subtotal plus tax gives a
// negative total.
func GrandTotal(subtotal, tax, discount decimal.Decimal) decimal.Decimal {
	return subtotal.Add(tax).Sub(discount)
}

// Quote computes totals for a draft without issuing an invoice.
func Quote(items []LineItem, discount, rate decimal.Decimal) Totals {
	sub := Subtotal(items)
	tax := Tax(sub, rate)
	return Totals{
		Subtotal: sub,
		Tax:      tax,
		Discount: discount,
		Total:    GrandTotal(sub, tax, discount),
	}
}
