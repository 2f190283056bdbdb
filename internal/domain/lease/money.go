package lease

import "github.com/shopspring/decimal"

// Money is a non-negative currency amount. It is encoded as a bare JSON
// number so a decoded record re-encodes to the shape it was received in.
type Money struct {
	decimal.Decimal
}

func NewMoney(v string) Money {
	return Money{decimal.RequireFromString(v)}
}

func MoneyFromInt(v int64) Money {
	return Money{decimal.NewFromInt(v)}
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.Decimal.String()), nil
}

// Format renders the amount with two decimal places.
func (m Money) Format() string {
	return m.StringFixed(2)
}
