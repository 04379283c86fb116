package types

import "github.com/shopspring/decimal"

// MoneyScale is the number of fractional digits a monetary amount may carry
const MoneyScale = 2

// ValidateMoneyScale rejects amounts finer than one cent. Trailing zeros are
// allowed, so "30.000" passes and "0.001" does not.
func ValidateMoneyScale(field string, d decimal.Decimal) error {
	if !d.Equal(d.Truncate(MoneyScale)) {
		return NewValidationError(field, "cannot have more than 2 decimal places")
	}
	return nil
}
