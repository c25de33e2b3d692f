package market

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money bounds for prices and offer amounts.
const (
	MaxMoneyWholeDigits = 15
	MaxMoneyScale       = 2
)

// validateMoney checks that d is positive, has at most MaxMoneyWholeDigits
// digits before the decimal point and at most MaxMoneyScale after it.
func validateMoney(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return fmt.Errorf("%w: %s must be greater than zero", ErrValidation, field)
	}
	// Digit counts come from the coefficient and exponent, so 1e2000000 is
	// rejected without being expanded.
	if whole := int64(d.NumDigits()) + int64(d.Exponent()); whole > MaxMoneyWholeDigits {
		return fmt.Errorf("%w: %s has more than %d whole digits", ErrValidation, field, MaxMoneyWholeDigits)
	}
	// Only trailing zeros of the coefficient may sit past the last allowed
	// decimal, so a scale beyond the coefficient length fails before Round.
	if excess := -int64(d.Exponent()) - MaxMoneyScale; excess > 0 &&
		(excess >= int64(d.NumDigits()) || !d.Equal(d.Round(MaxMoneyScale))) {
		return fmt.Errorf("%w: %s has more than %d decimal places", ErrValidation, field, MaxMoneyScale)
	}
	return nil
}
