package types

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestValidateMoneyScale(t *testing.T) {
	tests := []struct {
		amount string
		valid  bool
	}{
		{"0", true},
		{"19.99", true},
		{"30.000", true},
		{"1000000000000.50", true},
		{"-5.25", true},
		{"0.001", false},
		{"19.999", false},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			err := ValidateMoneyScale("amount", decimal.RequireFromString(tt.amount))
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}
