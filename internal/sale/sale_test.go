package sale_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jvillar/tienda/internal/sale"
)

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    sale.PaymentMethod
		wantErr bool
	}{
		{name: "Cash", input: "cash", want: sale.MethodCash},
		{name: "Card", input: "card", want: sale.MethodCard},
		{name: "Transfer", input: "transfer", want: sale.MethodTransfer},
		{name: "MobileWallet", input: "mobile-wallet", want: sale.MethodMobileWallet},
		{name: "Unknown", input: "crypto", wantErr: true},
		{name: "Empty", input: "", wantErr: true},
		{name: "WrongCase", input: "Cash", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sale.ParsePaymentMethod(tt.input)

			if tt.wantErr {
				require.ErrorIs(t, err, sale.ErrValidation)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
