package payments

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountToCents(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"0", 0},
		{"0.01", 1},
		{"50.00", 5000},
		{"19.99", 1999},
		{"123.456", 12346},
	}
	for _, tt := range tests {
		d, err := decimal.NewFromString(tt.in)
		if err != nil {
			t.Fatalf("parse %q: %v", tt.in, err)
		}
		if got := AmountToCents(d); got != tt.want {
			t.Fatalf("AmountToCents(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}
