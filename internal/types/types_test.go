package types

import (
	"testing"
)

func TestAccountingMethodValid(t *testing.T) {
	tests := []struct {
		method AccountingMethod
		want   bool
	}{
		{MethodFIFO, true},
		{MethodLIFO, true},
		{"HIFO", false},
		{"fifo", false},
		{"", false},
	}

	for _, tt := range tests {
		if got := tt.method.Valid(); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.method, got, tt.want)
		}
	}
}

func TestServiceErrorMessage(t *testing.T) {
	err := &ServiceError{Code: "INVALID_WALLET_ADDRESS", Message: "bad address"}
	if got := err.Error(); got != "INVALID_WALLET_ADDRESS: bad address" {
		t.Errorf("Error() = %q", got)
	}
}

func TestDustEpsilonIsOneLamport(t *testing.T) {
	// One lamport-equivalent in token units; anything at or below is noise.
	if !DustEpsilon.Equal(DustEpsilon.Abs()) || DustEpsilon.IsZero() {
		t.Error("DustEpsilon must be a small positive quantity")
	}
	if DustEpsilon.Exponent() != -9 {
		t.Errorf("DustEpsilon exponent = %d, want -9", DustEpsilon.Exponent())
	}
}
