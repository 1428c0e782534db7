package models

import "testing"

func TestValidCurrency(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		value string
		want  bool
	}{
		{"real", CurrencyReal, true},
		{"dollar", CurrencyDollar, true},
		{"euro", CurrencyEuro, true},
		{"unknown", "GBP", false},
		{"empty", "", false},
	}

	for _, tt := range cases {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ValidCurrency(tt.value); got != tt.want {
				t.Fatalf("ValidCurrency(%q) = %t, want %t", tt.value, got, tt.want)
			}
		})
	}
}

func TestNormalizeCurrency(t *testing.T) {
	t.Parallel()

	if got := NormalizeCurrency(" usd "); got != CurrencyDollar {
		t.Fatalf("NormalizeCurrency returned %q, want %q", got, CurrencyDollar)
	}

	if got := NormalizeCurrency("doubloons"); got != DefaultCurrency {
		t.Fatalf("NormalizeCurrency returned %q, want %q", got, DefaultCurrency)
	}
}
