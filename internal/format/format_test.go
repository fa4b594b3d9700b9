package format

import (
	"math"
	"strings"
	"testing"
	"time"
)

func ptr(v float64) *float64 { return &v }

func mustNew(t *testing.T, locale, cur string) *Formatter {
	t.Helper()
	f, err := New(locale, cur)
	if err != nil {
		t.Fatalf("New(%q, %q): %v", locale, cur, err)
	}
	return f
}

func TestCurrencyNil(t *testing.T) {
	if got := Default().Currency(nil); got != "N/A" {
		t.Errorf("Currency(nil) = %q, want N/A", got)
	}
}

func TestCurrency(t *testing.T) {
	tests := []struct {
		locale string
		value  float64
		want   string
	}{
		{"en-US", 1234.5, "$1,234.50"},
		{"en-US", 0, "$0.00"},
		{"en-US", 150, "$150.00"},
		{"en-US", -42.125, "-$42.13"},
		{"en-US", 1234567.891, "$1,234,567.89"},
		{"es-ES", 1234.5, "1234,50 US$"},
		{"es-ES", 12345.6, "12.345,60 US$"},
		{"ja-JP", 1234.5, "$1,234.50"},
	}
	for _, tt := range tests {
		f := mustNew(t, tt.locale, "USD")
		got := f.Currency(ptr(tt.value))
		if got != tt.want {
			t.Errorf("[%s] Currency(%v) = %q, want %q", tt.locale, tt.value, got, tt.want)
		}
	}
}

func TestCurrencyHasSymbolAndTwoDecimals(t *testing.T) {
	got := Default().Currency(ptr(1234.5))
	if !strings.Contains(got, "$") {
		t.Errorf("expected currency symbol in %q", got)
	}
	if !strings.HasSuffix(got, ".50") {
		t.Errorf("expected 2 decimals in %q", got)
	}
}

func TestCurrencyScaleFollowsISO(t *testing.T) {
	f := mustNew(t, "en-US", "JPY")
	if got := f.Currency(ptr(1234.5)); got != "¥1,235" {
		t.Errorf("Currency JPY = %q, want ¥1,235", got)
	}
}

func TestInvalidCurrency(t *testing.T) {
	if _, err := New("en-US", "XYZW"); err == nil {
		t.Error("expected error for invalid currency code")
	}
}

func TestLocaleFallback(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"fr-FR", "en-US"},
		{"not a locale", "en-US"},
		{"", "en-US"},
		{"es", "es-ES"},
		{"ja", "ja-JP"},
	}
	for _, tt := range tests {
		f := mustNew(t, tt.in, "USD")
		if got := f.Locale(); got != tt.want {
			t.Errorf("Locale for %q = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestNonFiniteIsNotAvailable(t *testing.T) {
	f := Default()
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if got := f.Currency(&v); got != NotAvailable {
			t.Errorf("Currency(%v) = %q, want %q", v, got, NotAvailable)
		}
		if got := f.Percentage(v); got != NotAvailable {
			t.Errorf("Percentage(%v) = %q, want %q", v, got, NotAvailable)
		}
		if got := Score(v); got != NotAvailable {
			t.Errorf("Score(%v) = %q, want %q", v, got, NotAvailable)
		}
	}
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		locale string
		value  float64
		want   string
	}{
		{"en-US", 12.345, "12.35%"},
		{"en-US", 0, "0.00%"},
		{"en-US", 100, "100.00%"},
		{"en-US", -3.005, "-3.01%"},
		{"en-US", 1234.5, "1,234.50%"},
		{"es-ES", 12.345, "12,35 %"},
	}
	for _, tt := range tests {
		f := mustNew(t, tt.locale, "USD")
		if got := f.Percentage(tt.value); got != tt.want {
			t.Errorf("[%s] Percentage(%v) = %q, want %q", tt.locale, tt.value, got, tt.want)
		}
	}
}

func TestDate(t *testing.T) {
	d := time.Date(2026, time.October, 18, 9, 30, 0, 0, time.UTC)
	tests := []struct {
		locale string
		want   string
	}{
		{"en-US", "October 18, 2026"},
		{"es-ES", "18 de octubre de 2026"},
		{"ja-JP", "2026年10月18日"},
	}
	for _, tt := range tests {
		f := mustNew(t, tt.locale, "USD")
		if got := f.Date(d); got != tt.want {
			t.Errorf("[%s] Date = %q, want %q", tt.locale, got, tt.want)
		}
	}
}

func TestDateString(t *testing.T) {
	f := Default()
	tests := []struct {
		in   string
		want string
	}{
		{"2025-01-02T23:30:00-05:00", "January 2, 2025"},
		{"2025-03-04T10:00:00Z", "March 4, 2025"},
		{"2025-03-04T10:00:00.123456Z", "March 4, 2025"},
		{"2025-03-04", "March 4, 2025"},
		{"yesterday", "yesterday"},
	}
	for _, tt := range tests {
		if got := f.DateString(tt.in); got != tt.want {
			t.Errorf("DateString(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{7, "7.00"},
		{4.5, "4.50"},
		{3.333, "3.33"},
		{1.005, "1.01"},
	}
	for _, tt := range tests {
		if got := Score(tt.in); got != tt.want {
			t.Errorf("Score(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormattingIsDeterministic(t *testing.T) {
	a := mustNew(t, "es-ES", "USD")
	b := mustNew(t, "en-US", "USD")
	first := a.Currency(ptr(9876.54))
	_ = b.Currency(ptr(1))
	if again := a.Currency(ptr(9876.54)); again != first {
		t.Errorf("formatter output changed between calls: %q vs %q", first, again)
	}
}
