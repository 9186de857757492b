package core

import "testing"

func TestMoney(t *testing.T) {
	if got := Cents(-1250).Abs(); got.Cents != 1250 {
		t.Fatalf("Abs() = %d", got.Cents)
	}
	if got := Cents(500000).Sub(Cents(300000)); got.Cents != 200000 {
		t.Fatalf("Sub() = %d", got.Cents)
	}
	if got := Cents(12345).Major(); got != 123.45 {
		t.Fatalf("Major() = %v", got)
	}
	if got := Cents(12345).Decimal().String(); got != "123.45" {
		t.Fatalf("Decimal() = %s", got)
	}
}

func TestFromMajor(t *testing.T) {
	cases := []struct {
		in  float64
		out int64
	}{
		{1, 100},
		{1.23, 123},
		{0.01, 1},
		{18.9, 1890},
		{-4.5, -450},
	}
	for _, tc := range cases {
		if got := FromMajor(tc.in); got.Cents != tc.out {
			t.Fatalf("FromMajor(%v) = %d, want %d", tc.in, got.Cents, tc.out)
		}
	}
}
