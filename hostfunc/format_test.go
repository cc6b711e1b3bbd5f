package hostfunc

import (
	"math"
	"testing"
)

func TestFormatI32(t *testing.T) {
	tests := []struct {
		in   int32
		want string
	}{
		{0, "0"},
		{42, "42"},
		{-7, "-7"},
		{math.MaxInt32, "2147483647"},
		{math.MinInt32, "-2147483648"},
	}
	for _, tt := range tests {
		if got := FormatI32(tt.in); got != tt.want {
			t.Errorf("FormatI32(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatF64(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{3, "3"},
		{3.5, "3.5"},
		{-2.25, "-2.25"},
		{0.1, "0.1"},
		{0.1 + 0.2, "0.30000000000000004"},
		{123.456, "123.456"},
		{100, "100"},
		{1e20, "100000000000000000000"},
		{1e21, "1e+21"},
		{1.5e21, "1.5e+21"},
		{0.000001, "0.000001"},
		{1e-7, "1e-7"},
		{1.5e-7, "1.5e-7"},
		{5e-324, "5e-324"},
		{math.MaxFloat64, "1.7976931348623157e+308"},
		{math.Copysign(0, -1), "0"},
		{0, "0"},
		{math.NaN(), "NaN"},
		{math.Inf(1), "Infinity"},
		{math.Inf(-1), "-Infinity"},
	}
	for _, tt := range tests {
		if got := FormatF64(tt.in); got != tt.want {
			t.Errorf("FormatF64(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
