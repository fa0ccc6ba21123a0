package utils

import (
	"testing"
)

func TestCoalesceString(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want string
	}{
		{"empty slice", []string{}, ""},
		{"all empty", []string{"", "", ""}, ""},
		{"first non-empty", []string{"a", "", "c"}, "a"},
		{"second non-empty", []string{"", "b", "c"}, "b"},
		{"single", []string{"x"}, "x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CoalesceString(tt.in...)
			if got != tt.want {
				t.Errorf("CoalesceString() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPositiveOr(t *testing.T) {
	tests := []struct {
		v, def, want int
	}{
		{0, 10, 10},
		{1, 10, 1},
		{-1, 10, 10},
		{100, 5, 100},
	}
	for _, tt := range tests {
		got := PositiveOr(tt.v, tt.def)
		if got != tt.want {
			t.Errorf("PositiveOr(%d, %d) = %d, want %d", tt.v, tt.def, got, tt.want)
		}
	}
}
