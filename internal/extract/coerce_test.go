package extract

import "testing"

func TestNormalizeKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Policy Term (in years):", "policy term (in years)"},
		{"  Mode of  Payment of Premium ", "mode of payment of premium"},
		{"Name of the Product :", "name of the product"},
		{"UIN", "uin"},
	}
	for _, tt := range tests {
		if got := normalizeKey(tt.in); got != tt.want {
			t.Errorf("normalizeKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestToInt(t *testing.T) {
	tests := []struct {
		in   string
		want int
		ok   bool
	}{
		{"20", 20, true},
		{"20 years", 20, true},
		{"1,200", 1200, true},
		{"", 0, false},
		{"years", 0, false},
	}
	for _, tt := range tests {
		got, ok := toInt(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("toInt(%q) = (%d, %v), want (%d, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestToNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
		ok   bool
	}{
		{"50,000", 50000, true},
		{"₹1,23,456", 123456, true},
		{"Rs. 5000", 5000, true},
		{"5000.50", 5000.50, true},
		{"-", 0, false},
		{"—", 0, false},
		{"NA", 0, false},
		{"", 0, false},
		{"see note 3", 0, false},
	}
	for _, tt := range tests {
		got, ok := toNumber(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("toNumber(%q) = (%v, %v), want (%v, %v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}
