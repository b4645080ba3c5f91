package normalize

import "testing"

func TestDigits(t *testing.T) {
	if got := Digits("۱۲۳٤۵"); got != "12345" {
		t.Errorf("Digits = %q", got)
	}
	if got := Digits("متراژ ۸۵ متر"); got != "متراژ 85 متر" {
		t.Errorf("Digits = %q", got)
	}
}

func TestInt(t *testing.T) {
	cases := []struct {
		in   string
		want int
		ok   bool
	}{
		{"۸۵", 85, true},
		{"۱٬۲۰۰", 1200, true},
		{"  ۳ اتاق ", 3, true},
		{"85 متر", 85, true},
		{"توافقی", 0, false},
		{"", 0, false},
	}
	for _, tc := range cases {
		got, ok := Int(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("Int(%q) = %d,%v want %d,%v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestInt64Price(t *testing.T) {
	got, ok := Int64("۱۲٬۵۰۰٬۰۰۰٬۰۰۰ تومان")
	if !ok || got != 12_500_000_000 {
		t.Errorf("Int64 = %d,%v", got, ok)
	}
}

func TestFloat(t *testing.T) {
	got, ok := Float("35.6892")
	if !ok || got != 35.6892 {
		t.Errorf("Float = %v,%v", got, ok)
	}
	if _, ok := Float("نامشخص"); ok {
		t.Error("Float accepted digitless text")
	}
}

func TestPhone(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"09121234567", "09121234567"},
		{"9121234567", "09121234567"},
		{"۰۹۱۲۱۲۳۴۵۶۷", "09121234567"},
		{"+98 912 123 4567", "09121234567"},
		{"tel:09121234567", "09121234567"},
		{"12345", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Phone(tc.in); got != tc.want {
			t.Errorf("Phone(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
