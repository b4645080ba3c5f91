// Package normalize converts Persian-script text from scraped pages into
// machine values. Divar renders every number with Eastern Arabic digits and
// decorates them with thousands separators and unit words, so all numeric
// parsing funnels through here.
package normalize

import (
	"strconv"
	"strings"
)

var digitMap = map[rune]rune{
	'۰': '0', '۱': '1', '۲': '2', '۳': '3', '۴': '4',
	'۵': '5', '۶': '6', '۷': '7', '۸': '8', '۹': '9',
	// Arabic-script variants show up in some seller-entered text.
	'٠': '0', '١': '1', '٢': '2', '٣': '3', '٤': '4',
	'٥': '5', '٦': '6', '٧': '7', '٨': '8', '٩': '9',
}

// Digits maps Persian and Arabic digits in s to their ASCII equivalents,
// leaving all other runes alone.
func Digits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitMap[r]; ok {
			return d
		}
		return r
	}, s)
}

// Int extracts a non-negative integer from free text: digits are normalized
// to ASCII, everything else (separators, currency words, whitespace) is
// dropped, and the remainder is parsed. ok is false when the text carries no
// digits at all, which callers treat as "field absent" rather than an error.
func Int(s string) (int, bool) {
	v, ok := Int64(s)
	if !ok || v > int64(int(^uint(0)>>1)) {
		return 0, false
	}
	return int(v), true
}

// Int64 is Int for values that can exceed the int range, such as prices in
// rial.
func Int64(s string) (int64, bool) {
	var b strings.Builder
	for _, r := range Digits(s) {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Float parses a decimal number, keeping at most one dot.
func Float(s string) (float64, bool) {
	var b strings.Builder
	dotted := false
	for _, r := range Digits(s) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' && !dotted && b.Len() > 0:
			b.WriteRune(r)
			dotted = true
		}
	}
	if b.Len() == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(b.String(), "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Phone shapes a scraped mobile number into the canonical 11-digit local
// form. Ten digits get the leading zero restored; anything that is not a
// plausible Iranian mobile number comes back empty.
func Phone(s string) string {
	d := Digits(s)
	var b strings.Builder
	for _, r := range d {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n := b.String()
	n = strings.TrimPrefix(n, "98")
	switch {
	case len(n) == 11 && strings.HasPrefix(n, "09"):
		return n
	case len(n) == 10 && strings.HasPrefix(n, "9"):
		return "0" + n
	}
	return ""
}
