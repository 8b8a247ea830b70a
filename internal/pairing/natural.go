package pairing

import (
	"cmp"
	"slices"
	"strings"
	"unicode"
)

// CompareNatural orders strings the way people expect file names to be ordered:
// digit runs compare by numeric value ("ch2" before "ch10"), other text compares
// case-insensitively, and the raw strings break any remaining tie.
func CompareNatural(a, b string) int {
	ca, cb := chunks(a), chunks(b)
	for i := 0; i < len(ca) && i < len(cb); i++ {
		x, y := ca[i], cb[i]
		xd, yd := isDigits(x), isDigits(y)

		var c int
		switch {
		case xd && yd:
			c = compareNumeric(x, y)
		case xd != yd:
			// digits sort before text at the same position
			if xd {
				c = -1
			} else {
				c = 1
			}
		default:
			c = strings.Compare(strings.ToLower(x), strings.ToLower(y))
		}
		if c != 0 {
			return c
		}
	}
	if c := cmp.Compare(len(ca), len(cb)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

// SortNatural sorts paths in place by [CompareNatural].
func SortNatural(paths []string) {
	slices.SortStableFunc(paths, CompareNatural)
}

func compareNumeric(x, y string) int {
	tx, ty := strings.TrimLeft(x, "0"), strings.TrimLeft(y, "0")
	if c := cmp.Compare(len(tx), len(ty)); c != 0 {
		return c
	}
	if c := strings.Compare(tx, ty); c != 0 {
		return c
	}
	return cmp.Compare(len(x), len(y))
}

// chunks splits s into alternating runs of ASCII digits and everything else.
func chunks(s string) []string {
	var out []string
	start := 0
	for i, r := range s {
		if i == 0 {
			continue
		}
		prev := rune(s[i-1])
		if isDigit(r) != isDigit(prev) {
			out = append(out, s[start:i])
			start = i
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}

func isDigit(r rune) bool { return r < unicode.MaxASCII && unicode.IsDigit(r) }

func isDigits(s string) bool {
	return s != "" && isDigit(rune(s[0]))
}
