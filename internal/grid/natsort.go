// Package grid builds the denormalized kanban-grid index the
// drag-and-drop frontend renders from: entity maps partitioned by role
// plus (epic, version[, feature]) buckets of ordered child IDs.
package grid

import "strings"

// Compare is a natural-order comparison: the strings are split into
// alternating runs of digits and non-digits, digit runs compare
// numerically and non-digit runs by code point, run by run. A string
// that is a strict prefix of the other sorts first.
//
// So "2_x" < "10_x" < "100_x", and "10_AAA" < "10_サーバ構築" because the
// shared numeric prefix ties and the remainder compares by code point.
func Compare(a, b string) int {
	for a != "" || b != "" {
		if a == "" {
			return -1
		}
		if b == "" {
			return 1
		}
		ar, arest := nextRun(a)
		br, brest := nextRun(b)
		if c := compareRuns(ar, br); c != 0 {
			return c
		}
		a, b = arest, brest
	}
	return 0
}

// Less reports whether a sorts before b in natural order.
func Less(a, b string) bool { return Compare(a, b) < 0 }

// nextRun splits off the leading maximal run of digits or non-digits.
func nextRun(s string) (run, rest string) {
	digits := isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digits {
		i++
	}
	return s[:i], s[i:]
}

// compareRuns compares two runs. Numeric comparison only applies when
// both runs are digits; mixed pairs fall back to plain string order.
// Numerically equal digit runs ("01" vs "1") tie-break on the raw text
// so the overall order stays total.
func compareRuns(a, b string) int {
	if !isDigit(a[0]) || !isDigit(b[0]) {
		return strings.Compare(a, b)
	}

	at := strings.TrimLeft(a, "0")
	bt := strings.TrimLeft(b, "0")
	if len(at) != len(bt) {
		if len(at) < len(bt) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(at, bt); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
