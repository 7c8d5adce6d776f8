package ident

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	maxIncrements = 1000
	maxHyphenated = 1000
	maxNextScan   = 10000
)

// Assign returns a collision-free identifier for requested and records it
// in the ledger immediately, so later calls in the same batch see it.
//
// Rules, in order:
//  1. An empty request is treated as "1".
//  2. A free request is returned unchanged.
//  3. The last run of digits is incremented, keeping its width and any
//     prefix and suffix ("101A" -> "102A"), for up to 1000 steps.
//  4. A letter A..Z is appended ("B" -> "BA").
//  5. "-k" is appended for k = 2..1000.
//  6. "-" and a random token are appended. This result is not re-checked.
func (l *Ledger) Assign(requested string) (string, Strategy) {
	if requested == "" {
		requested = "1"
	}
	if !l.Contains(requested) {
		l.Add(requested)
		return requested, StrategyUnchanged
	}

	if prefix, digits, suffix, ok := splitDigitRun(requested); ok {
		if n, err := strconv.ParseInt(digits, 10, 64); err == nil {
			for k := int64(1); k <= maxIncrements; k++ {
				candidate := prefix + fmt.Sprintf("%0*d", len(digits), n+k) + suffix
				if !l.Contains(candidate) {
					l.Add(candidate)
					return candidate, StrategyIncremented
				}
			}
		}
	}

	for c := 'A'; c <= 'Z'; c++ {
		candidate := requested + string(c)
		if !l.Contains(candidate) {
			l.Add(candidate)
			return candidate, StrategyLettered
		}
	}

	for k := 2; k <= maxHyphenated; k++ {
		candidate := requested + "-" + strconv.Itoa(k)
		if !l.Contains(candidate) {
			l.Add(candidate)
			return candidate, StrategyHyphenated
		}
	}

	candidate := requested + "-" + l.token()
	l.Add(candidate)
	return candidate, StrategyRandom
}

// NextAvailable returns one more than the largest number in the ledger and
// records it. Each identifier contributes its whole-string value when it
// parses as an integer, otherwise the value of its trailing digits. If the
// successor is taken, later values are tried.
func (l *Ledger) NextAvailable() string {
	var highest int64
	for _, s := range l.keys {
		if n, ok := numericValue(s); ok && n > highest {
			highest = n
		}
	}

	// Values highest+1 through highest+maxNextScan-1 are scanned.
	limit := highest + maxNextScan
	if limit < highest {
		limit = math.MaxInt64
	}
	for i := highest + 1; i > highest && i < limit; i++ {
		candidate := strconv.FormatInt(i, 10)
		if !l.Contains(candidate) {
			l.Add(candidate)
			return candidate
		}
	}

	// Every scanned value was taken; fall back to the general rules.
	next := highest
	if highest < math.MaxInt64 {
		next = highest + 1
	}
	s, _ := l.Assign(strconv.FormatInt(next, 10))
	return s
}

// splitDigitRun locates the last maximal run of ASCII digits in s.
// Non-digits after the run form the suffix.
func splitDigitRun(s string) (prefix, digits, suffix string, ok bool) {
	end := len(s)
	for end > 0 && !isDigit(s[end-1]) {
		end--
	}
	if end == 0 {
		return "", "", "", false
	}
	start := end
	for start > 0 && isDigit(s[start-1]) {
		start--
	}
	return s[:start], s[start:end], s[end:], true
}

// numericValue parses s as an integer, or failing that its trailing digits.
func numericValue(s string) (int64, bool) {
	trimmed := strings.TrimSpace(s)
	if n, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return n, true
	}
	start := len(trimmed)
	for start > 0 && isDigit(trimmed[start-1]) {
		start--
	}
	if start == len(trimmed) {
		return 0, false
	}
	n, err := strconv.ParseInt(trimmed[start:], 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigit(b byte) bool {
	return b >= '0' && b <= '9'
}
