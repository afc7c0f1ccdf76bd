package navigation

import (
	"strconv"
	"strings"
)

// ParseRange converts a 1-based line directive into a 0-based inclusive
// range. The directive is either a single line number ("5") or a span
// ("3-7"). A reversed span is swapped. ok is false for anything else.
func ParseRange(spec string) (from, to int, ok bool) {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return 0, 0, false
	}

	first, second, isSpan := strings.Cut(spec, "-")
	a, err := strconv.Atoi(strings.TrimSpace(first))
	if err != nil || a < 1 {
		return 0, 0, false
	}
	b := a
	if isSpan {
		b, err = strconv.Atoi(strings.TrimSpace(second))
		if err != nil || b < 1 {
			return 0, 0, false
		}
	}
	if b < a {
		a, b = b, a
	}
	return a - 1, b - 1, true
}

// FormatRange renders a 0-based inclusive range as a 1-based directive.
func FormatRange(from, to int) string {
	if from == to {
		return strconv.Itoa(from + 1)
	}
	return strconv.Itoa(from+1) + "-" + strconv.Itoa(to+1)
}
