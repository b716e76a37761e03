package diagram

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var upper = cases.Upper(language.English)

// EnglishList joins items the way a person would: "a", "a and b",
// "a, b, and c". Empty items are dropped.
func EnglishList(items []string) string {
	var kept []string
	for _, it := range items {
		if s := strings.TrimSpace(it); s != "" {
			kept = append(kept, s)
		}
	}
	switch len(kept) {
	case 0:
		return ""
	case 1:
		return kept[0]
	case 2:
		return kept[0] + " and " + kept[1]
	default:
		return strings.Join(kept[:len(kept)-1], ", ") + ", and " + kept[len(kept)-1]
	}
}

// capitalize upper-cases the first letter only.
func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return upper.String(string(r)) + s[size:]
}

// cleanFloat rounds to two decimals and drops trailing zeros.
func cleanFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*100)/100, 'f', -1, 64)
}

// humanDuration renders d as "1 hour 30 minutes".
func humanDuration(d time.Duration) string {
	d = d.Round(time.Second)
	parts := []struct {
		n    int
		unit string
	}{
		{int(d / (24 * time.Hour)), "day"},
		{int(d/time.Hour) % 24, "hour"},
		{int(d/time.Minute) % 60, "minute"},
		{int(d/time.Second) % 60, "second"},
	}

	var out []string
	for _, p := range parts {
		if p.n == 0 {
			continue
		}
		unit := p.unit
		if p.n != 1 {
			unit += "s"
		}
		out = append(out, fmt.Sprintf("%d %s", p.n, unit))
	}
	return strings.Join(out, " ")
}

// collapseSpaces squeezes runs of whitespace into single spaces.
func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
