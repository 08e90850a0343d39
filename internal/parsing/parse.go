// Package parsing converts raw inventory listing fields into typed values.
// The source renders numbers and dates in French locale conventions.
package parsing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// frenchMonths maps lowercase French month names to month numbers.
var frenchMonths = map[string]time.Month{
	"janvier": time.January, "février": time.February, "mars": time.March,
	"avril": time.April, "mai": time.May, "juin": time.June,
	"juillet": time.July, "août": time.August, "septembre": time.September,
	"octobre": time.October, "novembre": time.November, "décembre": time.December,
}

var (
	digitsRe = regexp.MustCompile(`\d+`)
	kwRe     = regexp.MustCompile(`(\d+)\s*kW`)
	psRe     = regexp.MustCompile(`\((\d+)\s*PS\)`)
)

// ParsePrice converts a price string like "59 950,00 €" into a decimal.
// Thousands are space-separated and the comma is the decimal mark.
func ParsePrice(s string) (decimal.Decimal, error) {
	cleaned := strings.ReplaceAll(s, "€", "")
	cleaned = strings.Join(strings.Fields(cleaned), "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, fmt.Errorf("empty price %q", s)
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse price %q: %w", s, err)
	}
	return d, nil
}

// ParseKilometers converts an odometer string like "9 500 km" into an integer.
func ParseKilometers(s string) (int, error) {
	return firstNumber(s, "kilometers")
}

// ParseVehicleID converts a listing identifier string into an int64.
func ParseVehicleID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse vehicle id %q: %w", s, err)
	}
	return id, nil
}

// ParsePower extracts kW and PS from a power string like "210 kW (286 PS)".
// Either value may be absent; absent values come back nil.
func ParsePower(s string) (kw, ps *int) {
	if m := kwRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			kw = &v
		}
	}
	if m := psRe.FindStringSubmatch(s); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil {
			ps = &v
		}
	}
	return kw, ps
}

// ParseBatteryRange converts a range string like "475 km" into an integer.
func ParseBatteryRange(s string) (int, error) {
	return firstNumber(s, "battery range")
}

// ParseRegistrationDate converts a French date string like "août 2025" into
// the first day of that month, UTC.
func ParseRegistrationDate(s string) (time.Time, error) {
	parts := strings.Fields(strings.ToLower(strings.TrimSpace(s)))
	if len(parts) < 2 {
		return time.Time{}, fmt.Errorf("registration date %q: want month and year", s)
	}

	month, ok := frenchMonths[parts[0]]
	if !ok {
		return time.Time{}, fmt.Errorf("registration date %q: unknown month %q", s, parts[0])
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, fmt.Errorf("registration date %q: %w", s, err)
	}

	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC), nil
}

// firstNumber extracts the first digit run after stripping spaces, so grouped
// numbers like "9 500" read as one value.
func firstNumber(s, what string) (int, error) {
	compact := strings.Join(strings.Fields(s), "")
	m := digitsRe.FindString(compact)
	if m == "" {
		return 0, fmt.Errorf("no number in %s %q", what, s)
	}

	v, err := strconv.Atoi(m)
	if err != nil {
		return 0, fmt.Errorf("parse %s %q: %w", what, s, err)
	}
	return v, nil
}
