package parser

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	digitsExpr = regexp.MustCompile(`\d+`)
	kwExpr     = regexp.MustCompile(`(\d+)\s*kW`)
	psExpr     = regexp.MustCompile(`\((\d+)\s*(?:PS|ch)\)`)

	frenchMonths = map[string]int{
		"janvier": 1, "février": 2, "mars": 3, "avril": 4,
		"mai": 5, "juin": 6, "juillet": 7, "août": 8,
		"septembre": 9, "octobre": 10, "novembre": 11, "décembre": 12,
	}
)

// cleanSpaces removes regular, non-breaking and narrow non-breaking
// spaces, which the site mixes freely as thousands separators.
func cleanSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ', '\t':
			return -1
		}
		return r
	}, s)
}

// parsePrice converts a display price like "59 950,00 €" to 59950.
func parsePrice(raw string) *float64 {
	if raw == "" {
		return nil
	}
	cleaned := cleanSpaces(strings.ReplaceAll(raw, "€", ""))
	cleaned = strings.ReplaceAll(cleaned, ",", ".")

	var kept strings.Builder
	for _, r := range cleaned {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			kept.WriteRune(r)
		}
	}

	value, err := strconv.ParseFloat(kept.String(), 64)
	if err != nil {
		return nil
	}
	return &value
}

// parseLeadingNumber extracts the first integer from strings like
// "9 500 km" or "475 km".
func parseLeadingNumber(raw string) *float64 {
	if raw == "" {
		return nil
	}
	match := digitsExpr.FindString(cleanSpaces(raw))
	if match == "" {
		return nil
	}
	value, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return nil
	}
	return &value
}

// parseVehicleID converts the CAR-ID text to the stable integer key.
func parseVehicleID(raw string) (int64, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "CAR-ID"))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid vehicle id %q: %w", raw, err)
	}
	return id, nil
}

// parseHorsePower extracts kW and PS from strings like "210 kW (286 ch)".
func parseHorsePower(raw string) (kw, ps *float64) {
	if raw == "" {
		return nil, nil
	}
	if m := kwExpr.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			kw = &v
		}
	}
	if m := psExpr.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			ps = &v
		}
	}
	return kw, ps
}

// parseRegistrationDate normalizes a French month-year label like
// "août 2025" to the sortable form "2025-08". Unrecognized input comes
// back unchanged so the comparator still sees a stable string.
func parseRegistrationDate(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}

	parts := strings.Fields(strings.ToLower(raw))
	if len(parts) < 2 {
		return raw
	}

	month, ok := frenchMonths[parts[0]]
	if !ok {
		return raw
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return raw
	}

	return fmt.Sprintf("%04d-%02d", year, month)
}
