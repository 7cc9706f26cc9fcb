// Package size parses and formats the free-form size field on food items,
// e.g. "2 gal" or "500 ml". The canonical form is "<quantity> <unit>",
// "<quantity>", or "<unit>".
package size

import (
	"strconv"
	"strings"
)

// Unit is a recognized measurement unit. UnitNone means no unit recorded.
type Unit string

const (
	UnitNone  Unit = ""
	UnitOz    Unit = "oz"
	UnitQuart Unit = "quart"
	UnitGal   Unit = "gal"
	UnitLbs   Unit = "lbs"
	UnitMl    Unit = "ml"
	UnitL     Unit = "L"
	UnitLtr   Unit = "ltr"
	UnitCup   Unit = "cup"
	UnitPint  Unit = "pint"
	UnitG     Unit = "g"
	UnitKg    Unit = "kg"
)

// Units is the fixed unit vocabulary, in display order.
var Units = []Unit{
	UnitOz, UnitQuart, UnitGal, UnitLbs, UnitMl, UnitL,
	UnitLtr, UnitCup, UnitPint, UnitG, UnitKg,
}

func lookupUnit(token string) (Unit, bool) {
	for _, u := range Units {
		if token == string(u) {
			return u, true
		}
	}
	return UnitNone, false
}

// Parse splits a raw size string into a quantity and a unit.
//
// Two tokens: the first is the quantity (kept verbatim even when non-numeric)
// and the second is matched against the unit vocabulary. An unrecognized
// second token is dropped. One token: a number is a bare quantity, a known
// unit token is a bare unit, and anything else is kept whole as the quantity.
func Parse(raw string) (string, Unit) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", UnitNone
	}

	if qty, rest, found := strings.Cut(s, " "); found {
		if u, ok := lookupUnit(rest); ok {
			return qty, u
		}
		return qty, UnitNone
	}

	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return s, UnitNone
	}
	if u, ok := lookupUnit(s); ok {
		return "", u
	}
	return s, UnitNone
}

// Format renders a quantity and unit back to the canonical string form. The
// quantity counts only when it parses as a number. Returns false when there
// is nothing to record.
func Format(quantity string, unit Unit) (string, bool) {
	_, err := strconv.ParseFloat(quantity, 64)
	qtyValid := quantity != "" && err == nil

	switch {
	case qtyValid && unit != UnitNone:
		return quantity + " " + string(unit), true
	case qtyValid:
		return quantity, true
	case unit != UnitNone:
		return string(unit), true
	}
	return "", false
}
