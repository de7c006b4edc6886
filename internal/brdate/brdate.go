// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package brdate provides calendar arithmetic for the YYYY-MM-DD dates used
// in search ranges. "Today" is always the civil date in Brasília time,
// independent of the machine's local timezone.
package brdate

import (
	"fmt"
	"time"
)

// Layout is the wire format for calendar dates.
const Layout = "2006-01-02"

// brt is the Brasília civil timezone. Brazil has not observed DST since
// 2019, so a fixed UTC-3 offset is used when tzdata is unavailable.
var brt = loadBRT()

func loadBRT() *time.Location {
	if loc, err := time.LoadLocation("America/Sao_Paulo"); err == nil {
		return loc
	}
	return time.FixedZone("BRT", -3*60*60)
}

// Today returns the current calendar date in Brasília time as YYYY-MM-DD.
func Today() string {
	return DateIn(time.Now())
}

// DateIn returns the Brasília calendar date of the given instant.
func DateIn(t time.Time) string {
	return t.In(brt).Format(Layout)
}

// AddDays shifts a YYYY-MM-DD date by n calendar days; n may be negative.
// The arithmetic is purely calendrical: month, year, and leap-day boundaries
// are crossed correctly and no timezone conversion takes place.
func AddDays(date string, n int) (string, error) {
	t, err := time.ParseInLocation(Layout, date, time.UTC)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", date, err)
	}
	return t.AddDate(0, 0, n).Format(Layout), nil
}
