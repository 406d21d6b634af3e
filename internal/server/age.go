package server

import "time"

// ageMonths computes device age in months from a YYYY-MM launch date.
// Unparseable dates yield zero.
func ageMonths(launchDate string, now time.Time) int {
	t, err := time.Parse("2006-01", launchDate)
	if err != nil {
		return 0
	}
	months := (now.Year()-t.Year())*12 + int(now.Month()) - int(t.Month())
	if months < 0 {
		return 0
	}
	return months
}
