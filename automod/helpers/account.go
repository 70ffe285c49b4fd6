package helpers

import (
	"time"
)

const Day = 24 * time.Hour

// Whole days between account creation and now, rounded down. A creation time in the future yields a negative age.
func AccountAgeDays(createdAt, now time.Time) int {
	age := now.Sub(createdAt)
	days := age / Day
	if age < 0 && age%Day != 0 {
		// floor, not truncation
		days--
	}
	return int(days)
}

// Checks whether the account is strictly younger than minDays whole days. An account exactly minDays old is not young.
func AccountIsYoungerThanDays(createdAt, now time.Time, minDays int) bool {
	return AccountAgeDays(createdAt, now) < minDays
}
