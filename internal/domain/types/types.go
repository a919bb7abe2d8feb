// Package types contains common types used across the application
package types

// PlayerStat is one leaderboard row. Values are immutable once built.
type PlayerStat struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}
