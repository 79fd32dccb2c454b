// Package fleet sizes the daily truck fleet needed to carry forecast package
// volumes, with per-day operator overrides and an aggregate summary.
package fleet
