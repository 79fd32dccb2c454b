// Package history assembles the window of past months a forecast is fitted
// on. Months are fetched in parallel from a Source; months that fail or carry
// no shipments are left out rather than aborting the window.
package history
