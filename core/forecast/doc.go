// Package forecast projects daily package volumes for a target month from a
// window of historical months. The model blends a day-of-week average with
// the overall average extrapolated along a linear month-over-month trend, and
// derives a confidence band from the spread of the historical values.
//
// Missing history is not an error: an empty window yields an empty forecast.
package forecast
