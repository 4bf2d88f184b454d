// Package analytics holds the pure filter and aggregation functions that
// turn the loaded table into derived views.
//
// Selections are tagged values: AllYears() and Year(2021) are distinct
// variants, so no comparison against an "All" label ever reaches the data.
// Every function here takes the table explicitly and returns fresh values;
// nothing is cached between calls.
package analytics
