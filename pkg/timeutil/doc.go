// Package timeutil provides human-readable relative time formatting and a
// Clock abstraction for testable time-dependent code.
//
// # Usage
//
//	timeutil.Relative(time.Now().Add(-5 * time.Minute)) // "5 minutes ago"
//
//	clock := timeutil.NewFakeClock(start)
//	clock.Advance(2 * time.Minute)
package timeutil
