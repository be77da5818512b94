// Package report renders a run for humans: a line per progress event while
// the run is in flight and a summary with totals, a change table and the
// errors once it is done.
package report
