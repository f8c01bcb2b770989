// Package runner contains the dispatch-and-measurement core: it builds the
// pool of backend connections, runs the concurrent workers that consume work
// items from the shared queue, bounds every backend call with a deadline, and
// classifies each result into the outcome counters.
package runner
