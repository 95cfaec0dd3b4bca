// Package orchestration runs the concurrent factor search: it partitions the
// divisor range, feeds the work items through a shared queue to a fixed pool
// of workers and aggregates their local results once every worker has
// terminated. Presentation is decoupled through the ProgressReporter
// interface.
package orchestration
