// Package metrics instruments the factor search with Prometheus counters
// and exposes them over HTTP. It also samples Go runtime memory statistics
// for the verbose report.
package metrics
