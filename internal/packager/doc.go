// Package packager builds the benchmark bundle in every compression mode
// and stages the results for the runtime benchmark.
package packager
