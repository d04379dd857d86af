// Package beecmd hosts the bee command line: the process loop, the error
// report, the in-process simulation and the status probe. cmd/bee only calls
// Execute.
package beecmd
