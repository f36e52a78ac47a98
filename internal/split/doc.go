// Package split partitions the rows of an instrument export into the run
// metadata block and the tabular results region.
//
// Exports carry no fixed schema, delimiter or row offset, so regions are
// located with sentinel tokens and blank-row detection in a single forward
// pass. The package is pure: rows in, rows out.
package split
