// Package scanner discovers extensions from the three descriptor sources
// (builtin, installed, developed), runs the sources concurrently, and merges
// their results into a single identity-keyed set under fixed precedence.
package scanner
