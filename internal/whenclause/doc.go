// Package whenclause parses the declarative visibility expressions carried
// by contribution points into a boolean predicate tree, serializes them
// back, and rewrites resource-scheme operands for remote execution contexts.
package whenclause
