// Package installer executes install and uninstall tasks against the
// installed-extension store. It infers the operation kind (fresh install vs
// update), computes install metadata, and performs the compatibility
// feasibility check consumed before a task is created.
package installer
