// Package extension defines the canonical extension model: identity,
// manifest, install metadata, and the descriptor/local-extension records
// produced by scanning and installation. It also provides manifest reading
// and JSON Schema validation.
package extension
