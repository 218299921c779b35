// Package memory provides in-memory implementations of the driven ports.
// They back the unit tests and the --ephemeral mode of the CLI, where nothing
// is written outside the index directory.
package memory
