// Package manifests provides manifest sources.
//
// Implementations:
//   - yaml: *.yaml/*.yml files, one or more documents per file
package manifests
