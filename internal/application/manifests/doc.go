// Package manifests implements the manifest repository.
//
// The repository:
//   - Validates manifest sets (unique names, sane lanes and confidence bounds)
//   - Orders manifests by descending priority, ties in declaration order
//   - Decides eligibility against the signals available so far
//   - Builds dependency graphs for planning tools
//
// Producers should carry a higher priority than their consumers so that a
// single ordered pass approximates topological order.
package manifests
