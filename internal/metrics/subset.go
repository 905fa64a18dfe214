// Package metrics implements the streaming evaluation accumulators: overlap
// quality of region boxes, binary decision quality of the two classifier
// heads, and text quality of generated sentences. Each accumulator lives for
// a single evaluation pass, ingests per-batch updates, and is reduced into
// final scalars exactly once.
package metrics

// Subset partitions evaluation examples. Normal and Abnormal split examples
// by their ground-truth abnormality flag and are mutually exclusive; All
// includes everything.
type Subset string

const (
	SubsetAll      Subset = "all"
	SubsetNormal   Subset = "normal"
	SubsetAbnormal Subset = "abnormal"
)

// Subsets returns the three subsets in reporting order.
func Subsets() []Subset {
	return []Subset{SubsetAll, SubsetNormal, SubsetAbnormal}
}
