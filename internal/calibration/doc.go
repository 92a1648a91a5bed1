// Package calibration turns raw embedding similarity into a calibrated
// percentage.
//
// A query and a small corpus are decorrelated together ("all-but-the-top":
// global mean-centering, removal of the dominant direction, L2
// renormalization). The median pairwise similarity inside the corpus is used
// as the floor for unrelated texts, and each query/corpus cosine is mapped
// affinely from [baseline, 1] onto [lo, hi].
//
// Because centering and direction removal are computed over the query and
// the corpus jointly, the score of a given query/text pair depends on the
// rest of the corpus it is compared against. This coupling is intentional:
// it keeps the baseline and the per-item cosines in the same space.
//
// Everything in this package is a pure function of its inputs. Nothing is
// cached between calls and concurrent use with different corpora is safe.
package calibration
