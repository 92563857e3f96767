// Package analytics computes the descriptive statistics behind the
// dashboard views: per-series summaries and radar snapshots over a
// correlation range, and peer-bucket comparisons for stress and exposure
// snapshots.
//
// All functions are pure. Inputs are never modified and results are
// freshly allocated. Missing observations (NaN) are skipped the same way
// a spreadsheet AVERAGE skips blanks. Statistics over an empty set are
// NaN rather than errors, and domain.Float renders them as JSON null.
//
// # Quantiles
//
// Bucket quartiles use linear interpolation between closest ranks
// (Hyndman and Fan type 7): for sorted x of length n the p-quantile is
// x[h] + (h-floor(h))*(x[h+1]-x[h]) with h = (n-1)p. For peers
// [10, 20, 30, 40] this gives q25 = 17.5, median = 25, q75 = 32.5.
package analytics
