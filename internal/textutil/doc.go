// Package textutil provides the text scoring used by the aligners and small
// helpers for building filesystem-safe names.
//
// The primary use cases are:
//   - Scoring two strings on a normalized [0,1] scale (Levenshtein ratio, or
//     token Jaccard as the fallback scorer)
//   - Tokenizing text into lowercase word tokens
//   - Sanitizing episode and run identifiers for use in file names
//
// Callers depend on the Scorer interface and never learn which
// implementation produced a score.
package textutil
