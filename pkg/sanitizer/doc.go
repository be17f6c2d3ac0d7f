// Package sanitizer provides input normalization for data arriving from the
// messaging transport and from model-generated tool arguments.
//
// All normalization functions are idempotent: applying them multiple times
// produces the same result. Invalid input yields an empty string rather than
// an error; callers decide whether empty is acceptable.
//
// Normalization includes:
//   - Phone numbers: digits only, leading zeros stripped ("+39 0347-123" becomes "39347123")
//   - Names: whitespace collapsed, trimmed, capped in length
//   - Service codes: trimmed and lowercased
package sanitizer
