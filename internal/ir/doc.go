// Package ir holds the canonical intermediate representation of relation
// declarations.
//
// The compiler produces ir values from CUE; relation.Build and the code
// generator consume them. ir imports nothing internal.
//
// Key constraints:
//   - Values are limited to strings, int64, bools, arrays and objects (no floats, no null)
//   - Canonical JSON follows RFC 8785 with NFC-normalised strings
//   - All JSON tags use snake_case
package ir
