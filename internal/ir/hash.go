package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// DomainSpec prefixes spec hashes. The version suffix allows future
// algorithm migration.
const DomainSpec = "relsync/spec/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SpecHash computes a content hash over a set of relation declarations.
// The hash does not depend on the order of specs.
func SpecHash(specs []RelationSpec) (string, error) {
	sorted := slices.Clone(specs)
	SortSpecs(sorted)

	arr := make(Array, len(sorted))
	for i, s := range sorted {
		arr[i] = s.ToValue()
	}

	canonical, err := MarshalCanonical(Object{
		"ir_version": String(IRVersion),
		"relations":  arr,
	})
	if err != nil {
		return "", fmt.Errorf("SpecHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainSpec, canonical), nil
}

// MustSpecHash is like SpecHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSpecHash(specs []RelationSpec) string {
	h, err := SpecHash(specs)
	if err != nil {
		panic(err)
	}
	return h
}
