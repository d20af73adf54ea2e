package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainDocument = "loadout/document/v" + DocumentVersion
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DocumentHash returns the content hash of a document's canonical form.
// Structurally equal documents hash identically.
func DocumentHash(doc Document) (string, error) {
	canonical, err := doc.Canonical()
	if err != nil {
		return "", fmt.Errorf("DocumentHash: %w", err)
	}
	return hashWithDomain(DomainDocument, canonical), nil
}

// MustDocumentHash is like DocumentHash but panics on error.
// Only for tests and documents built from trusted catalog data.
func MustDocumentHash(doc Document) string {
	h, err := DocumentHash(doc)
	if err != nil {
		panic(err)
	}
	return h
}

// CanonicalDocumentHash hashes bytes already produced by Document.Canonical.
func CanonicalDocumentHash(canonical []byte) string {
	return hashWithDomain(DomainDocument, canonical)
}
