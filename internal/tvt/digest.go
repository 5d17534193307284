package tvt

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content digests.
// Version suffix enables future algorithm migration.
const (
	DomainValue    = "docforge/value/v1"
	DomainSession  = "docforge/session/v1"
	DomainArtifact = "docforge/artifact/v1"
)

// HashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Digest computes the content digest of a value over its compact JSON form.
// Mapping order is part of the identity: {a,b} and {b,a} differ.
func Digest(v Value) (string, error) {
	data, err := EncodeJSON(v, "")
	if err != nil {
		return "", fmt.Errorf("digest: %w", err)
	}
	return HashWithDomain(DomainValue, data), nil
}
