package types

import (
	"crypto/sha256"
	"encoding/binary"
)

// Domain prefixes for hashed identities.
// Version suffix enables future algorithm migration.
const (
	DomainEntityPath = "strata/entity-path/v1"
	DomainComponent  = "strata/component/v1"
)

// hashWithDomain computes a 64-bit hash with domain separation.
// Format: first 8 bytes of SHA256(domain + 0x00 + data), big endian.
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) uint64 {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return binary.BigEndian.Uint64(h.Sum(nil)[:8])
}
