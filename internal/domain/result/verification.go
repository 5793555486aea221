package result

import (
	"crypto/sha256"
	"encoding/hex"
)

// VerificationHash is printed on reports so a reader can check a copy
// against the lab: the first 16 hex characters of
// SHA-256(resultID + UHID + sample code).
func VerificationHash(resultID, uhid, sampleCode string) string {
	sum := sha256.Sum256([]byte(resultID + uhid + sampleCode))
	return hex.EncodeToString(sum[:])[:16]
}
