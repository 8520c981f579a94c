// Package docnum generates record identifiers and user-facing document
// numbers for posted orders.
package docnum

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

const tokenAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ID returns a prefixed opaque identifier suitable for primary keys.
func ID(prefix string) string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s-%d-%s", prefix, time.Now().UnixNano(), hex.EncodeToString(buf))
}

// ForOrder returns a document number: prefix, the UTC date as YYYYMMDD,
// and a six character random token from [A-Z0-9]. Collisions are rare but
// possible; callers retry on a uniqueness violation.
func ForOrder(prefix string, at time.Time) string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to the nanosecond clock, still within the alphabet.
		nano := time.Now().UnixNano()
		for i := range buf {
			buf[i] = byte(nano >> (uint(i) * 8))
		}
	}
	token := make([]byte, len(buf))
	for i, b := range buf {
		token[i] = tokenAlphabet[int(b)%len(tokenAlphabet)]
	}
	return prefix + at.UTC().Format("20060102") + string(token)
}
