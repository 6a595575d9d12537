// Package uuid generates UUIDv7 identifiers for database primary keys.
package uuid

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"

	googleuuid "github.com/google/uuid"
)

// New generates a time-ordered UUIDv7 string. The leading 48 bits carry
// the Unix millisecond timestamp, so freshly created rows sort by
// creation time under a plain index scan.
func New() string {
	var id [16]byte

	ms := uint64(time.Now().UnixMilli())
	binary.BigEndian.PutUint64(id[0:8], ms<<16)

	if _, err := rand.Read(id[6:]); err != nil {
		// Extremely unlikely; fall back to a random UUIDv4.
		return googleuuid.New().String()
	}

	id[6] = (id[6] & 0x0f) | 0x70 // version 7
	id[8] = (id[8] & 0x3f) | 0x80 // RFC 4122 variant

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%012x",
		binary.BigEndian.Uint32(id[0:4]),
		binary.BigEndian.Uint16(id[4:6]),
		binary.BigEndian.Uint16(id[6:8]),
		binary.BigEndian.Uint16(id[8:10]),
		id[10:16],
	)
}

// IsValid reports whether s parses as a UUID.
func IsValid(s string) bool {
	_, err := googleuuid.Parse(s)
	return err == nil
}
