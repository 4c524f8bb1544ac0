// Package ids generates lexicographically sortable identifiers (ULIDs) for
// records whose creation order is semantically meaningful, such as role
// assignments ("first by assignment id") and approval requests.
package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a 26-character ULID. IDs generated later always sort after IDs
// generated earlier, so ordering rows by id is ordering them by creation.
func New() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}
