// Package id allocates monotonic, lexicographically sortable identifiers.
//
// Every identifier carries a 3-letter prefix (ses, msg, prt, mem, shr, ...)
// followed by an underscore and a 128-bit ULID component. Because the ULID
// component is generated from a single monotonic entropy source, two IDs
// minted in the same process in creation order always compare a < b as
// strings, even when minted within the same millisecond. This ordering
// property is the sole oracle storage.List relies on for chronological
// listing.
package id

import (
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

const (
	Session = "ses"
	Message = "msg"
	Part    = "prt"
	Memory  = "mem"
	Share   = "shr"
	Project = "prj"
)

var (
	mu     sync.Mutex
	source = ulid.Monotonic(nil, 0)
)

// New returns a fresh identifier with the given 3-letter prefix.
func New(prefix string) string {
	mu.Lock()
	defer mu.Unlock()
	u := ulid.MustNew(ulid.Timestamp(time.Now()), source)
	return prefix + "_" + u.String()
}

// Clock returns the current wall-clock time in UTC milliseconds since epoch.
func Clock() int64 {
	return time.Now().UnixMilli()
}
