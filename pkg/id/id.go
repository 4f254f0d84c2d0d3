// Package id mints ULID strings for records that arrive without one,
// such as rows from public trade archives. ULIDs sort by time, so
// minted IDs keep the same order as the data they label.
package id

import (
	cryptoRand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu   sync.Mutex
	mono io.Reader
)

func init() {
	// Seed a PRNG from crypto/rand so ULID entropy is unpredictable.
	// ulid.Monotonic keeps IDs minted within the same millisecond
	// lexicographically increasing.
	var seed int64
	_ = binary.Read(cryptoRand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	mono = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a ULID string stamped with the current time.
func New() string {
	return NewAt(time.Now().UTC())
}

// NewAt returns a ULID string stamped with t. Archive rows are minted
// with their own trade time so the IDs sort with the fills they label.
func NewAt(t time.Time) string {
	mu.Lock()
	defer mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(t), mono)
	if err != nil {
		// Only possible if entropy fails or t precedes the epoch.
		panic(err)
	}
	return id.String()
}
