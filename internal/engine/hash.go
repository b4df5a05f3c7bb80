package engine

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// HashBytes returns the xxhash64 of each buffer as 16 hex digits.
func HashBytes(bufs [][]byte) []string {
	out := make([]string, len(bufs))
	for i, b := range bufs {
		out[i] = fmt.Sprintf("%016x", xxhash.Sum64(b))
	}
	return out
}
