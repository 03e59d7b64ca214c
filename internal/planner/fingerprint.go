package planner

import (
	"encoding/binary"
	"fmt"

	"github.com/zeebo/xxh3"

	"bindery/internal/book"
)

// Fingerprint hashes a chunk's ordered item identities, their best-known
// sizes, and the chunk title into a 16 hex character digest. The sync engine
// compares fingerprints to decide whether a chunk needs re-upload, so the
// digest must be stable across process restarts for identical inputs.
func Fingerprint(items []book.Item, title string) string {
	h := xxh3.New()
	var buf [8]byte
	for _, item := range items {
		_, _ = h.WriteString(item.ID)
		_, _ = h.Write([]byte{0})
		binary.LittleEndian.PutUint64(buf[:], uint64(item.BestKnownSize()))
		_, _ = h.Write(buf[:])
	}
	_, _ = h.WriteString(title)
	return fmt.Sprintf("%016x", h.Sum64())
}
