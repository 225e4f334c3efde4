package store

import (
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// Key derives the stable 64-bit identifier for content.
func Key(content string) uint64 {
	return xxhash.Sum64String(content)
}

// EntryName is the file or row name used for a key.
func EntryName(key uint64) string {
	return fmt.Sprintf("cache_%d.txt", key)
}
