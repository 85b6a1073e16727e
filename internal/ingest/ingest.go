package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
)

// Source reads document bytes by locator. Locators are opaque to the
// pipeline: a file path for FSSource, an object key for MinioSource.
type Source interface {
	Read(ctx context.Context, locator string) ([]byte, error)
	// List returns every document locator currently available, sorted.
	List(ctx context.Context) ([]string, error)
	Name() string
}

// DirStats summarizes a directory listing.
type DirStats struct {
	Scanned uint32
	Matched uint32
	Hidden  uint32
	Failed  uint32
}

// ContentHash is the hex sha256 of a document, used for dedupe in the ledger.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
