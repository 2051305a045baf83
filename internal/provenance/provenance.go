// Package provenance derives the content pointers recorded on token batches.
package provenance

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentHash returns the CIDv0 of the sha2-256 digest of batchID. The result
// is always 46 characters and starts with "Qm".
func ContentHash(batchID string) (string, error) {
	mh, err := multihash.Sum([]byte(batchID), multihash.SHA2_256, -1)
	if err != nil {
		return "", fmt.Errorf("hashing batch id: %w", err)
	}
	return cid.NewCidV0(mh).String(), nil
}

// Verify reports whether hash is the content hash of batchID.
func Verify(batchID, hash string) bool {
	c, err := cid.Decode(hash)
	if err != nil {
		return false
	}
	want, err := ContentHash(batchID)
	if err != nil {
		return false
	}
	return c.String() == want
}
