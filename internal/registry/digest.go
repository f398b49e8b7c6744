package registry

import (
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/blake2b"
)

// ReadWithDigest reads all of r while computing its BLAKE2b-256 digest.
// Returns the content and the lower-case hex digest.
func ReadWithDigest(r io.Reader) ([]byte, string, error) {
	h, err := blake2b.New256(nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create hash: %w", err)
	}

	data, err := io.ReadAll(io.TeeReader(r, h))
	if err != nil {
		return nil, "", fmt.Errorf("failed to read feed: %w", err)
	}

	return data, hex.EncodeToString(h.Sum(nil)), nil
}

// Digest returns the lower-case hex BLAKE2b-256 digest of data
func Digest(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}
