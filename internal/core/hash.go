package core

import (
	"encoding/hex"
	"fmt"
	"os"

	"lukechampine.com/blake3"
)

// ComputeFileHash returns the BLAKE3 hex digest of the file's bytes. The
// digest is the content identity recorded in the manifest.
func ComputeFileHash(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// HashBytes returns the BLAKE3 hex digest of a byte slice.
func HashBytes(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
