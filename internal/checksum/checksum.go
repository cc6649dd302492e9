package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
)

// Empty is the checksum of an absent file. It never equals the digest of
// any real file content.
const Empty = ""

// Sum computes the SHA256 hash of the file at path.
// A missing file yields Empty without an error; an existing file that
// cannot be read is an error (permissions fault or corruption, not a
// normal "not processed yet" case).
func Sum(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Empty, nil
		}
		return "", fmt.Errorf("failed to open %s for hashing: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}

	return hex.EncodeToString(h.Sum(nil)), nil
}
