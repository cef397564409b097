// Package random generates the opaque hashes used as public share links.
package random

import (
	"crypto/rand"
	"math/big"

	"github.com/pkg/errors"
)

const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// String returns a random string of fixed length. Share hashes are the only
// credential guarding public snapshots, so entropy comes from crypto/rand.
func String(length int) (string, error) {
	max := big.NewInt(int64(len(charset)))
	b := make([]byte, length)
	for i := range b {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", errors.Wrap(err, "read random")
		}
		b[i] = charset[n.Int64()]
	}
	return string(b), nil
}
