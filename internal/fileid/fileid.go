// Package fileid derives stable keys for decoded documents.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const prefix = "content:"

// ContentID returns a key for content decoded as ext. The same bytes under the same
// extension always yield the same key, regardless of file name or location.
func ContentID(content []byte, ext string) string {
	h := sha256.New()
	h.Write([]byte(strings.ToLower(ext)))
	h.Write([]byte{0})
	h.Write(content)
	return prefix + hex.EncodeToString(h.Sum(nil))
}
