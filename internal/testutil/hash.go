package testutil

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"testing"
)

// TreeDigest returns a SHA-256 over every path and file content under
// root, in sorted order. Two trees with the same digest have the same
// structure and the same bytes in every file.
func TreeDigest(t *testing.T, root string) string {
	t.Helper()
	tree := ReadTree(t, root)
	keys := make([]string, 0, len(tree))
	for k := range tree {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	h := sha256.New()
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{0})
		h.Write([]byte(tree[k]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
