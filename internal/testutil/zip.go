package testutil

import (
	"archive/zip"
	"os"
	"sort"
	"strings"
	"testing"
	"time"
)

// WriteZip writes a zip archive at path holding entries in the format
// accepted by WriteTree. Entries are written in sorted order.
func WriteZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()

	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating zip: %v", err)
	}
	defer f.Close()

	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	zw := zip.NewWriter(f)
	modified := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for _, name := range names {
		hdr := &zip.FileHeader{Name: name, Method: zip.Deflate, Modified: modified}
		if strings.HasSuffix(name, "/") {
			hdr.SetMode(os.ModeDir | 0755)
		} else {
			hdr.SetMode(0644)
		}
		w, err := zw.CreateHeader(hdr)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if !strings.HasSuffix(name, "/") {
			if _, err := w.Write([]byte(entries[name])); err != nil {
				t.Fatalf("writing %s: %v", name, err)
			}
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip: %v", err)
	}
}
