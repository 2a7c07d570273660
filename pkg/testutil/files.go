package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile writes body to name under a fresh temp dir and returns the path.
func WriteFile(t testing.TB, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
