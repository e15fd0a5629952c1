package keys

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	t.Setenv("PROMPTPIX_CONFIG_DIR", t.TempDir())

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	return store
}

func TestStore_SetAndGet(t *testing.T) {
	store := testStore(t)

	if err := store.Set("gemini", "test-key-12345"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	got, err := store.Get("gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "test-key-12345" {
		t.Errorf("Get() = %q, want %q", got, "test-key-12345")
	}
}

func TestStore_GetMissing(t *testing.T) {
	store := testStore(t)

	got, err := store.Get("gemini")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got != "" {
		t.Errorf("Get() = %q, want empty for missing key", got)
	}
}

func TestStore_Delete(t *testing.T) {
	store := testStore(t)

	if err := store.Set("gemini", "key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Delete("gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	got, _ := store.Get("gemini")
	if got != "" {
		t.Errorf("Get() after delete = %q, want empty", got)
	}
}

func TestStore_DeleteMissing(t *testing.T) {
	store := testStore(t)

	if err := store.Delete("gemini"); err == nil {
		t.Error("Delete() error = nil for missing key, want error")
	}
}

func TestStore_List(t *testing.T) {
	store := testStore(t)

	if err := store.Set("gemini", "k1"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("other", "k2"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	providers, err := store.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(providers) != 2 {
		t.Errorf("List() returned %d providers, want 2", len(providers))
	}
}

func TestStore_FilePermissions(t *testing.T) {
	store := testStore(t)

	if err := store.Set("gemini", "secret"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	info, err := os.Stat(store.Path())
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("keys.json permissions = %o, want 0600", perm)
	}
}

func TestStore_CorruptKeysFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("PROMPTPIX_CONFIG_DIR", dir)

	if err := os.WriteFile(filepath.Join(dir, "keys.json"), []byte("{bad json"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if _, err := store.Get("gemini"); err == nil {
		t.Error("Get() error = nil for corrupt keys file, want error")
	}
}

func TestMaskKey(t *testing.T) {
	tests := []struct {
		name string
		key  string
		want string
	}{
		{"long key", "abcd1234efgh5678", "abcd********5678"},
		{"short key", "abc", "***"},
		{"exactly eight", "12345678", "********"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MaskKey(tt.key); got != tt.want {
				t.Errorf("MaskKey(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestGetAPIKey_Priority(t *testing.T) {
	t.Setenv("PROMPTPIX_CONFIG_DIR", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "env-key")

	store, err := NewStore()
	if err != nil {
		t.Fatalf("NewStore() error = %v", err)
	}
	if err := store.Set("gemini", "stored-key"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	// 1. explicit flag wins
	key, source, err := GetAPIKey("flag-key", "gemini", "GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "flag-key" || !strings.Contains(source, "flag") {
		t.Errorf("GetAPIKey() = %q from %q, want flag key", key, source)
	}

	// 2. stored key beats env
	key, source, err = GetAPIKey("", "gemini", "GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "stored-key" || !strings.Contains(source, "stored") {
		t.Errorf("GetAPIKey() = %q from %q, want stored key", key, source)
	}

	// 3. env fallback
	if err := store.Delete("gemini"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	key, source, err = GetAPIKey("", "gemini", "GEMINI_API_KEY")
	if err != nil {
		t.Fatalf("GetAPIKey() error = %v", err)
	}
	if key != "env-key" || !strings.Contains(source, "GEMINI_API_KEY") {
		t.Errorf("GetAPIKey() = %q from %q, want env key", key, source)
	}
}

func TestGetAPIKey_Missing(t *testing.T) {
	t.Setenv("PROMPTPIX_CONFIG_DIR", t.TempDir())
	t.Setenv("GEMINI_API_KEY", "")

	_, _, err := GetAPIKey("", "gemini", "GEMINI_API_KEY")
	if err == nil {
		t.Error("GetAPIKey() error = nil, want error when no key available")
	}
}
