package host

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// StorageGet reads the per-module file for key. Absent keys and capability
// denials both return the empty option; a module without the storage grant
// simply sees no data.
func (s *Surface) StorageGet(ctx context.Context, key string) any {
	if s.caps.CheckStorage() != nil {
		return nil
	}
	name := sanitizeKey(key)
	if name == "" {
		return nil
	}
	data, err := os.ReadFile(filepath.Join(s.storageDir, name))
	if err != nil {
		return nil
	}
	return string(data)
}

// StorageSet writes the per-module file for key.
func (s *Surface) StorageSet(ctx context.Context, key, value string) map[string]any {
	if err := s.caps.CheckStorage(); err != nil {
		return failWith(err)
	}
	name := sanitizeKey(key)
	if name == "" {
		return fail("storage key must not be empty")
	}
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return failWith(err)
	}
	if err := os.WriteFile(filepath.Join(s.storageDir, name), []byte(value), 0o644); err != nil {
		return failWith(err)
	}
	return ok(nil)
}

// StorageDelete removes the per-module file for key. Deleting an absent key
// succeeds.
func (s *Surface) StorageDelete(ctx context.Context, key string) map[string]any {
	if err := s.caps.CheckStorage(); err != nil {
		return failWith(err)
	}
	name := sanitizeKey(key)
	if name == "" {
		return fail("storage key must not be empty")
	}
	if err := os.Remove(filepath.Join(s.storageDir, name)); err != nil && !os.IsNotExist(err) {
		return failWith(err)
	}
	return ok(nil)
}

// sanitizeKey converts a storage key to a safe filename: anything outside
// [A-Za-z0-9_-] becomes an underscore.
func sanitizeKey(key string) string {
	var b strings.Builder
	b.Grow(len(key))
	for _, c := range key {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '_', c == '-':
			b.WriteRune(c)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
