package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/burakkaraceylan/vessel/verrors"
)

const validManifest = `{
	"id": "weather",
	"name": "Weather",
	"version": "0.2.1",
	"api_version": 1,
	"description": "Weather widgets",
	"author": "someone",
	"permissions": {
		"subscribe": ["system.window.*"],
		"call": ["discord.voice.set_mute@1"],
		"network": {"http": true},
		"storage": true,
		"timers": true
	}
}`

func writeModule(t *testing.T, id, manifest string, wasm []byte) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, BinaryFile), wasm, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadValid(t *testing.T) {
	dir := writeModule(t, "weather", validManifest, []byte{0x00, 0x61, 0x73, 0x6d})

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.ID != "weather" || m.APIVersion != 1 {
		t.Errorf("unexpected identity: %+v", m)
	}
	if !m.Permissions.Storage || !m.Permissions.Timers {
		t.Error("permissions not parsed")
	}
	if len(m.Permissions.Subscribe) != 1 || m.Permissions.Subscribe[0] != "system.window.*" {
		t.Errorf("subscribe patterns: %v", m.Permissions.Subscribe)
	}
	if !m.Permissions.Network.HTTP || m.Permissions.Network.Websocket {
		t.Errorf("network flags: %+v", m.Permissions.Network)
	}
}

func TestLoadMalformed(t *testing.T) {
	dir := writeModule(t, "weather", `{"id": `, []byte{1})

	_, err := Load(dir)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindMalformed).Build()) {
		t.Fatalf("want malformed, got %v", err)
	}
}

func TestLoadMissingBinary(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "weather")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ManifestFile), []byte(validManifest), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindIO).Build()) {
		t.Fatalf("want io error, got %v", err)
	}
}

func TestLoadAPIVersionTooHigh(t *testing.T) {
	m := `{"id":"future","name":"f","version":"1.0.0","api_version":99,"permissions":{}}`
	dir := writeModule(t, "future", m, []byte{1})

	_, err := Load(dir)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindIncompatible).Build()) {
		t.Fatalf("want incompatible, got %v", err)
	}
}

func TestLoadIDMismatch(t *testing.T) {
	dir := writeModule(t, "not-weather", validManifest, []byte{1})

	_, err := Load(dir)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindMalformed).Build()) {
		t.Fatalf("want malformed, got %v", err)
	}
}

// Every load of an installed module succeeds while the stored hash matches and
// fails with a tamper error once any byte changes.
func TestHashRoundTripAndTamper(t *testing.T) {
	wasm := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	dir := writeModule(t, "weather", validManifest, wasm)

	if err := WriteHash(dir); err != nil {
		t.Fatalf("write hash: %v", err)
	}
	if _, err := Load(dir); err != nil {
		t.Fatalf("load after install: %v", err)
	}

	// Flip one bit in the binary.
	wasm[4] ^= 0x01
	if err := os.WriteFile(filepath.Join(dir, BinaryFile), wasm, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindTamper).Build()) {
		t.Fatalf("want tamper, got %v", err)
	}
}

func TestLoadWithoutHashSkipsVerification(t *testing.T) {
	dir := writeModule(t, "weather", validManifest, []byte{1, 2, 3})
	if _, err := Load(dir); err != nil {
		t.Fatalf("hash-less module should load: %v", err)
	}
}

func TestComputeHashStableLength(t *testing.T) {
	h1 := ComputeHash([]byte("a"), []byte("b"))
	h2 := ComputeHash([]byte("ab"), nil)
	if len(h1) != 64 || len(h2) != 64 {
		t.Errorf("hash length: %d, %d", len(h1), len(h2))
	}
	// The digest runs over the concatenated bytes, so the boundary between the
	// two inputs does not matter but the content does.
	if h1 != h2 {
		t.Error("hash should cover the concatenated inputs")
	}
	if h1 == ComputeHash([]byte("a"), []byte("c")) {
		t.Error("different binary must change the hash")
	}
}
