package wasmhost

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/burakkaraceylan/vessel/manifest"
	"github.com/burakkaraceylan/vessel/verrors"
)

func writeInstalledModule(t *testing.T, id string) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	man := `{"id":"` + id + `","name":"Test","version":"1.0.0","api_version":1,"permissions":{"timers":true}}`
	if err := os.WriteFile(filepath.Join(dir, manifest.ManifestFile), []byte(man), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, manifest.BinaryFile), []byte{0x00, 0x61, 0x73, 0x6d}, 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadValidModule(t *testing.T) {
	dir := writeInstalledModule(t, "clock")

	m, err := Load(dir, map[string]string{"tz": "UTC"}, nil)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if m.Name() != "clock" {
		t.Errorf("name: %s", m.Name())
	}
	if !m.Manifest().Permissions.Timers {
		t.Error("permissions not carried")
	}
}

func TestLoadRejectsTamperedModule(t *testing.T) {
	dir := writeInstalledModule(t, "clock")
	if err := manifest.WriteHash(dir); err != nil {
		t.Fatal(err)
	}
	// Corrupt the binary after install.
	if err := os.WriteFile(filepath.Join(dir, manifest.BinaryFile), []byte{0xff}, 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir, nil, nil)
	if !errors.Is(err, verrors.New(verrors.PhaseLoad, verrors.KindTamper).Build()) {
		t.Fatalf("want tamper rejection, got %v", err)
	}
}

func TestLoadRejectsMissingDirectory(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "ghost"), nil, nil); err == nil {
		t.Fatal("missing module directory must fail")
	}
}
