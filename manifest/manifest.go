// Package manifest loads and verifies module descriptors.
//
// A module directory holds manifest.json (identity and permissions),
// module.wasm (the component binary), and manifest.hash (tamper digest,
// written at install time). Load re-verifies the digest on every host start.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/burakkaraceylan/vessel/verrors"
)

// HostAPIVersion is the host's interface version. Manifests declaring a higher
// api_version are rejected at load. Add-only interface changes do not bump it.
const HostAPIVersion uint32 = 1

const (
	ManifestFile = "manifest.json"
	BinaryFile   = "module.wasm"
	HashFile     = "manifest.hash"
)

// Manifest is the immutable descriptor attached to each installed module.
type Manifest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	APIVersion  uint32      `json:"api_version"`
	Description string      `json:"description"`
	Author      string      `json:"author"`
	Permissions Permissions `json:"permissions"`
}

// Permissions declares every capability a module may use. Anything not listed
// here is denied at the host surface.
type Permissions struct {
	Subscribe []string           `json:"subscribe"`
	Call      []string           `json:"call"`
	Network   NetworkPermissions `json:"network"`
	Storage   bool               `json:"storage"`
	Timers    bool               `json:"timers"`
}

type NetworkPermissions struct {
	HTTP      bool `json:"http"`
	Websocket bool `json:"websocket"`
	TCP       bool `json:"tcp"`
}

// Load reads and validates a module manifest from dir. It verifies the
// tamper-detection hash if one is present and checks api_version
// compatibility. Modules that have never been hashed (hand-placed dev
// modules) load without verification.
func Load(dir string) (*Manifest, error) {
	manifestPath := filepath.Join(dir, ManifestFile)
	wasmPath := filepath.Join(dir, BinaryFile)
	hashPath := filepath.Join(dir, HashFile)

	manifestBytes, err := os.ReadFile(manifestPath)
	if err != nil {
		return nil, verrors.IO(verrors.PhaseLoad, "reading "+manifestPath, err)
	}
	wasmBytes, err := os.ReadFile(wasmPath)
	if err != nil {
		return nil, verrors.IO(verrors.PhaseLoad, "reading "+wasmPath, err)
	}

	if stored, err := os.ReadFile(hashPath); err == nil {
		computed := ComputeHash(manifestBytes, wasmBytes)
		if strings.TrimSpace(string(stored)) != computed {
			return nil, verrors.Tamper(dir)
		}
	} else if !os.IsNotExist(err) {
		return nil, verrors.IO(verrors.PhaseLoad, "reading "+hashPath, err)
	}

	var m Manifest
	if err := json.Unmarshal(manifestBytes, &m); err != nil {
		return nil, verrors.Malformed(verrors.PhaseLoad, "parsing "+manifestPath, err)
	}
	if m.ID == "" {
		return nil, verrors.New(verrors.PhaseLoad, verrors.KindMalformed).
			Detail("manifest missing id in %s", dir).Build()
	}
	if m.ID != filepath.Base(dir) {
		return nil, verrors.New(verrors.PhaseLoad, verrors.KindMalformed).
			Module(m.ID).
			Detail("manifest id '%s' does not match directory '%s'", m.ID, filepath.Base(dir)).
			Build()
	}

	if m.APIVersion > HostAPIVersion {
		return nil, verrors.Incompatible(m.ID, m.APIVersion, HostAPIVersion)
	}

	return &m, nil
}

// WriteHash writes the tamper-detection hash for a freshly installed module.
// Called at install time, after the admin has confirmed the declared
// permissions.
func WriteHash(dir string) error {
	manifestBytes, err := os.ReadFile(filepath.Join(dir, ManifestFile))
	if err != nil {
		return verrors.IO(verrors.PhaseLoad, "reading "+ManifestFile, err)
	}
	wasmBytes, err := os.ReadFile(filepath.Join(dir, BinaryFile))
	if err != nil {
		return verrors.IO(verrors.PhaseLoad, "reading "+BinaryFile, err)
	}
	hash := ComputeHash(manifestBytes, wasmBytes)
	if err := os.WriteFile(filepath.Join(dir, HashFile), []byte(hash), 0o644); err != nil {
		return verrors.IO(verrors.PhaseLoad, "writing "+HashFile, err)
	}
	return nil
}

// ComputeHash digests manifest-bytes followed by binary-bytes and returns the
// lowercase hex form.
func ComputeHash(manifest, wasm []byte) string {
	h := sha256.New()
	h.Write(manifest)
	h.Write(wasm)
	return hex.EncodeToString(h.Sum(nil))
}
