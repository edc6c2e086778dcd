package wasmhost

import (
	"context"
	"os"
	"path/filepath"

	"github.com/wippyai/wasm-runtime/runtime"
	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/capability"
	"github.com/burakkaraceylan/vessel/host"
	"github.com/burakkaraceylan/vessel/manifest"
	"github.com/burakkaraceylan/vessel/module"
	"github.com/burakkaraceylan/vessel/verrors"
)

// StorageSubdir is the per-module keyed-file directory inside a module's
// install directory.
const StorageSubdir = "storage"

// WasmModule is one installed wasm extension. It conforms to the same Module
// interface as native modules and is registered with the manager like any
// other.
type WasmModule struct {
	man    *manifest.Manifest
	dir    string
	config map[string]string
	log    *zap.Logger
}

// Load validates the module at dir (manifest shape, api version, tamper hash)
// and prepares it for registration. config is the admin's string-coerced
// [modules.<id>] table.
func Load(dir string, config map[string]string, log *zap.Logger) (*WasmModule, error) {
	if log == nil {
		log = zap.NewNop()
	}
	man, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}
	if config == nil {
		config = map[string]string{}
	}
	return &WasmModule{
		man:    man,
		dir:    dir,
		config: config,
		log:    log.With(zap.String("module", man.ID)),
	}, nil
}

func (m *WasmModule) Name() string {
	return m.man.ID
}

// Manifest returns the module's immutable descriptor.
func (m *WasmModule) Manifest() *manifest.Manifest {
	return m.man
}

// Run instantiates the component and drives its dispatch loop until ctx is
// cancelled or the guest faults.
func (m *WasmModule) Run(ctx context.Context, mc module.Context) error {
	storageDir := filepath.Join(m.dir, StorageSubdir)
	if err := os.MkdirAll(storageDir, 0o755); err != nil {
		return verrors.IO(verrors.PhaseLoad, "creating "+storageDir, err)
	}

	// runCtx bounds every resource the instance spawns; cancelled on any exit
	// path so timer tasks and socket pumps never outlive the instance.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	surface := host.NewSurface(runCtx, host.Options{
		ModuleID:   m.man.ID,
		Caps:       capability.New(&m.man.Permissions),
		Publisher:  mc.Publisher,
		StorageDir: storageDir,
		Config:     m.config,
		Logger:     m.log,
	})

	rt, err := runtime.New(ctx)
	if err != nil {
		return verrors.New(verrors.PhaseLoad, verrors.KindIO).
			Module(m.man.ID).Detail("creating runtime").Cause(err).Build()
	}
	defer rt.Close(ctx)

	if err := rt.RegisterHost(surface); err != nil {
		return verrors.New(verrors.PhaseLoad, verrors.KindInvalidInput).
			Module(m.man.ID).Detail("registering host surface").Cause(err).Build()
	}

	wasmBytes, err := os.ReadFile(filepath.Join(m.dir, manifest.BinaryFile))
	if err != nil {
		return verrors.IO(verrors.PhaseLoad, "reading "+manifest.BinaryFile, err)
	}
	comp, err := rt.LoadComponent(ctx, wasmBytes)
	if err != nil {
		return verrors.Malformed(verrors.PhaseLoad, "loading component", err)
	}
	inst, err := comp.Instantiate(ctx)
	if err != nil {
		return verrors.New(verrors.PhaseLoad, verrors.KindMalformed).
			Module(m.man.ID).Detail("instantiating component").Cause(err).Build()
	}
	defer inst.Close(ctx)

	g := &componentGuest{moduleID: m.man.ID, inst: inst}
	return m.dispatch(runCtx, g, surface, mc)
}
