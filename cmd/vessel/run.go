package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/burakkaraceylan/vessel/config"
	"github.com/burakkaraceylan/vessel/manifest"
	"github.com/burakkaraceylan/vessel/module"
	"github.com/burakkaraceylan/vessel/server"
	"github.com/burakkaraceylan/vessel/wasmhost"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the extension host",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		debug, _ := cmd.Flags().GetBool("debug")
		return runHost(configPath, debug)
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func runHost(configPath string, debug bool) error {
	log, err := newLogger(debug)
	if err != nil {
		return err
	}
	defer log.Sync()

	cfg, err := loadConfig(configPath, log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr := module.NewManager(log)
	loadModules(mgr, cfg, log)
	mgr.RunAll(ctx)

	srv := server.New(mgr, log)
	tcpAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	wsAddr := fmt.Sprintf("%s:%d", cfg.Host, cfg.WSPort)
	if err := srv.ListenAndServe(ctx, tcpAddr, wsAddr); err != nil {
		log.Error("wire endpoint failed", zap.Error(err))
		stop()
	}

	log.Info("shutting down")
	mgr.Wait()
	return nil
}

func loadConfig(path string, log *zap.Logger) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.Warn("config file missing, using defaults", zap.String("path", path))
		return config.Default(), nil
	}
	return config.Load(path)
}

// loadModules scans the modules directory and registers every loadable wasm
// module. Load failures are logged and skipped; one bad module never stops
// the host.
func loadModules(mgr *module.Manager, cfg *config.Config, log *zap.Logger) {
	entries, err := os.ReadDir(cfg.ModulesDir())
	if err != nil {
		// No modules directory yet is a normal first run.
		log.Info("no modules directory", zap.String("path", cfg.ModulesDir()))
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(cfg.ModulesDir(), entry.Name())
		if _, err := os.Stat(filepath.Join(dir, manifest.BinaryFile)); err != nil {
			continue
		}
		mod, err := wasmhost.Load(dir, cfg.ModuleStrings(entry.Name()), log)
		if err != nil {
			log.Error("failed to load wasm module", zap.String("path", dir), zap.Error(err))
			continue
		}
		if err := mgr.Register(mod); err != nil {
			log.Error("failed to register module", zap.String("module", mod.Name()), zap.Error(err))
			continue
		}
		log.Info("wasm module loaded",
			zap.String("module", mod.Name()),
			zap.String("version", mod.Manifest().Version))
	}
}
