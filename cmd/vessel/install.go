package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/burakkaraceylan/vessel/manifest"
)

var installCmd = &cobra.Command{
	Use:   "install <module-dir>",
	Short: "Confirm a module's permissions and write its tamper hash",
	Long: `Reads the manifest in <module-dir>, prints the permissions the module
declares, and after confirmation writes manifest.hash next to the binary.
The host refuses to load the module if manifest or binary change afterwards.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes, _ := cmd.Flags().GetBool("yes")
		return installModule(args[0], yes)
	},
}

var hashCmd = &cobra.Command{
	Use:   "hash <module-dir>",
	Short: "Print the current tamper hash of a module directory",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manifestBytes, err := os.ReadFile(filepath.Join(args[0], manifest.ManifestFile))
		if err != nil {
			return err
		}
		wasmBytes, err := os.ReadFile(filepath.Join(args[0], manifest.BinaryFile))
		if err != nil {
			return err
		}
		fmt.Println(manifest.ComputeHash(manifestBytes, wasmBytes))
		return nil
	},
}

func init() {
	installCmd.Flags().BoolP("yes", "y", false, "Skip the confirmation prompt")
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(hashCmd)
}

func installModule(dir string, yes bool) error {
	raw, err := os.ReadFile(filepath.Join(dir, manifest.ManifestFile))
	if err != nil {
		return err
	}
	var man manifest.Manifest
	if err := json.Unmarshal(raw, &man); err != nil {
		return fmt.Errorf("parsing manifest: %w", err)
	}

	fmt.Printf("Module:  %s (%s %s)\n", man.ID, man.Name, man.Version)
	if man.Author != "" {
		fmt.Printf("Author:  %s\n", man.Author)
	}
	fmt.Println("Declared permissions:")
	printPermissions(&man.Permissions)

	if !yes {
		fmt.Print("Write tamper hash for these permissions? [y/N] ")
		line, _ := bufio.NewReader(os.Stdin).ReadString('\n')
		if answer := strings.ToLower(strings.TrimSpace(line)); answer != "y" && answer != "yes" {
			fmt.Println("aborted")
			return nil
		}
	}

	if err := manifest.WriteHash(dir); err != nil {
		return err
	}
	fmt.Println("hash written")
	return nil
}

func printPermissions(p *manifest.Permissions) {
	if len(p.Subscribe) == 0 && len(p.Call) == 0 &&
		!p.Network.HTTP && !p.Network.Websocket && !p.Network.TCP &&
		!p.Storage && !p.Timers {
		fmt.Println("  (none)")
		return
	}
	for _, s := range p.Subscribe {
		fmt.Printf("  subscribe  %s\n", s)
	}
	for _, c := range p.Call {
		fmt.Printf("  call       %s\n", c)
	}
	if p.Network.HTTP {
		fmt.Println("  network    http")
	}
	if p.Network.Websocket {
		fmt.Println("  network    websocket")
	}
	if p.Network.TCP {
		fmt.Println("  network    tcp")
	}
	if p.Storage {
		fmt.Println("  storage")
	}
	if p.Timers {
		fmt.Println("  timers")
	}
}
