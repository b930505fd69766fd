package cli

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	infraConfig "github.com/ralph-run/ralph/internal/infra/config"
)

//go:embed templates/backlog.yaml.tmpl
var backlogTmpl string

func newInitCmd() *cobra.Command {
	var dir string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a .ralph directory with a sample backlog",
		RunE: func(c *cobra.Command, _ []string) error {
			if dir == "" {
				dir = "."
			}

			home := filepath.Join(dir, infraConfig.DefaultHome)
			if err := os.MkdirAll(home, 0o755); err != nil {
				return fmt.Errorf("failed to create %s: %w", home, err)
			}

			backlogPath := filepath.Join(home, "backlog.yaml")
			if err := writeIfNotExists(backlogPath, []byte(backlogTmpl)); err != nil {
				return err
			}

			settingPath := filepath.Join(home, "setting.yaml")
			if err := writeIfNotExists(settingPath, infraConfig.CreateDefaultSettings()); err != nil {
				return err
			}

			out := c.OutOrStdout()
			fmt.Fprintln(out, "Initialized:")
			fmt.Fprintf(out, "  %s\n", backlogPath)
			fmt.Fprintf(out, "  %s\n", settingPath)
			fmt.Fprintln(out, "Edit the backlog, then start with: ralph run")
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Target directory (default current)")
	return cmd
}

// writeIfNotExists writes a file only when it is absent, so init never
// clobbers an existing setup.
func writeIfNotExists(path string, content []byte) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(os.Stderr, "skip %s (already exists)\n", path)
		return nil
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
