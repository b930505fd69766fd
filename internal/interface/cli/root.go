package cli

import (
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ralph-run/ralph/internal/app/config"
	infraConfig "github.com/ralph-run/ralph/internal/infra/config"
	"github.com/ralph-run/ralph/internal/interface/cli/version"
)

// globalConfig holds the loaded configuration for all commands
var globalConfig config.Config

func NewRoot() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ralph",
		Short: "Autonomous implementation loop",
		Long: "ralph drains a backlog of stories by repeatedly invoking a code\n" +
			"generation backend, applying its mutations, validating the working\n" +
			"tree, and committing the result.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Priority: setting.yaml > ENV > defaults
			baseDir := infraConfig.DefaultHome
			if home := os.Getenv("RALPH_HOME"); home != "" {
				baseDir = home
			}

			cfg, err := infraConfig.LoadSettings(afero.NewOsFs(), baseDir)
			if err != nil {
				return err
			}
			globalConfig = cfg
			InitGlobalLogger(cfg.StderrLevel())
			return nil
		},
		RunE: func(c *cobra.Command, _ []string) error { return c.Help() },
	}
	cmd.AddCommand(newInitCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newResetCmd())
	cmd.AddCommand(version.NewCommand())
	return cmd
}
