package cli

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ralph-run/ralph/internal/domain/repository"
	backlogrepo "github.com/ralph-run/ralph/internal/infra/repository/backlog"
)

func newResetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Clear all story statuses and retry counters",
		Long: "Marks every story pending again so the next run revisits the whole\n" +
			"backlog. The attempt ledger is kept as history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := backlogrepo.NewFileBacklogRepository(afero.NewOsFs(), globalConfig.BacklogPath())
			if err := resetBacklog(cmd.Context(), repo); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "backlog statuses cleared")
			return nil
		},
	}
}

func resetBacklog(ctx context.Context, repo repository.BacklogRepository) error {
	b, err := repo.Load(ctx)
	if err != nil {
		return err
	}
	b.ResetStatuses()
	return repo.Save(ctx, b)
}
