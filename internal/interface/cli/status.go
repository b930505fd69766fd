package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ralph-run/ralph/internal/domain/repository"
	backlogrepo "github.com/ralph-run/ralph/internal/infra/repository/backlog"
	ledgerrepo "github.com/ralph-run/ralph/internal/infra/repository/ledger"
)

func newStatusCmd() *cobra.Command {
	var tailSize int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Summarize backlog progress and recent attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalConfig
			fs := afero.NewOsFs()
			out := cmd.OutOrStdout()

			repo := backlogrepo.NewFileBacklogRepository(fs, cfg.BacklogPath())
			b, err := repo.Load(cmd.Context())
			if err != nil {
				if errors.Is(err, repository.ErrMalformedBacklog) {
					return fmt.Errorf("backlog unusable: %w (run 'ralph init' to scaffold one)", err)
				}
				return err
			}

			pending, passed, failed := b.CountByStatus()
			fmt.Fprintf(out, "Branch: %s\n", b.BranchName)
			fmt.Fprintf(out, "Stories: %d total, %d pending, %d passed, %d failed\n",
				len(b.Stories), pending, passed, failed)

			for _, s := range b.Stories {
				marker := " "
				switch {
				case s.Status.IsResolved():
					marker = "x"
				case b.NextEligible() == s:
					marker = ">"
				}
				fmt.Fprintf(out, "  [%s] %s (priority %d, %s", marker, s.ID, s.Priority, s.Status)
				if s.RetryCount > 0 {
					fmt.Fprintf(out, ", %d attempts", s.RetryCount)
				}
				fmt.Fprintf(out, ") %s\n", s.Title)
			}

			ledger := ledgerrepo.NewFileLedgerRepository(fs, cfg.LedgerPath(), GetLogger().Warn)
			tail, err := ledger.Tail(cmd.Context(), tailSize)
			if err != nil {
				return err
			}
			if len(tail) == 0 {
				fmt.Fprintln(out, "\nNo attempts recorded yet")
				return nil
			}

			fmt.Fprintf(out, "\nLast %d attempt(s):\n", len(tail))
			for _, a := range tail {
				fmt.Fprintf(out, "  %s  %s attempt %d: %s",
					a.Timestamp.Format("2006-01-02 15:04:05"), a.StoryID, a.AttemptNumber, a.Outcome)
				if a.Diagnostics != "" {
					fmt.Fprintf(out, " (%s)", firstLine(a.Diagnostics))
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&tailSize, "tail", 5, "How many recent attempts to show")
	return cmd
}

// firstLine trims diagnostics to a single display line
func firstLine(s string) string {
	for i, r := range s {
		if r == '\n' {
			return s[:i] + "..."
		}
		if i > 120 {
			return s[:i] + "..."
		}
	}
	return s
}
