package cli

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/ralph-run/ralph/internal/adapter/gateway/agent"
	"github.com/ralph-run/ralph/internal/adapter/gateway/learning"
	"github.com/ralph-run/ralph/internal/adapter/gateway/vcs"
	"github.com/ralph-run/ralph/internal/application/port/output"
	"github.com/ralph-run/ralph/internal/application/service"
	"github.com/ralph-run/ralph/internal/application/usecase/execution"
	"github.com/ralph-run/ralph/internal/infra/fs"
	backlogrepo "github.com/ralph-run/ralph/internal/infra/repository/backlog"
	ledgerrepo "github.com/ralph-run/ralph/internal/infra/repository/ledger"
	"github.com/ralph-run/ralph/internal/infra/validation"
	"github.com/ralph-run/ralph/internal/infra/workspace"
	"github.com/ralph-run/ralph/internal/infrastructure/parser"
)

func newRunCmd() *cobra.Command {
	var (
		maxRetries       int
		resetFirst       bool
		agentType        string
		dryRun           bool
		sentinelStopsRun bool
	)

	cmd := &cobra.Command{
		Use:   "run [maxIterations]",
		Short: "Run the implementation loop until the backlog is drained",
		Long: "Repeatedly selects the highest-priority pending story, invokes the\n" +
			"backend, applies and validates its mutations, and commits the result.\n" +
			"An optional positional argument caps the number of iterations.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := globalConfig

			maxIterations := cfg.MaxIterations()
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 0 {
					return fmt.Errorf("invalid maxIterations %q: must be a non-negative integer", args[0])
				}
				maxIterations = n
			}

			if !cmd.Flags().Changed("max-retries") {
				maxRetries = cfg.MaxRetries()
			}
			if maxRetries <= 0 {
				return fmt.Errorf("invalid --max-retries %d: must be positive", maxRetries)
			}
			if agentType == "" {
				agentType = cfg.AgentType()
			}
			if !cmd.Flags().Changed("sentinel-stops-run") {
				sentinelStopsRun = cfg.SentinelStopsRun()
			}

			return runLoop(cmd, runParams{
				maxIterations:    maxIterations,
				maxRetries:       maxRetries,
				resetFirst:       resetFirst,
				agentType:        agentType,
				dryRun:           dryRun,
				sentinelStopsRun: sentinelStopsRun,
			})
		},
	}

	cmd.Flags().IntVar(&maxRetries, "max-retries", 3, "Attempts per story before it is marked failed")
	cmd.Flags().BoolVar(&resetFirst, "reset", false, "Clear story statuses before running")
	cmd.Flags().StringVar(&agentType, "agent", "", "Backend gateway type (claude-cli, scripted)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Rehearse the loop with a mock backend and no writes to disk")
	cmd.Flags().BoolVar(&sentinelStopsRun, "sentinel-stops-run", true, "Completion sentinel terminates the whole run")
	return cmd
}

type runParams struct {
	maxIterations    int
	maxRetries       int
	resetFirst       bool
	agentType        string
	dryRun           bool
	sentinelStopsRun bool
}

func runLoop(cmd *cobra.Command, p runParams) error {
	cfg := globalConfig
	log := GetLogger()

	// A dry run redirects every write, state and working tree alike,
	// into a memory overlay. The backend is never invoked.
	stateFS := afero.Fs(afero.NewOsFs())
	workFS := afero.Fs(afero.NewBasePathFs(afero.NewOsFs(), cfg.WorkDir()))
	if p.dryRun {
		stateFS = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(stateFS), afero.NewMemMapFs())
		workFS = afero.NewCopyOnWriteFs(afero.NewReadOnlyFs(workFS), afero.NewMemMapFs())
		log.Info("dry run: no files will be written, no backend invoked")
	}

	if !p.dryRun {
		release, err := fs.AcquireLock(filepath.Join(cfg.Home(), "run.lock"))
		if err != nil {
			return err
		}
		defer func() {
			if err := release(); err != nil {
				log.Warn("failed to release run lock: %v", err)
			}
		}()
	}

	backlogRepo := backlogrepo.NewFileBacklogRepository(stateFS, cfg.BacklogPath())
	ledger := ledgerrepo.NewFileLedgerRepository(stateFS, cfg.LedgerPath(), log.Warn)

	if p.resetFirst {
		if err := resetBacklog(cmd.Context(), backlogRepo); err != nil {
			return err
		}
		log.Info("backlog statuses cleared")
	}

	gateway, err := buildGateway(p)
	if err != nil {
		return err
	}

	// A missing backend is a fatal startup error, not something to
	// discover one failed story at a time inside the loop.
	if !p.dryRun {
		if err := gateway.HealthCheck(cmd.Context()); err != nil {
			return fmt.Errorf("backend unavailable: %w", err)
		}
	}

	learningGW, closeLearning := buildLearning(cfg.LearningDBPath(), cfg.DisableLearning() || p.dryRun, log)
	defer closeLearning()

	var gitGW output.VCSGateway = vcs.NewGitGateway(cfg.WorkDir())
	if p.dryRun {
		gitGW = vcs.NopVCS{}
	}

	controller := execution.NewLoopController(
		backlogRepo,
		ledger,
		service.NewContextBuilder(cfg.MaxPayloadBytes()),
		gateway,
		workspace.NewPatchApplier(workFS),
		validation.NewCommandRunner(cfg.ValidationCommand()),
		gitGW,
		learningGW,
		log,
		execution.Options{
			MaxIterations:    p.maxIterations,
			MaxRetries:       p.maxRetries,
			InvokeTimeout:    cfg.Timeout(),
			LedgerTailSize:   cfg.LedgerTailSize(),
			SentinelStopsRun: p.sentinelStopsRun,
			WorkDir:          cfg.WorkDir(),
		},
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := controller.Run(ctx)
	if err != nil {
		return fmt.Errorf("run aborted: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "loop finished: %s after %d iteration(s)\n", result.Reason, result.Iterations)
	return nil
}

// dryRunPatchResponse exercises every loop stage during a rehearsal:
// it parses, applies into the memory overlay, and validates like a real
// backend response would.
const dryRunPatchResponse = `Rehearsal change.

<<<FILE: .ralph/dry-run.txt>>>
This file only exists inside the dry-run overlay.
<<<END>>>
`

// buildGateway picks the backend gateway for this run
func buildGateway(p runParams) (output.AgentGateway, error) {
	if p.dryRun {
		return agent.NewScriptedGateway(
			agent.ScriptedResponse{Output: dryRunPatchResponse},
			agent.ScriptedResponse{Output: parser.CompletionSentinel},
		), nil
	}
	return agent.NewAgentGateway(p.agentType, globalConfig.AgentBin(), globalConfig.Timeout())
}

// buildLearning opens the SQLite learning store, or falls back to the
// nop gateway when disabled or unavailable.
func buildLearning(dbPath string, disabled bool, log *Logger) (output.LearningGateway, func()) {
	if disabled {
		return learning.NopLearningGateway{}, func() {}
	}
	gw, err := learning.NewSQLiteLearningGateway(dbPath)
	if err != nil {
		log.Warn("learning store unavailable, continuing without it: %v", err)
		return learning.NopLearningGateway{}, func() {}
	}
	return gw, func() {
		if err := gw.Close(); err != nil {
			log.Warn("failed to close learning store: %v", err)
		}
	}
}
