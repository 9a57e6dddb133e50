package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/rigup-dev/rigup/config"
	"github.com/rigup-dev/rigup/pipeline"
	"github.com/rigup-dev/rigup/probe"
	"github.com/rigup-dev/rigup/prompt"
	"github.com/rigup-dev/rigup/runlog"
	"github.com/rigup-dev/rigup/secrets"
	"github.com/rigup-dev/rigup/stages"
	"github.com/rigup-dev/rigup/toolexec"
)

var (
	upAll            bool
	upOnly           []string
	upNonInteractive bool
	upHaltOnFailure  bool
	upForce          bool
	upAnswersFile    string
)

// errRunFailed marks a run where at least one stage failed or aborted;
// Execute maps it to exit code 1 instead of 2.
var errRunFailed = errors.New("one or more stages failed or were aborted")

var upCmd = &cobra.Command{
	Use:          "up",
	Short:        "Run bootstrap stages",
	RunE:         runUp,
	SilenceUsage: true,
}

func init() {
	upCmd.Flags().BoolVar(&upAll, "all", false, "run every registered stage")
	upCmd.Flags().StringSliceVar(&upOnly, "only", nil, "run exactly these stages (plus their dependencies)")
	upCmd.Flags().BoolVar(&upNonInteractive, "non-interactive", false, "scripted mode: answer prompts from config, file, and RIGUP_ANSWER_* env")
	upCmd.Flags().BoolVar(&upHaltOnFailure, "halt-on-failure", false, "stop at the first stage failure")
	upCmd.Flags().BoolVar(&upForce, "force", false, "run stage actions even when already satisfied")
	upCmd.Flags().StringVar(&upAnswersFile, "answers", "", "YAML file of scripted prompt answers")
}

func runUp(cmd *cobra.Command, args []string) error {
	cfgPath := viper.GetString("config")
	if !filepath.IsAbs(cfgPath) {
		wd, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("getting working directory: %w", err)
		}
		cfgPath = filepath.Join(wd, cfgPath)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}
	workDir := filepath.Dir(cfgPath)

	reg := pipeline.NewRegistry()
	if err := stages.Register(reg); err != nil {
		return err
	}

	requested := upOnly
	if upAll {
		requested = reg.Names()
	}
	if len(requested) == 0 {
		return fmt.Errorf("nothing to run: pass --all or --only=<stage,...>")
	}

	runID := uuid.NewString()
	logger, err := runlog.New(os.Stderr, viper.GetString("log-file"), viper.GetBool("verbose"), runID)
	if err != nil {
		return err
	}
	defer logger.Close()

	ask, err := buildInteractor(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := toolexec.NewExec()
	env := probe.Detect(ctx, runner, cfg.Toolchain.Tools)
	logger.Info("detected environment", map[string]any{
		"os": string(env.OS), "arch": env.Arch, "run_id": runID,
	})

	var provisioner secrets.Provisioner
	if token := os.Getenv(cfg.GitHub.TokenEnv); token != "" {
		provisioner = secrets.NewGitHub(secrets.GitHubConfig{Token: token})
	}

	rc := &pipeline.RunContext{
		WorkDir:     workDir,
		Config:      cfg,
		Env:         env,
		Ask:         ask,
		Log:         logger,
		Runner:      runner,
		Provisioner: provisioner,
	}

	orch := pipeline.NewOrchestrator(reg, logger)
	results, err := orch.Run(ctx, pipeline.RunRequest{
		Stages:        requested,
		HaltOnFailure: upHaltOnFailure,
		Force:         upForce,
	}, rc)
	if err != nil {
		// Resolution errors (unknown stage, cycle) are invocation errors.
		return err
	}

	printSummary(results)

	if !pipeline.Succeeded(results) {
		return errRunFailed
	}
	return nil
}

func buildInteractor(cfg *config.Config) (prompt.Interactor, error) {
	if !upNonInteractive {
		return prompt.NewTerminal()
	}
	sources := []map[string]string{cfg.Answers}
	if upAnswersFile != "" {
		fromFile, err := config.LoadAnswersFile(upAnswersFile)
		if err != nil {
			return nil, err
		}
		sources = append(sources, fromFile)
	}
	sources = append(sources, config.EnvAnswers(os.Environ()))
	return prompt.NewScripted(config.MergeAnswers(sources...)), nil
}

// printSummary renders the per-stage outcomes. It runs regardless of
// success so a failed run still shows what happened.
func printSummary(results []pipeline.StageResult) {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	tw.AppendHeader(table.Row{"Stage", "Outcome", "Duration", "Detail"})
	for _, r := range results {
		tw.AppendRow(table.Row{r.Stage, string(r.Status), r.Duration.Round(time.Millisecond), r.Reason})
	}
	tw.Render()
}
