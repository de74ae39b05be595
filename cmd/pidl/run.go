package main

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/havenworks/pidl"
	"github.com/havenworks/pidl/internal/pidlconfig"
	"github.com/havenworks/pidl/internal/pidllog"
)

type runOptions struct {
	watch bool
}

func newRunCmd(root *rootFlags, appLogger *pidllog.Logger) *cobra.Command {
	opts := runOptions{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a pipeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			level := "info"
			if root.verbose {
				level = "debug"
			}
			runLogger, err := pidllog.New(pidllog.Options{Level: level})
			if err != nil {
				return err
			}

			interactive := opts.watch && term.IsTerminal(int(os.Stdout.Fd()))
			exitCode, runErr := runPipeline(root.configPath, runLogger, interactive)
			if runErr != nil {
				return runErr
			}
			if exitCode != 0 {
				os.Exit(exitCode)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.watch, "watch", false, "Show a live dashboard while the pipeline runs")

	return cmd
}

// runPipeline loads and runs the pipeline at configPath, returning the exit
// code recorded by an EXIT-policy action failure alongside any error that
// aborted the run outright.
func runPipeline(configPath string, appLogger *pidllog.Logger, interactive bool) (int, error) {
	p, err := pidlconfig.Load(configPath, defaultFactories(), pidl.WithLogger(appLogger))
	if err != nil {
		return 0, err
	}

	plan, err := p.Explain()
	if err != nil {
		return 0, err
	}

	model := newDashboardModel(plan)

	var program *tea.Program
	done := make(chan struct{})
	var programErr error

	if interactive {
		program = tea.NewProgram(model)
		go func() {
			_, programErr = program.Run()
			close(done)
		}()
	}

	forward := func(event string, args ...any) {
		if interactive && program != nil {
			program.Send(dashboardEventMsg{event: event, args: args})
			return
		}
		fmt.Printf("%s %v\n", event, args)
	}

	for _, evt := range []string{"pipeline_start", "pipeline_end", "task_start", "task_end", "action_start", "action_end"} {
		if _, err := p.On(evt, forward); err != nil {
			return 0, err
		}
	}

	runErr := p.Run()

	if interactive {
		program.Send(dashboardDoneMsg{})
		<-done
		if programErr != nil {
			return 0, programErr
		}
	}

	if runErr != nil {
		return 0, runErr
	}

	exitCode := pidl.NormalizeExitCode(p.Context().Get(pidl.KeyExitCode))
	return exitCode, nil
}
