package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/emergent-company/epf-eval/internal/projectconfig"
)

var version = "dev"

// app carries what PersistentPreRunE loaded to the subcommands.
type app struct {
	cfg    *projectconfig.ProjectConfig
	getenv func(string) string
}

func newRootCommand() *cobra.Command {
	a := &app{cfg: projectconfig.New(), getenv: os.Getenv}

	cmd := &cobra.Command{
		Use:   "epf-eval",
		Short: "EPF Model Compliance Eval Suite",
		Long: `epf-eval measures how faithfully LLMs follow the EPF tool-use protocol.

Each scenario sends a system prompt and a user request to a provider, answers
tool calls from fixtures, and scores the resulting transcript against a set of
compliance behaviors.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &UsageError{Err: err}
	})

	verbose := cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
	configPath := cmd.PersistentFlags().String("config", "", "Path to "+projectconfig.FileName+" (default: search upward from the working directory)")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if *verbose {
			slog.SetLogLoggerLevel(slog.LevelDebug)
		}
		return a.load(*configPath)
	}

	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newRunCommand(a))
	cmd.AddCommand(newDryRunCommand(a))
	cmd.AddCommand(newShowSystemPromptCommand())
	cmd.AddCommand(newShowToolsCommand())

	return cmd
}

// load reads the project config, then .env from the working directory and
// the config directory. Neither .env file overrides the environment.
func (a *app) load(configPath string) error {
	wd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("resolving working directory: %w", err)
	}

	var cfg *projectconfig.ProjectConfig
	if configPath != "" {
		cfg, err = projectconfig.LoadFile(configPath)
	} else {
		cfg, err = projectconfig.Load(wd)
	}
	if err != nil {
		return &UsageError{Err: err}
	}

	loaded, err := projectconfig.LoadDotEnv(wd, cfg.Dir())
	if err != nil {
		return err
	}
	for _, f := range loaded {
		slog.Debug("Loaded environment file", "path", f)
	}
	if cfg.Path != "" {
		slog.Debug("Loaded project config", "path", cfg.Path)
	}

	a.cfg = cfg
	a.getenv = cfg.Env(os.Getenv)
	return nil
}

func execute(args []string, stdout, stderr io.Writer) error {
	rootCmd := newRootCommand()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}
