package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
)

type ExitCode int

const (
	exitCodeSuccess = 0
	exitCodeError   = 1
)

const defaultAPIURL = "http://127.0.0.1:8080/api"

// Run executes the command line and reports the process exit code.
func Run(args []string) ExitCode {
	rootCmd := NewRootCmd(os.Stdout, os.Stderr)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		return exitCodeError
	}
	return exitCodeSuccess
}

// NewRootCmd assembles the pulsectl command tree writing to the given streams.
func NewRootCmd(stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "pulsectl",
		Short:         "Command line client for the Pulse analytics dashboard.",
		SilenceUsage:  true,
		SilenceErrors: false,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cmd.Help(); err != nil {
				return fmt.Errorf("failed to show help: %w", err)
			}
			return nil
		},
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	apiURL := os.Getenv("ANALYTICS_API_URL")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "127.0.0.1:6379"
	}

	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "set debug logging level")
	rootCmd.PersistentFlags().String("api", apiURL, "Base URL of the Pulse API")
	rootCmd.PersistentFlags().Duration("timeout", 15*time.Second, "Time to wait for a response")
	rootCmd.PersistentFlags().String("redis", redisAddr, "Redis address used by the job queue")

	rootCmd.AddCommand(
		NewFetchCmd().Command(),
		NewSetsCmd().Command(),
		NewAuthCmd().Command(),
		NewJobsCmd().Command(),
	)
	return rootCmd
}

type globalFlags struct {
	verbose bool
	api     string
	timeout time.Duration
	redis   string
}

func readGlobals(cmd *cobra.Command) (globalFlags, error) {
	var g globalFlags
	var err error
	flags := cmd.Root().PersistentFlags()
	if g.verbose, err = flags.GetBool("verbose"); err != nil {
		return g, fmt.Errorf("failed to get verbose flag: %w", err)
	}
	if g.api, err = flags.GetString("api"); err != nil {
		return g, fmt.Errorf("failed to get api flag: %w", err)
	}
	if g.timeout, err = flags.GetDuration("timeout"); err != nil {
		return g, fmt.Errorf("failed to get timeout flag: %w", err)
	}
	if g.redis, err = flags.GetString("redis"); err != nil {
		return g, fmt.Errorf("failed to get redis flag: %w", err)
	}
	return g, nil
}

func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
}
