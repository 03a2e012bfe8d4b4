package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/aretw0/glossa/internal/platform"
	"github.com/aretw0/glossa/internal/telemetry"
)

// skipApp marks commands that run without opening the stores.
const skipApp = "glossa/skip-app"

var (
	verbose     bool
	cfgFile     string
	metricsAddr string

	app      *platform.App
	logger   = slog.New(slog.DiscardHandler)
	cleanups []func()
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "glossa",
	Short: "Study notes, glossary and quizzes for compliance English",
	Long: `Glossa keeps your compliance-English study notes in sync with a row store,
translates terms, rewrites text, builds quizzes from your notes and
summarises the week's regulatory news.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Annotations[skipApp] == "true" {
			return nil
		}

		cfg, v, err := platform.LoadConfig(cfgFile)
		if err != nil {
			return err
		}
		if verbose {
			cfg.LogLevel = "debug"
		}

		l, level, closer, err := platform.NewLogger(cfg, os.Stderr)
		if err != nil {
			return err
		}
		logger = l
		slog.SetDefault(l)
		cleanups = append(cleanups, func() { _ = closer.Close() })
		if !verbose {
			platform.WatchLogLevel(v, level, l)
		}

		opts := []platform.Option{platform.WithLogger(l)}
		addr := metricsAddr
		if addr == "" {
			addr = cfg.Metrics.Addr
		}
		if addr != "" {
			m := telemetry.New()
			ctx, cancel := context.WithCancel(cmd.Context())
			m.Serve(ctx, addr, l)
			cleanups = append(cleanups, cancel)
			opts = append(opts, platform.WithMetrics(m))
		}

		app, err = platform.Open(cmd.Context(), cfg, opts...)
		if err != nil {
			return err
		}
		cleanups = append(cleanups, func() {
			if err := app.Close(); err != nil {
				logger.Warn("failed to close stores", "error", err)
			}
		})
		return nil
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("Error: ")+err.Error())
		os.Exit(1)
	}
}

func shutdown() {
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
	cleanups = nil
}

// out is where command results are printed.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default $HOME/.config/glossa/glossa.yaml)")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
