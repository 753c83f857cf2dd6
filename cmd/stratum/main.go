package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/stratum-storage/stratum"
	"github.com/stratum-storage/stratum/gateway"
	"github.com/stratum-storage/stratum/internal/config"
	"github.com/stratum-storage/stratum/layers"
	"github.com/stratum-storage/stratum/raw"
	"github.com/stratum-storage/stratum/services"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "stratum",
		Short: "Stratum - unified access to heterogeneous storage services",
		Long: `Stratum exposes object storage services (local filesystem, embedded
key-value engines, S3, WebHDFS) behind one composable access layer.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringP("config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringP("scheme", "s", "", "Storage scheme (memory, fs, badger, pebble, sqlite, s3, webhdfs)")
	rootCmd.PersistentFlags().StringP("root", "r", "", "Working directory inside the service")
	rootCmd.PersistentFlags().StringArrayP("option", "o", nil, "Service option as key=value (repeatable)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the configured service over HTTP",
		RunE:  runServe,
	}
	serveCmd.Flags().StringP("listen", "l", ":8080", "Listen address")

	rootCmd.AddCommand(
		serveCmd,
		&cobra.Command{
			Use:   "ls <path>",
			Short: "List a directory",
			Args:  cobra.ExactArgs(1),
			RunE:  runLs,
		},
		&cobra.Command{
			Use:   "cat <path>",
			Short: "Print an object's content",
			Args:  cobra.ExactArgs(1),
			RunE:  runCat,
		},
		&cobra.Command{
			Use:   "put <path> [file]",
			Short: "Write an object from a file or stdin",
			Args:  cobra.RangeArgs(1, 2),
			RunE:  runPut,
		},
		&cobra.Command{
			Use:   "stat <path>",
			Short: "Show an object's metadata",
			Args:  cobra.ExactArgs(1),
			RunE:  runStat,
		},
		newRmCommand(),
	)

	if err := rootCmd.Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func setupLogging(level string) {
	logrus.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})

	switch level {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "info":
		logrus.SetLevel(logrus.InfoLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}

// newOperator builds the layered operator the subcommands work against.
func newOperator(cmd *cobra.Command) (*stratum.Operator, *config.Config, error) {
	cfg, err := config.Load(cmd)
	if err != nil {
		return nil, nil, err
	}
	setupLogging(cfg.LogLevel)

	acc, err := services.Create(raw.Scheme(cfg.Scheme), cfg.Options)
	if err != nil {
		return nil, nil, err
	}

	builder := stratum.NewOperator(acc)
	if cfg.RetryAttempts > 1 {
		builder.Layer(layers.RetryLayer{MaxAttempts: cfg.RetryAttempts})
	}
	if cfg.EnableLogging {
		builder.Layer(layers.NewLoggingLayer(logrus.StandardLogger()))
	}
	if cfg.EnableMetrics {
		builder.Layer(layers.NewMetricsLayer(prometheus.DefaultRegisterer))
	}
	return builder.Finish(), cfg, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	op, cfg, err := newOperator(cmd)
	if err != nil {
		return err
	}
	if listen, _ := cmd.Flags().GetString("listen"); listen != "" {
		cfg.Listen = listen
	}

	logrus.WithFields(logrus.Fields{
		"version": version,
		"scheme":  cfg.Scheme,
		"listen":  cfg.Listen,
	}).Info("Starting stratum gateway")

	srv := &http.Server{
		Addr:    cfg.Listen,
		Handler: gateway.NewServer(op, logrus.StandardLogger()).Handler(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt, syscall.SIGTERM)
		<-c
		logrus.Info("Received shutdown signal")
		cancel()
	}()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logrus.Info("Stratum gateway stopped")
	return nil
}

func runLs(cmd *cobra.Command, args []string) error {
	op, _, err := newOperator(cmd)
	if err != nil {
		return err
	}

	pager, err := op.Object(args[0]).List(cmd.Context())
	if err != nil {
		return err
	}
	for {
		page, err := pager.NextPage(cmd.Context())
		if err != nil {
			return err
		}
		if page == nil {
			return nil
		}
		for _, entry := range page {
			if entry.Meta.Mode() == raw.ModeDir {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12s %s\n", "-", entry.Path)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%-12d %s\n", entry.Meta.ContentLength(), entry.Path)
			}
		}
	}
}

func runCat(cmd *cobra.Command, args []string) error {
	op, _, err := newOperator(cmd)
	if err != nil {
		return err
	}

	rc, err := op.Object(args[0]).Read(cmd.Context())
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(cmd.OutOrStdout(), rc)
	return err
}

func runPut(cmd *cobra.Command, args []string) error {
	op, _, err := newOperator(cmd)
	if err != nil {
		return err
	}

	var source io.Reader = cmd.InOrStdin()
	var size int64 = -1
	if len(args) == 2 {
		f, err := os.Open(args[1])
		if err != nil {
			return err
		}
		defer f.Close()
		fi, err := f.Stat()
		if err != nil {
			return err
		}
		source, size = f, fi.Size()
	}

	if size >= 0 {
		return op.Object(args[0]).Write(cmd.Context(), source, size)
	}
	data, err := io.ReadAll(source)
	if err != nil {
		return err
	}
	return op.Object(args[0]).WriteBytes(cmd.Context(), data)
}

func runStat(cmd *cobra.Command, args []string) error {
	op, _, err := newOperator(cmd)
	if err != nil {
		return err
	}

	meta, err := op.Object(args[0]).Stat(cmd.Context())
	if err != nil {
		return err
	}

	mode := "file"
	if meta.Mode() == raw.ModeDir {
		mode = "dir"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "path:           %s\n", args[0])
	fmt.Fprintf(cmd.OutOrStdout(), "mode:           %s\n", mode)
	if meta.Mode() == raw.ModeFile {
		fmt.Fprintf(cmd.OutOrStdout(), "content-length: %d\n", meta.ContentLength())
	}
	if ct := meta.ContentType(); ct != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "content-type:   %s\n", ct)
	}
	if lm := meta.LastModified(); !lm.IsZero() {
		fmt.Fprintf(cmd.OutOrStdout(), "last-modified:  %s\n", lm.UTC().Format(time.RFC3339))
	}
	return nil
}

func newRmCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rm <path>",
		Short: "Delete an object, or a whole subtree with -R",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			op, _, err := newOperator(cmd)
			if err != nil {
				return err
			}
			if recursive, _ := cmd.Flags().GetBool("recursive"); recursive {
				return op.Batch().RemoveAll(cmd.Context(), args[0])
			}
			return op.Object(args[0]).Delete(cmd.Context())
		},
	}
	cmd.Flags().BoolP("recursive", "R", false, "Delete the directory and everything under it")
	return cmd
}
