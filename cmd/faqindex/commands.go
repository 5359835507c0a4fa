package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/faqindex/internal/config"
	"github.com/kailas-cloud/faqindex/internal/domain"
	indexrepo "github.com/kailas-cloud/faqindex/internal/repository/index"
	healthuc "github.com/kailas-cloud/faqindex/internal/usecase/health"
	"github.com/kailas-cloud/faqindex/internal/version"
)

type rootOptions struct {
	env     string
	envFile string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "faqindex",
		Short: "Build the course FAQ search index",
		Long: "faqindex fetches the course FAQ documents, embeds question and answer text, " +
			"recreates the search index and loads every document into it, then initialises " +
			"the application database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPipeline(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.env, "env", config.GetEnv(),
		"environment: selects config/<env>.yaml and the log format (local, dev, docker, prod)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "dotenv file loaded before configuration")

	root.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the full indexing pipeline (default)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runPipeline(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "provision",
			Short: "Delete and recreate the index without loading documents",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runProvision(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "init-db",
			Short: "Recreate the application database only",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runInitDB(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "check",
			Short: "Check that the search engine and embedding provider are reachable",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return runCheck(cmd, opts)
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print build information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "faqindex %s (commit %s, built %s)\n",
					version.Version, version.Commit, version.Date)
			},
		},
	)

	return root
}

func runPipeline(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return reportStartup(cmd, err)
	}
	defer a.Close()

	stopMetrics, err := a.startMetricsServer()
	if err != nil {
		return a.fail("Metrics server failed to start", err)
	}
	defer stopMetrics()

	if err := a.waitForEngine(a.ctx); err != nil {
		return a.fail("Search engine not ready", err)
	}

	res, err := a.pipeline().Run(a.ctx)
	if err != nil {
		return a.fail("Indexing pipeline failed", err)
	}

	usage := a.embedder.Usage()
	a.logger.Info("Indexing complete",
		zap.String("index", a.cfg.Search.Index),
		zap.Int("documents", res.Written),
		zap.Int64("indexed", res.Indexed),
		zap.Int("duplicate_ids", len(res.Duplicates)),
		zap.Int64("embedding_requests", usage.Requests),
		zap.Int64("embedding_tokens", usage.TotalTokens),
		zap.Duration("duration", res.Duration),
	)
	fmt.Fprintf(cmd.OutOrStdout(), "indexed %d documents into %q\n", res.Written, a.cfg.Search.Index)
	return nil
}

func runProvision(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return reportStartup(cmd, err)
	}
	defer a.Close()

	if err := a.waitForEngine(a.ctx); err != nil {
		return a.fail("Search engine not ready", err)
	}
	if err := a.pipeline().Provision(a.ctx); err != nil {
		return a.fail("Index provisioning failed", err)
	}

	prov := a.provisioner()
	exists, err := prov.Exists(a.ctx, a.cfg.Search.Index)
	if err != nil {
		return a.fail("Index existence check failed", err)
	}
	if !exists {
		return a.fail("Index missing after provisioning",
			domain.NewStageError(domain.ErrIndexProvision, fmt.Errorf("index %q not found", a.cfg.Search.Index)))
	}

	fields, err := prov.Fields(a.ctx, a.cfg.Search.Index)
	switch {
	case err == nil:
		for _, f := range fields {
			a.logger.Info("Index field", zap.String("name", f.Name), zap.String("type", string(f.Type)))
		}
	case !errors.Is(err, indexrepo.ErrFieldsUnsupported):
		return a.fail("Reading index mapping failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "index %q recreated\n", a.cfg.Search.Index)
	return nil
}

func runInitDB(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return reportStartup(cmd, err)
	}
	defer a.Close()

	if err := a.pipeline().InitDatabase(a.ctx); err != nil {
		return a.fail("Database initialisation failed", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "database %s initialised\n", a.cfg.Database.Path)
	return nil
}

func runCheck(cmd *cobra.Command, opts *rootOptions) error {
	a, err := newApp(cmd.Context(), opts)
	if err != nil {
		return reportStartup(cmd, err)
	}
	defer a.Close()

	ctx, cancel := context.WithTimeout(a.ctx, 10*time.Second)
	defer cancel()

	report := a.health().Check(ctx)
	out := cmd.OutOrStdout()
	for _, name := range report.Names() {
		line := fmt.Sprintf("%-16s %s", name, report.Checks[name])
		if msg := report.Errors[name]; msg != "" {
			line += "  " + msg
		}
		fmt.Fprintln(out, strings.TrimRight(line, " "))
	}
	fmt.Fprintf(out, "status: %s\n", report.Status)

	if report.Status == healthuc.Unhealthy {
		return a.fail("Health check failed", fmt.Errorf("status %s", report.Status))
	}
	return nil
}

// reportStartup prints errors raised before a logger exists.
func reportStartup(cmd *cobra.Command, err error) error {
	msg := err.Error()
	if errors.Is(err, domain.ErrConfig) {
		msg = "configuration: " + msg
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "faqindex:", msg)
	return err
}

