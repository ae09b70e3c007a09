package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/everstacklabs/librarian/internal/cache"
	"github.com/everstacklabs/librarian/internal/catalog"
	"github.com/everstacklabs/librarian/internal/config"
	"github.com/everstacklabs/librarian/internal/diff"
	"github.com/everstacklabs/librarian/internal/httpclient"
	"github.com/everstacklabs/librarian/internal/pipeline"
	"github.com/everstacklabs/librarian/internal/render"
	_ "github.com/everstacklabs/librarian/internal/render/playwright" // register headless browser backend
	_ "github.com/everstacklabs/librarian/internal/render/static"     // register static HTML backend
	"github.com/everstacklabs/librarian/internal/validate"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:          "librarian",
		Short:        "Ollama library catalog crawler",
		Long:         "Renders the ollama.com model library, extracts every entry and keeps dated JSON snapshots of the catalog.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./config.yaml)")

	rootCmd.AddCommand(
		crawlCmd(),
		extractCmd(),
		validateCmd(),
		diffCmd(),
		showCmd(),
		historyCmd(),
		cacheCmd(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(pipeline.ExitFailure)
	}
}

func crawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl",
		Short: "Walk the catalog and persist a dated snapshot",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("limit") {
				cfg.Limit, _ = cmd.Flags().GetInt("limit")
			}
			if cmd.Flags().Changed("renderer") {
				cfg.Renderer, _ = cmd.Flags().GetString("renderer")
			}
			if cmd.Flags().Changed("no-cache") {
				cfg.NoCache, _ = cmd.Flags().GetBool("no-cache")
			}

			b, err := openBrowser(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeBrowser(b)

			var opts []pipeline.Option
			if cfg.Publish.Enabled && cfg.GitHub.Token != "" {
				opts = append(opts, pipeline.WithPublisher(
					pipeline.NewGitHubPublisher(cmd.Context(), cfg.GitHub, cfg.Publish.RepoPath)))
			}

			res, err := pipeline.New(cfg, b, opts...).Crawl(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Println(diff.RenderSummary(res.ChangeSet))
			if len(res.Walk.Failures) > 0 {
				slog.Warn("some entries were skipped", "failed", len(res.Walk.Failures))
			}
			if res.PRNumber > 0 {
				slog.Info("crawl published", "pr", res.PRNumber)
			}
			slog.Info("crawl complete",
				"records", len(res.Walk.Records),
				"incomplete", len(res.Incomplete),
				"latest", res.Persisted.LatestPath)
			return nil
		},
	}

	cmd.Flags().Int("limit", 0, "Visit at most this many entries (0 = all)")
	cmd.Flags().String("renderer", "", "Render backend (default: from config)")
	cmd.Flags().Bool("no-cache", false, "Bypass the HTTP cache for the static backend")

	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract <id>",
		Short: "Render one entry and print its record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("renderer") {
				cfg.Renderer, _ = cmd.Flags().GetString("renderer")
			}

			b, err := openBrowser(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeBrowser(b)

			rec, err := pipeline.New(cfg, b).Extract(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printRecord(rec)
		},
	}

	cmd.Flags().String("renderer", "", "Render backend (default: from config)")

	return cmd
}

func showCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one record from the latest snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			rec, err := pipeline.New(cfg, nil).Show(args[0])
			if err != nil {
				return err
			}
			return printRecord(rec)
		},
	}
}

func validateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the latest snapshot (CI check)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			result, err := pipeline.New(cfg, nil).Validate()
			if err != nil {
				return err
			}
			fmt.Println(validate.FormatResult(result))

			if result.HasErrors() {
				os.Exit(pipeline.ExitValidation)
			}
			return nil
		},
	}
}

func diffCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "diff",
		Short: "Compare two dated snapshots (default: the two newest)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			from, _ := cmd.Flags().GetString("from")
			to, _ := cmd.Flags().GetString("to")
			ignore, _ := cmd.Flags().GetBool("ignore-volatile")

			cs, err := pipeline.New(cfg, nil).Diff(from, to, diff.Options{IgnoreVolatile: ignore})
			if err != nil {
				return err
			}
			fmt.Println(diff.RenderSummary(cs))

			if cs.HasChanges() {
				os.Exit(pipeline.ExitChanges)
			}
			return nil
		},
	}

	cmd.Flags().String("from", "", "Older snapshot date (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Newer snapshot date (YYYY-MM-DD)")
	cmd.Flags().Bool("ignore-volatile", false, "Ignore pull counts and update times")

	return cmd
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List dated snapshots, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store := pipeline.New(cfg, nil).Store()
			m, err := store.ReadManifest()
			if err != nil {
				slog.Debug("manifest unavailable, scanning snapshots", "error", err)
				if m, err = store.BuildManifest(); err != nil {
					return err
				}
			}

			for _, s := range m.Snapshots {
				fmt.Printf("%-12s %5d models  %s\n", s.Date, s.Models, s.File)
			}
			fmt.Printf("\nTotal: %d snapshots, latest %s (%d models)\n", len(m.Snapshots), m.Latest, m.Models)
			return nil
		},
	}
}

func cacheCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the HTTP cache used by the static backend",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Remove expired cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fc, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
			if err != nil {
				return err
			}
			n, err := fc.Purge()
			if err != nil {
				return err
			}
			slog.Info("cache purged", "removed", n, "dir", cfg.CacheDir)
			return nil
		},
	})
	return cmd
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})))
}

func openBrowser(ctx context.Context, cfg *config.Config) (render.Browser, error) {
	b, err := render.Open(ctx, cfg.Renderer, render.Options{
		Headless:   cfg.Headless,
		Timeout:    cfg.WaitTimeout,
		WaitPolicy: render.WaitPolicy(cfg.WaitUntil),
		UserAgent:  cfg.UserAgent,
		HTTP:       newHTTPClient(cfg),
	})
	if err != nil {
		return nil, fmt.Errorf("opening %s renderer (available: %v): %w", cfg.Renderer, render.List(), err)
	}
	return b, nil
}

func newHTTPClient(cfg *config.Config) *httpclient.Client {
	opts := []httpclient.Option{
		httpclient.WithRateLimit(cfg.RateLimit),
		httpclient.WithTimeout(cfg.WaitTimeout),
		httpclient.WithRetries(2, cfg.EntryDelay),
		httpclient.WithUserAgent(cfg.UserAgent),
	}
	if cfg.NoCache {
		opts = append(opts, httpclient.WithNoCache())
	} else {
		fc, err := cache.New(cfg.CacheDir, cfg.CacheTTL)
		if err != nil {
			slog.Warn("failed to create cache, continuing without", "error", err)
		} else {
			opts = append(opts, httpclient.WithCache(fc))
		}
	}
	return httpclient.New(opts...)
}

func closeBrowser(b render.Browser) {
	if err := b.Close(); err != nil {
		slog.Warn("closing renderer failed", "error", err)
	}
}

func printRecord(rec catalog.Record) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(rec)
}
