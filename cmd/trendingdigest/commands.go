package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"TrendingDigest/internal/app"
	"TrendingDigest/internal/config"
	"TrendingDigest/internal/httpx"
	"TrendingDigest/internal/infrastructure/llm"
	"TrendingDigest/internal/logging"
	"TrendingDigest/internal/usecase"
)

const pingPrompt = "用一句中文简短自我介绍一下，你是 Gemini 测试接口。"

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "trendingdigest",
		Short: "Publish today's trending GitHub projects as localized cards",
		Long: `trendingdigest fetches the daily GitHub trending list, asks a language model
for a Chinese name, summary and comment per project, renders one card per
project into the #content-grid element of the page and commits the result.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", os.Getenv(config.ConfigPathEnv), "path to YAML config (env "+config.ConfigPathEnv+")")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "override logging level (debug, info, warn, error)")

	root.AddCommand(newRunCmd(opts), newModelsCmd(opts), newPingCmd(opts))
	return root
}

func (o *rootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.configPath, os.Getenv)
	if err != nil {
		return config.Config{}, nil, err
	}
	if o.logLevel != "" {
		cfg.Logging.Level = o.logLevel
	}
	return cfg, logging.New(cfg.Logging.Level), nil
}

func newRunCmd(root *rootOptions) *cobra.Command {
	var runOpts usecase.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fetch, enrich, render, update the page and publish",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}

			application, err := app.New(cmd.Context(), cfg, logger, runOpts, app.Overrides{})
			if err != nil {
				return err
			}
			defer application.Close()

			report, err := application.Run(cmd.Context())
			if err != nil {
				return err
			}

			if runOpts.DryRun {
				for _, fragment := range report.Fragments {
					fmt.Fprintln(cmd.OutOrStdout(), fragment)
				}
			}
			logger.Info("done", "fetched", report.Fetched, "fallbacks", report.Fallbacks, "document", report.Document, "publish", report.Publish)
			return nil
		},
	}

	cmd.Flags().BoolVar(&runOpts.DryRun, "dry-run", false, "print rendered cards without writing the page or publishing")
	cmd.Flags().BoolVar(&runOpts.NoPublish, "no-publish", false, "write the page but skip git stage/commit/push")
	cmd.Flags().StringVar(&runOpts.CommitMessage, "message", "", "commit message (defaults to publish.commitMessage)")
	return cmd
}

func newModelsCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List Gemini models visible to the configured key",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			client, err := newGemini(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			logger.Info("list models")
			models, err := client.ListModels(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, m := range models {
				fmt.Fprintf(out, "%s\t%s\n", m.Name, strings.Join(m.SupportedActions, ","))
			}
			return nil
		},
	}
}

func newPingCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Send one test prompt to the configured model",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := root.load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			httpClient, err := httpx.NewClient(cfg.Proxy, cfg.LLM.Timeout)
			if err != nil {
				return err
			}
			generator, err := llm.New(cmd.Context(), cfg.LLM, httpClient)
			if err != nil {
				return err
			}

			logger.Info("send test prompt", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model)
			text, err := generator.Generate(cmd.Context(), pingPrompt)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), strings.TrimSpace(text))
			return nil
		},
	}
}

func newGemini(ctx context.Context, cfg config.Config) (*llm.GeminiClient, error) {
	if cfg.LLM.Provider != config.ProviderGemini {
		return nil, fmt.Errorf("models requires llm.provider %s, got %s", config.ProviderGemini, cfg.LLM.Provider)
	}
	httpClient, err := httpx.NewClient(cfg.Proxy, cfg.LLM.Timeout)
	if err != nil {
		return nil, err
	}
	return llm.NewGeminiClient(ctx, cfg.LLM, httpClient)
}
