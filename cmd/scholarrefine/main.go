package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/thywilljoshua/scholar-refine/internal/ai"
	"github.com/thywilljoshua/scholar-refine/internal/config"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "scholarrefine",
		Short:         "Refine academic sentences against reference PDFs with Gemini",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.String("api-key", "", "Gemini API key (default: $API_KEY or $GEMINI_API_KEY)")
	pf.String("model", ai.DefaultModel, "Gemini model name")
	pf.Float32("temperature", 0.1, "sampling temperature")
	pf.Duration("request-timeout", 0, "bound each refinement request (0 = no local timeout)")
	pf.String("log-level", "info", "log level: debug|info|warn|error")
	pf.String("log-format", "text", "log format: text|json")
	pf.String("env-file", ".env", "optional dotenv file")

	root.AddCommand(serveCmd())
	root.AddCommand(refineCmd())
	return root
}

// loadConfig resolves flags, env and the dotenv file for cmd.
func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	if err := config.LoadDotEnv(envFile); err != nil {
		return nil, nil, fmt.Errorf("load %s: %w", envFile, err)
	}

	v := config.New()
	if err := config.BindFlags(v, cmd.InheritedFlags()); err != nil {
		return nil, nil, err
	}
	if err := config.BindFlags(v, cmd.LocalFlags()); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(v)
	if err != nil {
		return nil, nil, err
	}

	log := cfg.NewLogger(os.Stderr)
	slog.SetDefault(log)
	return cfg, log, nil
}

// newRefiner builds the Gemini refiner. Without an API key the server still
// starts; every refinement then fails with a generic error.
func newRefiner(ctx context.Context, cfg *config.Config, log *slog.Logger) (ai.Refiner, error) {
	if cfg.APIKey == "" {
		log.Warn("no API key configured; refinements will fail", "env", "API_KEY, GEMINI_API_KEY")
		return ai.Unavailable{Reason: "No API key configured"}, nil
	}
	g, err := ai.NewGemini(ctx, cfg.APIKey, ai.Options{
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		Logger:      log,
	})
	if err != nil {
		return nil, err
	}
	return g, nil
}
