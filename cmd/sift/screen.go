package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fairyhunter13/sift/internal/adapter/observability"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor/local"
	"github.com/fairyhunter13/sift/internal/adapter/textextractor/tika"
	"github.com/fairyhunter13/sift/internal/app"
	"github.com/fairyhunter13/sift/internal/config"
	"github.com/fairyhunter13/sift/internal/domain"
	"github.com/fairyhunter13/sift/internal/screening"
	"github.com/fairyhunter13/sift/internal/usecase"
)

type screenOptions struct {
	jobFile string
	asJSON  bool
	offline bool
	apiKey  string
}

func newScreenCmd() *cobra.Command {
	var opts screenOptions
	cmd := &cobra.Command{
		Use:   "screen --job FILE RESUME...",
		Short: "Screen resumes against a job description",
		Long: "Screen one or more resumes (.pdf, .docx, .doc, .txt) against a job description text file. " +
			"With --offline the deterministic stub generator is used and Tika is not contacted.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, opts, args)
		},
	}
	cmd.Flags().StringVarP(&opts.jobFile, "job", "j", "", "Path to the job description text file")
	cmd.Flags().BoolVar(&opts.asJSON, "json", false, "Print results as JSON")
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "Use the stub generator and local extraction only")
	cmd.Flags().StringVar(&opts.apiKey, "api-key", "", "Gemini API key (overrides GEMINI_API_KEY env var)")
	_ = cmd.MarkFlagRequired("job")
	return cmd
}

func runScreen(cmd *cobra.Command, opts screenOptions, resumes []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.offline {
		cfg.AIProvider = config.ProviderStub
	}
	if opts.apiKey != "" {
		cfg.AIProvider = config.ProviderGemini
		cfg.GeminiAPIKey = opts.apiKey
	}
	// Logs go to stderr so stdout stays parseable.
	slog.SetDefault(observability.NewLogger(cmd.ErrOrStderr(), cfg))

	jobText, err := os.ReadFile(opts.jobFile)
	if err != nil {
		return fmt.Errorf("failed to read job description: %w", err)
	}
	docs := make([]domain.ResumeDocument, 0, len(resumes))
	for _, path := range resumes {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read resume: %w", err)
		}
		docs = append(docs, domain.ResumeDocument{Name: filepath.Base(path), Data: data})
	}

	ctx := cmd.Context()
	gen, err := app.NewGenerator(ctx, cfg, nil)
	if err != nil {
		return err
	}
	pipeline, err := screening.NewPipeline(gen)
	if err != nil {
		return err
	}
	var fallback domain.TextExtractor
	if !opts.offline && cfg.TikaURL != "" {
		fallback = tika.New(cfg.TikaURL)
	}
	svc := usecase.NewScreeningService(nil, nil, nil, textextractor.New(local.New(), fallback), pipeline,
		usecase.WithConcurrency(cfg.ScreenConcurrency))

	reports, err := svc.ScreenDocuments(ctx, string(jobText), docs, "")
	if err != nil {
		return err
	}
	views := make([]usecase.ReportView, 0, len(reports))
	for _, r := range reports {
		views = append(views, usecase.NewReportView(r))
	}
	if opts.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]any{"results": views})
	}
	return printTable(cmd.OutOrStdout(), views)
}

func printTable(w io.Writer, views []usecase.ReportView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RESUME\tCANDIDATE\tSCORE\tCONFIDENCE\tRECOMMENDATION\tHUMAN")
	for _, v := range views {
		name := v.CandidateName
		if name == "" {
			name = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%.2f\t%.2f\t%s\t%t\n",
			v.ResumeName, name, v.MatchScore, v.Confidence, v.Recommendation, v.RequiresHuman)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, v := range views {
		fmt.Fprintf(w, "\n%s: %s\n", v.ResumeName, strings.TrimSpace(v.Reasoning))
	}
	return nil
}
