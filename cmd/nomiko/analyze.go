package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"nomiko-backend/analysis"
	"nomiko-backend/config"
	"nomiko-backend/llm"
	"nomiko-backend/logger"
	"nomiko-backend/models"
	"nomiko-backend/service"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a contract file",
	Long: `Segment a contract, list its clauses with risk flags, and optionally
explain the risky clauses, answer a question or simulate a scenario.

Examples:
  nomiko analyze --file lease.txt --type rental --profile tenant
  nomiko analyze -f tos.txt -t tos -p consumer --explain
  nomiko analyze -f lease.txt --ask "Can the landlord raise the rent?"
  cat loan.txt | nomiko analyze -f - -t loan --report report.md`,
	Args: cobra.NoArgs,
	RunE: runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringP("file", "f", "", "contract text file, or - for stdin")
	analyzeCmd.Flags().StringP("type", "t", string(models.DocumentTypeRental), "document type: rental, loan, service, tos")
	analyzeCmd.Flags().StringP("profile", "p", string(models.ProfileTenant), "your role: tenant, freelancer, business-owner, consumer")
	analyzeCmd.Flags().StringP("jurisdiction", "j", "", "governing jurisdiction (inferred when empty)")
	analyzeCmd.Flags().Bool("explain", false, "summarize, compare and suggest negotiations for every risky clause")
	analyzeCmd.Flags().String("ask", "", "question about the whole document")
	analyzeCmd.Flags().String("simulate", "", "what-if scenario to simulate")
	analyzeCmd.Flags().String("report", "", "write the Markdown risk report to this path")
	_ = analyzeCmd.MarkFlagRequired("file")
}

type analyzeOptions struct {
	Document models.Document
	Explain  bool
	Ask      string
	Simulate string
	Report   string
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("file")
	text, err := readInput(path, cmd.InOrStdin())
	if err != nil {
		return err
	}

	docType, _ := cmd.Flags().GetString("type")
	profile, _ := cmd.Flags().GetString("profile")
	jurisdiction, _ := cmd.Flags().GetString("jurisdiction")
	opts := analyzeOptions{
		Document: models.Document{
			Text:         text,
			DocumentType: models.DocumentType(docType),
			UserProfile:  models.UserProfile(profile),
			Jurisdiction: jurisdiction,
		},
	}
	opts.Explain, _ = cmd.Flags().GetBool("explain")
	opts.Ask, _ = cmd.Flags().GetString("ask")
	opts.Simulate, _ = cmd.Flags().GetString("simulate")
	opts.Report, _ = cmd.Flags().GetString("report")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	zl, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer zl.Sync() //nolint:errcheck

	ctx := cmd.Context()
	transport, err := llm.NewGeminiTransport(ctx, cfg.Gemini(), zl.Named("llm"))
	if err != nil {
		return err
	}
	defer transport.Close()

	return analyze(ctx, transport, zl, opts, cmd.OutOrStdout())
}

func readInput(path string, stdin io.Reader) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("reading stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading contract: %w", err)
	}
	return string(data), nil
}

// analyze drives one dashboard session through the requested steps
func analyze(ctx context.Context, transport llm.Transport, zl *zap.Logger, opts analyzeOptions, out io.Writer) error {
	invoker, err := analysis.NewInvoker(
		analysis.WithTransport(transport),
		analysis.WithLogger(zl.Named("analysis")),
	)
	if err != nil {
		return err
	}
	dashboard := service.NewDashboardService(
		service.DashboardWithInvoker(invoker),
		service.DashboardWithLogger(zl.Named("dashboard")),
	)

	if err := dashboard.SubmitAndWait(ctx, opts.Document); err != nil {
		return err
	}
	snap := dashboard.Snapshot()
	printClauses(out, snap.Clauses)

	if opts.Explain {
		for _, clause := range snap.Clauses {
			if clause.IsStandard() {
				continue
			}
			explainClause(ctx, out, dashboard, clause)
		}
	}

	var failed []string
	if strings.TrimSpace(opts.Ask) != "" {
		answer, err := dashboard.Ask(ctx, opts.Ask)
		if err != nil {
			failed = append(failed, "question")
			fmt.Fprintf(out, "\nQ: %s\nFailed to get a response: %v\n", opts.Ask, err)
		} else {
			fmt.Fprintf(out, "\nQ: %s\nA: %s\n", opts.Ask, answer.Answer)
		}
	}

	if strings.TrimSpace(opts.Simulate) != "" {
		outcome, err := dashboard.Simulate(ctx, opts.Simulate)
		if err != nil {
			failed = append(failed, "scenario")
			fmt.Fprintf(out, "\nScenario: %s\nFailed to simulate: %v\n", opts.Simulate, err)
		} else {
			fmt.Fprintf(out, "\nScenario: %s\n%s %s risk: %s\n  %s\n",
				opts.Simulate, outcome.RiskLevel.Glyph(), outcome.RiskLevel, outcome.Outcome, outcome.Rationale)
		}
	}

	if opts.Report != "" {
		report := service.RenderReport(opts.Document, snap.Clauses)
		if err := os.WriteFile(opts.Report, []byte(report), 0644); err != nil {
			return fmt.Errorf("writing report: %w", err)
		}
		fmt.Fprintf(out, "\nReport written to %s\n", opts.Report)
	}

	if len(failed) > 0 {
		return errors.New("failed: " + strings.Join(failed, ", "))
	}
	return nil
}

func printClauses(out io.Writer, clauses []models.Clause) {
	risky := 0
	for _, c := range clauses {
		if !c.IsStandard() {
			risky++
		}
	}
	fmt.Fprintf(out, "%d clause(s), %d flagged\n\n", len(clauses), risky)

	for i, c := range clauses {
		marker := "  "
		if !c.IsStandard() {
			marker = c.RiskAssessment.RiskScore.Glyph()
		}
		fmt.Fprintf(out, "%s %2d. %s\n", marker, i+1, oneLine(c.ClauseText, 100))
		if !c.IsStandard() {
			fmt.Fprintf(out, "       %s risk: %s\n", c.RiskAssessment.RiskScore, c.RiskAssessment.Rationale)
		}
	}
}

func explainClause(ctx context.Context, out io.Writer, dashboard *service.DashboardService, clause models.Clause) {
	fmt.Fprintf(out, "\n== %s\n", oneLine(clause.ClauseText, 80))
	dashboard.SelectClause(clause.ID)

	for _, tab := range []models.Tab{models.TabSummary, models.TabStandards, models.TabNegotiation} {
		result, err := dashboard.LoadTab(ctx, clause.ID, tab)
		if err != nil {
			fmt.Fprintf(out, "  %s: failed to load analysis\n", tab)
			continue
		}
		switch r := result.(type) {
		case *models.Summary:
			fmt.Fprintf(out, "  Summary: %s\n", r.Summary)
		case *models.StandardsComparison:
			verdict := "non-standard"
			if r.IsStandard {
				verdict = "standard"
			}
			fmt.Fprintf(out, "  Standards (%s): %s\n", verdict, r.Comparison)
		case *models.NegotiationAdvice:
			fmt.Fprintln(out, "  Negotiation:")
			for _, s := range r.Suggestions {
				fmt.Fprintf(out, "    - %s\n", s)
			}
		}
	}
}

func oneLine(s string, limit int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len([]rune(s)) <= limit {
		return s
	}
	return string([]rune(s)[:limit-1]) + "…"
}
