package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chameleon-db/chameleon-mock/internal/replay"
	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"github.com/spf13/cobra"
)

var (
	replayStrict bool
	replaySave   bool
	replayTrace  bool
)

var replayCmd = &cobra.Command{
	Use:   "replay <script>",
	Short: "Play a request script against the fixtures",
	Long: `Load the fixtures into a mock provider and run a YAML or JSON script
of default-values, select and batch requests through the engine.

Every step is reported as hit, miss or error. Expectations that no step
received are listed at the end.

Examples:
  chameleon-mock replay scripts/example.yml
  chameleon-mock replay scripts/example.yml --strict
  chameleon-mock replay scripts/checkout.json --save --trace`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		p, err := loadProject()
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("strict") {
			replayStrict = p.cfg.Fixtures.Strict
		}

		summary, err := runReplay(cmd.Context(), p, args[0])
		details := map[string]interface{}{"script": args[0]}
		if summary != nil {
			hits, misses, errs := summary.Counts()
			details["hits"] = hits
			details["misses"] = misses
			details["errors"] = errs
			details["unreceived"] = len(summary.Unreceived)
			if err == nil && summary.Failed(replayStrict) {
				err = fmt.Errorf("replay of %s failed", summary.Script)
			}
		}
		p.record("replay", started, details, err)
		return err
	},
}

func runReplay(ctx context.Context, p *project, path string) (*replay.Summary, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	script, err := replay.LoadScript(path)
	if err != nil {
		return nil, err
	}
	eng, err := p.engine()
	if err != nil {
		return nil, err
	}
	if replayTrace {
		eng.WithDebug(engine.DebugTrace)
	}
	provider, err := p.provider()
	if err != nil {
		return nil, err
	}

	printInfo("Replaying %s (%d steps)", script.Name, len(script.Steps))
	summary, err := replay.NewRunner(eng, provider).Run(ctx, script)
	if err != nil {
		return summary, err
	}

	printSummary(summary)

	if replaySave {
		path, err := saveReport(p, summary)
		if err != nil {
			return summary, err
		}
		printInfo("Report written to %s", path)
	}
	return summary, nil
}

func printSummary(s *replay.Summary) {
	fmt.Println()
	for _, r := range s.Results {
		switch r.Outcome {
		case replay.OutcomeHit:
			successColor.Printf("  ✓ %-3d %s", r.Index, r.Label)
			mutedColor.Printf("  (%d row(s))\n", len(r.Rows))
		case replay.OutcomeMiss:
			warningColor.Printf("  ⚠ %-3d %s", r.Index, r.Label)
			mutedColor.Println("  (no matching mock)")
		default:
			errorColor.Printf("  ✗ %-3d %s\n", r.Index, r.Label)
			fmt.Printf("        %v\n", r.Err)
		}
		if verbose {
			for _, row := range r.Rows {
				mutedColor.Printf("        %v\n", row)
			}
		}
	}
	fmt.Println()

	if len(s.Unreceived) > 0 {
		printWarning("%d expectation(s) never received:", len(s.Unreceived))
		for _, rep := range s.Unreceived {
			fmt.Printf("    %-15s %-12s %s\n", rep.Kind, rep.Schema, rep.Predicate)
		}
		fmt.Println()
	}

	hits, misses, errs := s.Counts()
	fmt.Printf("%d hit, %d miss, %d error in %s\n", hits, misses, errs, s.Duration.Round(time.Millisecond))
}

type stepReport struct {
	Index    int          `json:"index"`
	Label    string       `json:"label"`
	Kind     string       `json:"kind"`
	Outcome  string       `json:"outcome"`
	Matched  int          `json:"matched"`
	Rows     []engine.Row `json:"rows,omitempty"`
	Error    string       `json:"error,omitempty"`
	Duration int64        `json:"duration_us"`
}

// saveReport writes the summary as JSON under .chameleon-mock/reports
func saveReport(p *project, s *replay.Summary) (string, error) {
	report := struct {
		Script     string            `json:"script"`
		RunAt      time.Time         `json:"run_at"`
		Steps      []stepReport      `json:"steps"`
		Unreceived []mock.SpecReport `json:"unreceived"`
	}{Script: s.Script, RunAt: time.Now().UTC(), Unreceived: s.Unreceived}

	for _, r := range s.Results {
		sr := stepReport{
			Index:    r.Index,
			Label:    r.Label,
			Kind:     r.Kind,
			Outcome:  string(r.Outcome),
			Matched:  r.Matched,
			Rows:     r.Rows,
			Duration: r.Duration.Microseconds(),
		}
		if r.Err != nil {
			sr.Error = r.Err.Error()
		}
		report.Steps = append(report.Steps, sr)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", err
	}

	dir := p.factory.Paths().Reports
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create reports directory: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("%s-%s.json", s.Script, report.RunAt.Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write report: %w", err)
	}
	return path, nil
}

func init() {
	replayCmd.Flags().BoolVar(&replayStrict, "strict", false, "fail on misses and unreceived expectations (default from fixtures.strict)")
	replayCmd.Flags().BoolVar(&replaySave, "save", false, "write a JSON report to .chameleon-mock/reports")
	replayCmd.Flags().BoolVar(&replayTrace, "trace", false, "show mock matching trace")

	rootCmd.AddCommand(replayCmd)
}
