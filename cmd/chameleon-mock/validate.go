package main

import (
	"fmt"
	"time"

	"github.com/chameleon-db/chameleon-mock/internal/fixtures"
	"github.com/chameleon-db/chameleon-mock/pkg/engine"
	"github.com/chameleon-db/chameleon-mock/pkg/mock"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate fixtures against the schema",
	Long: `Load the schema and every fixture file, then check that each fixture
names a known entity, known fields and supported operators.

Examples:
  chameleon-mock validate
  chameleon-mock validate --config ci/.chameleon-mock.yml`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		started := time.Now()
		p, err := loadProject()
		if err != nil {
			return err
		}

		issues, err := runValidate(p)
		details := map[string]interface{}{"issues": len(issues)}
		if err == nil && len(issues) > 0 {
			err = fmt.Errorf("%d fixture(s) do not match the schema", len(issues))
		}
		p.record("validate", started, details, err)
		return err
	},
}

func runValidate(p *project) ([]fixtures.Issue, error) {
	printInfo("Validating %s...", p.cfg.Schema.Path)
	eng, err := p.engine()
	if err != nil {
		fmt.Print(engine.FormatError(err))
		return nil, fmt.Errorf("schema validation failed")
	}
	printSuccess("Schema is valid (%d entities)", len(eng.Schema().Entities))

	merged, err := p.fixtures()
	if err != nil {
		return nil, err
	}

	issues := fixtures.Check(eng.Schema(), merged)
	for _, issue := range issues {
		printError("%s", issue.Origin)
		fmt.Print(engine.FormatError(issue.Err))
	}
	if len(issues) > 0 {
		return issues, nil
	}

	if err := merged.Fixtures.Apply(mock.NewProvider()); err != nil {
		return nil, fmt.Errorf("invalid fixtures: %w", err)
	}
	printSuccess("%d fixture(s) are valid", merged.Fixtures.Len())

	if verbose {
		fmt.Println()
		for _, o := range merged.Origins {
			mutedColor.Printf("  %s\n", o)
		}
	}
	return nil, nil
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
